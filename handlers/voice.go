package handlers

import (
	"errors"
	"net/http"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/services"
)

// VoiceHandler, voiceprint kaydı ve session dışı ses doğrulama endpoint'leri.
type VoiceHandler struct {
	voiceAuth services.VoiceAuthService
}

// NewVoiceHandler, constructor.
func NewVoiceHandler(voiceAuth services.VoiceAuthService) *VoiceHandler {
	return &VoiceHandler{voiceAuth: voiceAuth}
}

// Enroll, kullanıcının ses referansını kaydeder veya tamamen değiştirir.
//
//	PUT /api/voiceprints/me
//	Request:  { "features": [0.12, 0.53, ...] }
//	Response: { "user_id": "...", "dimension": 128, "enrolled_at": "..." }
func (h *VoiceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.EnrollVoiceprintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	vp, err := h.voiceAuth.Enroll(r.Context(), claims.UserID, req.Features)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, vp)
}

// Unenroll, kullanıcının ses referansını siler.
//
//	DELETE /api/voiceprints/me → 204
func (h *VoiceHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	if err := h.voiceAuth.Unenroll(r.Context(), claims.UserID); err != nil {
		pkg.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify, örneği kullanıcının referansıyla karşılaştırır.
//
//	POST /api/voice/verify
//	Request:  { "sample": [0.12, 0.53, ...] }
//	Response: 200 { "accepted": true, "similarity": 0.91, "credential": "eyJ...", "expires_at": "..." }
//
// Red durumunda 401 + verification_failed döner; skor data alanında bulunur.
func (h *VoiceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.VerifyVoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	result, err := h.voiceAuth.Verify(r.Context(), claims.UserID, req.Sample)
	if err != nil {
		if errors.Is(err, pkg.ErrVerificationFailed) && result != nil {
			pkg.ErrorWithData(w, err, result)
			return
		}
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
