package handlers

import (
	"net/http"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/services"
)

// MeetingHandler, meeting HTTP endpoint'lerini yönetir.
type MeetingHandler struct {
	meetingService services.MeetingService
	sessionService services.SessionService
}

// NewMeetingHandler, constructor.
func NewMeetingHandler(meetingService services.MeetingService, sessionService services.SessionService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService, sessionService: sessionService}
}

// Create, yeni meeting oluşturur. İstek sahibi organizatör olur.
//
//	POST /api/meetings
//	Request:  { "title": "standup", "voice_auth_required": true }
//	Response: 201 { "id": "...", "status": "scheduled", ... }
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.CreateMeetingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	meeting, err := h.meetingService.Create(r.Context(), claims.UserID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, meeting)
}

// Get, meeting'in canlı snapshot'ını döner (session canlı değilse
// kayıttaki durum ve boş katılımcı listesi).
//
//	GET /api/meetings/{id}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}

	snap, err := h.sessionService.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, snap)
}
