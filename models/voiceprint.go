package models

import "time"

// Voiceprint, bir kullanıcının kayıtlı ses referansı.
// DB'de Features şifreli BLOB olarak tutulur; bu struct çözülmüş halidir.
type Voiceprint struct {
	UserID     string    `json:"user_id"`
	Features   []float64 `json:"-"`
	Dimension  int       `json:"dimension"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// EnrollVoiceprintRequest, PUT /api/voiceprints/me body'si.
type EnrollVoiceprintRequest struct {
	Features []float64 `json:"features" validate:"required,min=1,max=1024"`
}

// VerifyVoiceRequest, POST /api/voice/verify body'si.
type VerifyVoiceRequest struct {
	Sample []float64 `json:"sample" validate:"required,min=1,max=1024"`
}
