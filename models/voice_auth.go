package models

import "time"

// AuthOutcome, bir ses doğrulama denemesinin sonucu.
type AuthOutcome string

const (
	AuthAccepted           AuthOutcome = "accepted"
	AuthRejected           AuthOutcome = "rejected"
	AuthRateLimited        AuthOutcome = "rate_limited"
	AuthLocked             AuthOutcome = "locked"
	AuthEnrollmentRequired AuthOutcome = "enrollment_required"
	AuthMalformed          AuthOutcome = "malformed"
)

// AuthAttempt, tek bir doğrulama denemesinin kaydı. Kalıcı değildir;
// log ve metric'lere yansır.
type AuthAttempt struct {
	UserID     string      `json:"user_id"`
	At         time.Time   `json:"at"`
	Similarity float64     `json:"similarity"`
	Outcome    AuthOutcome `json:"outcome"`
}

// VerificationResult, VoiceAuthService.Verify'ın sonucu.
// Credential sadece Accepted ise doludur. MediaToken/MediaURL ise
// LiveKit yapılandırılmışsa ve doğrulama bir session için yapıldıysa dolar.
type VerificationResult struct {
	Accepted   bool      `json:"accepted"`
	Similarity float64   `json:"similarity"`
	Credential string    `json:"credential,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	MediaToken string    `json:"media_token,omitempty"`
	MediaURL   string    `json:"media_url,omitempty"`
}
