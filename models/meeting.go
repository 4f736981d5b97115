package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SessionStatus, bir meeting'in yaşam döngüsü durumu.
// scheduled → active (ilk katılımda) → ended (terminal).
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
)

// Meeting, kalıcı meeting kaydı. DB'deki "meetings" tablosunun Go karşılığı.
// Canlı katılımcılar burada değil, SessionService'in belleğinde tutulur.
type Meeting struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	OrganizerID       string        `json:"organizer_id"`
	VoiceAuthRequired bool          `json:"voice_auth_required"`
	Status            SessionStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
}

// CreateMeetingRequest, POST /api/meetings body'si.
// VoiceAuthRequired verilmezse true kabul edilir.
type CreateMeetingRequest struct {
	Title             string `json:"title" validate:"max=200"`
	VoiceAuthRequired *bool  `json:"voice_auth_required"`
}

// Validate, CreateMeetingRequest'i normalize eder ve kontrol eder.
func (r *CreateMeetingRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if utf8.RuneCountInString(r.Title) > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	return nil
}

// RequiresVoiceAuth, politika alanının varsayılanını uygular.
func (r *CreateMeetingRequest) RequiresVoiceAuth() bool {
	if r.VoiceAuthRequired == nil {
		return true
	}
	return *r.VoiceAuthRequired
}
