package models

import "time"

// ParticipantState, bir katılımcının session içindeki kimlik doğrulama durumu.
//
//	joining → pending_auth → authenticated → left
//	joining → authenticated (politika kapalıysa)
//
// left terminaldir; aynı kullanıcı tekrar katılırsa yeni bir katılımcı
// kaydı (yeni incarnation) oluşur.
type ParticipantState string

const (
	ParticipantJoining       ParticipantState = "joining"
	ParticipantPendingAuth   ParticipantState = "pending_auth"
	ParticipantAuthenticated ParticipantState = "authenticated"
	ParticipantLeft          ParticipantState = "left"
)

// LeaveReason, katılımcının neden ayrıldığı.
type LeaveReason string

const (
	LeaveExplicit   LeaveReason = "explicit"
	LeaveDisconnect LeaveReason = "disconnect"
	LeaveEnded      LeaveReason = "session_ended"
)

// Participant, bir kullanıcının bir session'daki canlı üyeliği.
// EPHEMERAL; veritabanına yazılmaz.
type Participant struct {
	SessionID   string           `json:"session_id"`
	UserID      string           `json:"user_id"`
	DisplayName string           `json:"display_name"`
	ConnID      string           `json:"-"`
	State       ParticipantState `json:"state"`
	JoinedAt    time.Time        `json:"joined_at"`
	LeftAt      *time.Time       `json:"left_at,omitempty"`
}

// Info, participant'ın wire'a giden özetini döner.
func (p *Participant) Info() ParticipantInfo {
	return ParticipantInfo{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		State:       p.State,
		JoinedAt:    p.JoinedAt,
	}
}

// ParticipantInfo, snapshot ve event payload'larında kullanılan katılımcı özeti.
type ParticipantInfo struct {
	UserID      string           `json:"user_id"`
	DisplayName string           `json:"display_name"`
	State       ParticipantState `json:"state"`
	JoinedAt    time.Time        `json:"joined_at"`
}

// SessionSnapshot, bir session'ın anlık görüntüsü. Participants katılım
// sırasına göredir.
type SessionSnapshot struct {
	SessionID         string            `json:"session_id"`
	Title             string            `json:"title"`
	OrganizerID       string            `json:"organizer_id"`
	Status            SessionStatus     `json:"status"`
	VoiceAuthRequired bool              `json:"voice_auth_required"`
	Participants      []ParticipantInfo `json:"participants"`
}
