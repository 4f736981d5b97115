// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları connection ID ile tutan merkezi yapı
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-server arası iletilen mesaj zarfı
//
// Event akışı:
// 1. Client {op, d} gönderir → DecodeInbound ile tipli mesaja çevrilir
// 2. Mesaj Hub'a kayıtlı session callback'ine iletilir (SessionService)
// 3. Service, EventPublisher üzerinden ilgili bağlantılara event yollar
// 4. Her client'ın WritePump'ı event'i (gerekirse yerelleştirip) yazar
package ws

import (
	"time"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg/i18n"
)

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op: Event türü; "join_session", "auth_result" vb.
// Data: Event'e özgü payload.
// Seq: Her outbound event'e verilen artan sayı. Client eksik event'i
// seq boşluğundan anlar.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// ────────────────────────────────────────────
// Operation sabitleri
// ────────────────────────────────────────────

// Client → Server operasyonları
const (
	OpHeartbeat         = "heartbeat"
	OpJoinSession       = "join_session"
	OpLeaveSession      = "leave_session"
	OpSubmitVoiceSample = "submit_voice_sample"
	OpSendMessage       = "send_message"
	OpEndSession        = "end_session"
)

// Server → Client operasyonları
const (
	OpHeartbeatAck      = "heartbeat_ack"
	OpSessionSnapshot   = "session_snapshot"   // Katılan kişiye: session + mevcut katılımcılar
	OpParticipantJoined = "participant_joined" // Diğer katılımcılara
	OpParticipantLeft   = "participant_left"
	OpAuthRequired      = "auth_required" // Ses doğrulaması bekleniyor
	OpAuthResult        = "auth_result"
	OpChatMessage       = "chat_message"
	OpSessionEnded      = "session_ended"
	OpError             = "error"
)

// ─── Inbound payload'lar ───
//
// user_id alanı opsiyoneldir; gönderilirse bağlantının token'ındaki
// kullanıcıyla aynı olmalıdır.

// JoinSessionData, join_session payload'ı.
type JoinSessionData struct {
	SessionID   string `json:"session_id" validate:"required,max=64"`
	UserID      string `json:"user_id,omitempty" validate:"omitempty,max=64"`
	DisplayName string `json:"display_name" validate:"max=64"`
}

// LeaveSessionData, leave_session payload'ı.
type LeaveSessionData struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	UserID    string `json:"user_id,omitempty" validate:"omitempty,max=64"`
}

// SubmitVoiceSampleData, submit_voice_sample payload'ı.
type SubmitVoiceSampleData struct {
	SessionID string    `json:"session_id" validate:"required,max=64"`
	UserID    string    `json:"user_id,omitempty" validate:"omitempty,max=64"`
	Sample    []float64 `json:"sample" validate:"required,min=1,max=1024"`
}

// SendMessageData, send_message payload'ı.
type SendMessageData struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	UserID    string `json:"user_id,omitempty" validate:"omitempty,max=64"`
	Content   string `json:"content" validate:"required,max=4000"`
}

// EndSessionData, end_session payload'ı.
type EndSessionData struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	UserID    string `json:"user_id,omitempty" validate:"omitempty,max=64"`
}

// HeartbeatData, heartbeat payload'ı (boş).
type HeartbeatData struct{}

// ─── Outbound payload'lar ───

// ParticipantJoinedData, participant_joined payload'ı.
// Resumed: grace süresi içinde yeniden bağlanıp doğrulanmış durumunu geri aldı.
type ParticipantJoinedData struct {
	SessionID   string                  `json:"session_id"`
	UserID      string                  `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	State       models.ParticipantState `json:"state"`
	Resumed     bool                    `json:"resumed,omitempty"`
}

// ParticipantLeftData, participant_left payload'ı.
type ParticipantLeftData struct {
	SessionID   string             `json:"session_id"`
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Reason      models.LeaveReason `json:"reason"`
}

// AuthRequiredData, auth_required payload'ı.
type AuthRequiredData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message,omitempty"`
}

// AuthResultData, auth_result payload'ı.
//
// Başarılı sonuç tüm katılımcılara gider; Credential ve medya token'ı
// sadece doğrulanan kullanıcının kendi kopyasında bulunur.
// Başarısız sonuç sadece ilgili bağlantıya gider ve Code taşır.
type AuthResultData struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Success    bool      `json:"success"`
	Similarity float64   `json:"similarity"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"`
	Credential string    `json:"credential,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	MediaToken string    `json:"media_token,omitempty"`
	MediaURL   string    `json:"media_url,omitempty"`
}

// ChatMessageData, chat_message payload'ı.
type ChatMessageData struct {
	SessionID  string    `json:"session_id"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionEndedData, session_ended payload'ı.
type SessionEndedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message,omitempty"`
}

// ErrorData, error payload'ı. Code makine tarafından okunur (pkg.Code*),
// Message bağlantının dilinde doldurulur.
type ErrorData struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Op         string `json:"op,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// ─── Yerelleştirme ───

// Localizable, WritePump'ın yazmadan önce bağlantının diline çevirdiği payload'lar.
type Localizable interface {
	Localize(loc *i18n.Localizer) any
}

func (d ErrorData) Localize(loc *i18n.Localizer) any {
	d.Message = loc.ErrorMessage(d.Code, d.RetryAfter)
	return d
}

func (d AuthResultData) Localize(loc *i18n.Localizer) any {
	if d.Success {
		d.Message = loc.T("voice.accepted")
		return d
	}
	if d.Code != "" {
		d.Message = loc.ErrorMessage(d.Code, d.RetryAfter)
	}
	return d
}

func (d AuthRequiredData) Localize(loc *i18n.Localizer) any {
	d.Message = loc.T("voice.required")
	return d
}

func (d SessionEndedData) Localize(loc *i18n.Localizer) any {
	d.Message = loc.T("session." + d.Reason)
	return d
}
