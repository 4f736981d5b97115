package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/cache"
	"github.com/akinalp/voxgate/pkg/metrics"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/repository"
	"github.com/akinalp/voxgate/ws"
)

// maxMessageLength, trim sonrası chat mesajının rune cinsinden üst sınırı.
const maxMessageLength = 2000

// SessionService, canlı meeting oturumlarını ve katılımcı state machine'ini yönetir.
//
// Katılımcı durumu:
//
//	joining → pending_auth → authenticated → left
//	joining → authenticated (politika kapalıysa veya resume ticket varsa)
//
// Tüm geçişler ve o geçişin ürettiği broadcast'ler session'ın mutex'i
// altında yapılır; bir session'daki event sırası kabul sırasıyla aynıdır.
type SessionService interface {
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)
	// SubmitVoiceSample, sadece pending_auth durumundaki katılımcı için
	// doğrulama çalıştırır. Doğrulama sonucu (kabul/red) auth_result event'i
	// ile iletilir; dönen error sadece ön koşul ihlallerini taşır.
	SubmitVoiceSample(ctx context.Context, sessionID, userID, connID string, sample []float64) error
	Leave(ctx context.Context, sessionID, userID, connID string, reason models.LeaveReason) error
	SendMessage(ctx context.Context, sessionID, userID, connID, content string) error
	// EndSession, sadece organizatör tarafından çağrılabilir.
	EndSession(ctx context.Context, sessionID, userID string) error
	// DisconnectConnection, bağlantının bulunduğu tüm session'lardan
	// disconnect sebebiyle çıkış yapar.
	DisconnectConnection(connID string)
	Snapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	// StartReaper, grace süresi boyunca boş kalan session'ları periyodik
	// olarak kapatır. ctx iptal edilince durur.
	StartReaper(ctx context.Context, interval time.Duration)
	// Shutdown, resume ticket cache'ini kapatır.
	Shutdown()
}

// JoinRequest, Join parametreleri. DisplayName boşsa UserID kullanılır.
type JoinRequest struct {
	SessionID   string
	UserID      string
	DisplayName string
	ConnID      string
}

// JoinResult, katılan kişiye gönderilen snapshot ve katılımcının son durumu.
type JoinResult struct {
	Snapshot    models.SessionSnapshot
	Participant models.ParticipantInfo
	Resumed     bool
}

// SessionServiceConfig, SessionService ayarları.
type SessionServiceConfig struct {
	// ResumeGrace: resume ticket ömrü ve boş session'ın kapanma süresi.
	ResumeGrace time.Duration
	ChatRule    ratelimit.Rule
}

// liveSession, bellekteki canlı oturum. Tüm alanlar mu ile korunur.
type liveSession struct {
	mu           sync.Mutex
	meeting      models.Meeting
	participants map[string]*participantEntry // userID → katılımcı
	order        []string                     // katılım sırasına göre userID'ler
	unusable     bool
	detached     bool // manager map'ten çıkarıldı
	emptySince   time.Time
	incarnation  uint64
}

// participantEntry, katılımcı + eşzamanlı doğrulama takibi.
// incarnation her yeni katılımda artar; eski bir doğrulamanın sonucu yeni
// katılımcıya uygulanmaz.
type participantEntry struct {
	models.Participant
	incarnation uint64
	verifying   bool
}

// resumeTicket, beklenmedik kopuşta yazılan, grace süresi boyunca geçerli kayıt.
type resumeTicket struct {
	DisplayName string
	At          time.Time
}

type sessionService struct {
	meetings  repository.MeetingRepository
	voiceAuth VoiceAuthService
	limiter   *ratelimit.Limiter
	hub       ws.EventPublisher
	tickets   *cache.TTLCache[string, resumeTicket]
	cfg       SessionServiceConfig
	now       func() time.Time
	log       zerolog.Logger

	// Lock sırası: liveSession.mu → mu / connMu. mu ve connMu yapraktır;
	// tutulurken başka lock alınmaz.
	mu       sync.RWMutex
	sessions map[string]*liveSession

	connMu    sync.Mutex
	connIndex map[string]map[string]string // connID → sessionID → userID
}

// NewSessionService, constructor.
func NewSessionService(
	meetings repository.MeetingRepository,
	voiceAuth VoiceAuthService,
	limiter *ratelimit.Limiter,
	hub ws.EventPublisher,
	cfg SessionServiceConfig,
	log zerolog.Logger,
) SessionService {
	cleanup := cfg.ResumeGrace / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &sessionService{
		meetings:  meetings,
		voiceAuth: voiceAuth,
		limiter:   limiter,
		hub:       hub,
		tickets:   cache.New[string, resumeTicket](cfg.ResumeGrace, cleanup),
		cfg:       cfg,
		now:       time.Now,
		log:       log,
		sessions:  make(map[string]*liveSession),
		connIndex: make(map[string]map[string]string),
	}
}

// ─── Join ───

func (s *sessionService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		req.DisplayName = req.UserID
	}

	// Reaper session'ı tam bu sırada map'ten çıkarmış olabilir; bir kez
	// tekrar yüklenir.
	for range 2 {
		ls, err := s.getOrLoad(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}

		ls.mu.Lock()
		if ls.detached && ls.meeting.Status != models.SessionEnded {
			ls.mu.Unlock()
			continue
		}
		res, err := s.joinLocked(ctx, ls, req)
		ls.mu.Unlock()
		return res, err
	}
	return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionUnavailable, req.SessionID)
}

func (s *sessionService) joinLocked(ctx context.Context, ls *liveSession, req JoinRequest) (*JoinResult, error) {
	if ls.meeting.Status == models.SessionEnded {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, req.SessionID)
	}
	if ls.unusable {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionUnavailable, req.SessionID)
	}

	// Aynı bağlantıdan tekrar katılım: durum değişmez, snapshot tekrar gönderilir
	if p, ok := ls.participants[req.UserID]; ok {
		if p.ConnID != req.ConnID {
			return nil, fmt.Errorf("%w: session %s", pkg.ErrAlreadyJoined, req.SessionID)
		}
		snap := ls.snapshot()
		s.send(p.ConnID, ws.OpSessionSnapshot, snap)
		if p.State == models.ParticipantPendingAuth {
			s.send(p.ConnID, ws.OpAuthRequired, ws.AuthRequiredData{SessionID: req.SessionID, UserID: req.UserID})
		}
		return &JoinResult{Snapshot: snap, Participant: p.Info()}, nil
	}

	now := s.now().UTC()

	// İlk katılım meeting'i aktif yapar
	if ls.meeting.Status == models.SessionScheduled {
		if err := s.meetings.UpdateStatus(ctx, ls.meeting.ID, models.SessionActive, now); err != nil {
			s.markUnusableLocked(ls, err)
			return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionUnavailable, req.SessionID)
		}
		ls.meeting.Status = models.SessionActive
		ls.meeting.StartedAt = &now
	}

	ls.incarnation++
	p := &participantEntry{
		Participant: models.Participant{
			SessionID:   req.SessionID,
			UserID:      req.UserID,
			DisplayName: req.DisplayName,
			ConnID:      req.ConnID,
			State:       models.ParticipantJoining,
			JoinedAt:    now,
		},
		incarnation: ls.incarnation,
	}
	ls.participants[req.UserID] = p
	ls.order = append(ls.order, req.UserID)
	ls.emptySince = time.Time{}
	s.indexConn(req.ConnID, req.SessionID, req.UserID)

	_, resumed := s.tickets.Take(ticketKey(req.SessionID, req.UserID))

	if ls.meeting.VoiceAuthRequired && !resumed {
		p.State = models.ParticipantPendingAuth
	} else {
		p.State = models.ParticipantAuthenticated
	}
	metrics.ParticipantTransitionsTotal.WithLabelValues(string(p.State)).Inc()

	s.broadcast(ls, ws.OpParticipantJoined, ws.ParticipantJoinedData{
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		DisplayName: p.DisplayName,
		State:       p.State,
		Resumed:     resumed,
	}, req.UserID)

	snap := ls.snapshot()
	s.send(req.ConnID, ws.OpSessionSnapshot, snap)

	if p.State == models.ParticipantPendingAuth {
		s.send(req.ConnID, ws.OpAuthRequired, ws.AuthRequiredData{SessionID: req.SessionID, UserID: req.UserID})
	}

	s.log.Info().
		Str("session_id", req.SessionID).
		Str("user_id", req.UserID).
		Str("state", string(p.State)).
		Bool("resumed", resumed).
		Int("participants", len(ls.order)).
		Msg("participant joined")

	return &JoinResult{Snapshot: snap, Participant: p.Info(), Resumed: resumed}, nil
}

// ─── Voice auth ───

func (s *sessionService) SubmitVoiceSample(ctx context.Context, sessionID, userID, connID string, sample []float64) error {
	ls, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	p, err := participantLocked(ls, userID, connID)
	if err != nil {
		ls.mu.Unlock()
		return err
	}
	if p.State != models.ParticipantPendingAuth {
		ls.mu.Unlock()
		return fmt.Errorf("%w: participant is not awaiting voice authentication", pkg.ErrBadRequest)
	}
	if p.verifying {
		ls.mu.Unlock()
		return fmt.Errorf("%w: verification already in progress", pkg.ErrBadRequest)
	}
	p.verifying = true
	incarnation := p.incarnation
	name := p.DisplayName
	ls.mu.Unlock()

	// Doğrulama (DB + matcher + credential) session lock'u dışında çalışır
	result, verr := s.voiceAuth.VerifyForSession(ctx, CredentialRequest{
		UserID:    userID,
		Username:  name,
		SessionID: sessionID,
	}, sample)

	ls.mu.Lock()
	defer ls.mu.Unlock()

	cur, ok := ls.participants[userID]
	if !ok || cur.incarnation != incarnation || cur.State != models.ParticipantPendingAuth {
		s.log.Debug().Str("session_id", sessionID).Str("user_id", userID).Msg("discarding stale verification result")
		return nil
	}
	cur.verifying = false

	// Bağlantı doğrulama sürerken kapandıysa sonuç uygulanmaz
	if err := ctx.Err(); err != nil {
		s.log.Debug().Str("session_id", sessionID).Str("user_id", userID).Msg("discarding verification result of closed connection")
		return err
	}

	if verr == nil && result != nil && result.Accepted {
		cur.State = models.ParticipantAuthenticated
		metrics.ParticipantTransitionsTotal.WithLabelValues(string(cur.State)).Inc()

		// Credential sadece doğrulanan kullanıcının kendi kopyasında
		s.send(cur.ConnID, ws.OpAuthResult, ws.AuthResultData{
			SessionID:  sessionID,
			UserID:     userID,
			Success:    true,
			Similarity: result.Similarity,
			Credential: result.Credential,
			ExpiresAt:  result.ExpiresAt,
			MediaToken: result.MediaToken,
			MediaURL:   result.MediaURL,
		})
		s.broadcast(ls, ws.OpAuthResult, ws.AuthResultData{
			SessionID:  sessionID,
			UserID:     userID,
			Success:    true,
			Similarity: result.Similarity,
		}, userID)
		return nil
	}

	if verr == nil {
		verr = pkg.ErrVerificationFailed
	}
	data := ws.AuthResultData{
		SessionID: sessionID,
		UserID:    userID,
		Success:   false,
		Code:      pkg.ErrorCode(verr),
		Message:   verr.Error(),
	}
	if result != nil {
		data.Similarity = result.Similarity
	}
	if retry, ok := pkg.RetryAfterOf(verr); ok {
		data.RetryAfter = retry
	}
	if data.Code == pkg.CodeInternal {
		s.log.Error().Err(verr).Str("session_id", sessionID).Str("user_id", userID).Msg("voice verification failed")
	}
	s.send(cur.ConnID, ws.OpAuthResult, data)
	return nil
}

// ─── Leave / disconnect ───

func (s *sessionService) Leave(ctx context.Context, sessionID, userID, connID string, reason models.LeaveReason) error {
	ls, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.meeting.Status == models.SessionEnded {
		return fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, sessionID)
	}
	p, ok := ls.participants[userID]
	if !ok || p.ConnID != connID {
		return fmt.Errorf("%w: session %s", pkg.ErrNotParticipant, sessionID)
	}

	s.removeLocked(ls, p, reason)
	return nil
}

func (s *sessionService) DisconnectConnection(connID string) {
	s.connMu.Lock()
	memberships := s.connIndex[connID]
	delete(s.connIndex, connID)
	s.connMu.Unlock()

	for sessionID, userID := range memberships {
		s.mu.RLock()
		ls := s.sessions[sessionID]
		s.mu.RUnlock()
		if ls == nil {
			continue
		}

		ls.mu.Lock()
		if p, ok := ls.participants[userID]; ok && p.ConnID == connID {
			s.removeLocked(ls, p, models.LeaveDisconnect)
		}
		ls.mu.Unlock()
	}
}

// removeLocked, katılımcıyı left yapar ve set'ten çıkarır. Sadece
// doğrulanmış bir katılımcının beklenmedik kopuşu resume ticket yazar.
func (s *sessionService) removeLocked(ls *liveSession, p *participantEntry, reason models.LeaveReason) {
	now := s.now().UTC()
	wasAuthenticated := p.State == models.ParticipantAuthenticated

	p.State = models.ParticipantLeft
	p.LeftAt = &now
	delete(ls.participants, p.UserID)
	ls.order = slices.DeleteFunc(ls.order, func(id string) bool { return id == p.UserID })
	s.unindexConn(p.ConnID, p.SessionID)
	metrics.ParticipantTransitionsTotal.WithLabelValues(string(models.ParticipantLeft)).Inc()

	if reason == models.LeaveDisconnect && wasAuthenticated {
		s.tickets.Set(ticketKey(p.SessionID, p.UserID), resumeTicket{DisplayName: p.DisplayName, At: now})
	}

	s.broadcast(ls, ws.OpParticipantLeft, ws.ParticipantLeftData{
		SessionID:   p.SessionID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Reason:      reason,
	}, "")

	if len(ls.order) == 0 {
		ls.emptySince = now
	}

	msg := "participant left"
	if reason == models.LeaveDisconnect {
		msg = "participant disconnected"
	}
	s.log.Info().
		Str("session_id", p.SessionID).
		Str("user_id", p.UserID).
		Int("participants", len(ls.order)).
		Msg(msg)
}

// ─── Chat ───

func (s *sessionService) SendMessage(ctx context.Context, sessionID, userID, connID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: message content is empty", pkg.ErrBadRequest)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return fmt.Errorf("%w: message must be at most %d characters", pkg.ErrBadRequest, maxMessageLength)
	}

	ls, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}

	// Yetki kontrolü limiter'dan önce; doğrulanmamış mesajlar kotayı tüketmez
	ls.mu.Lock()
	p, err := participantLocked(ls, userID, connID)
	if err == nil {
		err = canChat(ls, p)
	}
	ls.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.limiter.Allow(ctx, ratelimit.Key("user", userID, sessionID, "chat"), s.cfg.ChatRule); err != nil {
		if errors.Is(err, pkg.ErrRateLimited) {
			return err
		}
		return fmt.Errorf("failed to check chat rate limit: %w", err)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	p, err = participantLocked(ls, userID, connID)
	if err != nil {
		return err
	}
	if err := canChat(ls, p); err != nil {
		return err
	}

	s.broadcast(ls, ws.OpChatMessage, ws.ChatMessageData{
		SessionID:  sessionID,
		Sender:     userID,
		SenderName: p.DisplayName,
		Content:    content,
		Timestamp:  s.now().UTC(),
	}, "")
	metrics.ChatMessagesTotal.Inc()
	return nil
}

func canChat(ls *liveSession, p *participantEntry) error {
	if ls.meeting.VoiceAuthRequired && p.State != models.ParticipantAuthenticated {
		return fmt.Errorf("%w: session %s", pkg.ErrNotAuthenticated, ls.meeting.ID)
	}
	return nil
}

// ─── End ───

func (s *sessionService) EndSession(ctx context.Context, sessionID, userID string) error {
	ls, err := s.getOrLoad(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.meeting.Status == models.SessionEnded {
		return fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, sessionID)
	}
	if ls.meeting.OrganizerID != userID {
		return fmt.Errorf("%w: only the organizer can end the session", pkg.ErrForbidden)
	}

	now := s.now().UTC()
	if err := s.meetings.UpdateStatus(ctx, sessionID, models.SessionEnded, now); err != nil {
		s.markUnusableLocked(ls, err)
		return fmt.Errorf("%w: session %s", pkg.ErrSessionUnavailable, sessionID)
	}
	ls.meeting.Status = models.SessionEnded
	ls.meeting.EndedAt = &now

	s.broadcast(ls, ws.OpSessionEnded, ws.SessionEndedData{
		SessionID: sessionID,
		Reason:    "ended_by_organizer",
	}, "")

	for _, id := range ls.order {
		p := ls.participants[id]
		p.State = models.ParticipantLeft
		p.LeftAt = &now
		s.unindexConn(p.ConnID, sessionID)
		metrics.ParticipantTransitionsTotal.WithLabelValues(string(models.ParticipantLeft)).Inc()
	}
	participants := len(ls.order)
	ls.participants = make(map[string]*participantEntry)
	ls.order = nil

	s.dropTickets(sessionID)
	s.detachLocked(ls)

	s.log.Info().Str("session_id", sessionID).Int("participants", participants).Msg("session ended by organizer")
	return nil
}

// ─── Snapshot ───

func (s *sessionService) Snapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	s.mu.RLock()
	ls := s.sessions[sessionID]
	s.mu.RUnlock()

	if ls != nil {
		ls.mu.Lock()
		snap := ls.snapshot()
		ls.mu.Unlock()
		return &snap, nil
	}

	m, err := s.loadMeeting(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &models.SessionSnapshot{
		SessionID:         m.ID,
		Title:             m.Title,
		OrganizerID:       m.OrganizerID,
		Status:            m.Status,
		VoiceAuthRequired: m.VoiceAuthRequired,
		Participants:      []models.ParticipantInfo{},
	}, nil
}

// ─── Reaper ───

func (s *sessionService) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reapIdle(ctx, s.now().UTC())
			}
		}
	}()
}

// reapIdle, grace süresinden uzun süredir boş olan session'ları kapatır
// ve kapatılan sayıyı döner. Persist hatasında session bir sonraki tick'te
// tekrar denenir.
func (s *sessionService) reapIdle(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	live := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		live = append(live, ls)
	}
	s.mu.RUnlock()

	reaped := 0
	for _, ls := range live {
		ls.mu.Lock()
		if ls.detached || len(ls.order) > 0 || ls.emptySince.IsZero() || now.Sub(ls.emptySince) < s.cfg.ResumeGrace {
			ls.mu.Unlock()
			continue
		}

		if ls.unusable || ls.meeting.Status != models.SessionActive {
			s.detachLocked(ls)
			ls.mu.Unlock()
			continue
		}

		if err := s.meetings.UpdateStatus(ctx, ls.meeting.ID, models.SessionEnded, now); err != nil {
			s.log.Error().Err(err).Str("session_id", ls.meeting.ID).Msg("failed to end idle session")
			ls.mu.Unlock()
			continue
		}
		ls.meeting.Status = models.SessionEnded
		ls.meeting.EndedAt = &now
		s.dropTickets(ls.meeting.ID)
		s.detachLocked(ls)
		reaped++

		s.log.Info().Str("session_id", ls.meeting.ID).Dur("idle", now.Sub(ls.emptySince)).Msg("idle session ended")
		ls.mu.Unlock()
	}
	return reaped
}

func (s *sessionService) Shutdown() {
	s.tickets.Close()
}

// ─── Helpers ───

// getOrLoad, canlı session'ı döner; yoksa meeting kaydından oluşturur.
func (s *sessionService) getOrLoad(ctx context.Context, sessionID string) (*liveSession, error) {
	s.mu.RLock()
	ls := s.sessions[sessionID]
	s.mu.RUnlock()
	if ls != nil {
		return ls, nil
	}

	m, err := s.loadMeeting(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.SessionEnded {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.sessions[sessionID]; existing != nil {
		return existing, nil
	}
	ls = &liveSession{
		meeting:      *m,
		participants: make(map[string]*participantEntry),
		emptySince:   s.now().UTC(),
	}
	s.sessions[sessionID] = ls
	metrics.SessionsLive.Inc()
	return ls, nil
}

// live, join dışındaki operasyonlar için canlı session'ı döner. Session
// canlı değilse kullanıcı zaten katılımcı olamaz.
func (s *sessionService) live(ctx context.Context, sessionID string) (*liveSession, error) {
	s.mu.RLock()
	ls := s.sessions[sessionID]
	s.mu.RUnlock()
	if ls != nil {
		return ls, nil
	}

	m, err := s.loadMeeting(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.SessionEnded {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, sessionID)
	}
	return nil, fmt.Errorf("%w: session %s", pkg.ErrNotParticipant, sessionID)
}

func (s *sessionService) loadMeeting(ctx context.Context, sessionID string) (*models.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", pkg.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	return m, nil
}

func participantLocked(ls *liveSession, userID, connID string) (*participantEntry, error) {
	if ls.meeting.Status == models.SessionEnded {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionEnded, ls.meeting.ID)
	}
	if ls.unusable || ls.detached {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrSessionUnavailable, ls.meeting.ID)
	}
	p, ok := ls.participants[userID]
	if !ok || p.ConnID != connID {
		return nil, fmt.Errorf("%w: session %s", pkg.ErrNotParticipant, ls.meeting.ID)
	}
	return p, nil
}

// markUnusableLocked, persist hatasından sonra session'ı kullanılamaz yapar
// ve tüm katılımcılara session_unavailable yayınlar.
func (s *sessionService) markUnusableLocked(ls *liveSession, cause error) {
	ls.unusable = true
	s.log.Error().Err(cause).Str("session_id", ls.meeting.ID).Msg("failed to persist session status, session unavailable")

	s.broadcast(ls, ws.OpError, ws.ErrorData{
		Code:      pkg.CodeSessionUnavailable,
		Message:   pkg.ErrSessionUnavailable.Error(),
		SessionID: ls.meeting.ID,
	}, "")
}

func (s *sessionService) detachLocked(ls *liveSession) {
	ls.detached = true

	s.mu.Lock()
	if s.sessions[ls.meeting.ID] == ls {
		delete(s.sessions, ls.meeting.ID)
		metrics.SessionsLive.Dec()
	}
	s.mu.Unlock()
}

func (s *sessionService) dropTickets(sessionID string) {
	prefix := ticketKey(sessionID, "")
	s.tickets.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

func (s *sessionService) indexConn(connID, sessionID, userID string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if _, ok := s.connIndex[connID]; !ok {
		s.connIndex[connID] = make(map[string]string)
	}
	s.connIndex[connID][sessionID] = userID
}

func (s *sessionService) unindexConn(connID, sessionID string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if sessions, ok := s.connIndex[connID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(s.connIndex, connID)
		}
	}
}

func (s *sessionService) send(connID, op string, data any) {
	s.hub.SendToConnection(connID, ws.Event{Op: op, Data: data})
}

// broadcast, session'daki tüm katılımcılara katılım sırasıyla gönderir.
// exceptUserID boş değilse o kullanıcı atlanır.
func (s *sessionService) broadcast(ls *liveSession, op string, data any, exceptUserID string) {
	for _, id := range ls.order {
		if id == exceptUserID {
			continue
		}
		s.send(ls.participants[id].ConnID, op, data)
	}
}

func (ls *liveSession) snapshot() models.SessionSnapshot {
	infos := make([]models.ParticipantInfo, 0, len(ls.order))
	for _, id := range ls.order {
		infos = append(infos, ls.participants[id].Info())
	}
	return models.SessionSnapshot{
		SessionID:         ls.meeting.ID,
		Title:             ls.meeting.Title,
		OrganizerID:       ls.meeting.OrganizerID,
		Status:            ls.meeting.Status,
		VoiceAuthRequired: ls.meeting.VoiceAuthRequired,
		Participants:      infos,
	}
}

func ticketKey(sessionID, userID string) string {
	return sessionID + "|" + userID
}
