package services

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/database"
	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg/crypto"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/repository"
	"github.com/akinalp/voxgate/ws"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingHub, ws.EventPublisher stub'ı; gönderilen her event'i bağlantı
// bazında kaydeder.
type recordingHub struct {
	mu     sync.Mutex
	events map[string][]ws.Event
}

func newRecordingHub() *recordingHub {
	return &recordingHub{events: make(map[string][]ws.Event)}
}

func (h *recordingHub) SendToConnection(connID string, event ws.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[connID] = append(h.events[connID], event)
	return true
}

func (h *recordingHub) SendToUser(string, ws.Event) int { return 0 }

func (h *recordingHub) eventsFor(connID string) []ws.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ws.Event(nil), h.events[connID]...)
}

func (h *recordingHub) opsFor(connID string) []string {
	var ops []string
	for _, e := range h.eventsFor(connID) {
		ops = append(ops, e.Op)
	}
	return ops
}

// last, bağlantıya giden son op event'ini döner.
func (h *recordingHub) last(t *testing.T, connID, op string) ws.Event {
	t.Helper()
	events := h.eventsFor(connID)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Op == op {
			return events[i]
		}
	}
	t.Fatalf("no %q event for %s; got %v", op, connID, h.opsFor(connID))
	return ws.Event{}
}

func (h *recordingHub) count(connID, op string) int {
	n := 0
	for _, e := range h.eventsFor(connID) {
		if e.Op == op {
			n++
		}
	}
	return n
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	h.events = make(map[string][]ws.Event)
	h.mu.Unlock()
}

// stubMatcher, sabit skor döner ve çağrı sayısını tutar.
type stubMatcher struct {
	mu    sync.Mutex
	score float64
	calls int
}

func (m *stubMatcher) Name() string { return "stub" }

func (m *stubMatcher) Similarity(_, _ []float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.score
}

func (m *stubMatcher) set(score float64) {
	m.mu.Lock()
	m.score = score
	m.mu.Unlock()
}

func (m *stubMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// flakyMeetingRepo, UpdateStatus'u istenince hata döndüren sarmalayıcı.
type flakyMeetingRepo struct {
	repository.MeetingRepository
	mu          sync.Mutex
	failUpdates bool
}

func (r *flakyMeetingRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, at time.Time) error {
	r.mu.Lock()
	fail := r.failUpdates
	r.mu.Unlock()
	if fail {
		return errors.New("disk I/O error")
	}
	return r.MeetingRepository.UpdateStatus(ctx, id, status, at)
}

func (r *flakyMeetingRepo) setFail(fail bool) {
	r.mu.Lock()
	r.failUpdates = fail
	r.mu.Unlock()
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	db, err := database.New(database.MemoryPath, migrations, zerolog.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	t           *testing.T
	clock       *fakeClock
	hub         *recordingHub
	store       *ratelimit.MemoryStore
	limiter     *ratelimit.Limiter
	meetings    *flakyMeetingRepo
	voiceprints repository.VoiceprintRepository
	matcher     *stubMatcher
	voiceAuth   VoiceAuthService
	sessions    *sessionService
}

type fixtureOption func(*VoiceAuthConfig, *SessionServiceConfig)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	db := openTestDB(t)
	key, err := crypto.DeriveKey(testSecret, "voiceprint")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	voiceCfg := VoiceAuthConfig{
		Threshold:   0.75,
		VerifyRule:  ratelimit.Rule{Name: "voice_verify", Limit: 5, Window: time.Minute},
		EnrollRule:  ratelimit.Rule{Name: "voice_enroll", Limit: 5, Window: time.Hour},
		FailureRule: ratelimit.Rule{Name: "voice_fail", Limit: 5, Window: 15 * time.Minute},
	}
	sessionCfg := SessionServiceConfig{
		ResumeGrace: 2 * time.Minute,
		ChatRule:    ratelimit.Rule{Name: "chat", Limit: 20, Window: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&voiceCfg, &sessionCfg)
	}

	f := &fixture{
		t:           t,
		clock:       newFakeClock(),
		hub:         newRecordingHub(),
		store:       ratelimit.NewMemoryStore(),
		meetings:    &flakyMeetingRepo{MeetingRepository: repository.NewSQLiteMeetingRepo(db.Conn)},
		voiceprints: repository.NewSQLiteVoiceprintRepo(db.Conn, key),
		matcher:     &stubMatcher{score: 1},
	}
	f.limiter = ratelimit.New(f.store, zerolog.Nop()).WithClock(f.clock.Now)
	f.voiceAuth = NewVoiceAuthService(f.voiceprints, f.matcher, NewJWTCredentialIssuer(testSecret, "voxgate", 5*time.Minute), f.limiter, voiceCfg, zerolog.Nop())

	svc := NewSessionService(f.meetings, f.voiceAuth, f.limiter, f.hub, sessionCfg, zerolog.Nop()).(*sessionService)
	svc.now = f.clock.Now
	svc.tickets.WithClock(f.clock.Now)
	t.Cleanup(svc.Shutdown)
	f.sessions = svc
	return f
}

func (f *fixture) createMeeting(id, organizer string, voiceAuth bool) {
	f.t.Helper()
	m := &models.Meeting{ID: id, Title: "meeting " + id, OrganizerID: organizer, VoiceAuthRequired: voiceAuth}
	if err := f.meetings.Create(context.Background(), m); err != nil {
		f.t.Fatalf("create meeting: %v", err)
	}
}

func (f *fixture) enroll(userID string) {
	f.t.Helper()
	vp := &models.Voiceprint{UserID: userID, Features: []float64{0.1, 0.2, 0.3, 0.4}, Dimension: 4, EnrolledAt: f.clock.Now()}
	if err := f.voiceprints.Upsert(context.Background(), vp); err != nil {
		f.t.Fatalf("enroll: %v", err)
	}
}

func (f *fixture) join(sessionID, userID, connID string) *JoinResult {
	f.t.Helper()
	res, err := f.sessions.Join(context.Background(), JoinRequest{SessionID: sessionID, UserID: userID, ConnID: connID})
	if err != nil {
		f.t.Fatalf("Join(%s, %s): %v", sessionID, userID, err)
	}
	return res
}

func (f *fixture) state(sessionID, userID string) models.ParticipantState {
	f.t.Helper()
	snap, err := f.sessions.Snapshot(context.Background(), sessionID)
	if err != nil {
		f.t.Fatalf("Snapshot: %v", err)
	}
	for _, p := range snap.Participants {
		if p.UserID == userID {
			return p.State
		}
	}
	return models.ParticipantLeft
}

var sample = []float64{0.1, 0.2, 0.3, 0.4}
