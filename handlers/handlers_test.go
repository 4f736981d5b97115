package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/services"
)

type stubMeetings struct {
	organizer string
	req       *models.CreateMeetingRequest
	err       error
}

func (s *stubMeetings) Create(_ context.Context, organizerID string, req *models.CreateMeetingRequest) (*models.Meeting, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.organizer, s.req = organizerID, req
	return &models.Meeting{
		ID:                "M1",
		Title:             req.Title,
		OrganizerID:       organizerID,
		VoiceAuthRequired: req.RequiresVoiceAuth(),
		Status:            models.SessionScheduled,
	}, nil
}

func (s *stubMeetings) GetByID(context.Context, string) (*models.Meeting, error) {
	return nil, pkg.ErrSessionNotFound
}

// stubSessions sadece Snapshot'ı implement eder; diğer method'lar
// çağrılırsa nil interface panic'i testi düşürür.
type stubSessions struct {
	services.SessionService
	snapshots map[string]*models.SessionSnapshot
}

func (s *stubSessions) Snapshot(_ context.Context, id string) (*models.SessionSnapshot, error) {
	if snap, ok := s.snapshots[id]; ok {
		return snap, nil
	}
	return nil, fmt.Errorf("%w: %s", pkg.ErrSessionNotFound, id)
}

type stubVoiceAuth struct {
	services.VoiceAuthService
	result *models.VerificationResult
	err    error
	userID string
}

func (s *stubVoiceAuth) Verify(_ context.Context, userID string, _ []float64) (*models.VerificationResult, error) {
	s.userID = userID
	return s.result, s.err
}

func (s *stubVoiceAuth) Enroll(_ context.Context, userID string, features []float64) (*models.Voiceprint, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Voiceprint{UserID: userID, Features: features}, nil
}

func (s *stubVoiceAuth) Unenroll(_ context.Context, userID string) error {
	s.userID = userID
	return s.err
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type stubCounter int

func (c stubCounter) ConnectionCount() int { return int(c) }

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	RetryAfter int             `json:"retry_after"`
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithClaims(r.Context(), &models.TokenClaims{UserID: userID, Username: "name-" + userID}))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestMeetingCreate(t *testing.T) {
	meetings := &stubMeetings{}
	h := NewMeetingHandler(meetings, &stubSessions{})

	body := strings.NewReader(`{"title":"standup","voice_auth_required":false}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/meetings", body), "U1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	if meetings.organizer != "U1" {
		t.Fatalf("organizer = %q, want U1", meetings.organizer)
	}

	var m models.Meeting
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &m); err != nil {
		t.Fatalf("unmarshal meeting: %v", err)
	}
	if m.VoiceAuthRequired || m.Title != "standup" {
		t.Fatalf("meeting = %+v", m)
	}
}

func TestMeetingCreate_RejectsBadBodies(t *testing.T) {
	h := NewMeetingHandler(&stubMeetings{}, &stubSessions{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"title":`},
		{"unknown field", `{"title":"x","color":"red"}`},
		{"title too long", `{"title":"` + strings.Repeat("a", 201) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(tt.body)), "U1")
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Code != pkg.CodeBadRequest {
				t.Fatalf("code = %q", env.Code)
			}
		})
	}
}

func TestMeetingCreate_RequiresClaims(t *testing.T) {
	h := NewMeetingHandler(&stubMeetings{}, &stubSessions{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeetingGet(t *testing.T) {
	sessions := &stubSessions{snapshots: map[string]*models.SessionSnapshot{
		"S1": {SessionID: "S1", Status: models.SessionActive},
	}}
	h := NewMeetingHandler(&stubMeetings{}, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/meetings/{id}", h.Get)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/meetings/S1", nil), "U1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/meetings/S404", nil), "U1"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Code != pkg.CodeSessionNotFound {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestVoiceVerify(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		result     *models.VerificationResult
		err        error
		wantStatus int
		wantCode   string
		wantData   bool
	}{
		{
			name:       "accepted",
			result:     &models.VerificationResult{Accepted: true, Similarity: 0.9, Credential: "cred", ExpiresAt: expires},
			wantStatus: http.StatusOK,
			wantData:   true,
		},
		{
			name:       "rejected carries score",
			result:     &models.VerificationResult{Similarity: 0.4},
			err:        fmt.Errorf("%w: similarity 0.40", pkg.ErrVerificationFailed),
			wantStatus: http.StatusUnauthorized,
			wantCode:   pkg.CodeVerificationFailed,
			wantData:   true,
		},
		{
			name:       "not enrolled",
			err:        pkg.ErrEnrollmentRequired,
			wantStatus: http.StatusPreconditionRequired,
			wantCode:   pkg.CodeEnrollmentRequired,
		},
		{
			name:       "locked",
			err:        &pkg.RateLimitError{RetryAfter: 60, Locked: true},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   pkg.CodeVoiceLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice := &stubVoiceAuth{result: tt.result, err: tt.err}
			h := NewVoiceHandler(voice)

			req := authed(httptest.NewRequest(http.MethodPost, "/api/voice/verify", strings.NewReader(`{"sample":[0.1,0.2]}`)), "U7")
			rec := httptest.NewRecorder()
			h.Verify(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if voice.userID != "U7" {
				t.Fatalf("verified user = %q, want U7", voice.userID)
			}
			env := decodeEnvelope(t, rec)
			if env.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", env.Code, tt.wantCode)
			}
			if hasData := len(env.Data) > 0 && string(env.Data) != "null"; hasData != tt.wantData {
				t.Fatalf("data = %s", env.Data)
			}
		})
	}
}

func TestVoiceVerify_LockedSetsRetryAfter(t *testing.T) {
	h := NewVoiceHandler(&stubVoiceAuth{err: &pkg.RateLimitError{RetryAfter: 42, Locked: true}})

	rec := httptest.NewRecorder()
	h.Verify(rec, authed(httptest.NewRequest(http.MethodPost, "/api/voice/verify", strings.NewReader(`{"sample":[1]}`)), "U1"))

	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After = %q, want 42", got)
	}
	if env := decodeEnvelope(t, rec); env.RetryAfter != 42 {
		t.Fatalf("retry_after = %d", env.RetryAfter)
	}
}

func TestVoiceEnroll(t *testing.T) {
	voice := &stubVoiceAuth{}
	h := NewVoiceHandler(voice)

	rec := httptest.NewRecorder()
	h.Enroll(rec, authed(httptest.NewRequest(http.MethodPut, "/api/voiceprints/me", strings.NewReader(`{"features":[0.1,0.2,0.3]}`)), "U3"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if voice.userID != "U3" {
		t.Fatalf("enrolled user = %q", voice.userID)
	}

	rec = httptest.NewRecorder()
	h.Enroll(rec, authed(httptest.NewRequest(http.MethodPut, "/api/voiceprints/me", strings.NewReader(`{"features":[]}`)), "U3"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty features status = %d, want 400", rec.Code)
	}
}

func TestVoiceUnenroll(t *testing.T) {
	voice := &stubVoiceAuth{}
	h := NewVoiceHandler(voice)

	rec := httptest.NewRecorder()
	h.Unenroll(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/voiceprints/me", nil), "U4"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if voice.userID != "U4" {
		t.Fatalf("unenrolled user = %q", voice.userID)
	}

	voice.err = pkg.ErrEnrollmentRequired
	rec = httptest.NewRecorder()
	h.Unenroll(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/voiceprints/me", nil), "U4"))
	if rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("missing voiceprint status = %d, want 428", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{"all ok", map[string]Pinger{"sqlite": stubPinger{}}, http.StatusOK, "ok"},
		{"redis down", map[string]Pinger{"sqlite": stubPinger{}, "redis": stubPinger{err: errors.New("dial tcp: refused")}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, stubCounter(3))
			rec := httptest.NewRecorder()
			h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body healthResponse
			if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Status != tt.wantState || body.Connections != 3 {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}
