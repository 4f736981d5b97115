package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorCodeAndStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   string
		wantStatus int
	}{
		{fmt.Errorf("%w: S1", ErrSessionNotFound), CodeSessionNotFound, http.StatusNotFound},
		{ErrSessionEnded, CodeSessionEnded, http.StatusGone},
		{ErrSessionUnavailable, CodeSessionUnavailable, http.StatusServiceUnavailable},
		{ErrAlreadyJoined, CodeAlreadyJoined, http.StatusConflict},
		{ErrNotParticipant, CodeNotParticipant, http.StatusForbidden},
		{ErrNotAuthenticated, CodeNotAuthenticated, http.StatusForbidden},
		{ErrEnrollmentRequired, CodeEnrollmentRequired, http.StatusPreconditionRequired},
		{ErrVerificationFailed, CodeVerificationFailed, http.StatusUnauthorized},
		{ErrMalformedSample, CodeMalformedSample, http.StatusBadRequest},
		{&RateLimitError{RetryAfter: 3}, CodeRateLimited, http.StatusTooManyRequests},
		{&RateLimitError{RetryAfter: 3, Locked: true}, CodeVoiceLocked, http.StatusTooManyRequests},
		{ErrUnauthorized, CodeTransportAuthFailed, http.StatusUnauthorized},
		{ErrForbidden, CodeForbidden, http.StatusForbidden},
		{ErrBadRequest, CodeBadRequest, http.StatusBadRequest},
		{errors.New("disk full"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.wantCode {
				t.Fatalf("ErrorCode = %q, want %q", got, tt.wantCode)
			}
			if got := mapErrorToStatus(tt.err); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestRateLimitError(t *testing.T) {
	locked := fmt.Errorf("verify: %w", &RateLimitError{RetryAfter: 90, Locked: true})

	if !errors.Is(locked, ErrRateLimited) || !errors.Is(locked, ErrVoiceLocked) {
		t.Fatal("locked error should match both sentinels")
	}
	if errors.Is(&RateLimitError{}, ErrVoiceLocked) {
		t.Fatal("plain rate limit matched ErrVoiceLocked")
	}
	if retry, ok := RetryAfterOf(locked); !ok || retry != 90 {
		t.Fatalf("RetryAfterOf = %d, %v", retry, ok)
	}
	if _, ok := RetryAfterOf(ErrBadRequest); ok {
		t.Fatal("RetryAfterOf matched a non rate limit error")
	}
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, &RateLimitError{RetryAfter: 12})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "12" {
		t.Fatalf("Retry-After = %q", got)
	}

	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Code != CodeRateLimited || resp.RetryAfter != 12 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestErrorResponse_MasksInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("sqlite: database is locked at /var/lib/voxgate.db"))

	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != ErrInternal.Error() || resp.Code != CodeInternal {
		t.Fatalf("resp = %+v", resp)
	}
}
