// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrSessionNotFound) { ... }
//
// Handler ve ws katmanı bu error'ları HTTP status code'larına veya
// wire-level error code'larına (ErrorCode) map'ler.
package pkg

import (
	"errors"
	"fmt"
)

// Genel error'lar.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// Meeting access-control error'ları.
//
// ErrVerificationFailed "tekrar dene", ErrEnrollmentRequired "önce kayıt ol"
// anlamına gelir; ikisi aynı code'a map edilmez.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionEnded        = errors.New("session has ended")
	ErrSessionUnavailable  = errors.New("session is unavailable")
	ErrAlreadyJoined       = errors.New("user already joined from another connection")
	ErrNotParticipant      = errors.New("user is not a participant of this session")
	ErrNotAuthenticated    = errors.New("voice authentication required")
	ErrEnrollmentRequired  = errors.New("no voiceprint enrolled")
	ErrVerificationFailed  = errors.New("voice verification failed")
	ErrMalformedSample     = errors.New("malformed voice sample")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrVoiceLocked         = errors.New("voice verification locked")
	ErrTransportAuthFailed = errors.New("transport authentication failed")
)

// RateLimitError, rate limit reddini bekleme süresiyle birlikte taşır.
//
// errors.Is(err, ErrRateLimited) her zaman true döner; lockout durumunda
// errors.Is(err, ErrVoiceLocked) da true olur.
type RateLimitError struct {
	Identifier string
	RetryAfter int // saniye
	Locked     bool
}

func (e *RateLimitError) Error() string {
	if e.Locked {
		return fmt.Sprintf("%s: retry after %ds", ErrVoiceLocked.Error(), e.RetryAfter)
	}
	return fmt.Sprintf("%s: retry after %ds", ErrRateLimited.Error(), e.RetryAfter)
}

// Is, errors.Is zincirinde sentinel eşleşmesini sağlar.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	return e.Locked && target == ErrVoiceLocked
}

// RetryAfterOf, error zincirinde RateLimitError varsa bekleme süresini döner.
func RetryAfterOf(err error) (int, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// Wire-level error code'ları; ws error event'lerinde ve HTTP body'de kullanılır.
const (
	CodeSessionNotFound     = "session_not_found"
	CodeSessionEnded        = "session_ended"
	CodeSessionUnavailable  = "session_unavailable"
	CodeAlreadyJoined       = "already_joined"
	CodeNotParticipant      = "not_participant"
	CodeNotAuthenticated    = "not_authenticated"
	CodeEnrollmentRequired  = "enrollment_required"
	CodeVerificationFailed  = "verification_failed"
	CodeMalformedSample     = "malformed_sample"
	CodeRateLimited         = "rate_limited"
	CodeVoiceLocked         = "voice_locked"
	CodeTransportAuthFailed = "transport_auth_failed"
	CodeForbidden           = "forbidden"
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "not_found"
	CodeInternal            = "internal"
)

// ErrorCode, error'u wire code'una çevirir.
// Sıra önemli: ErrVoiceLocked, ErrRateLimited'dan önce kontrol edilmeli.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrSessionEnded):
		return CodeSessionEnded
	case errors.Is(err, ErrSessionUnavailable):
		return CodeSessionUnavailable
	case errors.Is(err, ErrAlreadyJoined):
		return CodeAlreadyJoined
	case errors.Is(err, ErrNotParticipant):
		return CodeNotParticipant
	case errors.Is(err, ErrNotAuthenticated):
		return CodeNotAuthenticated
	case errors.Is(err, ErrEnrollmentRequired):
		return CodeEnrollmentRequired
	case errors.Is(err, ErrVerificationFailed):
		return CodeVerificationFailed
	case errors.Is(err, ErrMalformedSample):
		return CodeMalformedSample
	case errors.Is(err, ErrVoiceLocked):
		return CodeVoiceLocked
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrTransportAuthFailed), errors.Is(err, ErrUnauthorized):
		return CodeTransportAuthFailed
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
