package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// APIResponse, REST yanıtlarının zarfı. Hatalı yanıtlarda Code, WS error
// event'lerindeki code ile aynı vocabulary'dendir.
type APIResponse struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// JSON, başarılı yanıt yazar.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{Success: true, Data: data})
}

// Error, err'i status + code'a çevirip yazar. Rate limit hatalarında
// Retry-After header'ı da set edilir.
func Error(w http.ResponseWriter, err error) {
	ErrorWithData(w, err, nil)
}

// ErrorWithData, hata yanıtına data ekler (ör. reddedilen doğrulamanın skoru).
func ErrorWithData(w http.ResponseWriter, err error, data any) {
	status := mapErrorToStatus(err)
	resp := APIResponse{Data: data, Error: err.Error(), Code: ErrorCode(err)}

	if status == http.StatusInternalServerError {
		resp.Error = ErrInternal.Error()
	}
	if retryAfter, ok := RetryAfterOf(err); ok {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		resp.RetryAfter = retryAfter
	}
	write(w, status, resp)
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTransportAuthFailed),
		errors.Is(err, ErrVerificationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyJoined):
		return http.StatusConflict
	case errors.Is(err, ErrEnrollmentRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, ErrSessionEnded):
		return http.StatusGone
	case errors.Is(err, ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMalformedSample):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
