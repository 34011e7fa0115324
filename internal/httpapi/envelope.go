package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	goVerify "github.com/MrEthical07/goVerify"
)

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: "ok", Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Code: code, Message: message})
}

// writeError maps an engine error onto a status and stable code.
func writeError(w http.ResponseWriter, err error) {
	var rl *goVerify.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}
	status, code := classify(err)
	writeFailure(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, goVerify.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, goVerify.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_identifier"
	case errors.Is(err, goVerify.ErrInvalidPassword):
		return http.StatusBadRequest, "invalid_password"
	case errors.Is(err, goVerify.ErrUnknownPurpose):
		return http.StatusBadRequest, "unknown_purpose"
	case errors.Is(err, goVerify.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, goVerify.ErrCodeInvalid):
		return http.StatusBadRequest, "code_invalid"
	case errors.Is(err, goVerify.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, goVerify.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, goVerify.ErrAccountExists):
		return http.StatusConflict, "account_exists"
	case errors.Is(err, goVerify.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, goVerify.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, goVerify.ErrTokenRevoked),
		errors.Is(err, goVerify.ErrTokenExpired),
		errors.Is(err, goVerify.ErrTokenInvalid),
		errors.Is(err, goVerify.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, goVerify.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed"
	case errors.Is(err, goVerify.ErrStoreUnavailable),
		errors.Is(err, goVerify.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "backend_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
