package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gradverify/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps domain errors to HTTP. Internal detail never
// reaches the body; anything unrecognized is a generic 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	var cooldown *domain.CooldownError

	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, domain.ErrTokenInvalid):
		WriteError(w, http.StatusNotFound, "token_invalid", "Invalid or expired token")
	case errors.Is(err, domain.ErrTokenExpired):
		WriteError(w, http.StatusGone, "token_expired", "token expired, request a new verification email")
	case errors.Is(err, domain.ErrAlreadyVerified):
		WriteError(w, http.StatusConflict, "already_verified", "email is already verified")
	case errors.Is(err, domain.ErrResendLimit):
		WriteError(w, http.StatusTooManyRequests, "resend_limit", "resend limit reached, contact an administrator")
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.RetryAfter))
		WriteError(w, http.StatusTooManyRequests, "resend_cooldown", cooldown.Error())
	case errors.Is(err, domain.ErrDocumentReviewed):
		WriteError(w, http.StatusConflict, "document_reviewed", "document has already been reviewed")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
