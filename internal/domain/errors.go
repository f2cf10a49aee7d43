package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTokenInvalid       = errors.New("token_invalid")
	ErrTokenExpired       = errors.New("token_expired")
	ErrAlreadyVerified    = errors.New("already_verified")
	ErrResendLimit        = errors.New("resend_limit")
	ErrCooldown           = errors.New("resend_cooldown")
	ErrDocumentReviewed   = errors.New("document_reviewed")
	ErrValidation         = errors.New("validation")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// CooldownError carries the remaining wait so the client can show a
// countdown and set Retry-After.
type CooldownError struct {
	RetryAfter int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wait %d seconds before requesting another email", e.RetryAfter)
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

func NewCooldownError(seconds int) error {
	if seconds < 1 {
		seconds = 1
	}
	return &CooldownError{RetryAfter: seconds}
}
