package httpapi

import (
	"net/http"
	"strings"
	"time"

	"gradverify/internal/domain"
)

func (a *api) handleVerify(w http.ResponseWriter, r *http.Request) {
	if a.verifySvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "verification_unavailable", "email verification unavailable")
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	redirect, err := a.verifySvc.Verify(r.Context(), token)
	if err != nil {
		a.logError(r, "verification failed", err)
		WriteDomainError(w, err)
		return
	}

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

type resendRequest struct {
	Email string `json:"email"`
}

func (a *api) handleResend(w http.ResponseWriter, r *http.Request) {
	if a.verifySvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "verification_unavailable", "email verification unavailable")
		return
	}

	var req resendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid email"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.limiter.Allow("resend:ip:"+ip, now) || !a.limiter.Allow("resend:email:"+email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	if err := a.verifySvc.Resend(r.Context(), email); err != nil {
		a.logError(r, "resend failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
