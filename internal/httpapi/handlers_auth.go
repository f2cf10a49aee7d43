package httpapi

import (
	"net/http"
	"strings"
	"time"

	"gradverify/internal/auth"
	"gradverify/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "registration_unavailable", "registration unavailable")
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if !validEmail(req.Email) {
		fields["email"] = "must be a valid email"
	}
	if !validName(req.Name) {
		fields["name"] = "must be 1-100 characters"
	}
	if len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	u, err := a.accountSvc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		a.logError(r, "register failed", err)
		WriteDomainError(w, err)
		return
	}

	writeUser(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if a.authSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "auth_unavailable", "auth unavailable")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	role, roleOK := domain.ParseRole(req.Role)
	if req.Email == "" || req.Password == "" || !roleOK {
		WriteDomainError(w, domain.NewValidationError(map[string]string{
			"email": "required", "password": "required", "role": "must be a known role",
		}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.limiter.Allow("ip:"+ip, now) || !a.limiter.Allow("login:"+req.Email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	u, signed, err := a.authSvc.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		a.logError(r, "login failed", err)
		WriteDomainError(w, err)
		return
	}

	auth.SetSessionCookie(w, signed, a.sessionTTL, a.cookieSecure)
	writeUser(w, http.StatusOK, u)
}

// Logout is client-side only: there is no server session to revoke, the
// cookie is simply discarded.
func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := CurrentSession(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, sessionResponse{
		UserID: sess.UserID,
		Email:  sess.Email,
		Name:   sess.Name,
		Role:   string(sess.Role),
	})
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	StudentStatus string     `json:"student_status,omitempty"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func writeUser(w http.ResponseWriter, status int, u domain.User) {
	WriteJSON(w, status, toUserResponse(u))
}

func toUserResponse(u domain.User) userResponse {
	resp := userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
	if u.Role == domain.RoleStudent {
		resp.StudentStatus = string(u.StudentStatus)
	}
	return resp
}

func (a *api) logError(r *http.Request, msg string, err error) {
	fields := []any{"err", err, "path", r.URL.Path}
	if rid, ok := GetRequestID(r.Context()); ok {
		fields = append(fields, "request_id", rid)
	}
	a.logger.Error(msg, fields...)
}
