package httpapi

import (
	"net/http"
	"strings"
	"time"

	"gradverify/internal/domain"
)

func writeAccountsUnavailable(w http.ResponseWriter) {
	WriteError(w, http.StatusServiceUnavailable, "accounts_unavailable", "account management unavailable")
}

func (a *api) handleUsersList(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	page, limit := pageParams(r)

	users, pagination, err := a.accountSvc.ListUsers(r.Context(), page, limit)
	if err != nil {
		a.logError(r, "list users failed", err)
		WriteDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": out, "pagination": pagination})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *api) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	role, roleOK := domain.ParseRole(req.Role)
	if !validEmail(req.Email) {
		fields["email"] = "must be a valid email"
	}
	if !validName(req.Name) {
		fields["name"] = "must be 1-100 characters"
	}
	if !roleOK {
		fields["role"] = "must be a known role"
	}
	if req.Password != "" && len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	u, err := a.accountSvc.CreateUser(r.Context(), sess, req.Email, req.Name, req.Password, role)
	if err != nil {
		a.logError(r, "create user failed", err)
		WriteDomainError(w, err)
		return
	}

	writeUser(w, http.StatusCreated, u)
}

type updateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (a *api) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	req.Name = strings.TrimSpace(req.Name)
	role, roleOK := domain.ParseRole(req.Role)
	if !validName(req.Name) {
		fields["name"] = "must be 1-100 characters"
	}
	if !roleOK {
		fields["role"] = "must be a known role"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	u, err := a.accountSvc.UpdateUser(r.Context(), sess, r.PathValue("id"), req.Name, role)
	if err != nil {
		a.logError(r, "update user failed", err)
		WriteDomainError(w, err)
		return
	}

	writeUser(w, http.StatusOK, u)
}

func (a *api) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	if err := a.accountSvc.DeleteUser(r.Context(), sess, r.PathValue("id")); err != nil {
		a.logError(r, "delete user failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleUserResetResend(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	if err := a.accountSvc.ResetResend(r.Context(), sess, r.PathValue("id")); err != nil {
		a.logError(r, "reset resend failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type studentStatusRequest struct {
	Status string `json:"status"`
}

func (a *api) handleStudentStatus(w http.ResponseWriter, r *http.Request) {
	if a.accountSvc == nil {
		writeAccountsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req studentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	status, ok := domain.ParseStudentStatus(req.Status)
	if !ok {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"status": "must be a known status"}))
		return
	}

	if err := a.accountSvc.SetStudentStatus(r.Context(), sess, r.PathValue("id"), status); err != nil {
		a.logError(r, "set student status failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if a.auditSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "audit_unavailable", "audit log unavailable")
		return
	}
	page, limit := pageParams(r)
	q := r.URL.Query()

	filter := domain.AuditFilter{
		ActorID:  strings.TrimSpace(q.Get("actor_id")),
		TargetID: strings.TrimSpace(q.Get("target_id")),
	}
	if action := strings.TrimSpace(q.Get("action")); action != "" {
		filter.Action = domain.AuditAction(action)
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter.To = &to
	}

	entries, pagination, err := a.auditSvc.List(r.Context(), filter, page, limit)
	if err != nil {
		a.logError(r, "list audit failed", err)
		WriteDomainError(w, err)
		return
	}

	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			ID:        e.ID,
			Action:    string(e.Action),
			ActorID:   e.ActorID,
			TargetID:  e.TargetID,
			Details:   e.Details,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"logs": out, "pagination": pagination})
}

type auditResponse struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
	TargetID  string         `json:"target_id,omitempty"`
	Details   map[string]any `json:"details"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
