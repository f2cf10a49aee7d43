package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gradverify/internal/auth"
	"gradverify/internal/domain"
	"gradverify/internal/service"
)

type stubUsersStore struct {
	t *testing.T

	getUserByEmailAndRoleFunc func(context.Context, string, domain.Role) (domain.UserWithPassword, error)
}

func (s *stubUsersStore) CreateUser(context.Context, string, string, string, domain.Role) (domain.User, error) {
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(context.Context, string) (domain.User, error) {
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(context.Context, string) (domain.UserWithPassword, error) {
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmailAndRole(ctx context.Context, email string, role domain.Role) (domain.UserWithPassword, error) {
	if s.getUserByEmailAndRoleFunc != nil {
		return s.getUserByEmailAndRoleFunc(ctx, email, role)
	}
	s.t.Fatalf("GetUserByEmailAndRole called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

// stubAccountStore fills out the account-management methods so the router
// can carry a real AccountService; any call past validation is a failure.
type stubAccountStore struct {
	*stubUsersStore
}

func (s *stubAccountStore) ListUsers(context.Context, int, int) ([]domain.User, int64, error) {
	s.t.Fatalf("ListUsers called unexpectedly")
	return nil, 0, errors.New("unexpected call")
}

func (s *stubAccountStore) UpdateUser(context.Context, string, string, domain.Role) (domain.User, error) {
	s.t.Fatalf("UpdateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubAccountStore) SetStudentStatus(context.Context, string, domain.StudentStatus) error {
	s.t.Fatalf("SetStudentStatus called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubAccountStore) DeleteUser(context.Context, string) error {
	s.t.Fatalf("DeleteUser called unexpectedly")
	return errors.New("unexpected call")
}

func testRouter(t *testing.T, users *stubUsersStore) http.Handler {
	t.Helper()
	codec := auth.NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)
	return NewRouter(RouterOpts{
		Auth:       &service.AuthService{Users: users, Codec: codec},
		Accounts:   &service.AccountService{Users: &stubAccountStore{stubUsersStore: users}},
		Codec:      codec,
		SessionTTL: time.Hour,
	})
}

func TestLoginHandler(t *testing.T) {
	hash, err := auth.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	users := &stubUsersStore{
		t: t,
		getUserByEmailAndRoleFunc: func(_ context.Context, email string, role domain.Role) (domain.UserWithPassword, error) {
			if email == "student@example.com" && role == domain.RoleStudent {
				return domain.UserWithPassword{
					User:         domain.User{ID: "user-1", Email: email, Name: "Student", Role: role, StudentStatus: domain.StudentNotSubmitted},
					PasswordHash: hash,
				}, nil
			}
			return domain.UserWithPassword{}, domain.ErrNotFound
		},
	}
	h := testRouter(t, users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"Student@Example.com","password":"hunter2hunter2","role":"STUDENT"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, auth.SessionCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	var body struct {
		ID            string `json:"id"`
		Role          string `json:"role"`
		StudentStatus string `json:"student_status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "user-1", body.ID)
	require.Equal(t, "STUDENT", body.Role)
	require.Equal(t, "NOT_SUBMITTED", body.StudentStatus)
}

func TestLoginHandlerWrongRoleClaim(t *testing.T) {
	hash, err := auth.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	users := &stubUsersStore{
		t: t,
		getUserByEmailAndRoleFunc: func(_ context.Context, email string, role domain.Role) (domain.UserWithPassword, error) {
			if role == domain.RoleStudent {
				return domain.UserWithPassword{
					User:         domain.User{ID: "user-1", Email: email, Role: role},
					PasswordHash: hash,
				}, nil
			}
			return domain.UserWithPassword{}, domain.ErrNotFound
		},
	}
	h := testRouter(t, users)

	// The account exists as STUDENT but claims ADMIN. Response must be the
	// same 401 a wrong password gets.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"student@example.com","password":"hunter2hunter2","role":"ADMIN"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "invalid_credentials", env.Error.Code)
	require.Len(t, rr.Result().Cookies(), 0)
}

func TestLoginHandlerUnknownRole(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"student@example.com","password":"pw-pw-pw","role":"WIZARD"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterHandlerValidation(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"not-an-email","name":"","password":"short"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "validation_error", env.Error.Code)
}

func TestSessionHandler(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	codec := auth.NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)
	signed, err := codec.Mint(domain.User{ID: "user-1", Email: "s@example.com", Role: domain.RoleStudent})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: signed})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "user-1", body.UserID)
	require.Equal(t, "STUDENT", body.Role)
}

func TestLogoutHandlerClearsCookie(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/no/such/route", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

// A server can come up without a database or object storage configured. The
// routes backed by the missing services must answer 503, not panic into a
// generic 500.
func TestHandlersUnavailableWithoutBackingServices(t *testing.T) {
	codec := auth.NewTokenCodec([]byte(strings.Repeat("k", 32)), time.Hour)
	h := NewRouter(RouterOpts{Codec: codec, SessionTTL: time.Hour})

	student, err := codec.Mint(domain.User{ID: "user-1", Email: "s@example.com", Role: domain.RoleStudent})
	require.NoError(t, err)
	super, err := codec.Mint(domain.User{ID: "root-1", Email: "root@example.com", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		cookie   string
		wantCode string
	}{
		{"login", http.MethodPost, "/api/auth/login", `{"email":"s@example.com","password":"hunter2hunter2","role":"STUDENT"}`, "", "auth_unavailable"},
		{"register", http.MethodPost, "/api/auth/register", `{"email":"s@example.com","name":"S","password":"hunter2hunter2"}`, "", "registration_unavailable"},
		{"verify", http.MethodGet, "/api/auth/verify?token=abc", "", "", "verification_unavailable"},
		{"resend", http.MethodPost, "/api/auth/resend", `{"email":"s@example.com"}`, "", "verification_unavailable"},
		{"upload url", http.MethodPost, "/api/documents/upload-url", `{"file_name":"diploma.pdf"}`, student, "documents_unavailable"},
		{"my documents", http.MethodGet, "/api/documents/mine", "", student, "documents_unavailable"},
		{"users list", http.MethodGet, "/api/admin/users", "", super, "accounts_unavailable"},
		{"audit list", http.MethodGet, "/api/admin/audit", "", super, "audit_unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tc.cookie})
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusServiceUnavailable, rr.Code, rr.Body.String())

			var env errorEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			require.Equal(t, tc.wantCode, env.Error.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	h := testRouter(t, &stubUsersStore{t: t})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
