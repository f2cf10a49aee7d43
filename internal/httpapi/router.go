package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gradverify/internal/auth"
	"gradverify/internal/domain"
	"gradverify/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth         *service.AuthService
	Accounts     *service.AccountService
	Verification *service.VerificationService
	Documents    *service.DocumentService
	Audit        *service.AuditService

	Codec        auth.TokenCodec
	CookieSecure bool
	SessionTTL   time.Duration
	PublicURL    *url.URL
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		authSvc:      opts.Auth,
		accountSvc:   opts.Accounts,
		verifySvc:    opts.Verification,
		docSvc:       opts.Documents,
		auditSvc:     opts.Audit,
		codec:        opts.Codec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
		publicURL:    opts.PublicURL,
		limiter:      newAttemptLimiter(),
	}

	var (
		students  = []domain.Role{domain.RoleStudent}
		reviewers = []domain.Role{domain.RoleFaculty, domain.RoleAdmin, domain.RoleSuperAdmin}
		admins    = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
		supers    = []domain.Role{domain.RoleSuperAdmin}
	)

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.HandleFunc("GET /dashboard/", api.pageGuard)
	publicMux.HandleFunc("GET /login", api.handleLoginPage)
	publicMux.HandleFunc("GET /", api.handleHome)

	apiMux.HandleFunc("POST /api/auth/register", api.handleAuthRegister)
	apiMux.HandleFunc("POST /api/auth/login", api.handleAuthLogin)
	apiMux.HandleFunc("POST /api/auth/logout", api.handleAuthLogout)
	apiMux.HandleFunc("GET /api/auth/session", api.handleAuthSession)
	apiMux.HandleFunc("GET /api/auth/verify", api.handleVerify)
	apiMux.HandleFunc("POST /api/auth/resend", api.handleResend)

	apiMux.HandleFunc("POST /api/documents/upload-url", api.requireRole(api.handleDocumentUploadURL, students...))
	apiMux.HandleFunc("POST /api/documents", api.requireRole(api.handleDocumentRegister, students...))
	apiMux.HandleFunc("GET /api/documents/mine", api.requireRole(api.handleDocumentsMine, students...))
	apiMux.HandleFunc("GET /api/documents", api.requireRole(api.handleDocumentsPending, reviewers...))
	apiMux.HandleFunc("GET /api/documents/{id}/url", api.requireRole(api.handleDocumentURL, append(students, reviewers...)...))
	apiMux.HandleFunc("POST /api/documents/{id}/approve", api.requireRole(api.handleDocumentApprove, reviewers...))
	apiMux.HandleFunc("POST /api/documents/{id}/reject", api.requireRole(api.handleDocumentReject, reviewers...))
	apiMux.HandleFunc("DELETE /api/documents/{id}", api.requireRole(api.handleDocumentDelete, students...))

	apiMux.HandleFunc("GET /api/admin/users", api.requireRole(api.handleUsersList, supers...))
	apiMux.HandleFunc("POST /api/admin/users", api.requireRole(api.handleUserCreate, supers...))
	apiMux.HandleFunc("PATCH /api/admin/users/{id}", api.requireRole(api.handleUserUpdate, supers...))
	apiMux.HandleFunc("DELETE /api/admin/users/{id}", api.requireRole(api.handleUserDelete, supers...))
	apiMux.HandleFunc("POST /api/admin/users/{id}/reset-resend", api.requireRole(api.handleUserResetResend, supers...))
	apiMux.HandleFunc("POST /api/admin/students/{id}/status", api.requireRole(api.handleStudentStatus, admins...))
	apiMux.HandleFunc("GET /api/admin/audit", api.requireRole(api.handleAuditList, admins...))

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			WriteError(w, http.StatusNotFound, "not_found", "not found")
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = api.withSession(root)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc    *service.AuthService
	accountSvc *service.AccountService
	verifySvc  *service.VerificationService
	docSvc     *service.DocumentService
	auditSvc   *service.AuditService

	codec        auth.TokenCodec
	cookieSecure bool
	sessionTTL   time.Duration
	publicURL    *url.URL

	limiter *attemptLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

func (a *api) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if sess, ok := CurrentSession(r.Context()); ok {
		http.Redirect(w, r, roleHome(sess.Role), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (a *api) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := CurrentSession(r.Context()); ok {
		http.Redirect(w, r, roleHome(sess.Role), http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><title>GradVerify</title><div id=\"app\" data-page=\"login\"></div>"))
}
