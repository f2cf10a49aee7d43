package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"gradverify/internal/auth"
	"gradverify/internal/config"
	"gradverify/internal/domain"
	"gradverify/internal/email"
	"gradverify/internal/httpapi"
	"gradverify/internal/service"
	"gradverify/internal/storage"
	"gradverify/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		authSvc    *service.AuthService
		accountSvc *service.AccountService
		verifySvc  *service.VerificationService
		docSvc     *service.DocumentService
		auditSvc   *service.AuditService
		dbPing     func(context.Context) error
	)

	codec := auth.NewTokenCodec([]byte(cfg.SessionSecret), cfg.SessionTTL)

	if cfg.DBDSN != "" {
		if err := postgres.Migrate(context.Background(), cfg.DBDSN); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		tokens := postgres.NewTokensStore(pgPool)
		documents := postgres.NewDocumentsStore(pgPool)
		audit := postgres.NewAuditStore(pgPool)

		if err := bootstrapSuperAdmin(context.Background(), logger, users, cfg.BootstrapEmail, cfg.BootstrapName, cfg.BootstrapPassword); err != nil {
			logger.Error("bootstrap super admin failed", "err", err)
			os.Exit(1)
		}

		mailer := &email.Sender{
			Settings: email.Settings{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				TLSMode:  cfg.SMTP.TLSMode,
			},
			FromName:  cfg.SMTP.FromName,
			FromEmail: cfg.SMTP.FromEmail,
		}

		auditSvc = &service.AuditService{Store: audit, Logger: logger}
		authSvc = &service.AuthService{Users: users, Codec: codec}
		verifySvc = &service.VerificationService{
			Tokens:         tokens,
			Users:          users,
			Mailer:         mailer,
			TokenTTL:       cfg.TokenTTL,
			ResendCooldown: cfg.ResendCooldown,
			ResendMax:      cfg.ResendMax,
			PublicURL:      cfg.PublicURL,
		}
		accountSvc = &service.AccountService{
			Users:        users,
			Verification: verifySvc,
			Audit:        auditSvc,
		}
		dbPing = pgPool.Ping

		if cfg.S3.Bucket != "" {
			presigner, err := storage.NewS3Presigner(context.Background(), storage.Config{
				Endpoint:  cfg.S3.Endpoint,
				Region:    cfg.S3.Region,
				Bucket:    cfg.S3.Bucket,
				AccessKey: cfg.S3.AccessKey,
				SecretKey: cfg.S3.SecretKey,
			})
			if err != nil {
				logger.Error("s3 init failed", "err", err)
				os.Exit(1)
			}
			docSvc = &service.DocumentService{
				Docs:    documents,
				Storage: presigner,
				Audit:   auditSvc,
			}
		} else {
			logger.Info("document storage disabled", "reason", "APP_S3_BUCKET not set")
		}
	}

	router := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       dbPing,
		Auth:         authSvc,
		Accounts:     accountSvc,
		Verification: verifySvc,
		Documents:    docSvc,
		Audit:        auditSvc,
		Codec:        codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		PublicURL:    cfg.PublicURL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func bootstrapSuperAdmin(ctx context.Context, logger *slog.Logger, users *postgres.UsersStore, bootstrapEmail, name, password string) error {
	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_SUPERADMIN_PASSWORD: must be at least 12 characters")
	}
	if bootstrapEmail == "" {
		return errors.New("super admin bootstrap: email is required")
	}

	_, err := users.GetUserByEmail(ctx, bootstrapEmail)
	if err == nil {
		logger.Info("super admin bootstrap: user already exists", "email", bootstrapEmail)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("super admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("super admin bootstrap: hash password: %w", err)
	}

	u, err := users.CreateUser(ctx, bootstrapEmail, name, hash, domain.RoleSuperAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			logger.Info("super admin bootstrap: user already exists", "email", bootstrapEmail)
			return nil
		}
		return fmt.Errorf("super admin bootstrap: create user: %w", err)
	}

	// Bootstrap accounts never go through the mail loop.
	if err := users.SetEmailVerified(ctx, u.ID, time.Now()); err != nil {
		return fmt.Errorf("super admin bootstrap: mark verified: %w", err)
	}

	logger.Info("super admin bootstrap: created super admin", "email", bootstrapEmail)
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
