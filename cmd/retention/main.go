package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"gradverify/internal/config"
	"gradverify/internal/service"
	"gradverify/internal/store/postgres"
)

// Deletes accounts that never completed email verification. Meant to run
// from cron; prints what it did and exits.
func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.DBDSN == "" {
		_, _ = os.Stderr.WriteString("APP_DB_DSN: required\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgPool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	verifySvc := &service.VerificationService{Users: postgres.NewUsersStore(pgPool)}

	deleted, err := verifySvc.SweepUnverified(ctx, cfg.RetentionAge)
	if err != nil {
		logger.Error("retention sweep failed", "err", err)
		os.Exit(1)
	}

	logger.Info("retention sweep done", "deleted", deleted, "retention_age", cfg.RetentionAge.String())
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
