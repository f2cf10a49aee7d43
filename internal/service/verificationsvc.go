package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gradverify/internal/domain"
)

type TokensStore interface {
	CreateToken(ctx context.Context, token domain.VerificationToken) error
	GetTokenByHash(ctx context.Context, tokenHash string) (domain.VerificationToken, error)
	// DeleteTokenByHash reports whether a row was actually removed. Under
	// concurrent verification only one caller sees true.
	DeleteTokenByHash(ctx context.Context, tokenHash string) (bool, error)
}

type VerificationUsersStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetEmailVerified(ctx context.Context, userID string, when time.Time) error
	// MarkResend increments resend_count and stamps last_resend_at in one
	// conditional update. It reports false when the cap or cooldown
	// predicate no longer holds, which happens when a concurrent resend
	// won the race.
	MarkResend(ctx context.Context, userID string, when time.Time, maxCount int, cooldown time.Duration) (bool, error)
	ResetResendCount(ctx context.Context, userID string) error
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type VerificationMailer interface {
	SendVerification(ctx context.Context, toEmail, name, verifyURL string) error
}

type VerificationService struct {
	Tokens TokensStore
	Users  VerificationUsersStore
	Mailer VerificationMailer

	TokenTTL       time.Duration
	ResendCooldown time.Duration
	ResendMax      int
	PublicURL      *url.URL
	MailTimeout    time.Duration
	Now            func() time.Time
}

const verifiedRedirect = "/login?verified=1"

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *VerificationService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

func (s *VerificationService) mailTimeout() time.Duration {
	if s.MailTimeout > 0 {
		return s.MailTimeout
	}
	return 10 * time.Second
}

// IssueToken creates a fresh verification token for the user and returns the
// raw value. Earlier tokens stay valid until consumed or expired; only the
// newest one is ever mailed out.
func (s *VerificationService) IssueToken(ctx context.Context, userID, email string) (string, error) {
	raw, tokenHash, err := newVerificationToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	err = s.Tokens.CreateToken(ctx, domain.VerificationToken{
		TokenHash: tokenHash,
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(s.tokenTTL()),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Verify consumes a token exactly once. Unknown and already-consumed tokens
// are indistinguishable from the outside (ErrTokenInvalid); an expired token
// is deleted and reported as ErrTokenExpired so the caller can prompt for a
// resend. On success the user's email_verified timestamp is set and the
// login redirect target is returned.
func (s *VerificationService) Verify(ctx context.Context, rawToken string) (string, error) {
	tokenHash := hashVerificationToken(rawToken)

	token, err := s.Tokens.GetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrTokenInvalid
		}
		return "", err
	}

	if token.ExpiresAt.Before(s.now()) {
		_, _ = s.Tokens.DeleteTokenByHash(ctx, tokenHash)
		return "", domain.ErrTokenExpired
	}

	// Delete first: the delete is the atomic claim. A concurrent caller
	// holding the same token loses here and gets ErrTokenInvalid.
	deleted, err := s.Tokens.DeleteTokenByHash(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", domain.ErrTokenInvalid
	}

	if err := s.Users.SetEmailVerified(ctx, token.UserID, s.now()); err != nil {
		return "", err
	}

	return verifiedRedirect, nil
}

// Resend issues a new token for an unverified account and mails it, subject
// to the lifetime cap and per-account cooldown.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified() {
		return domain.ErrAlreadyVerified
	}
	if u.ResendCount >= s.ResendMax {
		return domain.ErrResendLimit
	}

	now := s.now()
	if u.LastResendAt != nil {
		elapsed := now.Sub(*u.LastResendAt)
		if elapsed < s.ResendCooldown {
			return domain.NewCooldownError(int((s.ResendCooldown - elapsed).Seconds() + 1))
		}
	}

	applied, err := s.Users.MarkResend(ctx, u.ID, now, s.ResendMax, s.ResendCooldown)
	if err != nil {
		return err
	}
	if !applied {
		// A concurrent resend took the slot between our read and the
		// conditional update.
		return domain.NewCooldownError(int(s.ResendCooldown.Seconds()))
	}

	raw, err := s.IssueToken(ctx, u.ID, u.Email)
	if err != nil {
		return err
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout())
	defer cancel()
	if err := s.Mailer.SendVerification(mailCtx, u.Email, u.Name, s.VerifyURL(raw)); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ResetResend clears the lifetime resend counter. Administrative override
// for accounts that exhausted the cap.
func (s *VerificationService) ResetResend(ctx context.Context, userID string) error {
	return s.Users.ResetResendCount(ctx, userID)
}

// SweepUnverified deletes accounts that never verified within the retention
// window. Maintenance path, run from cmd/retention.
func (s *VerificationService) SweepUnverified(ctx context.Context, retentionAge time.Duration) (int64, error) {
	return s.Users.DeleteUnverifiedBefore(ctx, s.now().Add(-retentionAge))
}

func (s *VerificationService) VerifyURL(rawToken string) string {
	if s.PublicURL != nil {
		u := *s.PublicURL
		u.Path = "/api/auth/verify"
		u.RawQuery = "token=" + url.QueryEscape(rawToken)
		return u.String()
	}
	return "/api/auth/verify?token=" + url.QueryEscape(rawToken)
}

func newVerificationToken() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, hashVerificationToken(raw), nil
}

func hashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
