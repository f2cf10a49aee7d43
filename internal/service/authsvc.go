package service

import (
	"context"
	"errors"
	"strings"

	"gradverify/internal/auth"
	"gradverify/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string, role domain.Role) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserByEmailAndRole(ctx context.Context, email string, role domain.Role) (domain.UserWithPassword, error)
}

// AuthService verifies credentials and mints the signed session credential.
// It holds no session state; the cookie is the session.
type AuthService struct {
	Users UsersStore
	Codec auth.TokenCodec
}

// Login looks the account up by the (email, claimed role) pair. A wrong
// claimed role, an unknown email, a passwordless account, and a wrong
// password all fail identically with ErrInvalidCredentials so callers
// cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string, claimedRole domain.Role) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.Users.GetUserByEmailAndRole(ctx, email, claimedRole)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.PasswordHash == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	signed, err := s.Codec.Mint(u.User)
	if err != nil {
		return domain.User{}, "", err
	}

	return u.User, signed, nil
}

// ResolveSession delegates to the codec; see TokenCodec.Resolve for the
// anonymous vs invalid distinction.
func (s *AuthService) ResolveSession(cookieValue string) (domain.Session, bool) {
	return s.Codec.Resolve(cookieValue)
}
