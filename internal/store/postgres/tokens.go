package postgres

import (
	"context"
	"errors"
	"fmt"

	"gradverify/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensStore struct {
	pool *pgxpool.Pool
}

func NewTokensStore(pool *pgxpool.Pool) *TokensStore {
	return &TokensStore{pool: pool}
}

func (s *TokensStore) CreateToken(ctx context.Context, token domain.VerificationToken) error {
	const q = `
		INSERT INTO verification_tokens (token_hash, user_id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, q, token.TokenHash, token.UserID, token.Email, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	return nil
}

func (s *TokensStore) GetTokenByHash(ctx context.Context, tokenHash string) (domain.VerificationToken, error) {
	const q = `
		SELECT token_hash, user_id, email, expires_at, created_at
		FROM verification_tokens
		WHERE token_hash = $1
	`

	var (
		t      domain.VerificationToken
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, tokenHash).Scan(&t.TokenHash, &idUUID, &t.Email, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VerificationToken{}, domain.ErrNotFound
		}
		return domain.VerificationToken{}, fmt.Errorf("get verification token: %w", err)
	}
	t.UserID = uuidOrEmpty(idUUID)
	return t, nil
}

// DeleteTokenByHash reports whether the row existed. The affected-row count
// is what arbitrates concurrent consumption of the same token.
func (s *TokensStore) DeleteTokenByHash(ctx context.Context, tokenHash string) (bool, error) {
	const q = `DELETE FROM verification_tokens WHERE token_hash = $1`

	tag, err := s.pool.Exec(ctx, q, tokenHash)
	if err != nil {
		return false, fmt.Errorf("delete verification token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
