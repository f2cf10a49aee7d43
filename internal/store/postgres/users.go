package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gradverify/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `id, email, name, role, student_status, email_verified, resend_count, last_resend_at, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u          domain.User
		idUUID     pgtype.UUID
		verifiedTS pgtype.Timestamptz
		resendTS   pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.StudentStatus,
		&verifiedTS,
		&u.ResendCount,
		&resendTS,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.EmailVerified = timestamptzPtr(verifiedTS)
	u.LastResendAt = timestamptzPtr(resendTS)
	return u, nil
}

func scanUserWithPassword(row pgx.Row) (domain.UserWithPassword, error) {
	var (
		u          domain.UserWithPassword
		idUUID     pgtype.UUID
		hashText   pgtype.Text
		verifiedTS pgtype.Timestamptz
		resendTS   pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&u.Name,
		&hashText,
		&u.Role,
		&u.StudentStatus,
		&verifiedTS,
		&u.ResendCount,
		&resendTS,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.PasswordHash = textOrEmpty(hashText)
	u.EmailVerified = timestamptzPtr(verifiedTS)
	u.LastResendAt = timestamptzPtr(resendTS)
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, email, name, passwordHash string, role domain.Role) (domain.User, error) {
	q := `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, name, nullIfEmpty(passwordHash), string(role)))
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "users_email_uq" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

const userWithPasswordColumns = `id, email, name, password_hash, role, student_status, email_verified, resend_count, last_resend_at, created_at, updated_at`

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	q := `SELECT ` + userWithPasswordColumns + ` FROM users WHERE email = $1`

	u, err := scanUserWithPassword(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmailAndRole(ctx context.Context, email string, role domain.Role) (domain.UserWithPassword, error) {
	q := `SELECT ` + userWithPasswordColumns + ` FROM users WHERE email = $1 AND role = $2`

	u, err := scanUserWithPassword(s.pool.QueryRow(ctx, q, email, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email and role: %w", err)
	}
	return u, nil
}

func (s *UsersStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

func (s *UsersStore) UpdateUser(ctx context.Context, id, name string, role domain.Role) (domain.User, error) {
	q := `
		UPDATE users
		SET name = $2, role = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, id, name, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UsersStore) SetStudentStatus(ctx context.Context, id string, status domain.StudentStatus) error {
	const q = `
		UPDATE users
		SET student_status = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return fmt.Errorf("set student status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetEmailVerified stamps the verification time once; a second call leaves
// the original timestamp in place.
func (s *UsersStore) SetEmailVerified(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET email_verified = COALESCE(email_verified, $2), updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkResend is the atomic form of the resend counter update: the cap and
// cooldown predicates are re-checked inside the UPDATE so concurrent resend
// requests cannot both take the same slot.
func (s *UsersStore) MarkResend(ctx context.Context, userID string, when time.Time, maxCount int, cooldown time.Duration) (bool, error) {
	const q = `
		UPDATE users
		SET resend_count = resend_count + 1, last_resend_at = $2, updated_at = now()
		WHERE id = $1
		  AND resend_count < $3
		  AND (last_resend_at IS NULL OR last_resend_at <= $4)
	`
	tag, err := s.pool.Exec(ctx, q, userID, when, maxCount, when.Add(-cooldown))
	if err != nil {
		return false, fmt.Errorf("mark resend: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *UsersStore) ResetResendCount(ctx context.Context, userID string) error {
	const q = `
		UPDATE users
		SET resend_count = 0, last_resend_at = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("reset resend count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) DeleteUser(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUnverifiedBefore is the retention sweep. Super-admin accounts are
// never swept regardless of verification state.
func (s *UsersStore) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
		DELETE FROM users
		WHERE email_verified IS NULL
		  AND created_at < $1
		  AND role <> 'SUPER_ADMIN'
	`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}
