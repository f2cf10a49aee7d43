package service

import (
	"context"
	"strings"
	"time"

	"gradverify/internal/auth"
	"gradverify/internal/domain"
)

type AccountUsersStore interface {
	UsersStore
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int64, error)
	UpdateUser(ctx context.Context, id, name string, role domain.Role) (domain.User, error)
	SetStudentStatus(ctx context.Context, id string, status domain.StudentStatus) error
	DeleteUser(ctx context.Context, id string) error
}

// AccountService covers registration and super-admin account management.
type AccountService struct {
	Users        AccountUsersStore
	Verification *VerificationService
	Audit        *AuditService
	Now          func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates an unverified STUDENT account and mails the first
// verification token. A mail failure does not undo the account: the user
// can request a resend.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.Users.CreateUser(ctx, email, name, hash, domain.RoleStudent)
	if err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:  domain.AuditUserCreated,
		ActorID: u.ID,
		Details: map[string]any{"role": string(u.Role), "self_registered": true},
	})

	raw, err := s.Verification.IssueToken(ctx, u.ID, u.Email)
	if err != nil {
		return domain.User{}, err
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.Verification.mailTimeout())
	defer cancel()
	if err := s.Verification.Mailer.SendVerification(mailCtx, u.Email, u.Name, s.Verification.VerifyURL(raw)); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *AccountService) ListUsers(ctx context.Context, page, limit int) ([]domain.User, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = auditDefaultLimit
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}

	users, total, err := s.Users.ListUsers(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return users, Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// CreateUser provisions an account administratively. Password is optional;
// a passwordless account cannot log in until one is set.
func (s *AccountService) CreateUser(ctx context.Context, actor domain.Session, email, name, password string, role domain.Role) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	hash := ""
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password)
		if err != nil {
			return domain.User{}, err
		}
	}

	u, err := s.Users.CreateUser(ctx, email, name, hash, role)
	if err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditUserCreated,
		ActorID:  actor.UserID,
		TargetID: u.ID,
		Details:  map[string]any{"role": string(role), "email": email},
	})
	return u, nil
}

func (s *AccountService) UpdateUser(ctx context.Context, actor domain.Session, id, name string, role domain.Role) (domain.User, error) {
	u, err := s.Users.UpdateUser(ctx, id, name, role)
	if err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditUserUpdated,
		ActorID:  actor.UserID,
		TargetID: u.ID,
		Details:  map[string]any{"name": name, "role": string(role)},
	})
	return u, nil
}

// DeleteUser removes an account. Super-admin accounts are immune, including
// to other super-admins.
func (s *AccountService) DeleteUser(ctx context.Context, actor domain.Session, id string) error {
	target, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleSuperAdmin {
		return domain.ErrForbidden
	}

	if err := s.Users.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditUserDeleted,
		ActorID:  actor.UserID,
		TargetID: id,
		Details:  map[string]any{"email": target.Email, "role": string(target.Role)},
	})
	return nil
}

func (s *AccountService) SetStudentStatus(ctx context.Context, actor domain.Session, id string, status domain.StudentStatus) error {
	target, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role != domain.RoleStudent {
		return domain.ErrValidation
	}

	if err := s.Users.SetStudentStatus(ctx, id, status); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditStudentStatusUpdated,
		ActorID:  actor.UserID,
		TargetID: id,
		Details:  map[string]any{"status": string(status), "previous": string(target.StudentStatus)},
	})
	return nil
}

// ResetResend clears an exhausted resend cap on behalf of a super-admin.
func (s *AccountService) ResetResend(ctx context.Context, actor domain.Session, id string) error {
	if _, err := s.Users.GetUserByID(ctx, id); err != nil {
		return err
	}
	if err := s.Verification.ResetResend(ctx, id); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditUserUpdated,
		ActorID:  actor.UserID,
		TargetID: id,
		Details:  map[string]any{"resend_count": 0},
	})
	return nil
}
