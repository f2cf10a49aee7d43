package domain

import "time"

type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleAdmin      Role = "ADMIN"
	RoleFaculty    Role = "FACULTY"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	switch r {
	case RoleStudent, RoleAdmin, RoleFaculty, RoleSuperAdmin:
		return r, true
	}
	return "", false
}

type StudentStatus string

const (
	StudentNotSubmitted StudentStatus = "NOT_SUBMITTED"
	StudentPending      StudentStatus = "PENDING"
	StudentApproved     StudentStatus = "APPROVED"
	StudentRejected     StudentStatus = "REJECTED"
)

func ParseStudentStatus(s string) (StudentStatus, bool) {
	st := StudentStatus(s)
	switch st {
	case StudentNotSubmitted, StudentPending, StudentApproved, StudentRejected:
		return st, true
	}
	return "", false
}

type User struct {
	ID            string
	Email         string
	Name          string
	Role          Role
	StudentStatus StudentStatus
	EmailVerified *time.Time
	ResendCount   int
	LastResendAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) Verified() bool { return u.EmailVerified != nil }

type UserWithPassword struct {
	User
	PasswordHash string
}

// Session is the decoded payload of the signed session cookie. It is never
// persisted server-side; revocation is cookie expiry or client-side deletion.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

func (s Session) Anonymous() bool { return s.UserID == "" }

type VerificationToken struct {
	TokenHash string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentApproved DocumentStatus = "APPROVED"
	DocumentRejected DocumentStatus = "REJECTED"
)

type Document struct {
	ID         string
	UserID     string
	Kind       string
	FileName   string
	StorageKey string
	Status     DocumentStatus
	ReviewNote string
	ReviewedBy *string
	ReviewedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
