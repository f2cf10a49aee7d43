package domain

import "time"

type AuditAction string

const (
	AuditUserCreated          AuditAction = "USER_CREATED"
	AuditUserUpdated          AuditAction = "USER_UPDATED"
	AuditUserDeleted          AuditAction = "USER_DELETED"
	AuditStudentStatusUpdated AuditAction = "STUDENT_STATUS_UPDATED"
	AuditFileUploaded         AuditAction = "FILE_UPLOADED"
	AuditFileDeleted          AuditAction = "FILE_DELETED"
	AuditApproveDocument      AuditAction = "APPROVE_DOCUMENT"
	AuditRejectDocument       AuditAction = "REJECT_DOCUMENT"
)

// AuditEntry rows are append-only; nothing in the application updates or
// deletes them after insert.
type AuditEntry struct {
	ID        string
	Action    AuditAction
	ActorID   string
	TargetID  string
	Details   map[string]any
	IP        string
	UserAgent string
	CreatedAt time.Time
}

type AuditFilter struct {
	ActorID  string
	TargetID string
	Action   AuditAction
	From     *time.Time
	To       *time.Time
}
