package service

import (
	"context"
	"log/slog"

	"gradverify/internal/domain"
)

type AuditStore interface {
	InsertAudit(ctx context.Context, entry domain.AuditEntry) error
	ListAudit(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditEntry, int64, error)
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type metaCtxKey int

const requestMetaKey metaCtxKey = 0

type requestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

// WithRequestMeta attaches the client address and request id to the context
// so audit entries recorded anywhere below the handler pick them up.
func WithRequestMeta(ctx context.Context, ip, userAgent, requestID string) context.Context {
	return context.WithValue(ctx, requestMetaKey, requestMeta{IP: ip, UserAgent: userAgent, RequestID: requestID})
}

// AuditService appends immutable action records. Recording is best-effort:
// a failed insert is logged and swallowed so it can never roll back or fail
// the privileged action it describes.
type AuditService struct {
	Store  AuditStore
	Logger *slog.Logger
}

func (s *AuditService) Record(ctx context.Context, entry domain.AuditEntry) {
	if s == nil || s.Store == nil {
		return
	}
	if meta, ok := ctx.Value(requestMetaKey).(requestMeta); ok {
		if entry.IP == "" {
			entry.IP = meta.IP
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.UserAgent
		}
		if meta.RequestID != "" {
			if entry.Details == nil {
				entry.Details = map[string]any{}
			}
			if _, ok := entry.Details["request_id"]; !ok {
				entry.Details["request_id"] = meta.RequestID
			}
		}
	}
	if err := s.Store.InsertAudit(ctx, entry); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			"action", string(entry.Action),
			"actor_id", entry.ActorID,
			"target_id", entry.TargetID,
			"err", err,
		)
	}
}

const (
	auditDefaultLimit = 20
	auditMaxLimit     = 100
)

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter, page, limit int) ([]domain.AuditEntry, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = auditDefaultLimit
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}

	entries, total, err := s.Store.ListAudit(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return entries, Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}
