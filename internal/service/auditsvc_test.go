package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"gradverify/internal/domain"
)

type stubAuditStore struct {
	t *testing.T

	insertAuditFunc func(context.Context, domain.AuditEntry) error
	listAuditFunc   func(context.Context, domain.AuditFilter, int, int) ([]domain.AuditEntry, int64, error)
}

func (s *stubAuditStore) InsertAudit(ctx context.Context, entry domain.AuditEntry) error {
	if s.insertAuditFunc != nil {
		return s.insertAuditFunc(ctx, entry)
	}
	s.t.Fatalf("InsertAudit called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubAuditStore) ListAudit(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditEntry, int64, error) {
	if s.listAuditFunc != nil {
		return s.listAuditFunc(ctx, filter, limit, offset)
	}
	s.t.Fatalf("ListAudit called unexpectedly")
	return nil, 0, errors.New("unexpected call")
}

func TestAuditRecordSwallowsStoreFailure(t *testing.T) {
	store := &stubAuditStore{
		t: t,
		insertAuditFunc: func(context.Context, domain.AuditEntry) error {
			return errors.New("insert failed")
		},
	}
	svc := &AuditService{Store: store, Logger: slog.Default()}

	// Must not panic or propagate; the action being audited already happened.
	svc.Record(context.Background(), domain.AuditEntry{
		Action:  domain.AuditUserCreated,
		ActorID: "user-1",
	})
}

func TestAuditRecordNilService(t *testing.T) {
	var svc *AuditService
	svc.Record(context.Background(), domain.AuditEntry{Action: domain.AuditUserCreated})
}

func TestAuditRecordFillsRequestMeta(t *testing.T) {
	var got domain.AuditEntry
	store := &stubAuditStore{
		t: t,
		insertAuditFunc: func(_ context.Context, entry domain.AuditEntry) error {
			got = entry
			return nil
		},
	}
	svc := &AuditService{Store: store}

	ctx := WithRequestMeta(context.Background(), "203.0.113.9", "unit-test", "req-abc123")
	svc.Record(ctx, domain.AuditEntry{Action: domain.AuditUserDeleted, ActorID: "admin-1"})

	if got.IP != "203.0.113.9" || got.UserAgent != "unit-test" {
		t.Fatalf("expected request meta on entry, got %+v", got)
	}
	if got.Details["request_id"] != "req-abc123" {
		t.Fatalf("expected request id in details, got %+v", got.Details)
	}
}

func TestAuditRecordKeepsExplicitDetails(t *testing.T) {
	var got domain.AuditEntry
	store := &stubAuditStore{
		t: t,
		insertAuditFunc: func(_ context.Context, entry domain.AuditEntry) error {
			got = entry
			return nil
		},
	}
	svc := &AuditService{Store: store}

	ctx := WithRequestMeta(context.Background(), "198.51.100.4", "unit-test", "req-later")
	svc.Record(ctx, domain.AuditEntry{
		Action:    domain.AuditUserUpdated,
		ActorID:   "admin-1",
		IP:        "192.0.2.1",
		UserAgent: "explicit",
		Details:   map[string]any{"request_id": "req-original"},
	})

	if got.IP != "192.0.2.1" || got.UserAgent != "explicit" {
		t.Fatalf("explicit fields must win over context meta, got %+v", got)
	}
	if got.Details["request_id"] != "req-original" {
		t.Fatalf("explicit request id must win, got %+v", got.Details)
	}
}

func TestAuditListClampsPaging(t *testing.T) {
	store := &stubAuditStore{
		t: t,
		listAuditFunc: func(_ context.Context, _ domain.AuditFilter, limit, offset int) ([]domain.AuditEntry, int64, error) {
			if limit != 100 || offset != 0 {
				t.Fatalf("unexpected paging: limit=%d offset=%d", limit, offset)
			}
			return []domain.AuditEntry{{ID: "a"}}, 201, nil
		},
	}
	svc := &AuditService{Store: store}

	_, p, err := svc.List(context.Background(), domain.AuditFilter{}, 0, 999)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Page != 1 || p.Limit != 100 || p.Total != 201 || p.Pages != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}
