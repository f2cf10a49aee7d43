package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gradverify/internal/domain"
)

type stubDocumentsStore struct {
	t *testing.T

	createDocumentFunc        func(context.Context, domain.Document) (domain.Document, error)
	getDocumentByIDFunc       func(context.Context, string) (domain.Document, error)
	listDocumentsByStatusFunc func(context.Context, domain.DocumentStatus, int, int) ([]domain.Document, int64, error)
	listDocumentsByUserFunc   func(context.Context, string) ([]domain.Document, error)
	setDocumentStatusFunc     func(context.Context, string, domain.DocumentStatus, string, string, time.Time) (bool, error)
	deleteDocumentFunc        func(context.Context, string, string) (bool, error)
}

func (s *stubDocumentsStore) CreateDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if s.createDocumentFunc != nil {
		return s.createDocumentFunc(ctx, doc)
	}
	s.t.Fatalf("CreateDocument called unexpectedly")
	return domain.Document{}, errors.New("unexpected call")
}

func (s *stubDocumentsStore) GetDocumentByID(ctx context.Context, id string) (domain.Document, error) {
	if s.getDocumentByIDFunc != nil {
		return s.getDocumentByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetDocumentByID called unexpectedly")
	return domain.Document{}, errors.New("unexpected call")
}

func (s *stubDocumentsStore) ListDocumentsByStatus(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]domain.Document, int64, error) {
	if s.listDocumentsByStatusFunc != nil {
		return s.listDocumentsByStatusFunc(ctx, status, limit, offset)
	}
	s.t.Fatalf("ListDocumentsByStatus called unexpectedly")
	return nil, 0, errors.New("unexpected call")
}

func (s *stubDocumentsStore) ListDocumentsByUser(ctx context.Context, userID string) ([]domain.Document, error) {
	if s.listDocumentsByUserFunc != nil {
		return s.listDocumentsByUserFunc(ctx, userID)
	}
	s.t.Fatalf("ListDocumentsByUser called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubDocumentsStore) SetDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, reviewerID, note string, when time.Time) (bool, error) {
	if s.setDocumentStatusFunc != nil {
		return s.setDocumentStatusFunc(ctx, id, status, reviewerID, note, when)
	}
	s.t.Fatalf("SetDocumentStatus called unexpectedly")
	return false, errors.New("unexpected call")
}

func (s *stubDocumentsStore) DeleteDocument(ctx context.Context, id, ownerID string) (bool, error) {
	if s.deleteDocumentFunc != nil {
		return s.deleteDocumentFunc(ctx, id, ownerID)
	}
	s.t.Fatalf("DeleteDocument called unexpectedly")
	return false, errors.New("unexpected call")
}

type stubPresigner struct {
	t *testing.T

	presignPutFunc func(context.Context, string) (string, error)
	presignGetFunc func(context.Context, string) (string, error)
}

func (s *stubPresigner) PresignPut(ctx context.Context, key string) (string, error) {
	if s.presignPutFunc != nil {
		return s.presignPutFunc(ctx, key)
	}
	s.t.Fatalf("PresignPut called unexpectedly")
	return "", errors.New("unexpected call")
}

func (s *stubPresigner) PresignGet(ctx context.Context, key string) (string, error) {
	if s.presignGetFunc != nil {
		return s.presignGetFunc(ctx, key)
	}
	s.t.Fatalf("PresignGet called unexpectedly")
	return "", errors.New("unexpected call")
}

func TestDocumentUploadURL(t *testing.T) {
	storage := &stubPresigner{
		t: t,
		presignPutFunc: func(_ context.Context, key string) (string, error) {
			return "https://s3.example.com/" + key, nil
		},
	}
	svc := &DocumentService{Storage: storage}

	key, uploadURL, err := svc.UploadURL(context.Background(), domain.Session{UserID: "user-1", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("upload url: %v", err)
	}
	if !strings.HasPrefix(key, "documents/user-1/") {
		t.Fatalf("key must live under the owner prefix, got %q", key)
	}
	if !strings.Contains(uploadURL, key) {
		t.Fatalf("unexpected upload URL: %s", uploadURL)
	}
}

func TestDocumentRegister(t *testing.T) {
	var entries []domain.AuditEntry
	docs := &stubDocumentsStore{
		t: t,
		createDocumentFunc: func(_ context.Context, doc domain.Document) (domain.Document, error) {
			if doc.Status != domain.DocumentPending {
				t.Fatalf("new documents must start pending, got %s", doc.Status)
			}
			doc.ID = "doc-1"
			return doc, nil
		},
	}
	svc := &DocumentService{Docs: docs, Audit: collectingAudit(t, &entries)}

	doc, err := svc.Register(context.Background(), domain.Session{UserID: "user-1"}, "transcript", "transcript.pdf", "documents/user-1/abc")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(entries) != 1 || entries[0].Action != domain.AuditFileUploaded {
		t.Fatalf("expected FILE_UPLOADED audit, got %+v", entries)
	}
}

func TestDocumentDownloadURLOwnership(t *testing.T) {
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", StorageKey: "documents/owner-1/abc"}, nil
		},
	}
	storage := &stubPresigner{
		t: t,
		presignGetFunc: func(_ context.Context, key string) (string, error) {
			return "https://s3.example.com/" + key, nil
		},
	}
	svc := &DocumentService{Docs: docs, Storage: storage}

	_, err := svc.DownloadURL(context.Background(), domain.Session{UserID: "other", Role: domain.RoleStudent}, "doc-1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign student, got %v", err)
	}

	if _, err := svc.DownloadURL(context.Background(), domain.Session{UserID: "owner-1", Role: domain.RoleStudent}, "doc-1"); err != nil {
		t.Fatalf("owner download: %v", err)
	}

	if _, err := svc.DownloadURL(context.Background(), domain.Session{UserID: "fac-1", Role: domain.RoleFaculty}, "doc-1"); err != nil {
		t.Fatalf("reviewer download: %v", err)
	}
}

func TestDocumentApprove(t *testing.T) {
	now := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)

	var entries []domain.AuditEntry
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", Status: domain.DocumentPending}, nil
		},
		setDocumentStatusFunc: func(_ context.Context, id string, status domain.DocumentStatus, reviewerID, note string, when time.Time) (bool, error) {
			if status != domain.DocumentApproved || reviewerID != "fac-1" || !when.Equal(now) {
				t.Fatalf("unexpected review args: %s %s %s", status, reviewerID, when)
			}
			return true, nil
		},
	}
	svc := &DocumentService{Docs: docs, Audit: collectingAudit(t, &entries), Now: func() time.Time { return now }}

	if err := svc.Approve(context.Background(), domain.Session{UserID: "fac-1", Role: domain.RoleFaculty}, "doc-1", "looks good"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != domain.AuditApproveDocument {
		t.Fatalf("expected APPROVE_DOCUMENT audit, got %+v", entries)
	}
	if entries[0].Details["owner_id"] != "owner-1" {
		t.Fatalf("audit must name the document owner, got %+v", entries[0].Details)
	}
}

func TestDocumentReviewAlreadyReviewed(t *testing.T) {
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", Status: domain.DocumentApproved}, nil
		},
		setDocumentStatusFunc: func(context.Context, string, domain.DocumentStatus, string, string, time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := &DocumentService{Docs: docs}

	err := svc.Reject(context.Background(), domain.Session{UserID: "fac-1", Role: domain.RoleFaculty}, "doc-1", "")
	if !errors.Is(err, domain.ErrDocumentReviewed) {
		t.Fatalf("expected ErrDocumentReviewed, got %v", err)
	}
}

func TestDocumentDelete(t *testing.T) {
	var entries []domain.AuditEntry
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", FileName: "transcript.pdf", Status: domain.DocumentPending}, nil
		},
		deleteDocumentFunc: func(_ context.Context, id, ownerID string) (bool, error) {
			if ownerID != "owner-1" {
				t.Fatalf("unexpected owner: %s", ownerID)
			}
			return true, nil
		},
	}
	svc := &DocumentService{Docs: docs, Audit: collectingAudit(t, &entries)}

	if err := svc.Delete(context.Background(), domain.Session{UserID: "owner-1", Role: domain.RoleStudent}, "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != domain.AuditFileDeleted {
		t.Fatalf("expected FILE_DELETED audit, got %+v", entries)
	}
}

func TestDocumentDeleteNotOwner(t *testing.T) {
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", Status: domain.DocumentPending}, nil
		},
	}
	svc := &DocumentService{Docs: docs}

	err := svc.Delete(context.Background(), domain.Session{UserID: "other", Role: domain.RoleStudent}, "doc-1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDocumentDeleteAfterReview(t *testing.T) {
	docs := &stubDocumentsStore{
		t: t,
		getDocumentByIDFunc: func(_ context.Context, id string) (domain.Document, error) {
			return domain.Document{ID: id, UserID: "owner-1", Status: domain.DocumentApproved}, nil
		},
		deleteDocumentFunc: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := &DocumentService{Docs: docs}

	err := svc.Delete(context.Background(), domain.Session{UserID: "owner-1", Role: domain.RoleStudent}, "doc-1")
	if !errors.Is(err, domain.ErrDocumentReviewed) {
		t.Fatalf("expected ErrDocumentReviewed, got %v", err)
	}
}
