package service

import (
	"context"
	"fmt"
	"time"

	"gradverify/internal/domain"

	"github.com/google/uuid"
)

type DocumentsStore interface {
	CreateDocument(ctx context.Context, doc domain.Document) (domain.Document, error)
	GetDocumentByID(ctx context.Context, id string) (domain.Document, error)
	ListDocumentsByStatus(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]domain.Document, int64, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]domain.Document, error)
	// SetDocumentStatus transitions a PENDING document and reports whether
	// a row changed; false means the document was already reviewed.
	SetDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, reviewerID, note string, when time.Time) (bool, error)
	// DeleteDocument removes a PENDING document owned by ownerID.
	DeleteDocument(ctx context.Context, id, ownerID string) (bool, error)
}

type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// DocumentService handles the graduation-document review flow: students
// upload via presigned URLs, reviewers approve or reject.
type DocumentService struct {
	Docs    DocumentsStore
	Storage Presigner
	Audit   *AuditService
	Now     func() time.Time
}

func (s *DocumentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// UploadURL returns a storage key and a presigned PUT URL the student
// uploads the file to directly. The document row is registered afterwards.
func (s *DocumentService) UploadURL(ctx context.Context, owner domain.Session) (string, string, error) {
	key := fmt.Sprintf("documents/%s/%s", owner.UserID, uuid.New())
	url, err := s.Storage.PresignPut(ctx, key)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

func (s *DocumentService) Register(ctx context.Context, owner domain.Session, kind, fileName, storageKey string) (domain.Document, error) {
	doc, err := s.Docs.CreateDocument(ctx, domain.Document{
		UserID:     owner.UserID,
		Kind:       kind,
		FileName:   fileName,
		StorageKey: storageKey,
		Status:     domain.DocumentPending,
	})
	if err != nil {
		return domain.Document{}, err
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditFileUploaded,
		ActorID:  owner.UserID,
		TargetID: doc.ID,
		Details:  map[string]any{"kind": kind, "file_name": fileName},
	})
	return doc, nil
}

func (s *DocumentService) PendingQueue(ctx context.Context, page, limit int) ([]domain.Document, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = auditDefaultLimit
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}

	docs, total, err := s.Docs.ListDocumentsByStatus(ctx, domain.DocumentPending, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return docs, Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

func (s *DocumentService) ListMine(ctx context.Context, owner domain.Session) ([]domain.Document, error) {
	return s.Docs.ListDocumentsByUser(ctx, owner.UserID)
}

// DownloadURL presigns a GET for the document. Students may only fetch
// their own documents; reviewers may fetch any.
func (s *DocumentService) DownloadURL(ctx context.Context, requester domain.Session, docID string) (string, error) {
	doc, err := s.Docs.GetDocumentByID(ctx, docID)
	if err != nil {
		return "", err
	}
	if requester.Role == domain.RoleStudent && doc.UserID != requester.UserID {
		return "", domain.ErrForbidden
	}
	return s.Storage.PresignGet(ctx, doc.StorageKey)
}

func (s *DocumentService) Approve(ctx context.Context, reviewer domain.Session, docID, note string) error {
	return s.review(ctx, reviewer, docID, domain.DocumentApproved, note, domain.AuditApproveDocument)
}

func (s *DocumentService) Reject(ctx context.Context, reviewer domain.Session, docID, note string) error {
	return s.review(ctx, reviewer, docID, domain.DocumentRejected, note, domain.AuditRejectDocument)
}

func (s *DocumentService) review(ctx context.Context, reviewer domain.Session, docID string, status domain.DocumentStatus, note string, action domain.AuditAction) error {
	doc, err := s.Docs.GetDocumentByID(ctx, docID)
	if err != nil {
		return err
	}

	changed, err := s.Docs.SetDocumentStatus(ctx, docID, status, reviewer.UserID, note, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return domain.ErrDocumentReviewed
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   action,
		ActorID:  reviewer.UserID,
		TargetID: docID,
		Details:  map[string]any{"owner_id": doc.UserID, "note": note},
	})
	return nil
}

// Delete lets a student withdraw a document that has not been reviewed yet.
func (s *DocumentService) Delete(ctx context.Context, owner domain.Session, docID string) error {
	doc, err := s.Docs.GetDocumentByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.UserID != owner.UserID {
		return domain.ErrForbidden
	}

	deleted, err := s.Docs.DeleteDocument(ctx, docID, owner.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrDocumentReviewed
	}

	s.Audit.Record(ctx, domain.AuditEntry{
		Action:   domain.AuditFileDeleted,
		ActorID:  owner.UserID,
		TargetID: docID,
		Details:  map[string]any{"file_name": doc.FileName},
	})
	return nil
}
