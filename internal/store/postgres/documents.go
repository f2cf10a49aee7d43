package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gradverify/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentsStore struct {
	pool *pgxpool.Pool
}

func NewDocumentsStore(pool *pgxpool.Pool) *DocumentsStore {
	return &DocumentsStore{pool: pool}
}

const documentColumns = `id, user_id, kind, file_name, storage_key, status, review_note, reviewed_by, reviewed_at, created_at, updated_at`

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		d            domain.Document
		idUUID       pgtype.UUID
		userUUID     pgtype.UUID
		reviewerUUID pgtype.UUID
		reviewedTS   pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&userUUID,
		&d.Kind,
		&d.FileName,
		&d.StorageKey,
		&d.Status,
		&d.ReviewNote,
		&reviewerUUID,
		&reviewedTS,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	d.ID = uuidOrEmpty(idUUID)
	d.UserID = uuidOrEmpty(userUUID)
	d.ReviewedBy = uuidPtr(reviewerUUID)
	d.ReviewedAt = timestamptzPtr(reviewedTS)
	return d, nil
}

func (s *DocumentsStore) CreateDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	q := `
		INSERT INTO documents (user_id, kind, file_name, storage_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + documentColumns

	d, err := scanDocument(s.pool.QueryRow(ctx, q, doc.UserID, doc.Kind, doc.FileName, doc.StorageKey, string(doc.Status)))
	if err != nil {
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}
	return d, nil
}

func (s *DocumentsStore) GetDocumentByID(ctx context.Context, id string) (domain.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d, err := scanDocument(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *DocumentsStore) ListDocumentsByStatus(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]domain.Document, int64, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE status = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE status = $1`, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

func (s *DocumentsStore) ListDocumentsByUser(ctx context.Context, userID string) ([]domain.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user documents: %w", err)
	}
	return docs, nil
}

// SetDocumentStatus only moves documents out of PENDING; the row count
// arbitrates concurrent reviews of the same document.
func (s *DocumentsStore) SetDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, reviewerID, note string, when time.Time) (bool, error) {
	const q = `
		UPDATE documents
		SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := s.pool.Exec(ctx, q, id, string(status), note, reviewerID, when)
	if err != nil {
		return false, fmt.Errorf("set document status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *DocumentsStore) DeleteDocument(ctx context.Context, id, ownerID string) (bool, error) {
	const q = `DELETE FROM documents WHERE id = $1 AND user_id = $2 AND status = 'PENDING'`

	tag, err := s.pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
