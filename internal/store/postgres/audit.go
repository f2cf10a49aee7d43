package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gradverify/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) InsertAudit(ctx context.Context, entry domain.AuditEntry) error {
	const q = `
		INSERT INTO audit_logs (action, actor_id, target_id, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := s.pool.Exec(ctx, q,
		string(entry.Action),
		entry.ActorID,
		entry.TargetID,
		details,
		entry.IP,
		entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) ListAudit(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditEntry, int64, error) {
	where, args := auditWhere(filter)

	countQ := `SELECT count(*) FROM audit_logs` + where
	var total int64
	if err := s.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	listQ := `
		SELECT id, action, actor_id, target_id, details, ip, user_agent, created_at
		FROM audit_logs` + where + `
		ORDER BY created_at DESC, id
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e         domain.AuditEntry
			idUUID    pgtype.UUID
			actorUUID pgtype.UUID
		)
		err := rows.Scan(&idUUID, &e.Action, &actorUUID, &e.TargetID, &e.Details, &e.IP, &e.UserAgent, &e.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = uuidOrEmpty(idUUID)
		e.ActorID = uuidOrEmpty(actorUUID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	return entries, total, nil
}

func auditWhere(filter domain.AuditFilter) (string, []any) {
	conds := []string{}
	args := []any{}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.TargetID != "" {
		add("target_id = $%d", filter.TargetID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
