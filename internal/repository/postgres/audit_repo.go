package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docintake/internal/domain"
	"docintake/internal/port"
)

type auditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo creates a new PostgreSQL-backed AuditRepository.
func NewAuditRepo(db *sqlx.DB) port.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLogEntry, error) {
	entries := []domain.AuditLogEntry{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, document_id, action, actor, details, created_at FROM audit_log
		 WHERE document_id = $1
		 ORDER BY seq ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByDocument: %w", err)
	}
	return entries, nil
}

func insertAudit(ctx context.Context, ex execer, entry domain.AuditLogEntry) error {
	details := []byte(entry.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO audit_log (id, document_id, action, actor, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.DocumentID, entry.Action, entry.Actor, details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}
