package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docintake/internal/domain"
	"docintake/internal/port"
)

const exceptionColumns = `id, document_id, category, reason, field_name, expected_value, actual_value,
	priority, status, resolution, resolved_by, resolved_at, created_at`

type exceptionRepo struct {
	db *sqlx.DB
}

// NewExceptionRepo creates a new PostgreSQL-backed ExceptionRepository.
func NewExceptionRepo(db *sqlx.DB) port.ExceptionRepository {
	return &exceptionRepo{db: db}
}

func (r *exceptionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Exception, error) {
	out := []domain.Exception{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+exceptionColumns+` FROM exceptions
		 WHERE document_id = $1
		 ORDER BY created_at ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("exceptionRepo.ListByDocument: %w", err)
	}
	return out, nil
}

func insertException(ctx context.Context, ex execer, e *domain.Exception) error {
	var resolution interface{}
	if len(e.Resolution) > 0 {
		resolution = []byte(e.Resolution)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO exceptions (`+exceptionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.DocumentID, e.Category, e.Reason, e.FieldName, e.ExpectedValue, e.ActualValue,
		e.Priority, e.Status, resolution, e.ResolvedBy, e.ResolvedAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exception: %w", err)
	}
	return nil
}
