package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"docintake/internal/domain"
	"docintake/internal/port"
)

const documentColumns = `id, blob_path, filename, mime_type, size_bytes, document_type, status,
	extracted_data, raw_extraction, confidence, field_confidences, requires_review,
	extractor, processing_ms, processing_error, force_semantic, uploaded_by, reviewed_by,
	reviewed_at, processed_at, created_at, updated_at`

const uniqueViolation = "23505"

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.Create begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22
	)`,
		doc.ID, doc.BlobPath, doc.Filename, doc.MimeType, doc.SizeBytes, doc.DocumentType, doc.Status,
		doc.ExtractedData, doc.RawExtraction, doc.Confidence, doc.FieldConfidences, doc.RequiresReview,
		doc.Extractor, doc.ProcessingMillis, doc.ProcessingError, doc.ForceSemantic, doc.UploadedBy, doc.ReviewedBy,
		doc.ReviewedAt, doc.ProcessedAt, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDocumentAlreadyExists
		}
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.Create commit: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) GetByBlobPath(ctx context.Context, blobPath string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		`SELECT `+documentColumns+` FROM documents WHERE blob_path = $1`, blobPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByBlobPath: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) ListPending(ctx context.Context, before time.Time, limit int) ([]domain.Document, error) {
	docs := []domain.Document{}
	err := r.db.SelectContext(ctx, &docs,
		`SELECT `+documentColumns+` FROM documents
		 WHERE status = $1 AND updated_at <= $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		domain.StatusPending, before, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListPending: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) BeginRun(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	doc.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.BeginRun begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = $1, requires_review = $2, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		doc.Status, doc.RequiresReview, doc.UpdatedAt, doc.ID, domain.StatusPending)
	if err := claimed(res, err); err != nil {
		return fmt.Errorf("documentRepo.BeginRun: %w", err)
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return fmt.Errorf("documentRepo.BeginRun: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.BeginRun commit: %w", err)
	}
	return nil
}

func (r *documentRepo) ResetForReprocess(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	doc.UpdatedAt = time.Now().UTC()

	from := domain.SourceStatuses(domain.EventReprocess)
	args := []interface{}{doc.Status, doc.RequiresReview, doc.ForceSemantic, doc.UpdatedAt, doc.ID}
	placeholders := make([]string, len(from))
	for i, s := range from {
		args = append(args, s)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.ResetForReprocess begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = $1, requires_review = $2, force_semantic = $3,
			processing_error = NULL, updated_at = $4
		 WHERE id = $5 AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err := claimed(res, err); err != nil {
		return fmt.Errorf("documentRepo.ResetForReprocess: %w", err)
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return fmt.Errorf("documentRepo.ResetForReprocess: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.ResetForReprocess commit: %w", err)
	}
	return nil
}

func (r *documentRepo) SaveRun(ctx context.Context, out port.RunOutcome) error {
	doc := out.Document
	if doc == nil {
		return fmt.Errorf("documentRepo.SaveRun: %w: nil document", domain.ErrInvalidInput)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveRun begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET
			blob_path = $1, document_type = $2, status = $3,
			extracted_data = $4, raw_extraction = $5, confidence = $6, field_confidences = $7,
			requires_review = $8, extractor = $9, processing_ms = $10, processing_error = $11,
			force_semantic = $12, processed_at = $13, updated_at = $14
		 WHERE id = $15 AND status = $16`,
		doc.BlobPath, doc.DocumentType, doc.Status,
		doc.ExtractedData, doc.RawExtraction, doc.Confidence, doc.FieldConfidences,
		doc.RequiresReview, doc.Extractor, doc.ProcessingMillis, doc.ProcessingError,
		doc.ForceSemantic, doc.ProcessedAt, doc.UpdatedAt,
		doc.ID, domain.StatusProcessing)
	if err := claimed(res, err); err != nil {
		return fmt.Errorf("documentRepo.SaveRun: %w", err)
	}

	for i := range out.Exceptions {
		if err := insertException(ctx, tx, &out.Exceptions[i]); err != nil {
			return fmt.Errorf("documentRepo.SaveRun: %w", err)
		}
	}
	for _, entry := range out.Audit {
		if err := insertAudit(ctx, tx, entry); err != nil {
			return fmt.Errorf("documentRepo.SaveRun: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.SaveRun commit: %w", err)
	}
	return nil
}

// claimed turns a conditional update that matched no row into ErrRunConflict.
func claimed(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRunConflict
	}
	return nil
}
