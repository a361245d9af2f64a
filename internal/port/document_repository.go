package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docintake/internal/domain"
)

// RunOutcome is everything a finished pipeline run persists as one unit.
type RunOutcome struct {
	Document   *domain.Document
	Exceptions []domain.Exception
	Audit      []domain.AuditLogEntry
}

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	GetByBlobPath(ctx context.Context, blobPath string) (*domain.Document, error)
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Document, error)
	// BeginRun moves doc from PENDING to PROCESSING and records the start
	// entry. It returns domain.ErrRunConflict when doc is no longer PENDING.
	BeginRun(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error
	// ResetForReprocess moves a terminal doc back to PENDING. It returns
	// domain.ErrRunConflict when doc is not in a terminal status.
	ResetForReprocess(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error
	// SaveRun writes a finished run, provided the document is still PROCESSING.
	SaveRun(ctx context.Context, out RunOutcome) error
}

// ExceptionRepository reads persisted exceptions.
type ExceptionRepository interface {
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Exception, error)
}

// AuditRepository reads the append-only audit log.
type AuditRepository interface {
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLogEntry, error)
}
