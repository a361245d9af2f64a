package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// Ingest outcomes reported back to the notifying system.
const (
	IngestCreated = "created"
	IngestExists  = "exists"
	IngestIgnored = "ignored"
)

// BlobNotification describes a newly written blob as reported by the
// storage event source.
type BlobNotification struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size,string"`
}

// IngestResult is the outcome of registering a blob.
type IngestResult struct {
	Status   string
	Document *domain.Document
}

// DocumentService defines the document intake contract.
type DocumentService interface {
	Register(ctx context.Context, n BlobNotification, uploadedBy string) (*IngestResult, error)
	Reprocess(ctx context.Context, docID uuid.UUID, forceSemantic bool, actor string) (*domain.Document, error)
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	ListExceptions(ctx context.Context, docID uuid.UUID) ([]domain.Exception, error)
	ListAudit(ctx context.Context, docID uuid.UUID) ([]domain.AuditLogEntry, error)
}

type documentService struct {
	docRepo     port.DocumentRepository
	exceptions  port.ExceptionRepository
	audit       port.AuditRepository
	dispatcher  port.RunDispatcher
	inboxPrefix string
	logger      *zap.Logger
}

// NewDocumentService creates a new DocumentService implementation. Only blobs
// under inboxPrefix are registered.
func NewDocumentService(
	docRepo port.DocumentRepository,
	exceptions port.ExceptionRepository,
	audit port.AuditRepository,
	dispatcher port.RunDispatcher,
	inboxPrefix string,
	logger *zap.Logger,
) DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{
		docRepo:     docRepo,
		exceptions:  exceptions,
		audit:       audit,
		dispatcher:  dispatcher,
		inboxPrefix: strings.Trim(inboxPrefix, "/"),
		logger:      logger,
	}
}

func (s *documentService) Register(ctx context.Context, n BlobNotification, uploadedBy string) (*IngestResult, error) {
	name := strings.TrimPrefix(n.Name, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return nil, fmt.Errorf("%w: blob name %q", domain.ErrInvalidInput, n.Name)
	}
	if s.inboxPrefix != "" && !strings.HasPrefix(name, s.inboxPrefix+"/") {
		s.logger.Debug("documentService.Register: ignoring blob outside inbox", zap.String("blob_path", name))
		return &IngestResult{Status: IngestIgnored}, nil
	}

	existing, err := s.docRepo.GetByBlobPath(ctx, name)
	switch {
	case err == nil:
		return &IngestResult{Status: IngestExists, Document: existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("looking up blob %s: %w", name, err)
	}

	contentType := n.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := domain.NewDocument(name, path.Base(name), contentType, n.Size, uploadedBy)
	uploaded := domain.NewSystemAudit(doc.ID, domain.AuditDocumentUploaded, map[string]interface{}{
		"bucket":    n.Bucket,
		"blob_path": name,
		"size":      n.Size,
	})
	uploaded.Actor = uploadedBy
	if err := s.docRepo.Create(ctx, doc, uploaded); err != nil {
		if errors.Is(err, domain.ErrDocumentAlreadyExists) {
			return &IngestResult{Status: IngestExists}, nil
		}
		return nil, fmt.Errorf("creating document for %s: %w", name, err)
	}

	s.logger.Info("documentService.Register: document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("blob_path", name),
		zap.String("uploaded_by", uploadedBy),
	)
	s.dispatch(ctx, port.RunRequest{DocumentID: doc.ID})
	return &IngestResult{Status: IngestCreated, Document: doc}, nil
}

func (s *documentService) Reprocess(ctx context.Context, docID uuid.UUID, forceSemantic bool, actor string) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	previous := doc.Status
	if err := doc.Apply(domain.EventReprocess); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRunConflict, err)
	}
	doc.ForceSemantic = forceSemantic
	entry := domain.NewSystemAudit(doc.ID, domain.AuditDocumentReprocessed, map[string]interface{}{
		"previous_status": string(previous),
		"force_semantic":  forceSemantic,
	})
	if actor != "" {
		entry.Actor = actor
	}
	if err := s.docRepo.ResetForReprocess(ctx, doc, entry); err != nil {
		return nil, err
	}

	s.logger.Info("documentService.Reprocess: document reset to pending",
		zap.String("document_id", doc.ID.String()),
		zap.String("previous_status", string(previous)),
		zap.Bool("force_semantic", forceSemantic),
	)

	// Copy before dispatching so the caller's value is independent of background work
	result := *doc
	s.dispatch(ctx, port.RunRequest{DocumentID: doc.ID, ForceSemantic: forceSemantic})
	return &result, nil
}

// dispatch never fails the caller: an undispatched document stays PENDING
// and the process queue worker runs it later.
func (s *documentService) dispatch(ctx context.Context, req port.RunRequest) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, req); err != nil {
		s.logger.Warn("documentService.dispatch: run not dispatched, left for queue worker",
			zap.String("document_id", req.DocumentID.String()), zap.Error(err))
	}
}

func (s *documentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, docID)
}

func (s *documentService) ListExceptions(ctx context.Context, docID uuid.UUID) ([]domain.Exception, error) {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.exceptions.ListByDocument(ctx, docID)
}

func (s *documentService) ListAudit(ctx context.Context, docID uuid.UUID) ([]domain.AuditLogEntry, error) {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.audit.ListByDocument(ctx, docID)
}
