package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/metrics"
	"docintake/internal/port"
	"docintake/internal/validation"
)

const defaultPersistTimeout = 15 * time.Second

// LifecycleConfig holds timing and blob placement settings for pipeline runs.
type LifecycleConfig struct {
	ProcessingTimeout time.Duration
	PersistTimeout    time.Duration
	CompletePrefix    string
	FailedPrefix      string
}

// LifecycleController owns a document for the duration of one run: it
// extracts, validates, decides the terminal status and persists the outcome.
type LifecycleController struct {
	docRepo      port.DocumentRepository
	blobs        port.BlobStore
	orchestrator *extraction.Orchestrator
	validator    *validation.Engine
	ocr          port.StructuredExtractor
	publisher    port.EventPublisher
	observer     port.PipelineObserver
	cfg          LifecycleConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewLifecycleController creates a LifecycleController. ocr supplies the
// plain-text view used by semantic extraction and type detection. publisher
// and observer may be nil.
func NewLifecycleController(
	docRepo port.DocumentRepository,
	blobs port.BlobStore,
	orchestrator *extraction.Orchestrator,
	validator *validation.Engine,
	ocr port.StructuredExtractor,
	publisher port.EventPublisher,
	observer port.PipelineObserver,
	cfg LifecycleConfig,
	logger *zap.Logger,
) *LifecycleController {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if observer == nil {
		observer = metrics.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleController{
		docRepo:      docRepo,
		blobs:        blobs,
		orchestrator: orchestrator,
		validator:    validator,
		ocr:          ocr,
		publisher:    publisher,
		observer:     observer,
		cfg:          cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run takes doc from PENDING to a terminal status. It returns
// domain.ErrRunConflict when doc is not PENDING or another run claimed it
// first, and the run's cause when it ended FAILED.
func (c *LifecycleController) Run(ctx context.Context, doc *domain.Document, forceSemantic bool) error {
	// A flag stored by a reprocess request survives a lost dispatch.
	forceSemantic = forceSemantic || doc.ForceSemantic
	if err := doc.Apply(domain.EventStart); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRunConflict, err)
	}
	started := c.now()
	start := domain.NewSystemAudit(doc.ID, domain.AuditDocumentProcessingStarted, map[string]interface{}{
		"force_semantic": forceSemantic,
	})
	if err := c.docRepo.BeginRun(ctx, doc, start); err != nil {
		return err
	}
	c.observer.RunStarted()
	c.logger.Info("service.LifecycleController.Run: processing started",
		zap.String("document_id", doc.ID.String()),
		zap.String("blob_path", doc.BlobPath),
		zap.Bool("force_semantic", forceSemantic),
	)

	runCtx := ctx
	if c.cfg.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
		defer cancel()
	}

	out, err := c.processRecovering(runCtx, doc, forceSemantic, started)
	if err != nil {
		return c.fail(ctx, doc, err, started)
	}
	if err := c.docRepo.SaveRun(runCtx, out); err != nil {
		// The blob may already sit in the complete area.
		doc.BlobPath = out.Document.BlobPath
		return c.fail(ctx, doc, fmt.Errorf("saving run: %w", err), started)
	}

	*doc = *out.Document
	for _, ex := range out.Exceptions {
		c.observer.ExceptionCreated(ex.Category)
	}
	c.observer.RunFinished(doc.Status, c.now().Sub(started))
	c.logger.Info("service.LifecycleController.Run: processing finished",
		zap.String("document_id", doc.ID.String()),
		zap.String("status", string(doc.Status)),
		zap.Float64("confidence", *doc.Confidence),
		zap.String("extractor", string(*doc.Extractor)),
		zap.Int("exceptions", len(out.Exceptions)),
	)
	c.publish(ctx, doc)
	return nil
}

// processRecovering turns a panic in any pipeline step into an ordinary
// run error so the document still ends FAILED.
func (c *LifecycleController) processRecovering(ctx context.Context, doc *domain.Document, forceSemantic bool, started time.Time) (out port.RunOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("service.LifecycleController.process: recovered panic",
				zap.String("document_id", doc.ID.String()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			out, err = port.RunOutcome{}, fmt.Errorf("panic during processing: %v", r)
		}
	}()
	return c.process(ctx, doc, forceSemantic, started)
}

// process works on a copy of doc so a failure leaves the caller's document
// in PROCESSING for the failure path.
func (c *LifecycleController) process(ctx context.Context, doc *domain.Document, forceSemantic bool, started time.Time) (port.RunOutcome, error) {
	content, err := c.blobs.Download(ctx, doc.BlobPath)
	if err != nil {
		return port.RunOutcome{}, fmt.Errorf("downloading %s: %w", doc.BlobPath, err)
	}

	src := extraction.NewSource(content, doc.MimeType, doc.Filename, doc.DocumentType, c.ocr)
	extracted, err := c.orchestrator.Extract(ctx, src, forceSemantic)
	if err != nil {
		return port.RunOutcome{}, fmt.Errorf("extracting: %w", err)
	}

	next := *doc
	var audit []domain.AuditLogEntry
	for _, fb := range extracted.Fallbacks {
		audit = append(audit, domain.NewSystemAudit(doc.ID, domain.AuditExtractionFallback, map[string]interface{}{
			"original_confidence": fb.Confidence,
			"processor":           string(fb.FromExtractor),
		}))
	}

	if !next.DocumentType.IsResolved() {
		detected, err := c.orchestrator.DetectType(ctx, src)
		if err != nil {
			return port.RunOutcome{}, fmt.Errorf("detecting document type: %w", err)
		}
		next.DocumentType = detected
	}

	res := extracted.Result
	checked := c.validator.Validate(res.Fields, next.DocumentType)

	confidence := res.Confidence
	tag := res.Extractor
	next.ExtractedData = res.Fields
	next.RawExtraction = res.Raw
	next.Confidence = &confidence
	next.FieldConfidences = res.FieldConfidences
	next.Extractor = &tag

	now := c.now()
	threshold := c.orchestrator.Threshold()
	var exceptions []domain.Exception
	switch {
	case !checked.IsValid():
		for _, issue := range checked.Errors {
			exceptions = append(exceptions, exceptionFromIssue(doc.ID, issue, now))
		}
		if err := next.Apply(domain.EventRequireReview); err != nil {
			return port.RunOutcome{}, err
		}
	case confidence < threshold:
		exceptions = append(exceptions, lowConfidenceException(doc.ID, confidence, threshold, now))
		if err := next.Apply(domain.EventRequireReview); err != nil {
			return port.RunOutcome{}, err
		}
	default:
		moved, err := c.blobs.Relocate(ctx, next.BlobPath, c.cfg.CompletePrefix)
		if err != nil {
			return port.RunOutcome{}, fmt.Errorf("relocating to %s: %w", c.cfg.CompletePrefix, err)
		}
		next.BlobPath = moved
		if err := next.Apply(domain.EventComplete); err != nil {
			return port.RunOutcome{}, err
		}
	}

	for _, ex := range exceptions {
		audit = append(audit, exceptionAudit(ex))
	}

	elapsed := now.Sub(started).Milliseconds()
	next.ProcessingMillis = &elapsed
	next.ProcessedAt = &now
	next.ProcessingError = nil
	next.ForceSemantic = false
	next.UpdatedAt = now
	audit = append(audit, domain.NewSystemAudit(doc.ID, domain.AuditDocumentProcessed, map[string]interface{}{
		"status":             string(next.Status),
		"confidence":         confidence,
		"extractor":          string(tag),
		"processing_time_ms": elapsed,
		"validation_errors":  len(checked.Errors),
	}))

	return port.RunOutcome{Document: &next, Exceptions: exceptions, Audit: audit}, nil
}

// fail records cause as the run's terminal FAILED outcome. Persistence runs
// on a context detached from the run so an expired deadline cannot stop it.
func (c *LifecycleController) fail(ctx context.Context, doc *domain.Document, cause error, started time.Time) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PersistTimeout)
	defer cancel()

	c.logger.Error("service.LifecycleController.fail: processing failed",
		zap.String("document_id", doc.ID.String()),
		zap.Error(cause),
	)

	if moved, err := c.blobs.Relocate(persistCtx, doc.BlobPath, c.cfg.FailedPrefix); err != nil {
		c.logger.Warn("service.LifecycleController.fail: relocation failed",
			zap.String("document_id", doc.ID.String()),
			zap.String("blob_path", doc.BlobPath),
			zap.Error(err),
		)
	} else {
		doc.BlobPath = moved
	}

	if err := doc.Apply(domain.EventFail); err != nil {
		c.logger.Error("service.LifecycleController.fail: cannot mark failed",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
		return cause
	}

	now := c.now()
	msg := cause.Error()
	elapsed := now.Sub(started).Milliseconds()
	doc.ProcessingError = &msg
	doc.ProcessingMillis = &elapsed
	doc.ForceSemantic = false
	doc.UpdatedAt = now

	ex := newException(doc.ID, domain.CategoryProcessingFailure, domain.PriorityCritical, "Processing failed: "+msg, now)
	out := port.RunOutcome{
		Document:   doc,
		Exceptions: []domain.Exception{ex},
		Audit: []domain.AuditLogEntry{
			exceptionAudit(ex),
			domain.NewSystemAudit(doc.ID, domain.AuditDocumentFailed, map[string]interface{}{
				"error":              msg,
				"processing_time_ms": elapsed,
			}),
		},
	}
	if err := c.docRepo.SaveRun(persistCtx, out); err != nil {
		c.logger.Error("service.LifecycleController.fail: failed to persist failure",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
		return fmt.Errorf("%w (persisting failure: %v)", cause, err)
	}

	c.observer.ExceptionCreated(ex.Category)
	c.observer.RunFinished(domain.StatusFailed, now.Sub(started))
	c.publish(persistCtx, doc)
	return cause
}

func (c *LifecycleController) publish(ctx context.Context, doc *domain.Document) {
	if c.publisher == nil {
		return
	}
	event := port.ProcessedEvent{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Confidence: doc.Confidence,
		Extractor:  doc.Extractor,
		OccurredAt: c.now(),
	}
	if err := c.publisher.PublishProcessed(ctx, event); err != nil {
		c.logger.Warn("service.LifecycleController.publish: failed to publish event",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
}

func newException(docID uuid.UUID, category domain.ExceptionCategory, priority domain.Priority, reason string, now time.Time) domain.Exception {
	return domain.Exception{
		ID:         uuid.New(),
		DocumentID: docID,
		Category:   category,
		Reason:     reason,
		Priority:   priority,
		Status:     domain.ExceptionOpen,
		CreatedAt:  now,
	}
}

func exceptionFromIssue(docID uuid.UUID, issue validation.Issue, now time.Time) domain.Exception {
	ex := newException(docID, issue.Category, issue.Priority, issue.Message, now)
	ex.FieldName = optional(issue.Field)
	ex.ExpectedValue = optional(issue.Expected)
	ex.ActualValue = optional(issue.Actual)
	return ex
}

func lowConfidenceException(docID uuid.UUID, confidence, threshold float64, now time.Time) domain.Exception {
	reason := fmt.Sprintf("Overall extraction confidence (%.2f%%) below threshold (%.2f%%)", confidence*100, threshold*100)
	ex := newException(docID, domain.CategoryLowConfidence, domain.PriorityMedium, reason, now)
	ex.ExpectedValue = optional(">= " + strconv.FormatFloat(threshold, 'f', -1, 64))
	ex.ActualValue = optional(strconv.FormatFloat(confidence, 'f', -1, 64))
	return ex
}

func exceptionAudit(ex domain.Exception) domain.AuditLogEntry {
	return domain.NewSystemAudit(ex.DocumentID, domain.AuditExceptionCreated, map[string]interface{}{
		"exception_id": ex.ID.String(),
		"category":     string(ex.Category),
		"priority":     string(ex.Priority),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
