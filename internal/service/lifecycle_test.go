package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
	"docintake/internal/service"
	"docintake/internal/validation"
	"docintake/mocks"
)

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type lifecycleFixture struct {
	docRepo    *mocks.MockDocumentRepo
	blobs      *mocks.MockBlobStore
	structured *mocks.MockStructuredExtractor
	semantic   *mocks.MockSemanticExtractor
	publisher  *mocks.MockEventPublisher
	controller *service.LifecycleController
}

func newLifecycleFixture(t *testing.T, processingTimeout time.Duration) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		docRepo:    new(mocks.MockDocumentRepo),
		blobs:      new(mocks.MockBlobStore),
		structured: new(mocks.MockStructuredExtractor),
		semantic:   new(mocks.MockSemanticExtractor),
		publisher:  new(mocks.MockEventPublisher),
	}

	reg := validation.DefaultRegistry()
	cat, err := validation.DefaultCatalog(reg)
	require.NoError(t, err)
	engine := validation.NewEngine(cat, reg, validation.WithClock(func() time.Time { return fixedNow }))

	orch := extraction.NewOrchestrator(
		[]extraction.Strategy{
			extraction.StructuredStrategy(f.structured),
			extraction.SemanticStrategy(f.semantic, domain.ExtractorClaude),
		},
		0.85,
		extraction.NewTypeDetector(f.semantic, nil),
		nil,
		nil,
	)

	f.controller = service.NewLifecycleController(
		f.docRepo, f.blobs, orch, engine, f.structured, f.publisher, nil,
		service.LifecycleConfig{
			ProcessingTimeout: processingTimeout,
			PersistTimeout:    time.Second,
			CompletePrefix:    "complete",
			FailedPrefix:      "failed",
		},
		nil,
	)
	return f
}

func pendingDoc(filename string, docType domain.DocumentType) *domain.Document {
	doc := domain.NewDocument("inbox/"+filename, filename, "application/pdf", 2048, "pubsub")
	doc.DocumentType = docType
	return doc
}

func extracted(tag domain.ExtractorTag, confidence float64, fields domain.Fields) *port.ExtractionResult {
	return &port.ExtractionResult{
		Fields:           fields,
		Confidence:       confidence,
		FieldConfidences: domain.Confidences{},
		Extractor:        tag,
	}
}

func (f *lifecycleFixture) expectBegin() {
	f.docRepo.On("BeginRun", mock.Anything, mock.AnythingOfType("*domain.Document"),
		mock.MatchedBy(func(a domain.AuditLogEntry) bool {
			return a.Action == domain.AuditDocumentProcessingStarted
		})).Return(nil).Once()
}

func (f *lifecycleFixture) captureSave(saved *port.RunOutcome) {
	f.docRepo.On("SaveRun", mock.Anything, mock.AnythingOfType("port.RunOutcome")).
		Run(func(args mock.Arguments) {
			*saved = args.Get(1).(port.RunOutcome)
		}).Return(nil).Once()
}

func lastAudit(out port.RunOutcome) domain.AuditAction {
	if len(out.Audit) == 0 {
		return ""
	}
	return out.Audit[len(out.Audit)-1].Action
}

func TestLifecycle_Run_ProcessedAndRelocated(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, "inbox/statement.pdf").Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).Return(extracted(domain.ExtractorDocAIForm, 0.90, domain.Fields{
		"period_end_date": "2024-05-31",
		"revenue":         1000000.0,
		"gross_profit":    400000.0,
	}), nil)
	f.blobs.On("Relocate", mock.Anything, "inbox/statement.pdf", "complete").Return("complete/statement.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.MatchedBy(func(e port.ProcessedEvent) bool {
		return e.DocumentID == doc.ID && e.Status == domain.StatusProcessed
	})).Return(nil)

	err := f.controller.Run(context.Background(), doc, false)
	require.NoError(t, err)

	require.NotNil(t, saved.Document)
	assert.Equal(t, domain.StatusProcessed, saved.Document.Status)
	assert.False(t, saved.Document.RequiresReview)
	assert.Empty(t, saved.Exceptions)
	assert.Equal(t, "complete/statement.pdf", saved.Document.BlobPath)
	assert.InDelta(t, 0.90, *saved.Document.Confidence, 1e-9)
	assert.Equal(t, domain.ExtractorDocAIForm, *saved.Document.Extractor)
	assert.NotNil(t, saved.Document.ProcessedAt)
	assert.NotNil(t, saved.Document.ProcessingMillis)
	assert.Nil(t, saved.Document.ProcessingError)
	assert.Equal(t, domain.AuditDocumentProcessed, lastAudit(saved))

	assert.Equal(t, domain.StatusProcessed, doc.Status)
	f.semantic.AssertNotCalled(t, "ExtractFromText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertExpectations(t)
}

func TestLifecycle_Run_ValidationErrorsNeedReview(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).Return(extracted(domain.ExtractorDocAIForm, 0.95, domain.Fields{
		"period_end_date": "2024-05-31",
		"revenue":         -100.0,
	}), nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, false))

	assert.Equal(t, domain.StatusNeedsReview, saved.Document.Status)
	assert.True(t, saved.Document.RequiresReview)
	require.Len(t, saved.Exceptions, 1)
	ex := saved.Exceptions[0]
	assert.Equal(t, domain.CategoryValidationError, ex.Category)
	assert.Equal(t, domain.PriorityHigh, ex.Priority)
	require.NotNil(t, ex.FieldName)
	assert.Equal(t, "revenue", *ex.FieldName)
	require.NotNil(t, ex.ActualValue)
	assert.Equal(t, "-100", *ex.ActualValue)
	assert.Equal(t, domain.ExceptionOpen, ex.Status)
	assert.Equal(t, doc.ID, ex.DocumentID)
	f.blobs.AssertNotCalled(t, "Relocate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_Run_LowConfidenceNeedsReview(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)
	fields := domain.Fields{"period_end_date": "2024-05-31", "revenue": 500.0}

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).Return(extracted(domain.ExtractorDocAIForm, 0.60, fields), nil)
	f.structured.On("OCR", mock.Anything, mock.Anything, "application/pdf").Return(&port.OCRResult{Text: "Revenue: 500", Pages: 1}, nil).Once()
	f.semantic.On("ExtractFromText", mock.Anything, "Revenue: 500", domain.TypeMonthlyFinancials, "statement.pdf").
		Return(extracted(domain.ExtractorClaude, 0.70, fields), nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, false))

	assert.Equal(t, domain.StatusNeedsReview, saved.Document.Status)
	assert.True(t, saved.Document.RequiresReview)
	assert.Equal(t, domain.ExtractorClaude, *saved.Document.Extractor)
	require.Len(t, saved.Exceptions, 1)
	assert.Equal(t, domain.CategoryLowConfidence, saved.Exceptions[0].Category)
	assert.Equal(t, domain.PriorityMedium, saved.Exceptions[0].Priority)
	assert.Equal(t, "Overall extraction confidence (70.00%) below threshold (85.00%)", saved.Exceptions[0].Reason)

	actions := make([]domain.AuditAction, 0, len(saved.Audit))
	for _, a := range saved.Audit {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []domain.AuditAction{
		domain.AuditExtractionFallback,
		domain.AuditExceptionCreated,
		domain.AuditDocumentProcessed,
	}, actions)
}

func TestLifecycle_Run_DetectsUnresolvedType(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("bbc_march.pdf", domain.TypeUnknown)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).Return(extracted(domain.ExtractorDocAIForm, 0.92, domain.Fields{
		"certificate_date":          "2024-06-30",
		"eligible_ar":               400.0,
		"gross_accounts_receivable": 500.0,
		"total_availability":        250.0,
	}), nil)
	f.blobs.On("Relocate", mock.Anything, mock.Anything, "complete").Return("complete/bbc_march.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, false))

	assert.Equal(t, domain.TypeBorrowingBase, saved.Document.DocumentType)
	assert.Equal(t, domain.StatusProcessed, saved.Document.Status)
	f.semantic.AssertNotCalled(t, "DetectType", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_Run_LowConfidenceReasonKeepsPrecision(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)
	fields := domain.Fields{"period_end_date": "2024-05-31", "revenue": 500.0}

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: "Revenue: 500", Pages: 1}, nil)
	f.semantic.On("ExtractFromText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(extracted(domain.ExtractorClaude, 0.849, fields), nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, true))

	require.Len(t, saved.Exceptions, 1)
	assert.Equal(t, "Overall extraction confidence (84.90%) below threshold (85.00%)", saved.Exceptions[0].Reason)
}

func TestLifecycle_Run_ExtractorPanicMarksFailed(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("malformed xref in pdf reader") }).
		Return(nil, nil)
	f.blobs.On("Relocate", mock.Anything, "inbox/statement.pdf", "failed").Return("failed/statement.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	var err error
	require.NotPanics(t, func() {
		err = f.controller.Run(context.Background(), doc, false)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed xref in pdf reader")

	assert.Equal(t, domain.StatusFailed, doc.Status)
	require.NotNil(t, saved.Document)
	assert.Equal(t, domain.StatusFailed, saved.Document.Status)
	require.NotNil(t, saved.Document.ProcessingError)
	assert.Contains(t, *saved.Document.ProcessingError, "panic during processing")
	require.Len(t, saved.Exceptions, 1)
	assert.Equal(t, domain.CategoryProcessingFailure, saved.Exceptions[0].Category)
	assert.Equal(t, domain.AuditDocumentFailed, lastAudit(saved))
}

func TestLifecycle_Run_ExtractorFailureMarksFailed(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).Return(nil, errors.New("docai: 500 internal"))
	f.blobs.On("Relocate", mock.Anything, "inbox/statement.pdf", "failed").Return("failed/statement.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.MatchedBy(func(e port.ProcessedEvent) bool {
		return e.Status == domain.StatusFailed
	})).Return(nil)

	err := f.controller.Run(context.Background(), doc, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docai: 500 internal")

	assert.Equal(t, domain.StatusFailed, saved.Document.Status)
	assert.False(t, saved.Document.RequiresReview)
	require.NotNil(t, saved.Document.ProcessingError)
	assert.Contains(t, *saved.Document.ProcessingError, "docai: 500 internal")
	assert.Equal(t, "failed/statement.pdf", saved.Document.BlobPath)
	require.Len(t, saved.Exceptions, 1)
	assert.Equal(t, domain.CategoryProcessingFailure, saved.Exceptions[0].Category)
	assert.Equal(t, domain.PriorityCritical, saved.Exceptions[0].Priority)
	assert.Equal(t, domain.AuditDocumentFailed, lastAudit(saved))
	assert.Nil(t, saved.Document.Confidence)
	f.publisher.AssertExpectations(t)
}

func TestLifecycle_Run_RelocationFailureDoesNotMaskCause(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return(nil, errors.New("blob gone"))
	f.blobs.On("Relocate", mock.Anything, mock.Anything, "failed").Return("", errors.New("relocate denied"))
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	err := f.controller.Run(context.Background(), doc, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob gone")
	assert.NotContains(t, err.Error(), "relocate denied")

	assert.Equal(t, domain.StatusFailed, saved.Document.Status)
	assert.Equal(t, "inbox/statement.pdf", saved.Document.BlobPath)
	require.Len(t, saved.Exceptions, 1)
	assert.Equal(t, domain.CategoryProcessingFailure, saved.Exceptions[0].Category)
}

func TestLifecycle_Run_TimeoutPersistsOnDetachedContext(t *testing.T) {
	f := newLifecycleFixture(t, 50*time.Millisecond)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("Process", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).Return(nil, context.DeadlineExceeded)
	f.blobs.On("Relocate", mock.Anything, mock.Anything, "failed").Return("failed/statement.pdf", nil)
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	var saved port.RunOutcome
	f.docRepo.On("SaveRun", live, mock.AnythingOfType("port.RunOutcome")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(port.RunOutcome)
		}).Return(nil).Once()
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	err := f.controller.Run(context.Background(), doc, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StatusFailed, saved.Document.Status)
	f.docRepo.AssertExpectations(t)
}

func TestLifecycle_Run_ConflictWhenAlreadyClaimed(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.docRepo.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrRunConflict)

	err := f.controller.Run(context.Background(), doc, false)
	assert.ErrorIs(t, err, domain.ErrRunConflict)
	f.blobs.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
	f.docRepo.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
}

func TestLifecycle_Run_RejectsNonPendingDocument(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)
	doc.Status = domain.StatusNeedsReview
	doc.RequiresReview = true

	err := f.controller.Run(context.Background(), doc, false)
	assert.ErrorIs(t, err, domain.ErrRunConflict)
	f.docRepo.AssertNotCalled(t, "BeginRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_Run_ForceSemanticSkipsStructured(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: "text", Pages: 1}, nil)
	f.semantic.On("ExtractFromText", mock.Anything, "text", domain.TypeMonthlyFinancials, "statement.pdf").
		Return(extracted(domain.ExtractorClaude, 0.95, domain.Fields{"period_end_date": "2024-05-31", "revenue": 10.0}), nil)
	f.blobs.On("Relocate", mock.Anything, mock.Anything, "complete").Return("complete/statement.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, true))

	assert.Equal(t, domain.ExtractorClaude, *saved.Document.Extractor)
	f.structured.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestLifecycle_Run_StoredForceSemanticIsHonouredAndCleared(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	doc := pendingDoc("statement.pdf", domain.TypeMonthlyFinancials)
	doc.ForceSemantic = true

	f.expectBegin()
	f.blobs.On("Download", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: "text", Pages: 1}, nil)
	f.semantic.On("ExtractFromText", mock.Anything, "text", domain.TypeMonthlyFinancials, "statement.pdf").
		Return(extracted(domain.ExtractorClaude, 0.95, domain.Fields{"period_end_date": "2024-05-31", "revenue": 10.0}), nil)
	f.blobs.On("Relocate", mock.Anything, mock.Anything, "complete").Return("complete/statement.pdf", nil)
	var saved port.RunOutcome
	f.captureSave(&saved)
	f.publisher.On("PublishProcessed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.controller.Run(context.Background(), doc, false))

	f.structured.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	assert.False(t, saved.Document.ForceSemantic)
	assert.False(t, doc.ForceSemantic)
}

func TestPipelineRunner_MissingDocumentIsNoop(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	id := uuid.New()
	f.docRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrDocumentNotFound)

	runner := service.NewPipelineRunner(f.docRepo, f.controller, nil)
	err := runner.Run(context.Background(), id, false)

	assert.NoError(t, err)
	f.docRepo.AssertNotCalled(t, "BeginRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineRunner_LoadErrorIsReturned(t *testing.T) {
	f := newLifecycleFixture(t, time.Minute)
	id := uuid.New()
	f.docRepo.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

	runner := service.NewPipelineRunner(f.docRepo, f.controller, nil)
	err := runner.Handle(context.Background(), port.RunRequest{DocumentID: id})

	assert.Error(t, err)
}
