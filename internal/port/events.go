package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docintake/internal/domain"
)

// RunRequest asks for one pipeline run.
type RunRequest struct {
	DocumentID    uuid.UUID `json:"document_id"`
	ForceSemantic bool      `json:"force_semantic"`
}

// ProcessedEvent announces that a run reached a terminal status.
type ProcessedEvent struct {
	DocumentID uuid.UUID             `json:"document_id"`
	Status     domain.DocumentStatus `json:"status"`
	Confidence *float64              `json:"confidence,omitempty"`
	Extractor  *domain.ExtractorTag  `json:"extractor,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// RunDispatcher schedules pipeline runs.
type RunDispatcher interface {
	Dispatch(ctx context.Context, req RunRequest) error
}

// EventPublisher publishes pipeline events.
type EventPublisher interface {
	PublishProcessed(ctx context.Context, event ProcessedEvent) error
}

// PipelineObserver receives pipeline measurements. Implementations must be
// safe for concurrent use.
type PipelineObserver interface {
	RunStarted()
	RunFinished(status domain.DocumentStatus, elapsed time.Duration)
	ExtractionFallback()
	ExtractorCall(extractor string, outcome string)
	ExceptionCreated(category domain.ExceptionCategory)
}
