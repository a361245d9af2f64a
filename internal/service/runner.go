package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// PipelineRunner is the unit of background work: one run for one document ID.
type PipelineRunner struct {
	docRepo    port.DocumentRepository
	controller *LifecycleController
	logger     *zap.Logger
}

// NewPipelineRunner creates a PipelineRunner.
func NewPipelineRunner(docRepo port.DocumentRepository, controller *LifecycleController, logger *zap.Logger) *PipelineRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineRunner{docRepo: docRepo, controller: controller, logger: logger}
}

// Run loads the document and hands it to the lifecycle controller. A document
// that no longer exists is not an error.
func (r *PipelineRunner) Run(ctx context.Context, docID uuid.UUID, forceSemantic bool) error {
	doc, err := r.docRepo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("service.PipelineRunner.Run: document not found, skipping",
				zap.String("document_id", docID.String()))
			return nil
		}
		return fmt.Errorf("loading document %s: %w", docID, err)
	}
	return r.controller.Run(ctx, doc, forceSemantic)
}

// Handle adapts Run to a RunHandler.
func (r *PipelineRunner) Handle(ctx context.Context, req port.RunRequest) error {
	return r.Run(ctx, req.DocumentID, req.ForceSemantic)
}
