package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"docintake/internal/port"
)

// ProcessQueueConfig holds settings for the process queue worker.
type ProcessQueueConfig struct {
	PollInterval time.Duration
	GracePeriod  time.Duration
	Concurrency  int
	BatchSize    int
	RunTimeout   time.Duration
}

// ProcessQueueWorker polls for PENDING documents whose dispatch never ran
// and runs them.
type ProcessQueueWorker struct {
	docRepo port.DocumentRepository
	handle  RunHandler
	cfg     ProcessQueueConfig
	logger  *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewProcessQueueWorker creates a new ProcessQueueWorker.
func NewProcessQueueWorker(docRepo port.DocumentRepository, handle RunHandler, cfg ProcessQueueConfig, logger *zap.Logger) *ProcessQueueWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessQueueWorker{
		docRepo: docRepo,
		handle:  handle,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight runs have finished.
func (w *ProcessQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("service.ProcessQueueWorker: started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Duration("grace", w.cfg.GracePeriod),
		zap.Int("concurrency", w.cfg.Concurrency),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("service.ProcessQueueWorker: shutting down, waiting for in-flight runs")
			w.wg.Wait()
			w.logger.Info("service.ProcessQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}
			if available > w.cfg.BatchSize {
				available = w.cfg.BatchSize
			}

			docs, err := w.docRepo.ListPending(ctx, w.now().Add(-w.cfg.GracePeriod), available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.logger.Error("service.ProcessQueueWorker: ListPending failed", zap.Error(err))
				continue
			}

			for i := range docs {
				req := port.RunRequest{DocumentID: docs[i].ID, ForceSemantic: docs[i].ForceSemantic}
				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Runs use a fresh context so they complete during shutdown.
					runCtx := context.Background()
					if w.cfg.RunTimeout > 0 {
						var cancel context.CancelFunc
						runCtx, cancel = context.WithTimeout(runCtx, w.cfg.RunTimeout)
						defer cancel()
					}
					w.logger.Debug("service.ProcessQueueWorker: running document",
						zap.String("document_id", req.DocumentID.String()))
					if err := w.handle(runCtx, req); err != nil {
						logRunError(w.logger, "service.ProcessQueueWorker", req, err)
					}
				}()
			}
		}
	}
}
