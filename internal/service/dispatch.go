package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/port"
)

var (
	// ErrDispatcherBusy is returned when every pool slot is taken. The
	// process queue worker picks the document up later.
	ErrDispatcherBusy = errors.New("dispatcher: all workers busy")
	// ErrDispatcherClosed is returned after Close.
	ErrDispatcherClosed = errors.New("dispatcher: closed")
)

// RunHandler executes one run request.
type RunHandler func(ctx context.Context, req port.RunRequest) error

// PoolDispatcher runs requests in-process on a bounded set of goroutines.
type PoolDispatcher struct {
	handle RunHandler
	sem    chan struct{}
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPoolDispatcher creates a PoolDispatcher running at most concurrency
// requests at a time.
func NewPoolDispatcher(handle RunHandler, concurrency int, logger *zap.Logger) *PoolDispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolDispatcher{
		handle: handle,
		sem:    make(chan struct{}, concurrency),
		logger: logger,
	}
}

// Dispatch starts req in the background without waiting for it. The run
// keeps ctx's values but not its cancellation.
func (d *PoolDispatcher) Dispatch(ctx context.Context, req port.RunRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.sem <- struct{}{}:
	default:
		return ErrDispatcherBusy
	}

	d.wg.Add(1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		if err := d.handle(runCtx, req); err != nil {
			logRunError(d.logger, "service.PoolDispatcher", req, err)
		}
	}()
	return nil
}

// Close stops accepting requests and waits for in-flight runs.
func (d *PoolDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func logRunError(logger *zap.Logger, component string, req port.RunRequest, err error) {
	if errors.Is(err, domain.ErrRunConflict) {
		logger.Info(component+": run skipped, document already claimed",
			zap.String("document_id", req.DocumentID.String()))
		return
	}
	logger.Error(component+": run failed",
		zap.String("document_id", req.DocumentID.String()),
		zap.Bool("force_semantic", req.ForceSemantic),
		zap.Error(err),
	)
}
