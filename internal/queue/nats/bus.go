// Package nats carries pipeline run requests and processed events over NATS.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/extraction"
	"docintake/internal/port"
)

// RunHandler executes one requested run.
type RunHandler func(ctx context.Context, req port.RunRequest) error

// Options tunes the connection. Zero values fall back to defaults.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// Concurrency bounds the run requests this process handles at once.
	Concurrency int
	Executor    *extraction.Executor
	Logger      *zap.Logger
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Bus publishes run requests and processed events, and consumes run
// requests as a member of a queue group.
type Bus struct {
	conn             *nats.Conn
	pub              publisher
	runSubject       string
	processedSubject string
	queueGroup       string
	concurrency      int
	executor         *extraction.Executor
	logger           *zap.Logger
}

// Connect dials NATS and returns a Bus bound to the configured subjects.
func Connect(cfg config.NATSConfig, opts Options) (*Bus, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(
		cfg.URL,
		nats.Name("docintake"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats.Bus: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats.Bus: reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	b := newBus(conn, cfg, opts.Executor, logger)
	b.conn = conn
	if opts.Concurrency > 0 {
		b.concurrency = opts.Concurrency
	}
	return b, nil
}

func newBus(pub publisher, cfg config.NATSConfig, executor *extraction.Executor, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		pub:              pub,
		runSubject:       cfg.RunSubject,
		processedSubject: cfg.ProcessedSubject,
		queueGroup:       cfg.QueueGroup,
		concurrency:      1,
		executor:         executor,
		logger:           logger,
	}
}

// Close closes the connection.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// Dispatch implements port.RunDispatcher.
func (b *Bus) Dispatch(ctx context.Context, req port.RunRequest) error {
	if req.DocumentID == uuid.Nil {
		return errors.New("nats.Bus.Dispatch: document id is required")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding run request: %w", err)
	}
	return b.publish(ctx, b.runSubject, data)
}

// PublishProcessed implements port.EventPublisher.
func (b *Bus) PublishProcessed(ctx context.Context, event port.ProcessedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding processed event: %w", err)
	}
	return b.publish(ctx, b.processedSubject, data)
}

func (b *Bus) publish(ctx context.Context, subject string, data []byte) error {
	call := func(_ context.Context) error {
		if err := b.pub.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}
	if b.executor == nil {
		return call(ctx)
	}
	return b.executor.Execute(ctx, "nats.publish", call, classifyError)
}

// Subscribe consumes run requests on b.concurrency goroutines until ctx is
// done, then unsubscribes and waits for in-flight runs. Requests still
// buffered at shutdown are left to the queue worker.
func (b *Bus) Subscribe(ctx context.Context, handle RunHandler) error {
	if b.conn == nil {
		return errors.New("nats.Bus.Subscribe: not connected")
	}
	msgs := make(chan *nats.Msg, b.concurrency)
	sub, err := b.conn.ChanQueueSubscribe(b.runSubject, b.queueGroup, msgs)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}
	b.logger.Info("nats.Bus: consuming run requests",
		zap.String("subject", b.runSubject),
		zap.String("queue_group", b.queueGroup),
		zap.Int("concurrency", b.concurrency),
	)

	wait := b.startConsumers(ctx, msgs, handle)
	<-ctx.Done()
	unsubErr := sub.Unsubscribe()
	wait()
	if unsubErr != nil {
		return fmt.Errorf("nats unsubscribe: %w", unsubErr)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after unsubscribe: %w", err)
	}
	return nil
}

// startConsumers runs b.concurrency goroutines reading msgs until ctx is
// done. The returned func waits for them to finish their current run.
func (b *Bus) startConsumers(ctx context.Context, msgs <-chan *nats.Msg, handle RunHandler) func() {
	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-msgs:
					b.handleMessage(ctx, msg.Data, handle)
				}
			}
		}()
	}
	return wg.Wait
}

// handleMessage decodes one run request and runs it. Undecodable messages
// are dropped; the queue worker still picks up the PENDING document.
func (b *Bus) handleMessage(ctx context.Context, data []byte, handle RunHandler) {
	req, err := decodeRunRequest(data)
	if err != nil {
		b.logger.Warn("nats.Bus: dropping malformed run request", zap.Error(err))
		return
	}
	runCtx := context.WithoutCancel(ctx)
	if err := handle(runCtx, req); err != nil {
		b.logger.Error("nats.Bus: run failed",
			zap.String("document_id", req.DocumentID.String()), zap.Error(err))
	}
}

// decodeRunRequest accepts the JSON form and a bare document id.
func decodeRunRequest(data []byte) (port.RunRequest, error) {
	var req port.RunRequest
	if err := json.Unmarshal(data, &req); err == nil {
		if req.DocumentID == uuid.Nil {
			return req, errors.New("run request without document id")
		}
		return req, nil
	}
	id, err := uuid.ParseBytes(data)
	if err != nil {
		return req, fmt.Errorf("decoding run request: %w", err)
	}
	return port.RunRequest{DocumentID: id}, nil
}

func classifyError(err error) extraction.ErrorClassification {
	switch {
	case err == nil:
		return extraction.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return extraction.ErrorClassification{}
	case extraction.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected):
		return extraction.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return extraction.ErrorClassification{RecordFailure: true}
	}
}
