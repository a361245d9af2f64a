// Package bootstrap assembles the pipeline from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/extraction"
	"docintake/internal/metrics"
	"docintake/internal/port"
	natsqueue "docintake/internal/queue/nats"
	"docintake/internal/repository/postgres"
	"docintake/internal/service"
	"docintake/internal/storage"
	"docintake/internal/validation"

	// Extractor providers register themselves with the extraction factory.
	_ "docintake/internal/extraction/claude"
	_ "docintake/internal/extraction/docai"
	_ "docintake/internal/extraction/pdftext"
	_ "docintake/internal/extraction/vertex"
)

// App holds the wired pipeline.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Metrics *metrics.PipelineMetrics

	Blobs      port.BlobStore
	Documents  port.DocumentRepository
	Exceptions port.ExceptionRepository
	Audit      port.AuditRepository

	*Pipeline

	Controller *service.LifecycleController
	Runner     *service.PipelineRunner
	Dispatcher port.RunDispatcher
	Service    service.DocumentService

	// Bus is nil when NATS is disabled.
	Bus *natsqueue.Bus

	closers []func() error
}

// New connects every collaborator named by cfg. On error, whatever was
// already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (app *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app = &App{Config: cfg, Logger: logger, Metrics: metrics.NewPipelineMetrics()}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.closers = append(app.closers, db.Close)

	app.Documents = postgres.NewDocumentRepo(db)
	app.Exceptions = postgres.NewExceptionRepo(db)
	app.Audit = postgres.NewAuditRepo(db)

	blobs, blobCloser, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing blob store: %w", err)
	}
	app.Blobs = blobs
	app.closers = append(app.closers, blobCloser.Close)

	pipeline, err := NewPipeline(ctx, cfg, app.Metrics, logger)
	if err != nil {
		return nil, err
	}
	app.Pipeline = pipeline
	app.closers = append(app.closers, pipeline.Close)

	var publisher port.EventPublisher
	if cfg.NATS.Enabled {
		bus, err := natsqueue.Connect(cfg.NATS, natsqueue.Options{
			Concurrency: cfg.Queue.Concurrency,
			Executor:    extraction.NewExecutor(executorConfig(cfg.Resilience), logger),
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		app.Bus = bus
		app.closers = append(app.closers, func() error { bus.Close(); return nil })
		publisher = bus
	}

	app.Controller = service.NewLifecycleController(
		app.Documents, app.Blobs, app.Orchestrator, app.Validator, app.Structured,
		publisher, app.Metrics,
		service.LifecycleConfig{
			ProcessingTimeout: cfg.Pipeline.ProcessingTimeout,
			PersistTimeout:    cfg.Pipeline.PersistTimeout,
			CompletePrefix:    cfg.Pipeline.Prefixes.Complete,
			FailedPrefix:      cfg.Pipeline.Prefixes.Failed,
		},
		logger,
	)
	app.Runner = service.NewPipelineRunner(app.Documents, app.Controller, logger)

	if app.Bus != nil {
		app.Dispatcher = app.Bus
	} else {
		pool := service.NewPoolDispatcher(app.Runner.Handle, cfg.Queue.Concurrency, logger)
		app.Dispatcher = pool
		// Registered last so Close waits for in-flight runs before the
		// stores they use are closed.
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
	}

	app.Service = service.NewDocumentService(
		app.Documents, app.Exceptions, app.Audit, app.Dispatcher,
		cfg.Pipeline.Prefixes.Inbox, logger,
	)
	return app, nil
}

// Pipeline is the extraction and validation core, usable without a database.
type Pipeline struct {
	Structured   port.StructuredExtractor
	Semantic     port.SemanticExtractor
	Orchestrator *extraction.Orchestrator
	Validator    *validation.Engine

	closers []func() error
}

// NewPipeline creates the configured extractors behind a shared resilience
// guard, the orchestrator and the validation engine. observer may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, observer port.PipelineObserver, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{}

	structured, err := extraction.NewStructured(ctx, cfg.Pipeline.StructuredProvider, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing structured extractor: %w", err)
	}
	semantic, tag, err := extraction.NewSemantic(ctx, cfg.Pipeline.SemanticProvider, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing semantic extractor: %w", err)
	}
	if c, ok := semantic.(io.Closer); ok {
		p.closers = append(p.closers, c.Close)
	}

	guard := extraction.NewGuard(
		extraction.NewExecutor(executorConfig(cfg.Resilience), logger),
		cfg.Pipeline.ExtractorCallTimeout,
		observer,
	)
	p.Structured = guard.Structured(cfg.Pipeline.StructuredProvider, structured)
	p.Semantic = guard.Semantic(cfg.Pipeline.SemanticProvider, semantic)

	p.Orchestrator = extraction.NewOrchestrator(
		[]extraction.Strategy{
			extraction.StructuredStrategy(p.Structured),
			extraction.SemanticStrategy(p.Semantic, tag),
		},
		cfg.Pipeline.ConfidenceThreshold,
		extraction.NewTypeDetector(p.Semantic, logger),
		observer,
		logger,
	)

	catalog, registry, err := LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Validator = validation.NewEngine(catalog, registry)
	return p, nil
}

// Close releases provider clients.
func (p *Pipeline) Close() error {
	return closeAll(p.closers)
}

// LoadRules returns the rule catalog at path, or the embedded default
// catalog when path is empty.
func LoadRules(path string) (*validation.Catalog, *validation.Registry, error) {
	registry := validation.DefaultRegistry()
	var (
		catalog *validation.Catalog
		err     error
	)
	if path == "" {
		catalog, err = validation.DefaultCatalog(registry)
	} else {
		catalog, err = validation.LoadCatalogFile(path, registry)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading rule catalog: %w", err)
	}
	return catalog, registry, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	err := closeAll(a.closers)
	a.closers = nil
	return err
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func executorConfig(r config.ResilienceConfig) extraction.ExecutorConfig {
	return extraction.ExecutorConfig{
		RetryMaxAttempts:        r.RetryMaxAttempts,
		RetryInitialBackoff:     r.RetryInitialBackoff,
		RetryMaxBackoff:         r.RetryMaxBackoff,
		BreakerEnabled:          r.BreakerEnabled,
		BreakerMinRequests:      r.BreakerMinRequests,
		BreakerFailureRatio:     r.BreakerFailureRatio,
		BreakerOpenTimeout:      r.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: r.BreakerHalfOpenCalls,
	}
}
