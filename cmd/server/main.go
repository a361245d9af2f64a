package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docintake/internal/bootstrap"
	"docintake/internal/config"
	"docintake/internal/handler"
	"docintake/internal/logging"
	"docintake/internal/router"
	"docintake/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("server: shutdown cleanup failed", zap.Error(err))
		}
	}()

	r := router.Setup(router.Handlers{
		Document: handler.NewDocumentHandler(app.Service),
		Webhook:  handler.NewWebhookHandler(app.Service, cfg.Webhook.PubSubToken),
		Health:   handler.NewHealthHandler(app.DB),
		Metrics:  app.Metrics.Handler(),
	}, app.Metrics, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	worker := service.NewProcessQueueWorker(app.Documents, app.Runner.Handle, service.ProcessQueueConfig{
		PollInterval: cfg.Queue.PollInterval,
		GracePeriod:  cfg.Queue.GracePeriod,
		Concurrency:  cfg.Queue.Concurrency,
		BatchSize:    cfg.Queue.BatchSize,
		RunTimeout:   cfg.Pipeline.ProcessingTimeout + cfg.Pipeline.PersistTimeout,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server: listening", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		worker.Start(gctx)
		return nil
	})

	if app.Bus != nil {
		g.Go(func() error {
			return app.Bus.Subscribe(gctx, app.Runner.Handle)
		})
	}

	return g.Wait()
}
