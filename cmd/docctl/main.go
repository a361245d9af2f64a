package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docintake/internal/bootstrap"
	"docintake/internal/config"
	"docintake/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docctl",
		Short:         "Operate the document intake pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `docctl runs pipeline operations by hand.
- process: run one PENDING document through extraction, validation and routing.
- reprocess: reset a finished document to PENDING and dispatch a new run.
- extract: run extraction and validation on a local file without touching the database.
- detect: report the document type the detection cascade assigns to a local file.
- rules check: validate a rule catalog file.`,
	}
	root.AddCommand(processCmd())
	root.AddCommand(reprocessCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(detectCmd())
	root.AddCommand(rulesCmd())
	return root
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

// withApp runs fn against a fully wired application and closes it
// afterwards, waiting for dispatched in-process runs.
func withApp(ctx context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// withPipeline runs fn against the extraction core only.
func withPipeline(ctx context.Context, fn func(ctx context.Context, p *bootstrap.Pipeline) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	p, err := bootstrap.NewPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck
	return fn(ctx, p)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
