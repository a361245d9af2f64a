package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docintake/internal/bootstrap"
)

func processCmd() *cobra.Command {
	var forceSemantic bool
	cmd := &cobra.Command{
		Use:   "process <document-id>",
		Short: "Run one document through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				runErr := app.Runner.Run(ctx, id, forceSemantic)
				doc, err := app.Documents.GetByID(ctx, id)
				if err != nil {
					if runErr != nil {
						return runErr
					}
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), doc); err != nil {
					return err
				}
				return runErr
			})
		},
	}
	cmd.Flags().BoolVar(&forceSemantic, "force-semantic", false, "skip the structured extractor")
	return cmd
}

func reprocessCmd() *cobra.Command {
	var (
		forceSemantic bool
		actor         string
	)
	cmd := &cobra.Command{
		Use:   "reprocess <document-id>",
		Short: "Reset a finished document and dispatch a new run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				doc, err := app.Service.Reprocess(ctx, id, forceSemantic, actor)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	cmd.Flags().BoolVar(&forceSemantic, "force-semantic", false, "skip the structured extractor on the new run")
	cmd.Flags().StringVar(&actor, "actor", "docctl", "actor recorded in the audit log")
	return cmd
}
