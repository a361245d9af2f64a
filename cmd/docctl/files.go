package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"docintake/internal/bootstrap"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
	"docintake/internal/validation"
)

type extractReport struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Extractor    domain.ExtractorTag `json:"extractor"`
	Confidence   float64             `json:"confidence"`
	Forced       bool                `json:"forced"`
	Fallbacks    int                 `json:"fallbacks"`
	Fields       domain.Fields       `json:"fields"`
	Validation   validation.Result   `json:"validation"`
	SourceCheck  *port.SourceCheck   `json:"source_check,omitempty"`
}

func readSource(path string, typeHint domain.DocumentType, ocr port.StructuredExtractor) (*extraction.Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return extraction.NewSource(content, mimeType, filepath.Base(path), typeHint, ocr), nil
}

func extractCmd() *cobra.Command {
	var (
		forceSemantic bool
		verify        bool
		docType       string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract and validate a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hint := domain.TypeUnknown
			if docType != "" {
				t, ok := domain.ParseDocumentType(docType)
				if !ok {
					return fmt.Errorf("unknown document type %q", docType)
				}
				hint = t
			}
			return withPipeline(cmd.Context(), func(ctx context.Context, p *bootstrap.Pipeline) error {
				src, err := readSource(args[0], hint, p.Structured)
				if err != nil {
					return err
				}
				out, err := p.Orchestrator.Extract(ctx, src, forceSemantic)
				if err != nil {
					return err
				}
				if !src.TypeHint.IsResolved() {
					t, err := p.Orchestrator.DetectType(ctx, src)
					if err != nil {
						return err
					}
					src.TypeHint = t
				}

				report := extractReport{
					DocumentType: src.TypeHint,
					Extractor:    out.Result.Extractor,
					Confidence:   out.Result.Confidence,
					Forced:       out.Forced,
					Fallbacks:    len(out.Fallbacks),
					Fields:       out.Result.Fields,
					Validation:   p.Validator.Validate(out.Result.Fields, src.TypeHint),
				}
				if verify {
					text, err := src.Text(ctx)
					if err != nil {
						return err
					}
					check, err := p.Semantic.ValidateAgainstSource(ctx, out.Result.Fields, text, src.TypeHint)
					if err != nil {
						return err
					}
					report.SourceCheck = check
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&forceSemantic, "force-semantic", false, "skip the structured extractor")
	cmd.Flags().BoolVar(&verify, "verify", false, "cross-check extracted fields against the source text")
	cmd.Flags().StringVar(&docType, "type", "", "document type, detected when omitted")
	return cmd
}

func detectCmd() *cobra.Command {
	var filenameOnly bool
	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Report the detected document type of a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if filenameOnly {
				t, ok := extraction.MatchFilename(filepath.Base(args[0]))
				if !ok {
					t = domain.TypeUnknown
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), t)
				return err
			}
			return withPipeline(cmd.Context(), func(ctx context.Context, p *bootstrap.Pipeline) error {
				src, err := readSource(args[0], domain.TypeUnknown, p.Structured)
				if err != nil {
					return err
				}
				t, err := p.Orchestrator.DetectType(ctx, src)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), t)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&filenameOnly, "filename-only", false, "match the filename patterns only, without calling any extractor")
	return cmd
}

func rulesCmd() *cobra.Command {
	rules := &cobra.Command{Use: "rules", Short: "Inspect rule catalogs"}
	rules.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rule catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, _, err := bootstrap.LoadRules(args[0])
			if err != nil {
				return err
			}
			types := catalog.Types()
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			w := cmd.OutOrStdout()
			for _, t := range types {
				rs, _ := catalog.RuleSet(t)
				fmt.Fprintf(w, "%-24s required=%d rules=%d cross_field=%d\n",
					t, len(rs.RequiredFields), len(rs.Rules), len(rs.CrossFieldRules))
			}
			_, err = fmt.Fprintf(w, "ok: %d document types\n", len(types))
			return err
		},
	})
	return rules
}
