package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// Call outcomes reported to the pipeline observer.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
	OutcomeCircuitOpen = "circuit_open"
)

// Guard bounds every extractor call with a timeout, runs it through the
// executor and reports the outcome.
type Guard struct {
	executor *Executor
	timeout  time.Duration
	observer port.PipelineObserver
}

// NewGuard creates a Guard. A zero timeout leaves calls bounded only by the
// caller's context.
func NewGuard(executor *Executor, timeout time.Duration, observer port.PipelineObserver) *Guard {
	return &Guard{executor: executor, timeout: timeout, observer: observer}
}

func (g *Guard) call(ctx context.Context, extractor, op string, fn func(context.Context) error) error {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := g.executor.Execute(callCtx, extractor+"."+op, fn, classify)

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case IsCircuitOpen(err):
		outcome = OutcomeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome = OutcomeTimeout
		err = fmt.Errorf("%w: %w", ErrExtractorTimeout, err)
	default:
		outcome = OutcomeError
	}
	if g.observer != nil {
		g.observer.ExtractorCall(extractor, outcome)
	}
	if err != nil {
		return &ExtractorError{Extractor: extractor, Op: op, Err: err}
	}
	return nil
}

// Structured wraps ext so each call goes through the guard.
func (g *Guard) Structured(name string, ext port.StructuredExtractor) port.StructuredExtractor {
	return &guardedStructured{guard: g, name: name, next: ext}
}

// Semantic wraps ext so each call goes through the guard.
func (g *Guard) Semantic(name string, ext port.SemanticExtractor) port.SemanticExtractor {
	return &guardedSemantic{guard: g, name: name, next: ext}
}

type guardedStructured struct {
	guard *Guard
	name  string
	next  port.StructuredExtractor
}

func (s *guardedStructured) Process(ctx context.Context, req port.ExtractRequest) (*port.ExtractionResult, error) {
	var res *port.ExtractionResult
	err := s.guard.call(ctx, s.name, "process", func(ctx context.Context) error {
		var err error
		res, err = s.next.Process(ctx, req)
		return err
	})
	return res, err
}

func (s *guardedStructured) OCR(ctx context.Context, content []byte, mimeType string) (*port.OCRResult, error) {
	var res *port.OCRResult
	err := s.guard.call(ctx, s.name, "ocr", func(ctx context.Context) error {
		var err error
		res, err = s.next.OCR(ctx, content, mimeType)
		return err
	})
	return res, err
}

type guardedSemantic struct {
	guard *Guard
	name  string
	next  port.SemanticExtractor
}

func (s *guardedSemantic) ExtractFromText(ctx context.Context, text string, typeHint domain.DocumentType, filename string) (*port.ExtractionResult, error) {
	var res *port.ExtractionResult
	err := s.guard.call(ctx, s.name, "extract", func(ctx context.Context) error {
		var err error
		res, err = s.next.ExtractFromText(ctx, text, typeHint, filename)
		return err
	})
	return res, err
}

func (s *guardedSemantic) DetectType(ctx context.Context, text, filename string) (domain.DocumentType, error) {
	var res domain.DocumentType
	err := s.guard.call(ctx, s.name, "detect_type", func(ctx context.Context) error {
		var err error
		res, err = s.next.DetectType(ctx, text, filename)
		return err
	})
	return res, err
}

func (s *guardedSemantic) ValidateAgainstSource(ctx context.Context, fields domain.Fields, text string, typeHint domain.DocumentType) (*port.SourceCheck, error) {
	var res *port.SourceCheck
	err := s.guard.call(ctx, s.name, "validate_source", func(ctx context.Context) error {
		var err error
		res, err = s.next.ValidateAgainstSource(ctx, fields, text, typeHint)
		return err
	})
	return res, err
}
