package extraction

import (
	"context"
	"strings"
	"sync"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// Source is one document's content plus a lazily computed plain-text view
// shared by every strategy and the type detector within a run.
type Source struct {
	Content  []byte
	MimeType string
	Filename string
	TypeHint domain.DocumentType

	ocr  port.StructuredExtractor
	once sync.Once
	text string
	err  error
}

// NewSource creates a Source whose text comes from ocr.
func NewSource(content []byte, mimeType, filename string, typeHint domain.DocumentType, ocr port.StructuredExtractor) *Source {
	return &Source{
		Content:  content,
		MimeType: mimeType,
		Filename: filename,
		TypeHint: typeHint,
		ocr:      ocr,
	}
}

// Text returns the OCR text, running OCR at most once.
func (s *Source) Text(ctx context.Context) (string, error) {
	s.once.Do(func() {
		res, err := s.ocr.OCR(ctx, s.Content, s.MimeType)
		if err != nil {
			s.err = err
			return
		}
		s.text = res.Text
	})
	return s.text, s.err
}

// StrategyKind separates strategies that read the document layout from those
// that read its text.
type StrategyKind int

const (
	KindStructured StrategyKind = iota
	KindSemantic
)

func (k StrategyKind) String() string {
	if k == KindStructured {
		return "structured"
	}
	return "semantic"
}

// Strategy is one way of turning a Source into fields.
type Strategy interface {
	Kind() StrategyKind
	Extract(ctx context.Context, src *Source) (*port.ExtractionResult, error)
}

type structuredStrategy struct {
	ext port.StructuredExtractor
}

// StructuredStrategy adapts a structured extractor.
func StructuredStrategy(ext port.StructuredExtractor) Strategy {
	return structuredStrategy{ext: ext}
}

func (structuredStrategy) Kind() StrategyKind { return KindStructured }

func (s structuredStrategy) Extract(ctx context.Context, src *Source) (*port.ExtractionResult, error) {
	return s.ext.Process(ctx, port.ExtractRequest{
		Content:  src.Content,
		MimeType: src.MimeType,
		Filename: src.Filename,
		TypeHint: src.TypeHint,
	})
}

type semanticStrategy struct {
	ext port.SemanticExtractor
	tag domain.ExtractorTag
}

// SemanticStrategy adapts a semantic extractor. tag labels the empty result
// produced when the document has no text.
func SemanticStrategy(ext port.SemanticExtractor, tag domain.ExtractorTag) Strategy {
	return semanticStrategy{ext: ext, tag: tag}
}

func (semanticStrategy) Kind() StrategyKind { return KindSemantic }

func (s semanticStrategy) Extract(ctx context.Context, src *Source) (*port.ExtractionResult, error) {
	text, err := src.Text(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return &port.ExtractionResult{
			Fields:           domain.Fields{},
			FieldConfidences: domain.Confidences{},
			Confidence:       0,
			Extractor:        s.tag,
		}, nil
	}
	return s.ext.ExtractFromText(ctx, text, src.TypeHint, src.Filename)
}
