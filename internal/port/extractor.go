package port

import (
	"context"

	"docintake/internal/domain"
)

// ExtractRequest carries the inputs for a structured extraction call.
type ExtractRequest struct {
	Content  []byte
	MimeType string
	Filename string
	TypeHint domain.DocumentType
}

// ExtractionResult is what every extractor returns.
type ExtractionResult struct {
	Fields           domain.Fields
	Raw              domain.Fields
	Confidence       float64
	FieldConfidences domain.Confidences
	Extractor        domain.ExtractorTag
}

// OCRResult is the plain-text view of a document.
type OCRResult struct {
	Text  string
	Pages int
}

// SourceCheck is the outcome of cross-checking extracted fields against the
// source text.
type SourceCheck struct {
	Valid  bool     `json:"is_valid"`
	Issues []string `json:"issues"`
}

// StructuredExtractor abstracts form and layout based extraction services.
type StructuredExtractor interface {
	Process(ctx context.Context, req ExtractRequest) (*ExtractionResult, error)
	OCR(ctx context.Context, content []byte, mimeType string) (*OCRResult, error)
}

// SemanticExtractor abstracts LLM based extraction over plain text.
type SemanticExtractor interface {
	ExtractFromText(ctx context.Context, text string, typeHint domain.DocumentType, filename string) (*ExtractionResult, error)
	// DetectType classifies text. Labels outside the classification set come
	// back as domain.TypeOther.
	DetectType(ctx context.Context, text, filename string) (domain.DocumentType, error)
	ValidateAgainstSource(ctx context.Context, fields domain.Fields, text string, typeHint domain.DocumentType) (*SourceCheck, error)
}
