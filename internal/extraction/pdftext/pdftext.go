// Package pdftext implements port.StructuredExtractor over the text layer of
// born-digital PDFs. It needs no external service.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
)

// ProviderName is the registry key for this extractor.
const ProviderName = "pdftext"

// textLayerConfidence is assigned to every field read from the text layer.
const textLayerConfidence = 1.0

func init() {
	extraction.RegisterStructured(ProviderName,
		func(_ context.Context, _ *config.Config, logger *zap.Logger) (port.StructuredExtractor, error) {
			return NewExtractor(logger), nil
		})
}

var labeledLine = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 /&().%'-]{0,60}?)\s*:\s*(\S.*?)\s*$`)

// TextReader returns a document's text and page count.
type TextReader func(content []byte) (text string, pages int, err error)

// Extractor reads "label: value" lines from the PDF text layer.
type Extractor struct {
	read   TextReader
	logger *zap.Logger
}

// NewExtractor creates an Extractor reading real PDFs.
func NewExtractor(logger *zap.Logger) *Extractor {
	return NewWithReader(ReadPDF, logger)
}

// NewWithReader creates an Extractor over a custom text reader.
func NewWithReader(read TextReader, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{read: read, logger: logger}
}

// Process parses labelled values from the text layer. Confidence is the share
// of the type's schema fields that were found.
func (e *Extractor) Process(ctx context.Context, req port.ExtractRequest) (*port.ExtractionResult, error) {
	text, pages, err := e.readText(ctx, req.Content, req.MimeType)
	if err != nil {
		return nil, err
	}
	schema := extraction.SchemaFor(req.TypeHint)
	fields := ParseFields(text)
	conf := make(domain.Confidences, len(fields))
	for k, v := range fields {
		if v != nil {
			conf[k] = textLayerConfidence
		}
	}

	found := 0
	for _, name := range schema.Names() {
		if fields.Has(name) {
			found++
		}
	}
	confidence := 0.0
	if len(schema) > 0 {
		confidence = float64(found) / float64(len(schema))
	}

	e.logger.Debug("pdftext.Process: parsed text layer",
		zap.String("filename", req.Filename),
		zap.Int("pages", pages),
		zap.Int("fields", len(fields)),
		zap.Int("schema_fields_found", found),
	)
	return &port.ExtractionResult{
		Fields:           fields,
		Raw:              domain.Fields{"text": text, "pages": float64(pages)},
		Confidence:       domain.ClampConfidence(confidence),
		FieldConfidences: conf,
		Extractor:        domain.ExtractorPDFText,
	}, nil
}

// OCR returns the text layer. Scanned PDFs yield empty text.
func (e *Extractor) OCR(ctx context.Context, content []byte, mimeType string) (*port.OCRResult, error) {
	text, pages, err := e.readText(ctx, content, mimeType)
	if err != nil {
		return nil, err
	}
	return &port.OCRResult{Text: text, Pages: pages}, nil
}

// readText recovers reader panics; the PDF parser panics on some malformed
// cross-reference tables instead of returning an error.
func (e *Extractor) readText(ctx context.Context, content []byte, mimeType string) (text string, pages int, err error) {
	if mimeType != "" && mimeType != "application/pdf" {
		return "", 0, fmt.Errorf("pdftext: %w: %s", domain.ErrUnsupportedDocument, mimeType)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdftext: %w: reader panic: %v", domain.ErrUnsupportedDocument, r)
		}
	}()
	return e.read(content)
}

// ParseFields turns "label: value" lines into normalised fields. Later lines
// overwrite earlier ones with the same label.
func ParseFields(text string) domain.Fields {
	fields := domain.Fields{}
	for _, line := range strings.Split(text, "\n") {
		m := labeledLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := extraction.NormalizeFieldName(m[1])
		if name == "" {
			continue
		}
		fields[name] = extraction.NormalizeValue(m[2])
	}
	return fields
}

// ReadPDF validates content with pdfcpu and extracts its text row by row.
func ReadPDF(content []byte) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return "", 0, fmt.Errorf("pdftext: %w: %v", domain.ErrUnsupportedDocument, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("pdftext: opening pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("pdftext: reading page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), pages, nil
}
