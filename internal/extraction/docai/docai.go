// Package docai implements port.StructuredExtractor on the Google Document AI
// REST API.
package docai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
)

// ProviderName is the registry key for this extractor.
const ProviderName = "docai"

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

func init() {
	extraction.RegisterStructured(ProviderName,
		func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.StructuredExtractor, error) {
			return NewExtractor(ctx, cfg.DocAI, logger)
		})
}

type processorKind string

const (
	processorForm    processorKind = "form"
	processorInvoice processorKind = "invoice"
	processorOCR     processorKind = "ocr"
)

// processorRoutes picks the processor family per document type. Types not
// listed use the form parser.
var processorRoutes = map[domain.DocumentType]processorKind{
	domain.TypeMonthlyFinancials:    processorForm,
	domain.TypeQuarterlyFinancials:  processorForm,
	domain.TypeAnnualFinancials:     processorForm,
	domain.TypeCovenantCompliance:   processorForm,
	domain.TypeBorrowingBase:        processorForm,
	domain.TypeARAging:              processorForm,
	domain.TypeBankStatement:        processorForm,
	domain.TypeCapitalCall:          processorInvoice,
	domain.TypeDistributionNotice:   processorInvoice,
	domain.TypeInvoice:              processorInvoice,
	domain.TypeInsuranceCertificate: processorInvoice,
}

// Extractor sends documents to Document AI processors.
type Extractor struct {
	cfg      config.DocAIConfig
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewExtractor creates an Extractor authenticated with the credentials file
// from cfg, or application default credentials when none is set.
func NewExtractor(ctx context.Context, cfg config.DocAIConfig, logger *zap.Logger) (*Extractor, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("docai.NewExtractor: project id and location cannot be empty")
	}
	if cfg.FormProcessorID == "" && cfg.OCRProcessorID == "" {
		return nil, fmt.Errorf("docai.NewExtractor: a form or OCR processor id is required")
	}

	var ts oauth2.TokenSource
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading document ai credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parsing document ai credentials: %w", err)
		}
		ts = creds.TokenSource
	} else {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("finding default credentials: %w", err)
		}
	}

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 120 * time.Second
	return NewWithClient(cfg, client, logger), nil
}

// NewWithClient creates an Extractor over an already authenticated client.
func NewWithClient(cfg config.DocAIConfig, client *http.Client, logger *zap.Logger) *Extractor {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-documentai.googleapis.com", cfg.Location)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, endpoint: endpoint, client: client, logger: logger}
}

// route returns the processor for t. A routed processor with no configured
// id falls back to OCR.
func (e *Extractor) route(t domain.DocumentType) (processorKind, string) {
	kind, ok := processorRoutes[t]
	if !ok {
		kind = processorForm
	}
	id := e.cfg.FormProcessorID
	if kind == processorInvoice {
		id = e.cfg.InvoiceProcessorID
	}
	if id == "" {
		return processorOCR, e.cfg.OCRProcessorID
	}
	return kind, id
}

// Process runs the processor routed for the request's type hint.
func (e *Extractor) Process(ctx context.Context, req port.ExtractRequest) (*port.ExtractionResult, error) {
	typeHint := req.TypeHint
	if !typeHint.IsResolved() {
		if t, ok := extraction.MatchFilename(req.Filename); ok {
			typeHint = t
		}
	}
	kind, id := e.route(typeHint)
	e.logger.Info("docai.Process: processing document",
		zap.String("processor_type", string(kind)),
		zap.String("processor_id", id),
		zap.String("document_type", string(typeHint)),
	)

	doc, err := e.process(ctx, id, req.Content, req.MimeType)
	if err != nil {
		return nil, err
	}

	var fields domain.Fields
	var conf domain.Confidences
	var tag domain.ExtractorTag
	switch kind {
	case processorInvoice:
		fields, conf = invoiceData(doc)
		tag = domain.ExtractorDocAIInvoice
	case processorForm:
		fields, conf = formData(doc)
		tag = domain.ExtractorDocAIForm
	default:
		fields, conf = ocrData(doc)
		tag = domain.ExtractorDocAIOCR
	}

	return &port.ExtractionResult{
		Fields:           fields,
		Raw:              fields,
		Confidence:       extraction.AverageConfidence(conf),
		FieldConfidences: conf,
		Extractor:        tag,
	}, nil
}

// OCR returns the full text of the document using the OCR processor, or the
// form parser when no OCR processor is configured.
func (e *Extractor) OCR(ctx context.Context, content []byte, mimeType string) (*port.OCRResult, error) {
	id := e.cfg.OCRProcessorID
	if id == "" {
		id = e.cfg.FormProcessorID
	}
	doc, err := e.process(ctx, id, content, mimeType)
	if err != nil {
		return nil, err
	}
	return &port.OCRResult{Text: doc.Text, Pages: len(doc.Pages)}, nil
}

func (e *Extractor) process(ctx context.Context, processorID string, content []byte, mimeType string) (*document, error) {
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	body, err := json.Marshal(processRequest{RawDocument: rawDocument{
		Content:  base64.StdEncoding.EncodeToString(content),
		MimeType: mimeType,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/processors/%s:process",
		e.endpoint, e.cfg.ProjectID, e.cfg.Location, processorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling document ai: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("document ai error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extraction.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extraction.NewRateLimitError(ProviderName, baseErr, retryAfter)
		}
		return nil, baseErr
	}

	var out processResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", extraction.ErrMalformedResponse, err)
	}
	return &out.Document, nil
}

func invoiceData(doc *document) (domain.Fields, domain.Confidences) {
	fields := domain.Fields{}
	conf := domain.Confidences{}
	for _, ent := range doc.Entities {
		name := extraction.NormalizeFieldName(ent.Type)
		if len(ent.Properties) > 0 {
			nested := map[string]interface{}{}
			for _, prop := range ent.Properties {
				propName := extraction.NormalizeFieldName(prop.Type)
				nested[propName] = extraction.NormalizeValue(prop.MentionText)
				if prop.Confidence > 0 {
					conf[name+"."+propName] = prop.Confidence
				}
			}
			fields[name] = nested
			continue
		}
		fields[name] = extraction.NormalizeValue(ent.MentionText)
		if ent.Confidence > 0 {
			conf[name] = ent.Confidence
		}
	}
	return fields, conf
}

func formData(doc *document) (domain.Fields, domain.Confidences) {
	fields := domain.Fields{}
	conf := domain.Confidences{}
	for _, ent := range doc.Entities {
		name := extraction.NormalizeFieldName(ent.Type)
		fields[name] = extraction.NormalizeValue(ent.MentionText)
		if ent.Confidence > 0 {
			conf[name] = ent.Confidence
		}
	}

	var tables []interface{}
	for _, page := range doc.Pages {
		for _, ff := range page.FormFields {
			if ff.FieldName == nil || ff.FieldValue == nil {
				continue
			}
			name := extraction.NormalizeFieldName(ff.FieldName.text(doc.Text))
			if name == "" {
				continue
			}
			fields[name] = extraction.NormalizeValue(ff.FieldValue.text(doc.Text))
			conf[name] = (ff.FieldName.Confidence + ff.FieldValue.Confidence) / 2
		}
		for _, tbl := range page.Tables {
			tables = append(tables, tbl.extract(doc.Text))
		}
	}
	if len(tables) > 0 {
		fields["_tables"] = tables
	}
	return fields, conf
}

func ocrData(doc *document) (domain.Fields, domain.Confidences) {
	fields := domain.Fields{
		"text":  doc.Text,
		"pages": float64(len(doc.Pages)),
	}
	conf := domain.Confidences{}
	for _, ent := range doc.Entities {
		name := extraction.NormalizeFieldName(ent.Type)
		fields[name] = ent.MentionText
		if ent.Confidence > 0 {
			conf[name] = ent.Confidence
		}
	}
	return fields, conf
}

type processRequest struct {
	RawDocument rawDocument `json:"rawDocument"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document document `json:"document"`
}

type document struct {
	Text     string   `json:"text"`
	Pages    []page   `json:"pages"`
	Entities []entity `json:"entities"`
}

type entity struct {
	Type        string   `json:"type"`
	MentionText string   `json:"mentionText"`
	Confidence  float64  `json:"confidence"`
	Properties  []entity `json:"properties"`
}

type page struct {
	FormFields []formField `json:"formFields"`
	Tables     []table     `json:"tables"`
}

type formField struct {
	FieldName  *layout `json:"fieldName"`
	FieldValue *layout `json:"fieldValue"`
}

type layout struct {
	TextAnchor textAnchor `json:"textAnchor"`
	Confidence float64    `json:"confidence"`
}

type textAnchor struct {
	TextSegments []textSegment `json:"textSegments"`
}

// Indexes are int64 values, which the REST API encodes as strings.
type textSegment struct {
	StartIndex string `json:"startIndex"`
	EndIndex   string `json:"endIndex"`
}

func (l *layout) text(full string) string {
	var b strings.Builder
	for _, seg := range l.TextAnchor.TextSegments {
		start, _ := strconv.Atoi(seg.StartIndex)
		end, _ := strconv.Atoi(seg.EndIndex)
		if start < 0 || end > len(full) || start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

type table struct {
	HeaderRows []tableRow `json:"headerRows"`
	BodyRows   []tableRow `json:"bodyRows"`
}

type tableRow struct {
	Cells []struct {
		Layout layout `json:"layout"`
	} `json:"cells"`
}

func (t table) extract(full string) map[string]interface{} {
	headers := []interface{}{}
	if len(t.HeaderRows) > 0 {
		for _, c := range t.HeaderRows[0].Cells {
			headers = append(headers, strings.TrimSpace(c.Layout.text(full)))
		}
	}
	rows := []interface{}{}
	for _, r := range t.BodyRows {
		row := []interface{}{}
		for _, c := range r.Cells {
			row = append(row, strings.TrimSpace(c.Layout.text(full)))
		}
		rows = append(rows, row)
	}
	return map[string]interface{}{"headers": headers, "rows": rows}
}
