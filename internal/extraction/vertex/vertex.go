// Package vertex implements port.SemanticExtractor on Vertex AI Gemini.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
)

// ProviderName is the registry key for this extractor.
const ProviderName = "vertex"

const defaultModel = "gemini-2.0-flash"

const systemPrompt = "You are a financial document data extraction expert. You answer with exactly what is asked for and nothing else."

func init() {
	extraction.RegisterSemantic(ProviderName, domain.ExtractorVertexGemini,
		func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.SemanticExtractor, error) {
			return NewExtractor(ctx, cfg.Vertex, logger)
		})
}

// Generator is the slice of *genai.GenerativeModel the extractor uses.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Extractor calls Gemini with plain document text. JSON answers come from a
// model configured for application/json output; labels from a plain one.
type Extractor struct {
	jsonModel  Generator
	labelModel Generator
	client     *genai.Client
	logger     *zap.Logger
}

// NewExtractor creates a Vertex AI client and both models.
func NewExtractor(ctx context.Context, cfg config.VertexConfig, logger *zap.Logger) (*Extractor, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex.NewExtractor: project id and region cannot be empty")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	system := &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	jsonModel := client.GenerativeModel(name)
	jsonModel.SystemInstruction = system
	jsonModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	labelModel := client.GenerativeModel(name)
	labelModel.SystemInstruction = system
	labelModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.0),
		MaxOutputTokens: genai.Ptr[int32](50),
	}

	ext := NewWithModels(jsonModel, labelModel, logger)
	ext.client = client
	return ext, nil
}

// NewWithModels creates an Extractor over existing generators.
func NewWithModels(jsonModel, labelModel Generator, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{jsonModel: jsonModel, labelModel: labelModel, logger: logger}
}

// Close releases the underlying client.
func (e *Extractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExtractFromText extracts the schema fields for typeHint from text.
func (e *Extractor) ExtractFromText(ctx context.Context, text string, typeHint domain.DocumentType, filename string) (*port.ExtractionResult, error) {
	schema := extraction.SchemaFor(typeHint)
	reply, err := e.generate(ctx, e.jsonModel, extraction.BuildExtractionPrompt(text, schema, typeHint, filename))
	if err != nil {
		return nil, err
	}
	fields, err := extraction.DecodeObject(reply)
	if err != nil {
		return nil, err
	}
	return extraction.SemanticResult(fields, schema, domain.ExtractorVertexGemini), nil
}

// DetectType classifies text into the classification set.
func (e *Extractor) DetectType(ctx context.Context, text, filename string) (domain.DocumentType, error) {
	reply, err := e.generate(ctx, e.labelModel, extraction.BuildClassificationPrompt(text, filename))
	if err != nil {
		return "", err
	}
	return extraction.ParseClassification(reply), nil
}

// ValidateAgainstSource asks the model to cross-check fields against text.
func (e *Extractor) ValidateAgainstSource(ctx context.Context, fields domain.Fields, text string, typeHint domain.DocumentType) (*port.SourceCheck, error) {
	prompt, err := extraction.BuildSourceCheckPrompt(fields, text, typeHint)
	if err != nil {
		return nil, err
	}
	reply, err := e.generate(ctx, e.jsonModel, prompt)
	if err != nil {
		return nil, err
	}
	var check port.SourceCheck
	if err := json.Unmarshal([]byte(extraction.StripCodeFences(reply)), &check); err != nil {
		return nil, fmt.Errorf("%w: source check: %v", extraction.ErrMalformedResponse, err)
	}
	if check.Issues == nil {
		check.Issues = []string{}
	}
	return &check, nil
}

func (e *Extractor) generate(ctx context.Context, model Generator, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return "", extraction.NewRateLimitError(ProviderName, err, 0)
		}
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text, parts := responseText(resp)
	if parts == 0 {
		return "", fmt.Errorf("%w: gemini returned no text", extraction.ErrMalformedResponse)
	}
	if parts > 1 {
		e.logger.Warn("vertex.generate: response had several text parts, concatenated", zap.Int("parts", parts))
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, int) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0
	}
	var b strings.Builder
	n := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
			n++
		}
	}
	return b.String(), n
}
