// Package claude implements port.SemanticExtractor on the Anthropic Messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"

	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	classifyTokens   = 50
	reviewTokens     = 1000
)

// ProviderName is the registry key for this extractor.
const ProviderName = "claude"

func init() {
	extraction.RegisterSemantic(ProviderName, domain.ExtractorClaude,
		func(_ context.Context, cfg *config.Config, logger *zap.Logger) (port.SemanticExtractor, error) {
			return NewExtractor(cfg.Claude, logger)
		})
}

// Extractor calls Claude with plain document text.
type Extractor struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewExtractor creates a Claude extractor. An empty endpoint means the
// public API.
func NewExtractor(cfg config.ClaudeConfig, logger *zap.Logger) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}, nil
}

// ExtractFromText extracts the schema fields for typeHint from text.
func (e *Extractor) ExtractFromText(ctx context.Context, text string, typeHint domain.DocumentType, filename string) (*port.ExtractionResult, error) {
	schema := extraction.SchemaFor(typeHint)
	reply, err := e.complete(ctx, extraction.BuildExtractionPrompt(text, schema, typeHint, filename), e.maxTokens)
	if err != nil {
		return nil, err
	}
	fields, err := extraction.DecodeObject(reply)
	if err != nil {
		return nil, err
	}
	res := extraction.SemanticResult(fields, schema, domain.ExtractorClaude)
	e.logger.Debug("claude.ExtractFromText: extracted",
		zap.String("filename", filename),
		zap.Int("fields", res.Fields.CountNonNull()),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

// DetectType classifies text into the classification set.
func (e *Extractor) DetectType(ctx context.Context, text, filename string) (domain.DocumentType, error) {
	reply, err := e.complete(ctx, extraction.BuildClassificationPrompt(text, filename), classifyTokens)
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
	reply, err := e.complete(ctx, prompt, reviewTokens)
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

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (e *Extractor) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":      e.model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extraction.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", extraction.NewRateLimitError(ProviderName, baseErr, retryAfter)
		}
		return "", baseErr
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: unmarshaling response: %v", extraction.ErrMalformedResponse, err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("%w: empty response from API", extraction.ErrMalformedResponse)
	}
	if parsed.StopReason == "max_tokens" {
		return "", fmt.Errorf("%w: output truncated (stop_reason: max_tokens)", extraction.ErrMalformedResponse)
	}
	return parsed.Content[0].Text, nil
}
