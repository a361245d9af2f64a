package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/extraction/claude"
)

func newTestExtractor(t *testing.T, serverURL string) *claude.Extractor {
	t.Helper()
	ext, err := claude.NewExtractor(config.ClaudeConfig{
		APIKey:   "test-api-key",
		Model:    "claude-sonnet-4-20250514",
		Timeout:  5 * time.Second,
		Endpoint: serverURL,
	}, nil)
	require.NoError(t, err)
	return ext
}

func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": text}},
			"stop_reason": "end_turn",
		})
	}
}

func TestExtractor_ExtractFromText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, float64(4096), reqBody["max_tokens"])

		messages, _ := reqBody["messages"].([]interface{})
		if assert.Len(t, messages, 1) {
			msg := messages[0].(map[string]interface{})
			assert.Equal(t, "user", msg["role"])
			assert.Contains(t, msg["content"], "call_amount")
			assert.Contains(t, msg["content"], "Capital call notice")
		}

		replyWith("```json\n{\"notice_date\":\"2024-01-02\",\"due_date\":\"2024-01-16\",\"call_amount\":250000}\n```")(w, r)
	}))
	defer server.Close()

	res, err := newTestExtractor(t, server.URL).
		ExtractFromText(context.Background(), "Capital call notice", domain.TypeCapitalCall, "call.pdf")

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractorClaude, res.Extractor)
	assert.Equal(t, 250000.0, res.Fields["call_amount"])
	assert.Equal(t, extraction.DefaultSemanticFieldConfidence, res.FieldConfidences["due_date"])
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestExtractor_ExtractFromText_MalformedReply(t *testing.T) {
	server := httptest.NewServer(replyWith("Sorry, I cannot help with that."))
	defer server.Close()

	_, err := newTestExtractor(t, server.URL).
		ExtractFromText(context.Background(), "text", domain.TypeInvoice, "")
	assert.ErrorIs(t, err, extraction.ErrMalformedResponse)
}

func TestExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer server.Close()

	_, err := newTestExtractor(t, server.URL).DetectType(context.Background(), "text", "a.pdf")

	var rl *extraction.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.Equal(t, "claude", rl.Provider)
}

func TestExtractor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, err := newTestExtractor(t, server.URL).DetectType(context.Background(), "text", "a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestExtractor_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": "{\"a\":"}},
			"stop_reason": "max_tokens",
		})
	}))
	defer server.Close()

	_, err := newTestExtractor(t, server.URL).ExtractFromText(context.Background(), "x", domain.TypeInvoice, "")
	assert.ErrorIs(t, err, extraction.ErrMalformedResponse)
}

func TestExtractor_DetectType(t *testing.T) {
	server := httptest.NewServer(replyWith("borrowing_base\n"))
	defer server.Close()

	got, err := newTestExtractor(t, server.URL).DetectType(context.Background(), "Borrowing base certificate", "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeBorrowingBase, got)
}

func TestExtractor_DetectType_UnknownLabel(t *testing.T) {
	server := httptest.NewServer(replyWith("a lovely poem"))
	defer server.Close()

	got, err := newTestExtractor(t, server.URL).DetectType(context.Background(), "Roses are red", "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeOther, got)
}

func TestExtractor_ValidateAgainstSource(t *testing.T) {
	server := httptest.NewServer(replyWith(`{"is_valid": false, "issues": ["revenue does not match page 2"]}`))
	defer server.Close()

	check, err := newTestExtractor(t, server.URL).ValidateAgainstSource(
		context.Background(), domain.Fields{"revenue": 10.0}, "Revenue 12", domain.TypeMonthlyFinancials)

	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, []string{"revenue does not match page 2"}, check.Issues)
}

func TestNewExtractor_RequiresAPIKey(t *testing.T) {
	_, err := claude.NewExtractor(config.ClaudeConfig{}, nil)
	assert.Error(t, err)
}

func TestProviderRegistered(t *testing.T) {
	cfg := &config.Config{Claude: config.ClaudeConfig{APIKey: "k"}}
	ext, tag, err := extraction.NewSemantic(context.Background(), claude.ProviderName, cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, ext)
	assert.Equal(t, domain.ExtractorClaude, tag)
}
