package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// DefaultSemanticFieldConfidence is assigned to every non-null field an LLM
// returns, since the models report no per-field confidence.
const DefaultSemanticFieldConfidence = 0.85

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag.
func StripCodeFences(s string) string {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "json")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// DecodeObject decodes an LLM reply that must be a single JSON object.
// Numbers decode as float64.
func DecodeObject(reply string) (map[string]interface{}, error) {
	text := StripCodeFences(reply)
	var obj map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedResponse, err, truncate(text, 200))
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected a JSON object (raw: %s)", ErrMalformedResponse, truncate(text, 200))
	}
	return obj, nil
}

// SemanticResult builds an extraction result from decoded LLM fields. Overall
// confidence is the share of schema fields that came back non-null.
func SemanticResult(fields map[string]interface{}, schema Schema, tag domain.ExtractorTag) *port.ExtractionResult {
	out := make(domain.Fields, len(fields))
	conf := make(domain.Confidences, len(fields))
	for k, v := range fields {
		out[k] = v
		if v == nil {
			conf[k] = 0
		} else {
			conf[k] = DefaultSemanticFieldConfidence
		}
	}

	expected := len(schema)
	if expected == 0 {
		expected = 10
	}
	overall := domain.ClampConfidence(float64(out.CountNonNull()) / float64(expected))

	return &port.ExtractionResult{
		Fields:           out,
		Raw:              domain.Fields(fields),
		Confidence:       overall,
		FieldConfidences: conf,
		Extractor:        tag,
	}
}

// AverageConfidence returns the mean of the per-field confidences, or 0.
func AverageConfidence(c domain.Confidences) float64 {
	if len(c) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c {
		sum += v
	}
	return domain.ClampConfidence(sum / float64(len(c)))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
