package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/extraction"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extraction.StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extraction.StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extraction.StripCodeFences("```json{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, extraction.StripCodeFences("  {\"a\":1}  "))
}

func TestDecodeObject(t *testing.T) {
	obj, err := extraction.DecodeObject("```json\n{\"revenue\": 1200.5, \"period_end_date\": null}\n```")
	require.NoError(t, err)
	assert.Equal(t, 1200.5, obj["revenue"])
	assert.Contains(t, obj, "period_end_date")
	assert.Nil(t, obj["period_end_date"])
}

func TestDecodeObject_Malformed(t *testing.T) {
	for _, reply := range []string{"I could not read the document.", "null", "[1,2]", ""} {
		_, err := extraction.DecodeObject(reply)
		assert.ErrorIs(t, err, extraction.ErrMalformedResponse, reply)
	}
}

func TestSemanticResult(t *testing.T) {
	schema := extraction.SchemaFor(domain.TypeCapitalCall)
	require.NotEmpty(t, schema)

	fields := map[string]interface{}{"call_amount": 5000.0, "notice_date": "2024-01-02", "due_date": nil}
	res := extraction.SemanticResult(fields, schema, domain.ExtractorClaude)

	assert.Equal(t, domain.ExtractorClaude, res.Extractor)
	assert.InDelta(t, 2.0/float64(len(schema)), res.Confidence, 1e-9)
	assert.Equal(t, extraction.DefaultSemanticFieldConfidence, res.FieldConfidences["call_amount"])
	assert.Equal(t, 0.0, res.FieldConfidences["due_date"])
	assert.Len(t, res.Fields, 3)
}

func TestSemanticResult_ClampsOverfullResponse(t *testing.T) {
	schema := extraction.Schema{{Name: "a"}}
	res := extraction.SemanticResult(map[string]interface{}{"a": 1.0, "b": 2.0}, schema, domain.ExtractorVertexGemini)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestAverageConfidence(t *testing.T) {
	assert.Equal(t, 0.0, extraction.AverageConfidence(nil))
	assert.InDelta(t, 0.75, extraction.AverageConfidence(domain.Confidences{"a": 0.5, "b": 1.0}), 1e-9)
}

func TestSchemaFor_FallsBackToGeneric(t *testing.T) {
	generic := extraction.SchemaFor(domain.TypeUCCFiling)
	assert.ElementsMatch(t, []string{"document_date", "document_title", "company_name", "key_figures", "summary"}, generic.Names())
}
