package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"docintake/internal/domain"
)

const (
	classifyTextLimit = 3000
	reviewTextLimit   = 4000
)

// BuildExtractionPrompt returns the field extraction prompt for text.
func BuildExtractionPrompt(text string, schema Schema, typeHint domain.DocumentType, filename string) string {
	var shape strings.Builder
	shape.WriteString("{\n")
	for i, f := range schema {
		fmt.Fprintf(&shape, "  %q: %q", f.Name, f.Description)
		if i < len(schema)-1 {
			shape.WriteString(",")
		}
		shape.WriteString("\n")
	}
	shape.WriteString("}")

	return `You are a financial document data extraction expert. Extract structured data from the following document.

Document filename: ` + orUnknown(filename) + `
Document type: ` + orUnknown(string(typeHint)) + `

EXTRACTION SCHEMA (extract these fields):
` + shape.String() + `

DOCUMENT CONTENT:
` + text + `

INSTRUCTIONS:
1. Extract data matching the schema above
2. Return ONLY valid JSON with the extracted values
3. Use null for fields that cannot be found
4. For numbers, return numeric values (not strings)
5. For dates, use YYYY-MM-DD format
6. For percentages, return the number (e.g., 85 for 85%)
7. For currency amounts, return the number without currency symbols
8. Only extract values you are confident about

Respond with ONLY the JSON object, no explanation or markdown:`
}

// BuildClassificationPrompt asks for exactly one label from the
// classification set.
func BuildClassificationPrompt(text, filename string) string {
	var labels strings.Builder
	for _, t := range ClassificationLabels() {
		labels.WriteString("- " + string(t) + "\n")
	}
	return `Analyze this document and determine its type.

Document filename: ` + orUnknown(filename) + `

Document content (first ` + fmt.Sprint(classifyTextLimit) + ` characters):
` + headRunes(text, classifyTextLimit) + `

Classify this document as ONE of these types:
` + labels.String() + `
Respond with ONLY the document type label. Do not include any explanation.`
}

// BuildSourceCheckPrompt asks the model to review extracted fields against
// the source text.
func BuildSourceCheckPrompt(fields domain.Fields, text string, typeHint domain.DocumentType) (string, error) {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling fields: %w", err)
	}
	return `Review this extracted data against the original document and identify any errors.

DOCUMENT TYPE: ` + orUnknown(string(typeHint)) + `

EXTRACTED DATA:
` + string(data) + `

ORIGINAL DOCUMENT (first ` + fmt.Sprint(reviewTextLimit) + ` chars):
` + headRunes(text, reviewTextLimit) + `

Check for incorrect values, missing critical fields, format errors and totals that do not add up.

Respond with JSON: {"is_valid": true/false, "issues": ["issue 1", "issue 2"]}
Only include issues you are confident about. Respond with ONLY JSON:`, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
