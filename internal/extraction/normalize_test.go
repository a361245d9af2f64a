package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docintake/internal/domain"
	"docintake/internal/extraction"
)

func TestNormalizeFieldName(t *testing.T) {
	assert.Equal(t, "total_revenue", extraction.NormalizeFieldName("Total  Revenue"))
	assert.Equal(t, "ebitda_usd", extraction.NormalizeFieldName("EBITDA (USD):"))
	assert.Equal(t, "a_r_days", extraction.NormalizeFieldName("__A/R days__"))
	assert.Equal(t, "", extraction.NormalizeFieldName("***"))
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"$1,234.50", 1234.5},
		{"(1,000)", -1000.0},
		{"12%", 12.0},
		{"-7", -7.0},
		{".5", 0.5},
		{"  42  ", 42.0},
		{"2024-03-31", "2024-03-31"},
		{"Acme Holdings", "Acme Holdings"},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, extraction.NormalizeValue(tt.in))
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	in := map[string]interface{}{
		"Total Revenue": "$2,000",
		"Covenant":      map[string]interface{}{"Max Leverage": "3.5"},
		"Compliant?":    true,
		"---":           "dropped",
	}
	got := extraction.NormalizeFields(in)
	assert.Equal(t, domain.Fields{
		"total_revenue": 2000.0,
		"covenant":      map[string]interface{}{"max_leverage": 3.5},
		"compliant":     true,
	}, got)
}
