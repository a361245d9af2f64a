package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"docintake/internal/domain"
)

var (
	nonAlnum     = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	numericValue = regexp.MustCompile(`^\(?[$€£]?-?[\d,]*\.?\d+%?\)?$`)
)

// NormalizeFieldName turns a vendor field label into snake_case.
func NormalizeFieldName(name string) string {
	return strings.Trim(strings.ToLower(nonAlnum.ReplaceAllString(name, "_")), "_")
}

// NormalizeValue converts currency, percentage and plain number strings to
// float64. Accounting negatives such as "(1,000)" become -1000. Anything else
// is returned trimmed; empty strings become nil.
func NormalizeValue(raw string) interface{} {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	if !numericValue.MatchString(v) {
		return v
	}
	negative := strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")")
	clean := strings.NewReplacer("(", "", ")", "", "$", "", "€", "", "£", "", ",", "", "%", "").Replace(v)
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return v
	}
	if negative {
		f = -f
	}
	return f
}

// NormalizeFields rewrites keys with NormalizeFieldName and string values with
// NormalizeValue. Nested objects are normalised recursively.
func NormalizeFields(in map[string]interface{}) domain.Fields {
	out := make(domain.Fields, len(in))
	for k, v := range in {
		key := NormalizeFieldName(k)
		if key == "" {
			continue
		}
		switch t := v.(type) {
		case string:
			out[key] = NormalizeValue(t)
		case map[string]interface{}:
			out[key] = map[string]interface{}(NormalizeFields(t))
		default:
			out[key] = v
		}
	}
	return out
}
