package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// Fields is an extracted field map. Values are JSON-shaped: nil, bool,
// float64, string, []interface{} or map[string]interface{}.
type Fields map[string]interface{}

// Has reports whether name is present with a non-null value.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && v != nil
}

// NonNull returns a copy of f without null values.
func (f Fields) NonNull() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// CountNonNull returns how many fields carry a value.
func (f Fields) CountNonNull() int {
	n := 0
	for _, v := range f {
		if v != nil {
			n++
		}
	}
	return n
}

// Value implements driver.Valuer so Fields can be stored as jsonb.
func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(f))
	if err != nil {
		return nil, fmt.Errorf("marshaling fields: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (f *Fields) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil || b == nil {
		*f = nil
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("scanning fields: %w", err)
	}
	*f = m
	return nil
}

// Confidences maps field names to a confidence in [0,1].
type Confidences map[string]float64

// Value implements driver.Valuer.
func (c Confidences) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]float64(c))
	if err != nil {
		return nil, fmt.Errorf("marshaling confidences: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (c *Confidences) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil || b == nil {
		*c = nil
		return err
	}
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("scanning confidences: %w", err)
	}
	*c = m
	return nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// AsNumber converts numeric values to float64. Booleans and numeric-looking
// strings are not numbers.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ClampConfidence bounds c to [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
