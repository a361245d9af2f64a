package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"docintake/internal/domain"
)

// RuleKind names a typed single-field check.
type RuleKind string

const (
	KindPositive    RuleKind = "positive"
	KindNonNegative RuleKind = "non_negative"
	KindNumber      RuleKind = "number"
	KindPercentage  RuleKind = "percentage"
	KindDate        RuleKind = "date"
)

// Check is the interface for one typed single-field rule kind. Apply is only
// called with a present, non-null value and returns nil when the value passes.
type Check interface {
	Kind() RuleKind
	Apply(rule *FieldRule, value interface{}, now time.Time) *Issue
}

// ruleValidator is implemented by checks that constrain their rule parameters.
type ruleValidator interface {
	ValidateRule(rule *FieldRule) error
}

// Registry maps rule kinds to Check implementations.
type Registry struct {
	checks map[RuleKind]Check
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[RuleKind]Check)}
}

// DefaultRegistry returns a registry holding every built-in check.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(positiveCheck{})
	r.Register(nonNegativeCheck{})
	r.Register(numberCheck{})
	r.Register(percentageCheck{})
	r.Register(dateCheck{})
	return r
}

// Register adds a check, replacing any previous check of the same kind.
func (r *Registry) Register(c Check) {
	r.checks[c.Kind()] = c
}

// Get returns the check for kind, or nil if none is registered.
func (r *Registry) Get(kind RuleKind) Check {
	return r.checks[kind]
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []RuleKind {
	out := make([]RuleKind, 0, len(r.checks))
	for k := range r.checks {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type positiveCheck struct{}

func (positiveCheck) Kind() RuleKind { return KindPositive }

func (positiveCheck) Apply(rule *FieldRule, value interface{}, _ time.Time) *Issue {
	if n, ok := domain.AsNumber(value); ok && n > 0 {
		return nil
	}
	return &Issue{
		Field:    rule.Field,
		Category: domain.CategoryValidationError,
		Message:  rule.message("Field '{field}' must be a positive number", nil),
		Expected: "positive number",
		Actual:   formatValue(value),
	}
}

type nonNegativeCheck struct{}

func (nonNegativeCheck) Kind() RuleKind { return KindNonNegative }

func (nonNegativeCheck) Apply(rule *FieldRule, value interface{}, _ time.Time) *Issue {
	if n, ok := domain.AsNumber(value); ok && n >= 0 {
		return nil
	}
	return &Issue{
		Field:    rule.Field,
		Category: domain.CategoryValidationError,
		Message:  rule.message("Field '{field}' cannot be negative", nil),
		Expected: "non-negative number",
		Actual:   formatValue(value),
	}
}

type numberCheck struct{}

func (numberCheck) Kind() RuleKind { return KindNumber }

func (numberCheck) Apply(rule *FieldRule, value interface{}, _ time.Time) *Issue {
	if _, ok := domain.AsNumber(value); ok {
		return nil
	}
	return &Issue{
		Field:    rule.Field,
		Category: domain.CategoryInvalidFormat,
		Message:  rule.message("Field '{field}' must be a number", nil),
		Expected: "number",
		Actual:   valueTypeName(value),
	}
}

const (
	defaultPercentMin = 0.0
	defaultPercentMax = 100.0
)

type percentageCheck struct{}

func (percentageCheck) Kind() RuleKind { return KindPercentage }

func (percentageCheck) ValidateRule(rule *FieldRule) error {
	lo, hi := percentBounds(rule)
	if lo > hi {
		return fmt.Errorf("percentage rule on %q: min %v exceeds max %v", rule.Field, lo, hi)
	}
	return nil
}

func (percentageCheck) Apply(rule *FieldRule, value interface{}, _ time.Time) *Issue {
	n, ok := domain.AsNumber(value)
	if !ok {
		return &Issue{
			Field:    rule.Field,
			Category: domain.CategoryInvalidFormat,
			Message:  rule.message("Field '{field}' must be a percentage", nil),
			Expected: "percentage",
			Actual:   formatValue(value),
		}
	}
	lo, hi := percentBounds(rule)
	if n >= lo && n <= hi {
		return nil
	}
	vars := map[string]string{"min": formatNumber(lo), "max": formatNumber(hi)}
	return &Issue{
		Field:    rule.Field,
		Category: domain.CategoryValidationError,
		Message:  rule.message("Field '{field}' must be between {min}% and {max}%", vars),
		Expected: vars["min"] + "-" + vars["max"],
		Actual:   formatValue(value),
	}
}

func percentBounds(rule *FieldRule) (lo, hi float64) {
	lo, hi = defaultPercentMin, defaultPercentMax
	if rule.Min != nil {
		lo = *rule.Min
	}
	if rule.Max != nil {
		hi = *rule.Max
	}
	return lo, hi
}

type dateCheck struct{}

func (dateCheck) Kind() RuleKind { return KindDate }

func (dateCheck) Apply(rule *FieldRule, value interface{}, now time.Time) *Issue {
	parsed, ok := ParseDate(value)
	if !ok {
		return &Issue{
			Field:    rule.Field,
			Category: domain.CategoryInvalidFormat,
			Message:  rule.message("Field '{field}' is not a valid date", nil),
			Expected: "date (YYYY-MM-DD)",
			Actual:   formatValue(value),
		}
	}
	if rule.MaxAgeDays == nil {
		return nil
	}
	maxAge := *rule.MaxAgeDays
	age := ageInDays(parsed, now)
	if age <= maxAge {
		return nil
	}
	vars := map[string]string{"days": strconv.Itoa(maxAge)}
	return &Issue{
		Field:    rule.Field,
		Category: domain.CategoryValidationError,
		Message:  rule.message("Field '{field}' is older than {days} days", vars),
		Expected: fmt.Sprintf("within %d days", maxAge),
		Actual:   fmt.Sprintf("%d days old", age),
	}
}

// message renders the rule's own template if it has one, otherwise def.
// Templates may reference {field} and any key in vars.
func (r *FieldRule) message(def string, vars map[string]string) string {
	tmpl := def
	if r.Message != "" {
		tmpl = r.Message
	}
	pairs := []string{"{field}", r.Field}
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatValue(v interface{}) string {
	if n, ok := domain.AsNumber(v); ok {
		return formatNumber(n)
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("%v", v)
}

func valueTypeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
