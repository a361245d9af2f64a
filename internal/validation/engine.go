package validation

import (
	"time"

	"docintake/internal/domain"
)

// Engine validates extracted fields against a rule catalog. It is pure apart
// from reading the clock for date-age checks and is safe for concurrent use.
type Engine struct {
	catalog  *Catalog
	registry *Registry
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. The registry must be the one the catalog was
// loaded against.
func NewEngine(catalog *Catalog, registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs required-field, typed and cross-field checks in that order.
// Document types without a rule set get the generic check only.
func (e *Engine) Validate(fields domain.Fields, docType domain.DocumentType) Result {
	res := Result{Errors: []Issue{}, Warnings: []Issue{}}

	rs, ok := e.catalog.RuleSet(docType)
	if !ok {
		if fields.CountNonNull() == 0 {
			res.Errors = append(res.Errors, Issue{
				Field:    FieldAll,
				Category: domain.CategoryExtractionError,
				Priority: domain.PriorityCritical,
				Message:  "No data could be extracted from the document",
			})
		}
		return res
	}

	for _, name := range rs.RequiredFields {
		if fields.Has(name) {
			continue
		}
		res.Errors = append(res.Errors, Issue{
			Field:    name,
			Category: domain.CategoryMissingField,
			Priority: domain.PriorityHigh,
			Message:  "Required field '" + name + "' is missing",
		})
	}

	now := e.now()
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		value, present := fields[rule.Field]
		if !present || value == nil {
			continue
		}
		check := e.registry.Get(rule.Kind)
		if check == nil {
			continue
		}
		issue := check.Apply(rule, value, now)
		if issue == nil {
			continue
		}
		issue.Priority = rule.Priority
		if rule.Priority == domain.PriorityLow {
			res.Warnings = append(res.Warnings, *issue)
		} else {
			res.Errors = append(res.Errors, *issue)
		}
	}

	if len(rs.CrossFieldRules) == 0 {
		return res
	}
	vars := map[string]interface{}(fields.NonNull())
	for i := range rs.CrossFieldRules {
		rule := &rs.CrossFieldRules[i]
		if rule.compiled == nil {
			continue
		}
		ok, err := rule.compiled.EvalBool(vars)
		if err != nil || ok {
			// Rules that reference absent fields or mistyped values are skipped.
			continue
		}
		res.Errors = append(res.Errors, Issue{
			Field:    FieldCrossField,
			Category: domain.CategoryCrossField,
			Priority: rule.Priority,
			Message:  rule.Message,
		})
	}
	return res
}
