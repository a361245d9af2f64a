package validation

import "docintake/internal/domain"

// Field names used by issues that are not about a single extracted field.
const (
	FieldCrossField = "_cross_field"
	FieldAll        = "_all"
)

// Issue is one validation finding. The engine only reports issues; turning
// them into persisted exceptions is the lifecycle controller's job.
type Issue struct {
	Field    string                   `json:"field"`
	Category domain.ExceptionCategory `json:"category"`
	Priority domain.Priority          `json:"priority"`
	Message  string                   `json:"message"`
	Expected string                   `json:"expected,omitempty"`
	Actual   string                   `json:"actual,omitempty"`
}

// Result holds ordered errors and warnings for one validation pass.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// IsValid reports whether no errors were found. Warnings do not count.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}
