package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"docintake/internal/domain"
	"docintake/internal/validation/expr"
)

//go:embed default_rules.yaml
var defaultRules []byte

//go:embed catalog_schema.json
var catalogSchema []byte

// ErrInvalidCatalog is returned when a rule catalog cannot be used.
var ErrInvalidCatalog = errors.New("invalid rule catalog")

// FieldRule is a typed check on a single field.
type FieldRule struct {
	Field      string          `yaml:"field"`
	Kind       RuleKind        `yaml:"kind"`
	Priority   domain.Priority `yaml:"priority"`
	Message    string          `yaml:"message,omitempty"`
	Min        *float64        `yaml:"min,omitempty"`
	Max        *float64        `yaml:"max,omitempty"`
	MaxAgeDays *int            `yaml:"max_age_days,omitempty"`
}

// CrossFieldRule is a boolean expression over the extracted fields.
type CrossFieldRule struct {
	Name       string          `yaml:"name"`
	Expression string          `yaml:"expression"`
	Message    string          `yaml:"message"`
	Priority   domain.Priority `yaml:"priority"`

	compiled *expr.Expression
}

// RuleSet is the complete rule list for one document type.
type RuleSet struct {
	RequiredFields  []string         `yaml:"required_fields"`
	Rules           []FieldRule      `yaml:"rules"`
	CrossFieldRules []CrossFieldRule `yaml:"cross_field_rules"`
}

type catalogFile struct {
	Version       int                            `yaml:"version"`
	DocumentTypes map[domain.DocumentType]RuleSet `yaml:"document_types"`
}

// Catalog is an immutable mapping from document type to rule set.
type Catalog struct {
	sets map[domain.DocumentType]*RuleSet
}

// RuleSet returns the rules for t. The second result is false for types
// without a dedicated rule set.
func (c *Catalog) RuleSet(t domain.DocumentType) (*RuleSet, bool) {
	rs, ok := c.sets[t]
	return rs, ok
}

// Types lists the document types that have a rule set.
func (c *Catalog) Types() []domain.DocumentType {
	out := make([]domain.DocumentType, 0, len(c.sets))
	for t := range c.sets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultCatalog loads the embedded rule catalog.
func DefaultCatalog(registry *Registry) (*Catalog, error) {
	return LoadCatalog(defaultRules, registry)
}

// LoadCatalogFile reads a YAML rule catalog from path.
func LoadCatalogFile(path string, registry *Registry) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule catalog %s: %w", path, err)
	}
	return LoadCatalog(data, registry)
}

// LoadCatalog parses a YAML rule catalog, checks it against the catalog
// schema and compiles every cross-field expression.
func LoadCatalog(data []byte, registry *Registry) (*Catalog, error) {
	if err := validateCatalogDocument(data); err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	cat := &Catalog{sets: make(map[domain.DocumentType]*RuleSet, len(file.DocumentTypes))}
	for t, rs := range file.DocumentTypes {
		if _, ok := domain.ParseDocumentType(string(t)); !ok {
			return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidCatalog, t)
		}
		rs := rs
		if err := prepareRuleSet(&rs, registry); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, t, err)
		}
		cat.sets[t] = &rs
	}
	return cat, nil
}

func prepareRuleSet(rs *RuleSet, registry *Registry) error {
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if !r.Priority.Valid() {
			return fmt.Errorf("rule on %q: invalid priority %q", r.Field, r.Priority)
		}
		check := registry.Get(r.Kind)
		if check == nil {
			return fmt.Errorf("rule on %q: unknown kind %q", r.Field, r.Kind)
		}
		if rv, ok := check.(ruleValidator); ok {
			if err := rv.ValidateRule(r); err != nil {
				return err
			}
		}
	}
	for i := range rs.CrossFieldRules {
		r := &rs.CrossFieldRules[i]
		if !r.Priority.Valid() {
			return fmt.Errorf("cross-field rule %q: invalid priority %q", r.Name, r.Priority)
		}
		compiled, err := expr.Compile(r.Expression)
		if err != nil {
			return fmt.Errorf("cross-field rule %q: %w", r.Name, err)
		}
		r.compiled = compiled
	}
	return nil
}

func validateCatalogDocument(data []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader(catalogSchema)); err != nil {
		return fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return nil
}
