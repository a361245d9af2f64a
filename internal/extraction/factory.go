package extraction

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/port"
)

// StructuredFactory creates a structured extractor from application config.
type StructuredFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.StructuredExtractor, error)

// SemanticFactory creates a semantic extractor from application config.
type SemanticFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.SemanticExtractor, error)

type semanticEntry struct {
	tag     domain.ExtractorTag
	factory SemanticFactory
}

// registries of provider factories, populated by init() in each provider package.
var (
	mu                  sync.RWMutex
	structuredProviders = map[string]StructuredFactory{}
	semanticProviders   = map[string]semanticEntry{}
)

// RegisterStructured registers a structured provider factory by name.
func RegisterStructured(name string, factory StructuredFactory) {
	mu.Lock()
	defer mu.Unlock()
	structuredProviders[name] = factory
}

// RegisterSemantic registers a semantic provider factory by name. tag labels
// results the pipeline synthesises on the provider's behalf.
func RegisterSemantic(name string, tag domain.ExtractorTag, factory SemanticFactory) {
	mu.Lock()
	defer mu.Unlock()
	semanticProviders[name] = semanticEntry{tag: tag, factory: factory}
}

// NewStructured creates the structured extractor registered under name.
func NewStructured(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (port.StructuredExtractor, error) {
	mu.RLock()
	factory, ok := structuredProviders[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: structured %q (registered: %v)", ErrUnknownProvider, name, StructuredProviders())
	}
	return factory(ctx, cfg, logger)
}

// NewSemantic creates the semantic extractor registered under name along
// with its extractor tag.
func NewSemantic(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (port.SemanticExtractor, domain.ExtractorTag, error) {
	mu.RLock()
	entry, ok := semanticProviders[name]
	mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: semantic %q", ErrUnknownProvider, name)
	}
	ext, err := entry.factory(ctx, cfg, logger)
	if err != nil {
		return nil, "", err
	}
	return ext, entry.tag, nil
}

// StructuredProviders lists registered structured provider names.
func StructuredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(structuredProviders))
	for name := range structuredProviders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
