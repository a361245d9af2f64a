package extraction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
	"docintake/mocks"
)

func TestFactory_RegisterAndCreate(t *testing.T) {
	structured := new(mocks.MockStructuredExtractor)
	semantic := new(mocks.MockSemanticExtractor)

	extraction.RegisterStructured("fake-structured", func(context.Context, *config.Config, *zap.Logger) (port.StructuredExtractor, error) {
		return structured, nil
	})
	extraction.RegisterSemantic("fake-semantic", domain.ExtractorManual, func(context.Context, *config.Config, *zap.Logger) (port.SemanticExtractor, error) {
		return semantic, nil
	})

	gotStructured, err := extraction.NewStructured(context.Background(), "fake-structured", &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, structured, gotStructured)
	assert.Contains(t, extraction.StructuredProviders(), "fake-structured")

	gotSemantic, tag, err := extraction.NewSemantic(context.Background(), "fake-semantic", &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, semantic, gotSemantic)
	assert.Equal(t, domain.ExtractorManual, tag)
}

func TestFactory_UnknownProvider(t *testing.T) {
	_, err := extraction.NewStructured(context.Background(), "tesseract", &config.Config{}, nil)
	assert.ErrorIs(t, err, extraction.ErrUnknownProvider)

	_, _, err = extraction.NewSemantic(context.Background(), "gpt-2", &config.Config{}, nil)
	assert.ErrorIs(t, err, extraction.ErrUnknownProvider)
}
