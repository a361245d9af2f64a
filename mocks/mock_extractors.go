package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// MockStructuredExtractor is a mock implementation of port.StructuredExtractor.
type MockStructuredExtractor struct {
	mock.Mock
}

func (m *MockStructuredExtractor) Process(ctx context.Context, req port.ExtractRequest) (*port.ExtractionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ExtractionResult), args.Error(1)
}

func (m *MockStructuredExtractor) OCR(ctx context.Context, content []byte, mimeType string) (*port.OCRResult, error) {
	args := m.Called(ctx, content, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.OCRResult), args.Error(1)
}

// MockSemanticExtractor is a mock implementation of port.SemanticExtractor.
type MockSemanticExtractor struct {
	mock.Mock
}

func (m *MockSemanticExtractor) ExtractFromText(ctx context.Context, text string, typeHint domain.DocumentType, filename string) (*port.ExtractionResult, error) {
	args := m.Called(ctx, text, typeHint, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ExtractionResult), args.Error(1)
}

func (m *MockSemanticExtractor) DetectType(ctx context.Context, text, filename string) (domain.DocumentType, error) {
	args := m.Called(ctx, text, filename)
	return args.Get(0).(domain.DocumentType), args.Error(1)
}

func (m *MockSemanticExtractor) ValidateAgainstSource(ctx context.Context, fields domain.Fields, text string, typeHint domain.DocumentType) (*port.SourceCheck, error) {
	args := m.Called(ctx, fields, text, typeHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SourceCheck), args.Error(1)
}
