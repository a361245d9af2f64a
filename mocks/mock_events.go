package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docintake/internal/port"
)

// MockRunDispatcher is a mock implementation of port.RunDispatcher.
type MockRunDispatcher struct {
	mock.Mock
}

func (m *MockRunDispatcher) Dispatch(ctx context.Context, req port.RunRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of port.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishProcessed(ctx context.Context, event port.ProcessedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
