package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// MockDocumentRepo is a mock implementation of port.DocumentRepository.
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	args := m.Called(ctx, doc, audit)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) GetByBlobPath(ctx context.Context, blobPath string) (*domain.Document, error) {
	args := m.Called(ctx, blobPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Document, error) {
	args := m.Called(ctx, createdBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) BeginRun(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	args := m.Called(ctx, doc, audit)
	return args.Error(0)
}

func (m *MockDocumentRepo) ResetForReprocess(ctx context.Context, doc *domain.Document, audit domain.AuditLogEntry) error {
	args := m.Called(ctx, doc, audit)
	return args.Error(0)
}

func (m *MockDocumentRepo) SaveRun(ctx context.Context, out port.RunOutcome) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

// MockExceptionRepo is a mock implementation of port.ExceptionRepository.
type MockExceptionRepo struct {
	mock.Mock
}

func (m *MockExceptionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Exception, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Exception), args.Error(1)
}

// MockAuditRepo is a mock implementation of port.AuditRepository.
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLogEntry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditLogEntry), args.Error(1)
}
