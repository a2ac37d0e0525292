package mocks

import (
	"context"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"visara/internal/domain"
	"visara/internal/service"
)

// MockInspectionService is a mock implementation of service.InspectionService.
type MockInspectionService struct {
	mock.Mock
}

func (m *MockInspectionService) AnalyzeDocument(ctx context.Context, files []*multipart.FileHeader, opts service.AnalyzeOptions, createdBy string) (*domain.Inspection, error) {
	args := m.Called(ctx, files, opts, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inspection), args.Error(1)
}

func (m *MockInspectionService) AnalyzeImage(ctx context.Context, file *multipart.FileHeader, opts service.AnalyzeOptions, createdBy string) (*domain.Inspection, error) {
	args := m.Called(ctx, file, opts, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inspection), args.Error(1)
}

func (m *MockInspectionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inspection), args.Error(1)
}

func (m *MockInspectionService) List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Inspection), args.Int(1), args.Error(2)
}

func (m *MockInspectionService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInspectionService) ExportXLSX(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockInspectionService) MediaURL(ctx context.Context, id uuid.UUID, unitIndex int) (string, error) {
	args := m.Called(ctx, id, unitIndex)
	return args.String(0), args.Error(1)
}
