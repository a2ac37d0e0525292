package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"visara/internal/domain"
)

// MockInspectionRepo is a mock implementation of port.InspectionRepository.
type MockInspectionRepo struct {
	mock.Mock
}

func (m *MockInspectionRepo) Create(ctx context.Context, insp *domain.Inspection) error {
	args := m.Called(ctx, insp)
	return args.Error(0)
}

func (m *MockInspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inspection), args.Error(1)
}

func (m *MockInspectionRepo) List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Inspection), args.Int(1), args.Error(2)
}

func (m *MockInspectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
