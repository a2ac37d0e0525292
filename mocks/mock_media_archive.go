package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"visara/internal/port"
)

// MockMediaArchive is a mock implementation of port.MediaArchive.
type MockMediaArchive struct {
	mock.Mock
}

func (m *MockMediaArchive) ArchiveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int, body io.Reader, contentType string) (*port.ArchivedUnit, error) {
	args := m.Called(ctx, inspectionID, unitIndex, body, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ArchivedUnit), args.Error(1)
}

func (m *MockMediaArchive) RemoveUnit(ctx context.Context, inspectionID uuid.UUID, unitIndex int) error {
	args := m.Called(ctx, inspectionID, unitIndex)
	return args.Error(0)
}

func (m *MockMediaArchive) UnitURL(ctx context.Context, inspectionID uuid.UUID, unitIndex int) (string, error) {
	args := m.Called(ctx, inspectionID, unitIndex)
	return args.String(0), args.Error(1)
}
