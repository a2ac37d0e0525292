package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"visara/internal/port"
)

// MockModelInvoker is a mock implementation of port.ModelInvoker.
type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) ModelID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockModelInvoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ModelResponse), args.Error(1)
}
