package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"visara/internal/domain"
)

// MockAlertSender is a mock implementation of port.AlertSender.
type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendRiskAlert(ctx context.Context, insp *domain.Inspection) error {
	args := m.Called(ctx, insp)
	return args.Error(0)
}
