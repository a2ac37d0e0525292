package port

import (
	"context"

	"visara/internal/domain"
)

// AlertSender notifies operators about inspections that need attention.
type AlertSender interface {
	SendRiskAlert(ctx context.Context, insp *domain.Inspection) error
}
