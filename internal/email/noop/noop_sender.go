package noop

import (
	"context"
	"log"

	"visara/internal/domain"
	"visara/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op AlertSender that logs alerts to stdout.
func NewNoopSender() port.AlertSender {
	return &noopSender{}
}

func (s *noopSender) SendRiskAlert(_ context.Context, insp *domain.Inspection) error {
	log.Printf("[NOOP ALERT] inspection %s flagged %s risk (%d warnings, confidence %.2f)",
		insp.ID, insp.RiskLevel, insp.WarningsN, insp.Confidence)
	return nil
}
