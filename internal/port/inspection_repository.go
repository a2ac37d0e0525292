package port

import (
	"context"

	"github.com/google/uuid"

	"visara/internal/domain"
)

// InspectionRepository persists inspection records.
type InspectionRepository interface {
	Create(ctx context.Context, insp *domain.Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error)
	List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
