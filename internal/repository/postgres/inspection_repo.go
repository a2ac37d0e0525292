package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"visara/internal/domain"
	"visara/internal/port"
)

type inspectionRepo struct {
	db *sqlx.DB
}

// NewInspectionRepo creates a new PostgreSQL-backed InspectionRepository.
func NewInspectionRepo(db *sqlx.DB) port.InspectionRepository {
	return &inspectionRepo{db: db}
}

func (r *inspectionRepo) Create(ctx context.Context, insp *domain.Inspection) error {
	query := `INSERT INTO inspections
		(id, kind, mode, file_name, content_type, file_size, s3_bucket, s3_key,
		 result, explanation, confidence, risk_level, warnings_n, units_n,
		 backend, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		insp.ID, insp.Kind, insp.Mode, insp.FileName, insp.ContentType, insp.FileSize,
		insp.S3Bucket, insp.S3Key, insp.Result, insp.Explanation, insp.Confidence,
		insp.RiskLevel, insp.WarningsN, insp.UnitsN, insp.Backend, insp.CreatedBy,
		insp.CreatedAt)
	if err != nil {
		return fmt.Errorf("inspectionRepo.Create: %w", err)
	}
	return nil
}

func (r *inspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	var insp domain.Inspection
	err := r.db.GetContext(ctx, &insp, "SELECT * FROM inspections WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("inspectionRepo.GetByID: %w", err)
	}
	return &insp, nil
}

func (r *inspectionRepo) List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM inspections"); err != nil {
		return nil, 0, fmt.Errorf("inspectionRepo.List count: %w", err)
	}

	var inspections []domain.Inspection
	err := r.db.SelectContext(ctx, &inspections,
		"SELECT * FROM inspections ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("inspectionRepo.List: %w", err)
	}
	return inspections, total, nil
}

func (r *inspectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM inspections WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("inspectionRepo.Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("inspectionRepo.Delete rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
