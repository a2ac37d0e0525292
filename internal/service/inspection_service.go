package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"visara/internal/analyzer"
	"visara/internal/domain"
	"visara/internal/explainer"
	"visara/internal/export"
	"visara/internal/pipeline"
	"visara/internal/port"
	"visara/internal/preprocess"
)

// AnalyzeOptions carries caller hints for an analysis request.
type AnalyzeOptions struct {
	Mode           domain.AnalysisMode
	DocumentType   string
	ExpectedFields []string
}

// InspectionService defines the inspection lifecycle contract.
type InspectionService interface {
	AnalyzeDocument(ctx context.Context, files []*multipart.FileHeader, opts AnalyzeOptions, createdBy string) (*domain.Inspection, error)
	AnalyzeImage(ctx context.Context, file *multipart.FileHeader, opts AnalyzeOptions, createdBy string) (*domain.Inspection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error)
	List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportXLSX(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	MediaURL(ctx context.Context, id uuid.UUID, unitIndex int) (string, error)
}

type inspectionService struct {
	repo    port.InspectionRepository
	archive port.MediaArchive
	limits  preprocess.Limits
	batch   *pipeline.BatchPipeline
	image   *pipeline.ImagePipeline
	explain *explainer.Generator
	alerts  port.AlertSender
}

// NewInspectionService wires the inspection workflow.
func NewInspectionService(
	repo port.InspectionRepository,
	archive port.MediaArchive,
	limits preprocess.Limits,
	batch *pipeline.BatchPipeline,
	image *pipeline.ImagePipeline,
	explain *explainer.Generator,
	alerts port.AlertSender,
) InspectionService {
	return &inspectionService{
		repo:    repo,
		archive: archive,
		limits:  limits,
		batch:   batch,
		image:   image,
		explain: explain,
		alerts:  alerts,
	}
}

func (s *inspectionService) AnalyzeDocument(ctx context.Context, files []*multipart.FileHeader, opts AnalyzeOptions, createdBy string) (*domain.Inspection, error) {
	units, err := preprocess.FromUploads(files, s.limits)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	archived, err := s.archiveUnits(ctx, id, units)
	if err != nil {
		return nil, err
	}

	result := s.batch.Run(ctx, units, opts.Mode, pageContext(opts))
	explanation := s.explain.Generate(ctx, factsFor("document_analysis", opts.Mode, &result))

	insp, err := s.persist(ctx, id, domain.KindDocument, opts.Mode, units, archived, &result, &explanation, createdBy)
	if err != nil {
		return nil, err
	}

	s.maybeAlert(ctx, insp)
	return insp, nil
}

// AnalyzeImage is the single-unit path. Backend failure surfaces as a typed
// error instead of a degraded record; nothing is persisted in that case.
func (s *inspectionService) AnalyzeImage(ctx context.Context, file *multipart.FileHeader, opts AnalyzeOptions, createdBy string) (*domain.Inspection, error) {
	units, err := preprocess.FromUploads([]*multipart.FileHeader{file}, s.limits)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	archived, err := s.archiveUnits(ctx, id, units)
	if err != nil {
		return nil, err
	}

	page, err := s.image.Run(ctx, units[0], opts.Mode, pageContext(opts))
	if err != nil {
		return nil, err
	}

	result := domain.DocumentResult{
		Pages:         []domain.PageExtraction{page},
		DocConfidence: page.PageConfidence,
		Warnings:      prefixWarnings(page),
		EngineMeta:    page.EngineMeta,
	}
	explanation := s.explain.Generate(ctx, factsFor("image_analysis", opts.Mode, &result))

	insp, err := s.persist(ctx, id, domain.KindImage, opts.Mode, units, archived, &result, &explanation, createdBy)
	if err != nil {
		return nil, err
	}

	s.maybeAlert(ctx, insp)
	return insp, nil
}

func (s *inspectionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *inspectionService) List(ctx context.Context, offset, limit int) ([]domain.Inspection, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *inspectionService) Delete(ctx context.Context, id uuid.UUID) error {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Best-effort media cleanup; the record is authoritative.
	for i := 0; i < insp.UnitsN; i++ {
		if err := s.archive.RemoveUnit(ctx, insp.ID, i); err != nil {
			log.Printf("service.InspectionService: removing unit %d of %s: %v", i, insp.ID, err)
		}
	}

	return s.repo.Delete(ctx, id)
}

func (s *inspectionService) ExportXLSX(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := export.InspectionXLSX(insp)
	if err != nil {
		return nil, "", fmt.Errorf("service.ExportXLSX: %w", err)
	}
	return data, fmt.Sprintf("inspection-%s.xlsx", insp.ID), nil
}

func (s *inspectionService) MediaURL(ctx context.Context, id uuid.UUID, unitIndex int) (string, error) {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if unitIndex < 0 || unitIndex >= insp.UnitsN {
		return "", domain.ErrNotFound
	}
	return s.archive.UnitURL(ctx, insp.ID, unitIndex)
}

// archiveUnits uploads the original media so a reviewer can see what the
// model saw.
func (s *inspectionService) archiveUnits(ctx context.Context, id uuid.UUID, units []preprocess.Unit) ([]port.ArchivedUnit, error) {
	archived := make([]port.ArchivedUnit, 0, len(units))
	for i, unit := range units {
		data, err := base64.StdEncoding.DecodeString(unit.MediaB64)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding unit %d: %v", domain.ErrUploadFailed, i, err)
		}
		out, err := s.archive.ArchiveUnit(ctx, id, i, bytes.NewReader(data), unit.MimeType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
		archived = append(archived, *out)
	}
	return archived, nil
}

func (s *inspectionService) persist(
	ctx context.Context,
	id uuid.UUID,
	kind domain.InspectionKind,
	mode domain.AnalysisMode,
	units []preprocess.Unit,
	archived []port.ArchivedUnit,
	result *domain.DocumentResult,
	explanation *domain.GroundedExplanation,
	createdBy string,
) (*domain.Inspection, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("service.persist: marshaling result: %w", err)
	}
	explanationJSON, err := json.Marshal(explanation)
	if err != nil {
		return nil, fmt.Errorf("service.persist: marshaling explanation: %w", err)
	}

	var totalSize int64
	for _, u := range units {
		totalSize += u.Size
	}

	insp := &domain.Inspection{
		ID:          id,
		Kind:        kind,
		Mode:        mode,
		FileName:    units[0].Filename,
		ContentType: units[0].MimeType,
		FileSize:    totalSize,
		S3Bucket:    archived[0].Bucket,
		S3Key:       archived[0].Key,
		Result:      resultJSON,
		Explanation: explanationJSON,
		Confidence:  domain.ConfidenceNumber(result.DocConfidence),
		RiskLevel:   explanation.RiskLevel,
		WarningsN:   len(result.Warnings),
		UnitsN:      len(units),
		Backend:     result.EngineMeta["backend"],
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, insp); err != nil {
		return nil, fmt.Errorf("service.persist: %w", err)
	}
	return insp, nil
}

func (s *inspectionService) maybeAlert(ctx context.Context, insp *domain.Inspection) {
	if insp.RiskLevel != domain.RiskHigh {
		return
	}
	if err := s.alerts.SendRiskAlert(ctx, insp); err != nil {
		log.Printf("service.InspectionService: risk alert for %s failed: %v", insp.ID, err)
	}
}

func pageContext(opts AnalyzeOptions) *analyzer.PageContext {
	if opts.DocumentType == "" && len(opts.ExpectedFields) == 0 {
		return nil
	}
	return &analyzer.PageContext{DocumentType: opts.DocumentType, ExpectedFields: opts.ExpectedFields}
}

func factsFor(taskType string, mode domain.AnalysisMode, result *domain.DocumentResult) domain.ExplanationFacts {
	var fields []domain.ExtractedField
	tableCount := 0
	for _, page := range result.Pages {
		fields = append(fields, page.Fields...)
		tableCount += len(page.Tables)
	}

	return domain.ExplanationFacts{
		TaskType:   taskType,
		Mode:       mode,
		Confidence: domain.ConfidenceNumber(result.DocConfidence),
		Warnings:   result.Warnings,
		Fields:     fields,
		TableCount: tableCount,
		UnitCount:  len(result.Pages),
	}
}

func prefixWarnings(page domain.PageExtraction) []string {
	warnings := []string{}
	for _, w := range page.Warnings {
		warnings = append(warnings, fmt.Sprintf("unit[%d]: %s", page.PageIndex, w))
	}
	return warnings
}
