package pipeline

import (
	"context"
	"fmt"

	"visara/internal/analyzer"
	"visara/internal/backend"
	"visara/internal/domain"
	"visara/internal/preprocess"
)

// ImagePipeline is the single-unit path. Unlike batch analysis it does not
// degrade on backend failure: a caller inspecting one image wants to know the
// backend timed out or returned garbage, and gets a typed error it can map to
// a precise status.
type ImagePipeline struct {
	analyzer *analyzer.PageAnalyzer
}

// NewImagePipeline builds a single-unit pipeline.
func NewImagePipeline(a *analyzer.PageAnalyzer) *ImagePipeline {
	return &ImagePipeline{analyzer: a}
}

// Run analyzes one unit. Returned errors wrap the domain sentinels:
// ErrBackendTimeout when the budget was exhausted, ErrInvalidOutput when
// every attempt produced contract-violating output, ErrBackendFailure
// otherwise.
func (p *ImagePipeline) Run(ctx context.Context, unit preprocess.Unit, mode domain.AnalysisMode, pctx *analyzer.PageContext) (domain.PageExtraction, error) {
	page, res, err := p.analyzer.AnalyzePageStrict(ctx, unit, 0, mode, pctx)
	if err != nil {
		switch {
		case backend.IsTimeout(err):
			return domain.PageExtraction{}, fmt.Errorf("%w after %d attempt(s): %v", domain.ErrBackendTimeout, res.Attempts, err)
		case backend.IsInvalidOutput(err):
			return domain.PageExtraction{}, fmt.Errorf("%w after %d attempt(s): %v", domain.ErrInvalidOutput, res.Attempts, err)
		default:
			return domain.PageExtraction{}, fmt.Errorf("%w after %d attempt(s): %v", domain.ErrBackendFailure, res.Attempts, err)
		}
	}
	return page, nil
}
