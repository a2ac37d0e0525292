// Package pipeline folds per-unit analysis into request-level results. The
// batch path never fails a whole request because one unit misbehaved; the
// single-unit path surfaces backend failure as a typed error instead.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"visara/internal/analyzer"
	"visara/internal/domain"
	"visara/internal/preprocess"
)

// BatchPipeline runs extraction over an ordered unit sequence and aggregates
// the results into one DocumentResult.
type BatchPipeline struct {
	analyzer    *analyzer.PageAnalyzer
	concurrency int
}

// NewBatchPipeline builds a pipeline. Concurrency below 1 means sequential.
func NewBatchPipeline(a *analyzer.PageAnalyzer, concurrency int) *BatchPipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchPipeline{analyzer: a, concurrency: concurrency}
}

// Run analyzes every unit and folds the pages into a DocumentResult.
//
// Invariants:
//   - Total: always returns a result, never an error. A failed unit becomes
//     a degraded page with warnings.
//   - Output order matches input order regardless of completion order.
//   - Document warnings carry the unit prefix so a consumer can tell which
//     unit each warning came from.
func (p *BatchPipeline) Run(ctx context.Context, units []preprocess.Unit, mode domain.AnalysisMode, pctx *analyzer.PageContext) domain.DocumentResult {
	pages := make([]domain.PageExtraction, len(units))

	// Resolved once so even the panic fallback can name the backend.
	backendID := p.analyzer.Invoker().ModelID()

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i, unit := range units {
		wg.Add(1)
		go func(i int, unit preprocess.Unit) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("pipeline.BatchPipeline: panic on unit %d: %v", i, r)
					pages[i] = domain.PageExtraction{
						PageIndex:  i,
						Fields:     []domain.ExtractedField{},
						Tables:     []domain.ExtractedTable{},
						Warnings:   []string{fmt.Sprintf("unit analysis panicked: %v", r)},
						EngineMeta: map[string]string{"backend": backendID, "mode": string(mode)},
					}
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()

			pages[i] = p.analyzer.AnalyzePage(ctx, unit, i, mode, pctx)
		}(i, unit)
	}
	wg.Wait()

	return p.fold(pages, mode, backendID)
}

func (p *BatchPipeline) fold(pages []domain.PageExtraction, mode domain.AnalysisMode, backendID string) domain.DocumentResult {
	warnings := []string{}
	confidences := make([]*domain.Confidence, 0, len(pages))

	for _, page := range pages {
		for _, w := range page.Warnings {
			warnings = append(warnings, fmt.Sprintf("unit[%d]: %s", page.PageIndex, w))
		}
		confidences = append(confidences, page.PageConfidence)
	}

	return domain.DocumentResult{
		Pages:         pages,
		DocConfidence: domain.AggregateConfidence(confidences),
		Warnings:      warnings,
		EngineMeta: map[string]string{
			"pipeline":        "batch",
			"backend":         backendID,
			"mode":            string(mode),
			"units_processed": strconv.Itoa(len(pages)),
		},
	}
}
