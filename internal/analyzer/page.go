package analyzer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"visara/internal/backend"
	"visara/internal/domain"
	"visara/internal/port"
	"visara/internal/preprocess"
)

// PageAnalyzer runs extraction for a single unit: prompt assembly, the
// bounded backend call, contract validation, and result shaping.
type PageAnalyzer struct {
	invoker   port.ModelInvoker
	runner    *Runner
	maxTokens int
}

// NewPageAnalyzer wires an analyzer around an invoker and a runner.
func NewPageAnalyzer(invoker port.ModelInvoker, runner *Runner, maxTokens int) *PageAnalyzer {
	return &PageAnalyzer{invoker: invoker, runner: runner, maxTokens: maxTokens}
}

// Invoker exposes the wrapped backend.
func (a *PageAnalyzer) Invoker() port.ModelInvoker { return a.invoker }

// AnalyzePage is total: it always returns a usable PageExtraction. Backend
// failures, contract violations, and even panics degrade to an empty result
// whose warnings say what happened. Unreadable never means crashed.
func (a *PageAnalyzer) AnalyzePage(ctx context.Context, unit preprocess.Unit, pageIndex int, mode domain.AnalysisMode, pctx *PageContext) domain.PageExtraction {
	page, res, err := a.AnalyzePageStrict(ctx, unit, pageIndex, mode, pctx)
	if err != nil {
		return a.degraded(pageIndex, mode, res.Attempts, res.Elapsed,
			fmt.Sprintf("model call failed (%s): %v", classify(err), err))
	}
	return page
}

// AnalyzePageStrict is the failure-surfacing variant used by the single-unit
// path, where the caller wants a typed error instead of a degraded result.
// Contract violations in otherwise successful responses still degrade softly;
// only backend-call failure is an error here.
func (a *PageAnalyzer) AnalyzePageStrict(ctx context.Context, unit preprocess.Unit, pageIndex int, mode domain.AnalysisMode, pctx *PageContext) (page domain.PageExtraction, res RunResult, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("analyzer.PageAnalyzer: panic analyzing unit %d: %v", pageIndex, p)
			res = RunResult{Elapsed: time.Since(start)}
			err = fmt.Errorf("analysis panicked: %v", p)
		}
	}()

	req := port.ModelRequest{
		Prompt:      BuildExtractionPrompt(mode, pctx),
		MediaB64:    unit.MediaB64,
		MimeType:    unit.MimeType,
		MaxTokens:   a.maxTokens,
		Temperature: 0,
	}

	res, err = a.runner.Run(ctx, a.invoker, req, TightenRequest)
	if err != nil {
		return domain.PageExtraction{}, res, err
	}

	ext := ParseExtraction(res.Response.RawText)

	return domain.PageExtraction{
		PageIndex:      pageIndex,
		Fields:         ext.Fields,
		Tables:         ext.Tables,
		PageConfidence: ext.PageConfidence,
		Warnings:       ext.Warnings,
		EngineMeta:     a.meta(res.Response.Meta, mode, res.Attempts, res.Elapsed),
	}, res, nil
}

func (a *PageAnalyzer) degraded(pageIndex int, mode domain.AnalysisMode, attempts int, elapsed time.Duration, warning string) domain.PageExtraction {
	return domain.PageExtraction{
		PageIndex:  pageIndex,
		Fields:     []domain.ExtractedField{},
		Tables:     []domain.ExtractedTable{},
		Warnings:   []string{warning},
		EngineMeta: a.meta(nil, mode, attempts, elapsed),
	}
}

// meta builds engine_meta. Backend identity and mode are always present,
// including on degraded results; provenance must survive failure.
func (a *PageAnalyzer) meta(respMeta map[string]string, mode domain.AnalysisMode, attempts int, elapsed time.Duration) map[string]string {
	meta := map[string]string{
		"backend":     a.invoker.ModelID(),
		"mode":        string(mode),
		"attempts":    strconv.Itoa(attempts),
		"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
	}
	for k, v := range respMeta {
		meta[k] = v
	}
	return meta
}

func classify(err error) string {
	switch {
	case backend.IsTimeout(err):
		return string(OutcomeTimeout)
	case backend.IsInvalidOutput(err):
		return string(OutcomeInvalidOutput)
	default:
		return string(OutcomeFailed)
	}
}
