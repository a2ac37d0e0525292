package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visara/internal/analyzer"
	"visara/internal/domain"
	"visara/internal/port"
	"visara/internal/preprocess"
)

// keyedInvoker answers by unit payload, so tests stay deterministic under
// concurrent execution.
type keyedInvoker struct {
	byMedia map[string]func(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error)
}

func (k *keyedInvoker) ModelID() string { return "keyed" }

func (k *keyedInvoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	fn, ok := k.byMedia[req.MediaB64]
	if !ok {
		return nil, fmt.Errorf("unexpected media payload %q", req.MediaB64)
	}
	return fn(ctx, req)
}

func respond(text string) func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
	return func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
		return &port.ModelResponse{RawText: text, Meta: map[string]string{"model": "keyed"}}, nil
	}
}

func block() func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
	return func(ctx context.Context, _ port.ModelRequest) (*port.ModelResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func unit(media string) preprocess.Unit {
	return preprocess.Unit{MediaB64: media, MimeType: "image/png", Filename: media + ".png"}
}

func pageJSON(score float64) string {
	return fmt.Sprintf(`{"fields": [{"name": "serial", "value": "A"}], "tables": [], "page_confidence": {"score": %g}, "warnings": []}`, score)
}

func newBatch(inv port.ModelInvoker, concurrency int) *BatchPipeline {
	a := analyzer.NewPageAnalyzer(inv, &analyzer.Runner{Deadline: 50 * time.Millisecond, MaxAttempts: 2}, 600)
	return NewBatchPipeline(a, concurrency)
}

func TestBatchRun_MixedUnitsDegradeIndividually(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(pageJSON(0.5)),
		"u1": respond("sorry, I cannot read this page"),
		"u2": respond(pageJSON(0.7)),
	}}

	result := newBatch(inv, 2).Run(context.Background(),
		[]preprocess.Unit{unit("u0"), unit("u1"), unit("u2")}, domain.ModeFast, nil)

	require.Len(t, result.Pages, 3)
	for i, page := range result.Pages {
		assert.Equal(t, i, page.PageIndex)
	}

	assert.Len(t, result.Pages[0].Fields, 1)
	assert.Empty(t, result.Pages[1].Fields)
	assert.Len(t, result.Pages[2].Fields, 1)

	// Mean of the two readable pages; the degraded page contributes nothing.
	require.NotNil(t, result.DocConfidence)
	require.NotNil(t, result.DocConfidence.Score)
	assert.InDelta(t, 0.6, *result.DocConfidence.Score, 1e-9)
	assert.Empty(t, result.DocConfidence.Level)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unit[1]: ")
	assert.Contains(t, result.Warnings[0], "not valid JSON")
}

func TestBatchRun_TimeoutUnitDegrades(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": block(),
		"u1": respond(pageJSON(0.8)),
	}}

	result := newBatch(inv, 2).Run(context.Background(),
		[]preprocess.Unit{unit("u0"), unit("u1")}, domain.ModeFast, nil)

	require.Len(t, result.Pages, 2)
	require.Len(t, result.Pages[0].Warnings, 1)
	assert.Contains(t, result.Pages[0].Warnings[0], "timeout")
	assert.Len(t, result.Pages[1].Fields, 1)

	require.NotNil(t, result.DocConfidence)
	assert.InDelta(t, 0.8, *result.DocConfidence.Score, 1e-9)
}

func TestBatchRun_WorstLevelWhenNoScores(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(`{"fields": [], "tables": [], "page_confidence": {"level": "high"}, "warnings": []}`),
		"u1": respond(`{"fields": [], "tables": [], "page_confidence": {"level": "low"}, "warnings": []}`),
	}}

	result := newBatch(inv, 1).Run(context.Background(),
		[]preprocess.Unit{unit("u0"), unit("u1")}, domain.ModeFast, nil)

	require.NotNil(t, result.DocConfidence)
	assert.Nil(t, result.DocConfidence.Score)
	assert.Equal(t, domain.ConfidenceLow, result.DocConfidence.Level)
}

func TestBatchRun_NoConfidenceAnywhere(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(`{"fields": [], "tables": [], "warnings": []}`),
	}}

	result := newBatch(inv, 1).Run(context.Background(),
		[]preprocess.Unit{unit("u0")}, domain.ModeFast, nil)

	assert.Nil(t, result.DocConfidence)
}

func TestBatchRun_WarningsKeepUnitOrder(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(`{"fields": [], "tables": [], "warnings": ["blurry"]}`),
		"u1": respond(`{"fields": [], "tables": [], "warnings": ["cropped"]}`),
		"u2": respond(`{"fields": [], "tables": [], "warnings": ["glare"]}`),
	}}

	result := newBatch(inv, 3).Run(context.Background(),
		[]preprocess.Unit{unit("u0"), unit("u1"), unit("u2")}, domain.ModeFast, nil)

	assert.Equal(t, []string{"unit[0]: blurry", "unit[1]: cropped", "unit[2]: glare"}, result.Warnings)
}

// unstableInvoker answers one identity lookup, then panics. Extraction calls
// still work, so a unit's analysis dies only after the guarded backend call.
type unstableInvoker struct {
	inner port.ModelInvoker
	ids   int
}

func (u *unstableInvoker) ModelID() string {
	u.ids++
	if u.ids > 1 {
		panic("identity lookup failed")
	}
	return "keyed"
}

func (u *unstableInvoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	return u.inner.Invoke(ctx, req)
}

func TestBatchRun_PanickedUnitStillNamesBackend(t *testing.T) {
	inner := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(pageJSON(0.9)),
	}}

	result := newBatch(&unstableInvoker{inner: inner}, 1).Run(context.Background(),
		[]preprocess.Unit{unit("u0")}, domain.ModeFast, nil)

	require.Len(t, result.Pages, 1)
	page := result.Pages[0]
	require.Len(t, page.Warnings, 1)
	assert.Contains(t, page.Warnings[0], "panicked")
	assert.Equal(t, "keyed", page.EngineMeta["backend"])
	assert.Equal(t, "fast", page.EngineMeta["mode"])
	assert.Equal(t, "keyed", result.EngineMeta["backend"])
}

func TestBatchRun_EngineMeta(t *testing.T) {
	inv := &keyedInvoker{byMedia: map[string]func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		"u0": respond(pageJSON(0.9)),
	}}

	result := newBatch(inv, 1).Run(context.Background(),
		[]preprocess.Unit{unit("u0")}, domain.ModeFull, nil)

	assert.Equal(t, "batch", result.EngineMeta["pipeline"])
	assert.Equal(t, "keyed", result.EngineMeta["backend"])
	assert.Equal(t, "full", result.EngineMeta["mode"])
	assert.Equal(t, "1", result.EngineMeta["units_processed"])
}
