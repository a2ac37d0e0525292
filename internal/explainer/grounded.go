// Package explainer turns extraction facts into a human-readable explanation
// with a risk assessment. The generator only ever sees already-extracted
// facts, never raw media, so it cannot hallucinate page content that the
// extraction did not produce.
package explainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"visara/internal/analyzer"
	"visara/internal/domain"
	"visara/internal/port"
)

const promptTemplate = `You are an inspection analyst. Based ONLY on the facts below, explain the analysis result to a human reviewer.

Facts (JSON):
%s

Return a single JSON object with exactly these keys and no others:
  "explanation": string, what the analysis found and how reliable it is
  "recommendation": string, what the reviewer should do next
  "risk_level": one of "low", "medium", "high"
  "assumptions": list of strings
  "limitations": list of strings

Do not invent facts that are not present above. Return ONLY the JSON object.`

// Generator produces grounded explanations. One call, no retries: an
// explanation is an accessory to the result, never worth a second round trip.
type Generator struct {
	invoker   port.ModelInvoker
	deadline  time.Duration
	maxTokens int
}

// NewGenerator wires a Generator around a text-capable invoker.
func NewGenerator(invoker port.ModelInvoker, deadline time.Duration, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 600
	}
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	return &Generator{invoker: invoker, deadline: deadline, maxTokens: maxTokens}
}

// Generate is total: it always returns a contract-valid explanation. Backend
// failure or contract-violating output degrades to a deterministic fallback
// whose limitations say why.
func (g *Generator) Generate(ctx context.Context, facts domain.ExplanationFacts) (exp domain.GroundedExplanation) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("explainer.Generator: panic generating explanation: %v", p)
			exp = Fallback(facts, fmt.Sprintf("explanation generation panicked: %v", p))
		}
	}()

	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return Fallback(facts, fmt.Sprintf("facts could not be serialized: %v", err))
	}

	cctx, cancel := context.WithTimeout(ctx, g.deadline)
	defer cancel()

	resp, err := g.invoker.Invoke(cctx, port.ModelRequest{
		Prompt:      fmt.Sprintf(promptTemplate, factsJSON),
		MaxTokens:   g.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		log.Printf("explainer.Generator: backend call failed: %v", err)
		return Fallback(facts, fmt.Sprintf("backend error: %v", err))
	}

	parsed, err := analyzer.ParseExplanation(resp.RawText)
	if err != nil {
		log.Printf("explainer.Generator: contract violation: %v", err)
		if errors.Is(err, analyzer.ErrExplanationNotJSON) {
			return Fallback(facts, "invalid JSON returned by backend")
		}
		return Fallback(facts, "backend JSON violated the explanation schema")
	}

	return *parsed
}

// Fallback builds the deterministic explanation used when the model cannot.
// Risk is pessimistic: recorded warnings push it to high, because the reviewer
// is now looking at a result that degraded twice.
func Fallback(facts domain.ExplanationFacts, reason string) domain.GroundedExplanation {
	risk := domain.RiskMedium
	if len(facts.Warnings) > 0 {
		risk = domain.RiskHigh
	}

	limitations := []string{}
	if n := len(facts.Warnings); n > 0 {
		limitations = append(limitations, fmt.Sprintf("%d extraction warning(s) were recorded", n))
	}
	limitations = append(limitations, reason)

	return domain.GroundedExplanation{
		Explanation: fmt.Sprintf(
			"Automated analysis of %d unit(s) in %s mode completed with overall confidence %.2f. A model-generated explanation was unavailable.",
			facts.UnitCount, facts.Mode, facts.Confidence),
		Recommendation: recommendationFor(facts),
		RiskLevel:      risk,
		Assumptions:    []string{},
		Limitations:    limitations,
	}
}

func recommendationFor(facts domain.ExplanationFacts) string {
	var b strings.Builder
	b.WriteString("Review the extracted fields manually")
	if len(facts.Warnings) > 0 {
		b.WriteString(" and pay attention to the recorded warnings")
	}
	b.WriteString(".")
	return b.String()
}
