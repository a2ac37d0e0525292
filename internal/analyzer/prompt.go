package analyzer

import (
	"fmt"
	"strings"

	"visara/internal/domain"
)

// tightenSuffix is appended to the prompt after a contract-invalid attempt.
const tightenSuffix = "IMPORTANT: Return ONLY valid JSON. No markdown. No extra text."

// PageContext carries optional caller hints that steer extraction.
type PageContext struct {
	DocumentType   string
	ExpectedFields []string
}

// BuildExtractionPrompt assembles the extraction instruction for one unit.
// Fast mode asks for fields only; full mode adds table reconstruction.
func BuildExtractionPrompt(mode domain.AnalysisMode, pctx *PageContext) string {
	var b strings.Builder

	b.WriteString("You are a visual document inspector. Examine the attached page and extract its contents.\n\n")
	b.WriteString("Return a single JSON object with exactly these keys:\n")
	b.WriteString(`  "fields": list of {"name": string, "value": string or null, "confidence": {"score": number 0..1 or null, "level": "low"|"medium"|"high" or null}}` + "\n")

	if mode == domain.ModeFull {
		b.WriteString(`  "tables": list of {"table_index": int, "n_rows": int, "n_cols": int, "cells": [{"row": int, "col": int, "text": string, "confidence": {...}}], "confidence": {...}}` + "\n")
	} else {
		b.WriteString(`  "tables": [] (leave empty in this mode)` + "\n")
	}

	b.WriteString(`  "page_confidence": {"score": number 0..1 or null, "level": string or null} for the page overall` + "\n")
	b.WriteString(`  "warnings": list of strings describing anything you could not read reliably` + "\n\n")
	b.WriteString("Use null for values you cannot read. Do not invent content that is not visible on the page.\n")

	if pctx != nil {
		if pctx.DocumentType != "" {
			b.WriteString(fmt.Sprintf("\nThe document is expected to be a %s.\n", pctx.DocumentType))
		}
		if len(pctx.ExpectedFields) > 0 {
			b.WriteString(fmt.Sprintf("Look in particular for these fields: %s.\n", strings.Join(pctx.ExpectedFields, ", ")))
		}
	}

	return b.String()
}

// TightenPrompt is the corrective transform applied between attempts when the
// model returned output that violated the JSON contract. Idempotent: the
// suffix is appended once.
func TightenPrompt(prompt string) string {
	if strings.Contains(prompt, tightenSuffix) {
		return prompt
	}
	return prompt + "\n\n" + tightenSuffix
}
