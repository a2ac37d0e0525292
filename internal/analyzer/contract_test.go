package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visara/internal/domain"
)

func TestParseExtraction_EmptyOutput(t *testing.T) {
	ext := ParseExtraction("   ")

	assert.Empty(t, ext.Fields)
	assert.Empty(t, ext.Tables)
	assert.Nil(t, ext.PageConfidence)
	assert.Equal(t, []string{"empty model output"}, ext.Warnings)
}

func TestParseExtraction_NotJSON(t *testing.T) {
	ext := ParseExtraction("the page shows a dented panel near the {left edge")

	assert.Empty(t, ext.Fields)
	assert.Equal(t, []string{"model output is not valid JSON; using empty extraction"}, ext.Warnings)
}

func TestParseExtraction_NotAnObject(t *testing.T) {
	ext := ParseExtraction(`[{"name": "serial"}]`)

	assert.Empty(t, ext.Fields)
	assert.Equal(t, []string{"model output JSON is not an object; using empty extraction"}, ext.Warnings)
}

func TestParseExtraction_MarkdownFenced(t *testing.T) {
	raw := "```json\n{\"fields\": [{\"name\": \"serial\", \"value\": \"A-100\"}], \"tables\": [], \"warnings\": []}\n```"

	ext := ParseExtraction(raw)

	require.Len(t, ext.Fields, 1)
	assert.Equal(t, "serial", ext.Fields[0].Name)
	require.NotNil(t, ext.Fields[0].Value)
	assert.Equal(t, "A-100", *ext.Fields[0].Value)
	assert.Empty(t, ext.Warnings)
}

func TestParseExtraction_DropsMalformedItemsIndividually(t *testing.T) {
	raw := `{
		"fields": [
			{"name": "serial", "value": "A-100", "confidence": {"score": 0.9}},
			"not an object",
			{"value": "nameless"},
			{"name": "status", "value": null}
		],
		"tables": [],
		"warnings": []
	}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Fields, 2)
	assert.Equal(t, "serial", ext.Fields[0].Name)
	assert.Equal(t, "status", ext.Fields[1].Name)
	assert.Nil(t, ext.Fields[1].Value)
	assert.Contains(t, ext.Warnings, "fields[1] is not an object; dropped")
	assert.Contains(t, ext.Warnings, "fields[2] has no name; dropped")
}

func TestParseExtraction_TableTolerance(t *testing.T) {
	raw := `{
		"fields": [],
		"tables": [
			{
				"table_index": 3,
				"n_rows": "bogus",
				"cells": [
					{"row": 0, "col": 1, "text": "ok"},
					{"row": 0, "col": 2, "text": null},
					"junk"
				]
			}
		]
	}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Tables, 1)
	table := ext.Tables[0]
	assert.Equal(t, 3, table.TableIndex)
	assert.Equal(t, 0, table.NRows)
	require.Len(t, table.Cells, 1)
	assert.Equal(t, "ok", table.Cells[0].Text)
}

func TestParseExtraction_TableIndexDefaultsToPosition(t *testing.T) {
	raw := `{"tables": [{"cells": []}, {"cells": []}]}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Tables, 2)
	assert.Equal(t, 0, ext.Tables[0].TableIndex)
	assert.Equal(t, 1, ext.Tables[1].TableIndex)
}

func TestParseExtraction_PageConfidenceAndWarnings(t *testing.T) {
	raw := `{
		"fields": [],
		"tables": [],
		"page_confidence": {"score": 0.45, "level": "medium"},
		"warnings": ["glare on bottom third", 42, ""]
	}`

	ext := ParseExtraction(raw)

	require.NotNil(t, ext.PageConfidence)
	require.NotNil(t, ext.PageConfidence.Score)
	assert.InDelta(t, 0.45, *ext.PageConfidence.Score, 1e-9)
	assert.Equal(t, domain.ConfidenceMedium, ext.PageConfidence.Level)
	assert.Equal(t, []string{"glare on bottom third"}, ext.Warnings)
}

func TestParseExtraction_OutOfRangeConfidenceBecomesAbsent(t *testing.T) {
	raw := `{"fields": [{"name": "serial", "confidence": {"score": 1.5}}]}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Fields, 1)
	assert.Nil(t, ext.Fields[0].Confidence)
}

func TestParseExtraction_NumericValueStringified(t *testing.T) {
	raw := `{"fields": [{"name": "count", "value": 12}]}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Fields, 1)
	require.NotNil(t, ext.Fields[0].Value)
	assert.Equal(t, "12", *ext.Fields[0].Value)
}

func TestParseExtraction_NumericNameStringified(t *testing.T) {
	raw := `{"fields": [{"name": 42, "value": "x"}]}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Fields, 1)
	assert.Equal(t, "42", ext.Fields[0].Name)
	assert.Empty(t, ext.Warnings)
}

func TestParseExtraction_NumericCellTextStringified(t *testing.T) {
	raw := `{"tables": [{"cells": [
		{"row": 1, "col": 2, "text": 7.5},
		{"row": 0, "col": 0, "text": true}
	]}]}`

	ext := ParseExtraction(raw)

	require.Len(t, ext.Tables, 1)
	require.Len(t, ext.Tables[0].Cells, 2)
	assert.Equal(t, "7.5", ext.Tables[0].Cells[0].Text)
	assert.Equal(t, "true", ext.Tables[0].Cells[1].Text)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSONObject("prefix {\"a\": 1} suffix"))
	assert.Equal(t, "", ExtractJSONObject("no braces here"))
	assert.Equal(t, "", ExtractJSONObject("} reversed {"))
}

func TestParseExplanation_Valid(t *testing.T) {
	raw := `{
		"explanation": "Surface corrosion visible along the weld seam.",
		"recommendation": "Schedule a manual re-inspection within 30 days.",
		"risk_level": "high",
		"assumptions": ["image shows the full seam"],
		"limitations": []
	}`

	exp, err := ParseExplanation(raw)

	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, exp.RiskLevel)
	assert.Equal(t, []string{"image shows the full seam"}, exp.Assumptions)
	assert.Equal(t, []string{}, exp.Limitations)
}

func TestParseExplanation_RejectsExtraKeys(t *testing.T) {
	raw := `{
		"explanation": "x",
		"recommendation": "y",
		"risk_level": "low",
		"assumptions": [],
		"limitations": [],
		"confidence": 0.9
	}`

	_, err := ParseExplanation(raw)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExplanationSchema)
}

func TestParseExplanation_RejectsMissingKeys(t *testing.T) {
	raw := `{"explanation": "x", "recommendation": "y", "risk_level": "low", "assumptions": []}`

	_, err := ParseExplanation(raw)

	assert.ErrorIs(t, err, ErrExplanationSchema)
}

func TestParseExplanation_RejectsEmptyProse(t *testing.T) {
	raw := `{"explanation": "   ", "recommendation": "y", "risk_level": "low", "assumptions": [], "limitations": []}`

	_, err := ParseExplanation(raw)

	assert.ErrorIs(t, err, ErrExplanationSchema)
}

func TestParseExplanation_RejectsUnknownRiskLevel(t *testing.T) {
	raw := `{"explanation": "x", "recommendation": "y", "risk_level": "catastrophic", "assumptions": [], "limitations": []}`

	_, err := ParseExplanation(raw)

	assert.ErrorIs(t, err, ErrExplanationSchema)
}

func TestParseExplanation_RejectsNonJSON(t *testing.T) {
	_, err := ParseExplanation("I think the part looks fine overall.")

	assert.ErrorIs(t, err, ErrExplanationNotJSON)
}
