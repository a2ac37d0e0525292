package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"visara/internal/domain"
)

// Warnings recorded when model output cannot be used as-is. The parser never
// fails; it degrades to an empty extraction and says why.
const (
	warnEmptyOutput   = "empty model output"
	warnNotJSON       = "model output is not valid JSON; using empty extraction"
	warnNotObject     = "model output JSON is not an object; using empty extraction"
	warnBadFieldsList = "fields is not a list; ignoring"
	warnBadTablesList = "tables is not a list; ignoring"
)

// Explanation contract failures, distinguished so the caller can report the
// right fallback reason.
var (
	ErrExplanationNotJSON = errors.New("invalid JSON returned by backend")
	ErrExplanationSchema  = errors.New("backend JSON violated the explanation schema")
)

var explanationKeys = []string{"explanation", "recommendation", "risk_level", "assumptions", "limitations"}

// Extraction is the validated, normalized result of one model call.
type Extraction struct {
	Fields         []domain.ExtractedField
	Tables         []domain.ExtractedTable
	PageConfidence *domain.Confidence
	Warnings       []string
}

// ExtractJSONObject returns the first-{ to last-} substring of text, which
// strips markdown fences and prose the model wrapped around the object.
// Returns "" when no object-shaped span exists.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// ParseExtraction validates raw model text against the extraction contract.
// It is total: any malformed input yields an empty extraction plus warnings
// describing what was wrong. Malformed items inside otherwise valid lists are
// dropped individually rather than poisoning the whole result.
func ParseExtraction(raw string) Extraction {
	obj, warnings := safeParseObject(raw)

	ext := Extraction{
		Fields:   []domain.ExtractedField{},
		Tables:   []domain.ExtractedTable{},
		Warnings: warnings,
	}
	if obj == nil {
		return ext
	}

	ext.Fields, ext.Warnings = parseFields(obj["fields"], ext.Warnings)
	ext.Tables, ext.Warnings = parseTables(obj["tables"], ext.Warnings)
	ext.PageConfidence = parseConfidence(obj["page_confidence"])
	ext.Warnings = append(ext.Warnings, parseWarnings(obj["warnings"])...)

	return ext
}

// ParseExplanation validates raw model text against the explanation contract:
// exactly the five expected keys, non-empty prose, a known risk level, and
// string lists. Unlike extraction parsing it fails hard; the caller owns the
// fallback.
func ParseExplanation(raw string) (*domain.GroundedExplanation, error) {
	candidate := ExtractJSONObject(raw)
	if candidate == "" {
		return nil, ErrExplanationNotJSON
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, ErrExplanationNotJSON
	}

	if len(obj) != len(explanationKeys) {
		return nil, fmt.Errorf("%w: expected exactly %d keys, got %d", ErrExplanationSchema, len(explanationKeys), len(obj))
	}
	for _, k := range explanationKeys {
		if _, ok := obj[k]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrExplanationSchema, k)
		}
	}

	var out domain.GroundedExplanation
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExplanationSchema, err)
	}

	if strings.TrimSpace(out.Explanation) == "" {
		return nil, fmt.Errorf("%w: explanation is empty", ErrExplanationSchema)
	}
	if strings.TrimSpace(out.Recommendation) == "" {
		return nil, fmt.Errorf("%w: recommendation is empty", ErrExplanationSchema)
	}
	if _, ok := domain.ValidRiskLevels[out.RiskLevel]; !ok {
		return nil, fmt.Errorf("%w: unknown risk_level %q", ErrExplanationSchema, out.RiskLevel)
	}
	if out.Assumptions == nil {
		out.Assumptions = []string{}
	}
	if out.Limitations == nil {
		out.Limitations = []string{}
	}

	return &out, nil
}

func safeParseObject(raw string) (map[string]interface{}, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, []string{warnEmptyOutput}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if obj, ok := parsed.(map[string]interface{}); ok {
			return obj, []string{}
		}
		return nil, []string{warnNotObject}
	}

	// Models wrap the object in prose or markdown fences often enough that a
	// second pass over the braced span pays for itself.
	if candidate := ExtractJSONObject(trimmed); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			if obj, ok := parsed.(map[string]interface{}); ok {
				return obj, []string{}
			}
		}
	}
	return nil, []string{warnNotJSON}
}

func parseFields(v interface{}, warnings []string) ([]domain.ExtractedField, []string) {
	fields := []domain.ExtractedField{}
	if v == nil {
		return fields, warnings
	}
	list, ok := v.([]interface{})
	if !ok {
		return fields, append(warnings, warnBadFieldsList)
	}

	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("fields[%d] is not an object; dropped", i))
			continue
		}
		// Scalar names survive as strings; models emit numeric names often
		// enough that dropping them loses real data.
		name := asStringPtr(obj["name"])
		if name == nil || *name == "" {
			warnings = append(warnings, fmt.Sprintf("fields[%d] has no name; dropped", i))
			continue
		}
		fields = append(fields, domain.ExtractedField{
			Name:       *name,
			Value:      asStringPtr(obj["value"]),
			Confidence: parseConfidence(obj["confidence"]),
		})
	}
	return fields, warnings
}

func parseTables(v interface{}, warnings []string) ([]domain.ExtractedTable, []string) {
	tables := []domain.ExtractedTable{}
	if v == nil {
		return tables, warnings
	}
	list, ok := v.([]interface{})
	if !ok {
		return tables, append(warnings, warnBadTablesList)
	}

	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("tables[%d] is not an object; dropped", i))
			continue
		}
		table := domain.ExtractedTable{
			TableIndex: safeInt(obj["table_index"], i),
			NRows:      safeInt(obj["n_rows"], 0),
			NCols:      safeInt(obj["n_cols"], 0),
			Cells:      []domain.TableCell{},
			Confidence: parseConfidence(obj["confidence"]),
		}

		cells, _ := obj["cells"].([]interface{})
		for _, c := range cells {
			cellObj, ok := c.(map[string]interface{})
			if !ok {
				continue
			}
			text := asStringPtr(cellObj["text"])
			if text == nil {
				continue
			}
			table.Cells = append(table.Cells, domain.TableCell{
				Row:        safeInt(cellObj["row"], 0),
				Col:        safeInt(cellObj["col"], 0),
				Text:       *text,
				Confidence: parseConfidence(cellObj["confidence"]),
			})
		}
		tables = append(tables, table)
	}
	return tables, warnings
}

func parseWarnings(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseConfidence normalizes a confidence object; anything malformed becomes
// absent rather than an error.
func parseConfidence(v interface{}) *domain.Confidence {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}

	var score *float64
	if f, ok := obj["score"].(float64); ok {
		score = &f
	}

	level := domain.ConfidenceLevel("")
	if s, ok := obj["level"].(string); ok {
		level = domain.ConfidenceLevel(s)
	}

	conf, err := domain.NewConfidence(score, level)
	if err != nil {
		return nil
	}
	if conf.Score == nil && conf.Level == "" {
		return nil
	}
	return conf
}

func asStringPtr(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	default:
		return nil
	}
}

func safeInt(v interface{}, def int) int {
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}
