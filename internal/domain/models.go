package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractedField is one key/value datum read from a unit.
type ExtractedField struct {
	Name       string      `json:"name"`
	Value      *string     `json:"value"`
	Confidence *Confidence `json:"confidence,omitempty"`
}

// TableCell is a single table cell with optional confidence.
type TableCell struct {
	Row        int         `json:"row"`
	Col        int         `json:"col"`
	Text       string      `json:"text"`
	Confidence *Confidence `json:"confidence,omitempty"`
}

// ExtractedTable is a normalized table. Cells are a flat sparse list, not a
// dense grid; grid materialization is a presentation concern (see export).
type ExtractedTable struct {
	TableIndex int         `json:"table_index"`
	NRows      int         `json:"n_rows"`
	NCols      int         `json:"n_cols"`
	Cells      []TableCell `json:"cells"`
	Confidence *Confidence `json:"confidence,omitempty"`
}

// PageExtraction is the result for a single unit (one page or image).
// It is created exactly once, by either a successful parse or a degraded
// fallback, and never mutated afterwards.
type PageExtraction struct {
	PageIndex      int               `json:"page_index"`
	Fields         []ExtractedField  `json:"fields"`
	Tables         []ExtractedTable  `json:"tables"`
	PageConfidence *Confidence       `json:"page_confidence,omitempty"`
	Warnings       []string          `json:"warnings"`
	EngineMeta     map[string]string `json:"engine_meta"`
}

// DocumentResult is the batch-level extraction output folded from all units.
type DocumentResult struct {
	Pages         []PageExtraction  `json:"pages"`
	DocConfidence *Confidence       `json:"doc_confidence,omitempty"`
	Warnings      []string          `json:"warnings"`
	EngineMeta    map[string]string `json:"engine_meta"`
}

// GroundedExplanation is the exact five-key contract produced by the
// explainer. No extra keys are ever carried.
type GroundedExplanation struct {
	Explanation    string    `json:"explanation"`
	Recommendation string    `json:"recommendation"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Assumptions    []string  `json:"assumptions"`
	Limitations    []string  `json:"limitations"`
}

// ExplanationFacts is the structured input handed to the explainer. It only
// ever carries already-extracted facts, never raw media.
type ExplanationFacts struct {
	TaskType   string           `json:"task_type"`
	Mode       AnalysisMode     `json:"mode"`
	Confidence float64          `json:"confidence"`
	Warnings   []string         `json:"warnings"`
	Fields     []ExtractedField `json:"fields,omitempty"`
	TableCount int              `json:"table_count"`
	UnitCount  int              `json:"unit_count"`
}

// Inspection is a persisted inspection record.
type Inspection struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Kind        InspectionKind  `db:"kind" json:"kind"`
	Mode        AnalysisMode    `db:"mode" json:"mode"`
	FileName    string          `db:"file_name" json:"file_name"`
	ContentType string          `db:"content_type" json:"content_type"`
	FileSize    int64           `db:"file_size" json:"file_size"`
	S3Bucket    string          `db:"s3_bucket" json:"-"`
	S3Key       string          `db:"s3_key" json:"-"`
	Result      json.RawMessage `db:"result" json:"result"`
	Explanation json.RawMessage `db:"explanation" json:"explanation"`
	Confidence  float64         `db:"confidence" json:"confidence"`
	RiskLevel   RiskLevel       `db:"risk_level" json:"risk_level"`
	WarningsN   int             `db:"warnings_n" json:"warnings_n"`
	UnitsN      int             `db:"units_n" json:"units_n"`
	Backend     string          `db:"backend" json:"backend"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
