package domain

// ConfidenceLevel is a coarse qualitative confidence bucket.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ValidConfidenceLevels enumerates the accepted levels.
var ValidConfidenceLevels = map[ConfidenceLevel]bool{
	ConfidenceLow:    true,
	ConfidenceMedium: true,
	ConfidenceHigh:   true,
}

// AnalysisMode controls prompt strictness and verbosity.
type AnalysisMode string

const (
	ModeFast AnalysisMode = "fast"
	ModeFull AnalysisMode = "full"
)

// ValidAnalysisModes enumerates the accepted modes.
var ValidAnalysisModes = map[AnalysisMode]bool{
	ModeFast: true,
	ModeFull: true,
}

// RiskLevel is the explainer's overall risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidRiskLevels enumerates the accepted risk levels.
var ValidRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// InspectionKind distinguishes single-image and document inspections.
type InspectionKind string

const (
	KindImage    InspectionKind = "image"
	KindDocument InspectionKind = "document"
)

// FileType represents the allowed media types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}
