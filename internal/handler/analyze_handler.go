package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"visara/internal/domain"
	"visara/internal/middleware"
	"visara/internal/service"
)

// AnalyzeHandler handles analysis endpoints.
type AnalyzeHandler struct {
	inspSvc service.InspectionService
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(inspSvc service.InspectionService) *AnalyzeHandler {
	return &AnalyzeHandler{inspSvc: inspSvc}
}

// AnalyzeDocument handles POST /api/v1/analyze/document
//
// Multipart form: "files" (one or more, ordered), "mode", "document_type",
// "expected_fields" (comma-separated). This path is total with respect to
// backend failure: unreadable units come back as degraded pages.
func (h *AnalyzeHandler) AnalyzeDocument(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart form required")
		return
	}

	opts, err := parseAnalyzeOptions(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	insp, err := h.inspSvc.AnalyzeDocument(c.Request.Context(), form.File["files"], opts, middleware.GetEmail(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, insp)
}

// AnalyzeImage handles POST /api/v1/analyze/image
//
// Multipart form: "file" (exactly one). Backend failure surfaces here: 504
// when the model timed out, 502 when it returned unusable output.
func (h *AnalyzeHandler) AnalyzeImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		HandleError(c, domain.ErrNoFilesUploaded)
		return
	}

	opts, err := parseAnalyzeOptions(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	insp, err := h.inspSvc.AnalyzeImage(c.Request.Context(), file, opts, middleware.GetEmail(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, insp)
}

func parseAnalyzeOptions(c *gin.Context) (service.AnalyzeOptions, error) {
	mode := domain.AnalysisMode(c.DefaultPostForm("mode", string(domain.ModeFast)))
	if !domain.ValidAnalysisModes[mode] {
		return service.AnalyzeOptions{}, domain.ErrInvalidMode
	}

	var expectedFields []string
	for _, f := range strings.Split(c.PostForm("expected_fields"), ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			expectedFields = append(expectedFields, f)
		}
	}

	return service.AnalyzeOptions{
		Mode:           mode,
		DocumentType:   strings.TrimSpace(c.PostForm("document_type")),
		ExpectedFields: expectedFields,
	}, nil
}
