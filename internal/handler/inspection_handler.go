package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"visara/internal/domain"
	"visara/internal/service"
)

// InspectionHandler handles stored inspection endpoints.
type InspectionHandler struct {
	inspSvc service.InspectionService
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(inspSvc service.InspectionService) *InspectionHandler {
	return &InspectionHandler{inspSvc: inspSvc}
}

// List handles GET /api/v1/inspections
func (h *InspectionHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	inspections, total, err := h.inspSvc.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, inspections, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/inspections/:id
func (h *InspectionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	insp, err := h.inspSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, insp)
}

// Delete handles DELETE /api/v1/inspections/:id
func (h *InspectionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.inspSvc.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"deleted": id})
}

// ExportXLSX handles GET /api/v1/inspections/:id/export
func (h *InspectionHandler) ExportXLSX(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, filename, err := h.inspSvc.ExportXLSX(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// MediaURL handles GET /api/v1/inspections/:id/media/:unit
func (h *InspectionHandler) MediaURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	unitIndex, err := strconv.Atoi(c.Param("unit"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_UNIT", "unit index must be an integer")
		return
	}

	url, err := h.inspSvc.MediaURL(c.Request.Context(), id, unitIndex)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"url": url})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		HandleError(c, domain.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
