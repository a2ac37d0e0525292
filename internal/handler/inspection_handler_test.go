package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"visara/internal/domain"
	"visara/internal/handler"
	"visara/mocks"
)

func inspectionRouter(svc *mocks.MockInspectionService) *gin.Engine {
	r := gin.New()
	h := handler.NewInspectionHandler(svc)
	r.GET("/inspections", h.List)
	r.GET("/inspections/:id", h.GetByID)
	r.DELETE("/inspections/:id", h.Delete)
	r.GET("/inspections/:id/export", h.ExportXLSX)
	r.GET("/inspections/:id/media/:unit", h.MediaURL)
	return r
}

func TestList_PaginationEnvelope(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	svc.On("List", mock.Anything, 40, 20).
		Return([]domain.Inspection{{ID: uuid.New()}, {ID: uuid.New()}}, 57, nil)

	req := httptest.NewRequest(http.MethodGet, "/inspections?offset=40&limit=20", nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 57, resp.Meta.Total)
	assert.Equal(t, 40, resp.Meta.Offset)
	assert.Equal(t, 20, resp.Meta.Limit)
}

func TestList_BadLimitFallsBackToDefault(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	svc.On("List", mock.Anything, 0, 20).Return([]domain.Inspection{}, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/inspections?limit=5000", nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertCalled(t, "List", mock.Anything, 0, 20)
}

func TestGetByID_MalformedIDIs404(t *testing.T) {
	svc := new(mocks.MockInspectionService)

	req := httptest.NewRequest(http.MethodGet, "/inspections/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	id := uuid.New()
	svc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/inspections/"+id.String(), nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestExportXLSX_SetsAttachmentHeaders(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	id := uuid.New()
	svc.On("ExportXLSX", mock.Anything, id).
		Return([]byte("workbook-bytes"), "inspection.xlsx", nil)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/inspections/%s/export", id), nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="inspection.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, "workbook-bytes", rec.Body.String())
}

func TestMediaURL_NonIntegerUnit(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/inspections/%s/media/first", id), nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "MediaURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_Success(t *testing.T) {
	svc := new(mocks.MockInspectionService)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/inspections/"+id.String(), nil)
	rec := httptest.NewRecorder()

	inspectionRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertNumberOfCalls(t, "Delete", 1)
}
