package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	List(ctx context.Context) []dto.TimetableEntity
	Fetch(ctx context.Context, entityID string) (*dto.TimetableTable, error)
	OpenCSV(ctx context.Context, entityID string) (*os.File, string, error)
	RenderPDF(ctx context.Context, entityID string) ([]byte, string, error)
}

// TimetableHandler exposes the timetable generation endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a conflict-free weekly timetable
// @Description Runs the backtracking allocator over the submitted sections and persists one CSV per section and per teacher.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List entities from the latest generated timetable
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	entities := h.service.List(c.Request.Context())
	response.JSON(c, http.StatusOK, entities, map[string]any{"count": len(entities)})
}

// Fetch godoc
// @Summary Fetch the generated table for one section or teacher
// @Tags Timetables
// @Produce json
// @Param id path string true "Section or teacher identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Fetch(c *gin.Context) {
	table, err := h.service.Fetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, table, nil)
}

// Download godoc
// @Summary Download one generated table as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section or teacher identifier"
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id}/download [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	entityID := c.Param("id")
	format := c.DefaultQuery("format", "csv")

	switch format {
	case "csv":
		file, filename, err := h.service.OpenCSV(c.Request.Context(), entityID)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat timetable file"))
			return
		}
		c.DataFromReader(http.StatusOK, info.Size(), "text/csv", file, map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
		})
	case "pdf":
		payload, filename, err := h.service.RenderPDF(c.Request.Context(), entityID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
