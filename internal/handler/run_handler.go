package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type runReader interface {
	ListRuns(ctx context.Context, limit int) ([]models.GenerationRun, error)
	FetchRun(ctx context.Context, id string) (*models.GenerationRun, error)
}

// RunHandler exposes the generation run audit log.
type RunHandler struct {
	service runReader
}

// NewRunHandler constructs the handler.
func NewRunHandler(svc *service.TimetableService) *RunHandler {
	return &RunHandler{service: svc}
}

// List godoc
// @Summary List recent generation runs
// @Description Returns the audit log of generation requests, newest first. Requires the run log to be enabled.
// @Tags Runs
// @Produce json
// @Param limit query int false "Maximum records to return" default(20)
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /runs [get]
func (h *RunHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, map[string]any{"count": len(runs)})
}

// Fetch godoc
// @Summary Fetch one generation run
// @Tags Runs
// @Produce json
// @Param id path string true "Run identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /runs/{id} [get]
func (h *RunHandler) Fetch(c *gin.Context) {
	run, err := h.service.FetchRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
