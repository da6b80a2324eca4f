package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
)

const defaultReportLimit = 50

// ReportHandler serves integrity reports to the admin console.
type ReportHandler struct {
	reports  *service.ReportService
	sessions *service.SessionManager
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *service.ReportService, sessions *service.SessionManager) *ReportHandler {
	return &ReportHandler{reports: reports, sessions: sessions}
}

// Get godoc
// GET /api/v1/admin/reports/:session_id
// Falls back to the in-memory exam log when the worker has not flushed
// the session to Postgres yet.
func (h *ReportHandler) Get(c *gin.Context) {
	sessionID := c.Param("session_id")

	report, err := h.reports.Get(c.Request.Context(), sessionID)
	if err == nil {
		response.Success(c, http.StatusOK, report)
		return
	}
	if !errors.Is(err, service.ErrReportNotFound) {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	examLog, liveErr := h.sessions.Result(c.Request.Context(), sessionID)
	if liveErr != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, h.reports.FromLog(c.Request.Context(), examLog))
}

// ListRecent godoc
// GET /api/v1/admin/reports?limit=50
func (h *ReportHandler) ListRecent(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
			return
		}
		limit = parsed
	}

	reports, err := h.reports.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}
