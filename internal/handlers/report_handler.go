package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/testprep-service/internal/services"
	"github.com/prepstack/testprep-service/internal/utils"
)

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// GenerateWeeklyReport builds (or rebuilds) the report for a given week.
// The week defaults to the current one; pass week_start=YYYY-MM-DD to pick
// another.
func (h *ReportHandler) GenerateWeeklyReport(c *gin.Context) {
	studentID, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	weekStart, ok := h.parseWeekStart(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Generating weekly report",
		"student_id", studentID, "week_start", weekStart.Format("2006-01-02"))

	resp, err := h.reportService.GenerateWeekly(c.Request.Context(), studentID, weekStart)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWeeklyReport returns a previously generated report
func (h *ReportHandler) GetWeeklyReport(c *gin.Context) {
	studentID, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	weekStart, ok := h.parseWeekStart(c)
	if !ok {
		return
	}

	resp, err := h.reportService.GetWeekly(c.Request.Context(), studentID, weekStart)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListReports returns the student's recent weekly reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	studentID, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid limit parameter",
			})
			return
		}
		limit = parsed
	}

	resp, err := h.reportService.ListByStudent(c.Request.Context(), studentID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": resp})
}

func (h *ReportHandler) parseWeekStart(c *gin.Context) (time.Time, bool) {
	raw := c.Query("week_start")
	if raw == "" {
		return time.Now().UTC(), true
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid week_start, expected YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return parsed, true
}

func (h *ReportHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Student not found",
		})
	case errors.Is(err, services.ErrReportNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Report not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
