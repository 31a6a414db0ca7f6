package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/testprep-service/internal/services"
	"github.com/prepstack/testprep-service/internal/utils"
	"github.com/prepstack/testprep-service/internal/validator"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, logger utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
	}
}

// RecordAnswer folds one answer event into a question's rolling stats
func (h *AnalyticsHandler) RecordAnswer(c *gin.Context) {
	var req services.AnswerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.analyticsService.RecordAnswer(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer recorded"})
}

// RecordAnswerBatch processes up to 50 answer events in one call
func (h *AnalyticsHandler) RecordAnswerBatch(c *gin.Context) {
	var req services.BatchAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Recording analytics batch", "size", len(req.Analytics))

	resp, err := h.analyticsService.RecordAnswerBatch(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// GetAnalytics returns stats for one question, or the most-used questions
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	var questionID *string
	if id := c.Query("question_id"); id != "" {
		questionID = &id
	}

	rows, err := h.analyticsService.GetAnalytics(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": rows})
}

// ExportAnalytics streams the analytics table as an xlsx workbook
func (h *AnalyticsHandler) ExportAnalytics(c *gin.Context) {
	h.LogRequest(c, "Exporting analytics workbook")

	data, err := h.analyticsService.ExportAnalytics(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="question-analytics.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AnalyticsHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{"rule": businessRuleError.Rule},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found",
		})
	case errors.Is(err, services.ErrAnalyticsNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No analytics recorded for this question",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
