package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/services"
	"github.com/prepstack/testprep-service/internal/utils"
	"github.com/prepstack/testprep-service/internal/validator"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
	}
}

// ScheduleAssignment generates and schedules a practice set for a student
func (h *AssignmentHandler) ScheduleAssignment(c *gin.Context) {
	var req services.ScheduleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Scheduling assignment",
		"student_id", req.StudentID, "subject", req.Subject, "count", req.Count)

	resp, err := h.assignmentService.Schedule(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// RunScheduledDelivery triggers the study-plan delivery pass for today
func (h *AssignmentHandler) RunScheduledDelivery(c *gin.Context) {
	h.LogRequest(c, "Running scheduled delivery pass")

	resp, err := h.assignmentService.RunScheduledDelivery(c.Request.Context(), time.Now())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeliverAssignment marks a scheduled assignment as delivered
func (h *AssignmentHandler) DeliverAssignment(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Delivering assignment", "assignment_id", id)

	resp, err := h.assignmentService.Deliver(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAssignment returns one assignment with its questions
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.assignmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListStudentAssignments lists a student's assignments, optionally by status
func (h *AssignmentHandler) ListStudentAssignments(c *gin.Context) {
	studentID, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	var status *models.AssignmentStatus
	if raw := c.Query("status"); raw != "" {
		candidate := models.AssignmentStatus(raw)
		if !candidate.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid assignment status",
			})
			return
		}
		status = &candidate
	}

	resp, err := h.assignmentService.ListByStudent(c.Request.Context(), studentID, status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": resp})
}

// SubmitAnswers grades a delivered assignment
func (h *AssignmentHandler) SubmitAnswers(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting assignment answers",
		"assignment_id", id, "answers", len(req.Answers))

	resp, err := h.assignmentService.SubmitAnswers(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AssignmentHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assignment not found",
		})
	case errors.Is(err, services.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Student not found",
		})
	case errors.Is(err, services.ErrAssignmentNotDeliverable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assignment is not in a deliverable state",
		})
	case errors.Is(err, services.ErrAssignmentAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assignment already completed",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
