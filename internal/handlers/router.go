package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/testprep-service/internal/services"
	"github.com/prepstack/testprep-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	generationHandler *GenerationHandler
	analyticsHandler  *AnalyticsHandler
	questionHandler   *QuestionHandler
	studentHandler    *StudentHandler
	assignmentHandler *AssignmentHandler
	reportHandler     *ReportHandler
	authMiddleware    *JWTAuthMiddleware

	serviceManager services.ServiceManager
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		generationHandler: NewGenerationHandler(serviceManager.Generation(), logger),
		analyticsHandler:  NewAnalyticsHandler(serviceManager.Analytics(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), logger),
		reportHandler:     NewReportHandler(serviceManager.Report(), logger),
		authMiddleware:    NewJWTAuthMiddleware(serviceManager.Auth()),
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Admin auth
		auth := v1.Group("/auth")
		{
			auth.POST("/login", hm.authHandler.Login)
		}

		// Question bank management - admins only
		questions := v1.Group("/questions")
		questions.Use(hm.authMiddleware.RequireAdmin())
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/bulk", hm.questionHandler.BulkImport)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		// Question generation
		generation := v1.Group("/generate")
		{
			generation.POST("/questions", hm.generationHandler.GenerateQuestions)
		}

		// Usage analytics
		analytics := v1.Group("/analytics")
		{
			analytics.POST("/answers", hm.analyticsHandler.RecordAnswer)
			analytics.POST("/answers/batch", hm.analyticsHandler.RecordAnswerBatch)
			analytics.GET("/questions", hm.analyticsHandler.GetAnalytics)
			analytics.GET("/export", hm.authMiddleware.RequireAdmin(), hm.analyticsHandler.ExportAnalytics)
		}

		// Students, study plans, assignments, reports
		students := v1.Group("/students")
		{
			students.POST("", hm.studentHandler.Register)
			students.GET("", hm.authMiddleware.RequireAdmin(), hm.studentHandler.ListStudents)
			students.GET("/:id", hm.studentHandler.GetStudent)
			students.PUT("/:id/email-preference", hm.studentHandler.UpdateEmailPreference)
			students.GET("/:id/study-plan", hm.studentHandler.GetStudyPlan)
			students.PUT("/:id/study-plan", hm.studentHandler.SaveStudyPlan)
			students.GET("/:id/assignments", hm.assignmentHandler.ListStudentAssignments)
			students.POST("/:id/reports/weekly", hm.reportHandler.GenerateWeeklyReport)
			students.GET("/:id/reports/weekly", hm.reportHandler.GetWeeklyReport)
			students.GET("/:id/reports", hm.reportHandler.ListReports)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.ScheduleAssignment)
			assignments.POST("/deliver-due", hm.authMiddleware.RequireAdmin(), hm.assignmentHandler.RunScheduledDelivery)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.POST("/:id/deliver", hm.assignmentHandler.DeliverAssignment)
			assignments.POST("/:id/submit", hm.assignmentHandler.SubmitAnswers)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	status := http.StatusOK
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "testprep-service",
	}

	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}

	c.JSON(status, health)
}
