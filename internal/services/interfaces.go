package services

import (
	"context"
	"time"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/validator"
)

// ===== GENERATION DTOs =====

// GenerateQuestionsRequest selects a personalized question set.
type GenerateQuestionsRequest struct {
	Subject            models.Subject         `json:"subject" validate:"required,subject"`
	Difficulty         models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`
	Count              int                    `json:"count" validate:"min=0,max=50"`
	Country            string                 `json:"country" validate:"omitempty,country_code"`
	StateRegion        string                 `json:"state_region" validate:"omitempty,max=64"`
	ExcludeQuestionIDs []string               `json:"exclude_question_ids" validate:"omitempty,max=500"`
}

type GenerationResponse struct {
	Questions      []*QuestionResponse `json:"questions"`
	Count          int                 `json:"count"`
	RequestedCount int                 `json:"requested_count"`
	Localization   LocalizationInfo    `json:"localization"`
}

type LocalizationInfo struct {
	Country     string `json:"country,omitempty"`
	StateRegion string `json:"state_region,omitempty"`
}

// ===== QUESTION DTOs =====

type QuestionResponse struct {
	ID          string                 `json:"id"`
	Stem        string                 `json:"stem"`
	Subject     models.Subject         `json:"subject"`
	Difficulty  models.DifficultyLevel `json:"difficulty"`
	LocaleScope string                 `json:"locale_scope"`
	Tags        []string               `json:"tags,omitempty"`
	IsActive    bool                   `json:"is_active"`
	CreatedAt   time.Time              `json:"created_at"`
	Choices     []ChoiceResponse       `json:"choices"`
	Analytics   *AnalyticsResponse     `json:"analytics,omitempty"`
}

type ChoiceResponse struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation,omitempty"`
	Order       int     `json:"order"`
}

type ListQuestionsRequest struct {
	Subject     *models.Subject         `form:"subject" validate:"omitempty,subject"`
	Difficulty  *models.DifficultyLevel `form:"difficulty" validate:"omitempty,difficulty_level"`
	LocaleScope *string                 `form:"locale_scope" validate:"omitempty,locale_scope"`
	IsActive    *bool                   `form:"is_active"`
	Search      string                  `form:"search" validate:"omitempty,max=200"`
	Page        int                     `form:"page" validate:"omitempty,min=1"`
	PageSize    int                     `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy      string                  `form:"sort_by"`
	SortOrder   string                  `form:"sort_order"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"page_size"`
}

type BulkImportResponse struct {
	Message    string           `json:"message"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Total      int              `json:"total"`
	Errors     []BulkImportItem `json:"errors,omitempty"`
}

type BulkImportItem struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ===== ANALYTICS DTOs =====

// AnswerEventRequest is one recorded answer. IsCorrect carries no required
// tag since false is a legitimate value.
type AnswerEventRequest struct {
	QuestionID       string `json:"question_id" validate:"required"`
	IsCorrect        bool   `json:"is_correct"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0,max=86400"`
}

type BatchAnalyticsRequest struct {
	Analytics []AnswerEventRequest `json:"analytics" validate:"required,min=1,max=50,dive"`
}

type BatchAnalyticsResponse struct {
	Message    string           `json:"message"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Total      int              `json:"total"`
	Errors     []BatchItemError `json:"errors,omitempty"`
}

type BatchItemError struct {
	Index      int    `json:"index"`
	QuestionID string `json:"question_id"`
	Error      string `json:"error"`
}

type AnalyticsResponse struct {
	QuestionID   string                 `json:"question_id"`
	Question     *AnalyticsQuestionInfo `json:"question,omitempty"`
	TimesUsed    int                    `json:"times_used"`
	CorrectCount int                    `json:"correct_count"`
	CorrectRate  float64                `json:"correct_rate"`
	AvgTimeSpent int                    `json:"avg_time_spent"`
	LastUsed     *time.Time             `json:"last_used,omitempty"`
}

// AnalyticsQuestionInfo is the question summary attached to reporting rows.
type AnalyticsQuestionInfo struct {
	Stem        string                 `json:"stem"`
	Subject     models.Subject         `json:"subject"`
	Difficulty  models.DifficultyLevel `json:"difficulty"`
	LocaleScope string                 `json:"locale_scope"`
}

// ===== STUDENT DTOs =====

type StudentResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Grade       int                `json:"grade"`
	Country     string             `json:"country"`
	StateRegion *string            `json:"state_region,omitempty"`
	EmailOptIn  bool               `json:"email_opt_in"`
	CreatedAt   time.Time          `json:"created_at"`
	StudyPlan   *StudyPlanResponse `json:"study_plan,omitempty"`
}

type StudyPlanResponse struct {
	ID               string                 `json:"id"`
	Subjects         []models.Subject       `json:"subjects"`
	ScheduleDays     []string               `json:"schedule_days"`
	QuestionsPerDay  int                    `json:"questions_per_day"`
	TargetDifficulty models.DifficultyLevel `json:"target_difficulty"`
	DeliveryChannels []string               `json:"delivery_channels"`
	IsActive         bool                   `json:"is_active"`
}

// EmailPreferenceRequest toggles a student's report email opt-in. The field
// is a pointer so an explicit false is distinguishable from an absent body.
type EmailPreferenceRequest struct {
	EmailOptIn *bool `json:"email_opt_in" validate:"required"`
}

type ListStudentsRequest struct {
	Grade    *int    `form:"grade" validate:"omitempty,min=1,max=12"`
	Country  *string `form:"country" validate:"omitempty,country_code"`
	Search   string  `form:"search" validate:"omitempty,max=200"`
	Page     int     `form:"page" validate:"omitempty,min=1"`
	PageSize int     `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type StudentListResponse struct {
	Students []*StudentResponse `json:"students"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// ===== ASSIGNMENT DTOs =====

type ScheduleAssignmentRequest struct {
	StudentID    string                 `json:"student_id" validate:"required"`
	Subject      models.Subject         `json:"subject" validate:"required,subject"`
	Difficulty   models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`
	Count        int                    `json:"count" validate:"required,min=1,max=50"`
	ScheduledFor *time.Time             `json:"scheduled_for"`
}

type AssignmentResponse struct {
	ID           string                  `json:"id"`
	StudentID    string                  `json:"student_id"`
	Subject      models.Subject          `json:"subject"`
	Difficulty   models.DifficultyLevel  `json:"difficulty"`
	Status       models.AssignmentStatus `json:"status"`
	ScheduledFor time.Time               `json:"scheduled_for"`
	DeliveredAt  *time.Time              `json:"delivered_at,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
	Questions    []*QuestionResponse     `json:"questions,omitempty"`
}

// DeliveryRunResponse summarizes one pass of study-plan driven delivery.
type DeliveryRunResponse struct {
	Weekday   string             `json:"weekday"`
	Delivered int                `json:"delivered"`
	Failed    int                `json:"failed"`
	Errors    []DeliveryRunError `json:"errors,omitempty"`
}

type DeliveryRunError struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

type SubmitAnswersRequest struct {
	Answers []SubmittedAnswer `json:"answers" validate:"required,min=1,max=50,dive"`
}

type SubmittedAnswer struct {
	QuestionID       string `json:"question_id" validate:"required"`
	SelectedChoiceID string `json:"selected_choice_id" validate:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0,max=86400"`
}

type SubmissionResultResponse struct {
	AssignmentID string                `json:"assignment_id"`
	Score        float64               `json:"score"`
	Correct      int                   `json:"correct"`
	Total        int                   `json:"total"`
	Results      []AnswerGradingResult `json:"results"`
}

type AnswerGradingResult struct {
	QuestionID      string  `json:"question_id"`
	IsCorrect       bool    `json:"is_correct"`
	CorrectChoiceID string  `json:"correct_choice_id"`
	Explanation     *string `json:"explanation,omitempty"`
}

// ===== REPORT DTOs =====

type WeeklyReportResponse struct {
	ID                   string           `json:"id"`
	StudentID            string           `json:"student_id"`
	WeekStart            time.Time        `json:"week_start"`
	AssignmentsScheduled int              `json:"assignments_scheduled"`
	AssignmentsCompleted int              `json:"assignments_completed"`
	QuestionsAnswered    int              `json:"questions_answered"`
	CorrectAnswers       int              `json:"correct_answers"`
	AverageScore         float64          `json:"average_score"`
	TotalTimeSeconds     int              `json:"total_time_seconds"`
	StrongSubjects       []models.Subject `json:"strong_subjects"`
	WeakSubjects         []models.Subject `json:"weak_subjects"`
	Recommendations      []string         `json:"recommendations"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// ===== AUTH DTOs =====

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Admin     AdminInfo `json:"admin"`
}

type AdminInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ===== SERVICE INTERFACES =====

// GenerationService builds personalized question sets with locale fallback.
type GenerationService interface {
	Generate(ctx context.Context, req *GenerateQuestionsRequest) (*GenerationResponse, error)
}

// AnalyticsService records answer events and serves the reporting view.
type AnalyticsService interface {
	RecordAnswer(ctx context.Context, req *AnswerEventRequest) error
	RecordAnswerBatch(ctx context.Context, req *BatchAnalyticsRequest) (*BatchAnalyticsResponse, error)
	GetAnalytics(ctx context.Context, questionID *string) ([]*AnalyticsResponse, error)
	ExportAnalytics(ctx context.Context) ([]byte, error)
}

// QuestionService manages the question bank.
type QuestionService interface {
	Create(ctx context.Context, req *validator.QuestionCreateRequest, createdBy string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id string) (*QuestionResponse, error)
	Update(ctx context.Context, id string, req *validator.QuestionUpdateRequest) (*QuestionResponse, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req *ListQuestionsRequest) (*QuestionListResponse, error)
	BulkImport(ctx context.Context, req *validator.BulkImportRequest, createdBy string) (*BulkImportResponse, error)
}

// StudentService manages student accounts and study plans.
type StudentService interface {
	Register(ctx context.Context, req *validator.StudentRegisterRequest) (*StudentResponse, error)
	GetByID(ctx context.Context, id string) (*StudentResponse, error)
	List(ctx context.Context, req *ListStudentsRequest) (*StudentListResponse, error)
	UpdateEmailPreference(ctx context.Context, studentID string, optIn bool) (*StudentResponse, error)
	GetStudyPlan(ctx context.Context, studentID string) (*StudyPlanResponse, error)
	SaveStudyPlan(ctx context.Context, studentID string, req *validator.StudyPlanRequest) (*StudyPlanResponse, error)
}

// AssignmentService assembles, delivers and grades practice assignments.
type AssignmentService interface {
	Schedule(ctx context.Context, req *ScheduleAssignmentRequest) (*AssignmentResponse, error)
	Deliver(ctx context.Context, assignmentID string) (*AssignmentResponse, error)

	// RunScheduledDelivery schedules and delivers an assignment for every
	// student whose study plan names asOf's weekday. Per-student failures
	// are isolated and tallied rather than aborting the pass.
	RunScheduledDelivery(ctx context.Context, asOf time.Time) (*DeliveryRunResponse, error)
	GetByID(ctx context.Context, assignmentID string) (*AssignmentResponse, error)
	ListByStudent(ctx context.Context, studentID string, status *models.AssignmentStatus) ([]*AssignmentResponse, error)
	SubmitAnswers(ctx context.Context, assignmentID string, req *SubmitAnswersRequest) (*SubmissionResultResponse, error)
}

// ReportService aggregates weekly progress reports.
type ReportService interface {
	GenerateWeekly(ctx context.Context, studentID string, weekStart time.Time) (*WeeklyReportResponse, error)
	GetWeekly(ctx context.Context, studentID string, weekStart time.Time) (*WeeklyReportResponse, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*WeeklyReportResponse, error)
}

// AuthService authenticates admins and verifies bearer tokens.
type AuthService interface {
	Login(ctx context.Context, req *validator.AdminLoginRequest) (*LoginResponse, error)
	VerifyToken(tokenString string) (*AdminClaims, error)
}

// ServiceManager provides access to all initialized services.
type ServiceManager interface {
	Generation() GenerationService
	Analytics() AnalyticsService
	Question() QuestionService
	Student() StudentService
	Assignment() AssignmentService
	Report() ReportService
	Auth() AuthService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
