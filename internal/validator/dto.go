package validator

import (
	"github.com/prepstack/testprep-service/internal/models"
)

// ChoiceRequest represents one answer choice in a question request
type ChoiceRequest struct {
	Text        string  `json:"text" validate:"required,min=1,max=500"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation" validate:"omitempty,max=1000"`
	Order       int     `json:"order" validate:"required,min=1"`
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Stem        string                 `json:"stem" validate:"required,min=1,max=2000"`
	Subject     models.Subject         `json:"subject" validate:"required,subject"`
	Difficulty  models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`
	LocaleScope string                 `json:"locale_scope" validate:"omitempty,locale_scope"`
	Tags        []string               `json:"tags" validate:"omitempty,max=10,dive,min=1,max=50"`
	Choices     []ChoiceRequest        `json:"choices" validate:"required,min=2,max=6,dive"`
}

// QuestionUpdateRequest represents the request structure for updating questions.
// Choices, when present, replace the existing set wholesale.
type QuestionUpdateRequest struct {
	Stem        *string                 `json:"stem" validate:"omitempty,min=1,max=2000"`
	Subject     *models.Subject         `json:"subject" validate:"omitempty,subject"`
	Difficulty  *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	LocaleScope *string                 `json:"locale_scope" validate:"omitempty,locale_scope"`
	Tags        []string                `json:"tags" validate:"omitempty,max=10,dive,min=1,max=50"`
	IsActive    *bool                   `json:"is_active"`
	Choices     []ChoiceRequest         `json:"choices" validate:"omitempty,min=2,max=6,dive"`
}

// BulkImportRequest imports a batch of questions in one call
type BulkImportRequest struct {
	Questions []QuestionCreateRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

// StudentRegisterRequest registers a new student account
type StudentRegisterRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Email       string  `json:"email" validate:"required,email"`
	Grade       int     `json:"grade" validate:"required,min=1,max=12"`
	Country     string  `json:"country" validate:"required,country_code"`
	StateRegion *string `json:"state_region" validate:"omitempty,min=1,max=64"`
}

// StudyPlanRequest creates or replaces a student's study plan
type StudyPlanRequest struct {
	Subjects         []models.Subject       `json:"subjects" validate:"required,min=1,dive,subject"`
	ScheduleDays     []string               `json:"schedule_days" validate:"required,min=1,max=7,dive,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	QuestionsPerDay  int                    `json:"questions_per_day" validate:"required,min=1,max=50"`
	TargetDifficulty models.DifficultyLevel `json:"target_difficulty" validate:"required,difficulty_level"`
	DeliveryChannels []string               `json:"delivery_channels" validate:"required,min=1,dive,oneof=EMAIL IN_APP"`
}

// AdminLoginRequest authenticates an admin
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}
