package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
)

// AssignmentRepository interface for practice assignments and submissions.
type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AssignmentFilters) ([]*models.Assignment, int64, error)

	CreateSubmissions(ctx context.Context, tx *gorm.DB, submissions []*models.AssignmentSubmission) error
	GetSubmissionsInRange(ctx context.Context, tx *gorm.DB, studentID string, from, to time.Time) ([]*models.AssignmentSubmission, error)
}

// ReportRepository interface for weekly progress reports.
type ReportRepository interface {
	// Save overwrites any existing report for the same (student, week).
	Save(ctx context.Context, tx *gorm.DB, report *models.WeeklyReport) error
	GetByStudentWeek(ctx context.Context, tx *gorm.DB, studentID string, weekStart time.Time) (*models.WeeklyReport, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]*models.WeeklyReport, error)
}

// AdminRepository interface for admin accounts.
type AdminRepository interface {
	Create(ctx context.Context, tx *gorm.DB, admin *models.Admin) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Admin, error)
	Update(ctx context.Context, tx *gorm.DB, admin *models.Admin) error
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Subject     *models.Subject         `json:"subject"`
	Difficulty  *models.DifficultyLevel `json:"difficulty"`
	LocaleScope *string                 `json:"locale_scope"`
	IsActive    *bool                   `json:"is_active"`
	Search      string                  `json:"search"` // matched against the stem
	Limit       int                     `json:"limit"`
	Offset      int                     `json:"offset"`
	SortBy      string                  `json:"sort_by"`    // "created_at", "subject", "difficulty"
	SortOrder   string                  `json:"sort_order"` // "asc", "desc"
}

// ScopedQuestionFilters drives the generation fetch path. A nil Scope means
// any scope (the final fallback pass); an empty exclusion set is valid.
type ScopedQuestionFilters struct {
	Subject    models.Subject          `json:"subject"`
	Difficulty models.DifficultyLevel  `json:"difficulty"`
	Scope      *string                 `json:"scope"`
	Limit      int                     `json:"limit"`
	ExcludeIDs []string                `json:"exclude_ids"`
}

type StudentFilters struct {
	Grade   *int    `json:"grade"`
	Country *string `json:"country"`
	Search  string  `json:"search"` // matched against name and email
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

type AssignmentFilters struct {
	Status *models.AssignmentStatus `json:"status"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}
