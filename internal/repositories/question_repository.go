package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
)

// QuestionRepository interface for question bank operations.
// The tx parameter carries an open transaction; pass nil outside one.
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error)
	GetByIDWithAnalytics(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	SoftDelete(ctx context.Context, tx *gorm.DB, id string) error

	// Choices are owned by the question and replaced wholesale, never patched.
	ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID string, choices []models.QuestionChoice) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error)
	Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// FindScoped is the generation fetch path: active questions matching
	// subject/difficulty, optionally a single locale scope, minus an
	// exclusion set, capped at Limit, with choices preloaded in display
	// order. Result ordering is whatever the store yields; callers that
	// need randomness must sample.
	FindScoped(ctx context.Context, tx *gorm.DB, filters ScopedQuestionFilters) ([]*models.Question, error)
	CountScoped(ctx context.Context, tx *gorm.DB, filters ScopedQuestionFilters) (int64, error)
}

// QuestionAnalyticsRepository interface for the per-question rolling stats rows.
type QuestionAnalyticsRepository interface {
	GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error)

	// GetByQuestionIDForUpdate takes a row lock; only valid inside a transaction.
	GetByQuestionIDForUpdate(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error)

	Create(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error
	Update(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error

	// TopByUsage returns the most-used analytics rows, timesUsed descending.
	TopByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*models.QuestionAnalytics, error)
}
