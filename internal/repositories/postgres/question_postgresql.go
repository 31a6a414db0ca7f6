package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/cache"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question with its choices and invalidates cache
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "list:*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "scoped:*")

	return nil
}

// GetByID retrieves a question with choices in display order, cached
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%s", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).
			Preload("Choices", orderChoices).
			First(&dbQuestion, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}

	return &question, nil
}

// GetByIDWithAnalytics retrieves a question with choices and its analytics row
func (q *QuestionPostgreSQL) GetByIDWithAnalytics(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Choices", orderChoices).
		Preload("Analytics").
		First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get question with analytics: %w", err)
	}
	return &question, nil
}

// Update updates a question's own columns (choices go through ReplaceChoices)
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Omit("Choices", "Analytics").Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID)

	return nil
}

// ReplaceChoices swaps the full choice set in one statement pair. Callers
// wanting all-or-nothing semantics must run this inside a transaction.
func (q *QuestionPostgreSQL) ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID string, choices []models.QuestionChoice) error {
	db := q.getDB(tx)

	if err := db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.QuestionChoice{}).Error; err != nil {
		return fmt.Errorf("failed to delete old choices: %w", err)
	}

	for i := range choices {
		choices[i].QuestionID = questionID
	}
	if err := db.WithContext(ctx).Create(&choices).Error; err != nil {
		return fmt.Errorf("failed to create new choices: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, questionID)

	return nil
}

// SoftDelete deactivates a question. Rows stay because analytics reference them.
func (q *QuestionPostgreSQL) SoftDelete(ctx context.Context, tx *gorm.DB, id string) error {
	db := q.getDB(tx)

	result := db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id)

	return nil
}

// ===== QUERY OPERATIONS =====

// List returns an admin page of questions with total count
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	if err := query.Preload("Choices", orderChoices).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Preload("Choices", orderChoices).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	db := q.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check question existence: %w", err)
	}
	return count > 0, nil
}

// FindScoped is the generation fetch: active questions for one locale tier
// (or any tier when Scope is nil) minus the exclusion set, choices preloaded
// in display order. No ordering promise beyond what the store yields.
func (q *QuestionPostgreSQL) FindScoped(ctx context.Context, tx *gorm.DB, filters repositories.ScopedQuestionFilters) ([]*models.Question, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyScopedFilters(query, filters)
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var questions []*models.Question
	if err := query.Preload("Choices", orderChoices).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch scoped questions: %w", err)
	}

	return questions, nil
}

func (q *QuestionPostgreSQL) CountScoped(ctx context.Context, tx *gorm.DB, filters repositories.ScopedQuestionFilters) (int64, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyScopedFilters(query, filters)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count scoped questions: %w", err)
	}
	return count, nil
}

// ===== HELPERS =====

func orderChoices(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC")
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
