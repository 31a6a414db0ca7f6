package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepstack/testprep-service/internal/cache"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type AnalyticsPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAnalyticsPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionAnalyticsRepository {
	return &AnalyticsPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AnalyticsPostgreSQL) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error) {
	db := a.getDB(tx)
	var analytics models.QuestionAnalytics
	if err := db.WithContext(ctx).
		Preload("Question").
		First(&analytics, "question_id = ?", questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}
	return &analytics, nil
}

// GetByQuestionIDForUpdate takes a row lock so concurrent answer recordings
// for the same question serialize instead of clobbering each other. Must run
// inside a transaction.
func (a *AnalyticsPostgreSQL) GetByQuestionIDForUpdate(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error) {
	db := a.getDB(tx)
	var analytics models.QuestionAnalytics
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&analytics, "question_id = ?", questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock analytics row: %w", err)
	}
	return &analytics, nil
}

func (a *AnalyticsPostgreSQL) Create(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(analytics).Error; err != nil {
		return fmt.Errorf("failed to create analytics: %w", err)
	}

	cache.InvalidateAnalyticsCache(ctx, a.cacheManager, analytics.QuestionID)

	return nil
}

func (a *AnalyticsPostgreSQL) Update(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(analytics).Error; err != nil {
		return fmt.Errorf("failed to update analytics: %w", err)
	}

	cache.InvalidateAnalyticsCache(ctx, a.cacheManager, analytics.QuestionID)

	return nil
}

// TopByUsage returns the most-used analytics rows for the reporting view
func (a *AnalyticsPostgreSQL) TopByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*models.QuestionAnalytics, error) {
	db := a.getDB(tx)

	cacheKey := fmt.Sprintf("top:%d", limit)
	var rows []*models.QuestionAnalytics

	err := a.cacheManager.Analytics.CacheOrExecute(ctx, cacheKey, &rows, cache.AnalyticsCacheConfig.TTL, func() (interface{}, error) {
		var dbRows []*models.QuestionAnalytics
		if err := db.WithContext(ctx).
			Preload("Question").
			Order("times_used DESC").
			Limit(limit).
			Find(&dbRows).Error; err != nil {
			return nil, fmt.Errorf("failed to get top analytics: %w", err)
		}
		return dbRows, nil
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (a *AnalyticsPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
