package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/cache"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type StudentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewStudentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.StudentRepository {
	return &StudentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *StudentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(student).Error; err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, s.cacheManager.Student, "list:*")

	return nil
}

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	db := s.getDB(tx)
	cacheKey := fmt.Sprintf("id:%s", id)
	var student models.Student

	err := s.cacheManager.Student.CacheOrExecute(ctx, cacheKey, &student, cache.StudentCacheConfig.TTL, func() (interface{}, error) {
		var dbStudent models.Student
		if err := db.WithContext(ctx).Preload("StudyPlan").First(&dbStudent, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to get student: %w", err)
		}
		return &dbStudent, nil
	})

	if err != nil {
		return nil, err
	}

	return &student, nil
}

func (s *StudentPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Student, error) {
	db := s.getDB(tx)
	var student models.Student
	if err := db.WithContext(ctx).First(&student, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student by email: %w", err)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := s.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Student{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check student email: %w", err)
	}
	return count > 0, nil
}

func (s *StudentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Omit("StudyPlan", "Assignments").Save(student).Error; err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	cache.InvalidateStudentCache(ctx, s.cacheManager, student.ID)

	return nil
}

func (s *StudentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	db := s.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Student{})
	query = s.helpers.ApplyStudentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	query = s.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)

	var students []*models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}

	return students, total, nil
}

func (s *StudentPostgreSQL) GetStudyPlan(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudyPlan, error) {
	db := s.getDB(tx)
	var plan models.StudyPlan
	if err := db.WithContext(ctx).First(&plan, "student_id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}
	return &plan, nil
}

func (s *StudentPostgreSQL) SaveStudyPlan(ctx context.Context, tx *gorm.DB, plan *models.StudyPlan) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("failed to save study plan: %w", err)
	}

	cache.InvalidateStudentCache(ctx, s.cacheManager, plan.StudentID)

	return nil
}

// ListDueForDelivery finds active students whose study plan schedules the
// given weekday. The schedule lives in a JSONB array of weekday names.
func (s *StudentPostgreSQL) ListDueForDelivery(ctx context.Context, tx *gorm.DB, weekday string) ([]*models.Student, error) {
	db := s.getDB(tx)

	var students []*models.Student
	if err := db.WithContext(ctx).
		Joins("JOIN study_plans ON study_plans.student_id = students.id").
		Where("study_plans.is_active = ?", true).
		Where("study_plans.schedule_days @> ?", fmt.Sprintf(`["%s"]`, strings.ToUpper(weekday))).
		Preload("StudyPlan").
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list students due for delivery: %w", err)
	}

	return students, nil
}

func (s *StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
