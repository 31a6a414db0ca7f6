package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Questions.Question").
		Preload("Questions.Question.Choices", orderChoices).
		Preload("Submissions").
		First(&assignment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Omit("Questions", "Submissions").Save(assignment).Error; err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

func (a *AssignmentPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	db := a.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Assignment{}).Where("student_id = ?", studentID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	query = query.Order("scheduled_for DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var assignments []*models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}

	return assignments, total, nil
}

func (a *AssignmentPostgreSQL) CreateSubmissions(ctx context.Context, tx *gorm.DB, submissions []*models.AssignmentSubmission) error {
	if len(submissions) == 0 {
		return nil
	}

	db := a.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(submissions, 100).Error; err != nil {
		return fmt.Errorf("failed to create submissions: %w", err)
	}
	return nil
}

// GetSubmissionsInRange returns all of one student's submissions with
// submitted_at in [from, to), for weekly report aggregation.
func (a *AssignmentPostgreSQL) GetSubmissionsInRange(ctx context.Context, tx *gorm.DB, studentID string, from, to time.Time) ([]*models.AssignmentSubmission, error) {
	db := a.getDB(tx)

	var submissions []*models.AssignmentSubmission
	if err := db.WithContext(ctx).
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Where("assignments.student_id = ?", studentID).
		Where("assignment_submissions.submitted_at >= ? AND assignment_submissions.submitted_at < ?", from, to).
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to get submissions in range: %w", err)
	}

	return submissions, nil
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
