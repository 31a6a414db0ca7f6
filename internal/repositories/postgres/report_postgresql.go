package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

// Save upserts on (student_id, week_start) so regeneration is idempotent
func (r *ReportPostgreSQL) Save(ctx context.Context, tx *gorm.DB, report *models.WeeklyReport) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"assignments_scheduled", "assignments_completed", "questions_answered",
				"correct_answers", "average_score", "total_time_seconds",
				"strong_subjects", "weak_subjects", "recommendations", "generated_at",
			}),
		}).
		Create(report).Error; err != nil {
		return fmt.Errorf("failed to save weekly report: %w", err)
	}
	return nil
}

func (r *ReportPostgreSQL) GetByStudentWeek(ctx context.Context, tx *gorm.DB, studentID string, weekStart time.Time) (*models.WeeklyReport, error) {
	db := r.getDB(tx)
	var report models.WeeklyReport
	if err := db.WithContext(ctx).
		First(&report, "student_id = ? AND week_start = ?", studentID, weekStart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get weekly report: %w", err)
	}
	return &report, nil
}

func (r *ReportPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]*models.WeeklyReport, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).Where("student_id = ?", studentID).Order("week_start DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reports []*models.WeeklyReport
	if err := query.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list weekly reports: %w", err)
	}
	return reports, nil
}

func (r *ReportPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
