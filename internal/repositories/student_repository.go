package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
)

// StudentRepository interface for student accounts and study plans.
type StudentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, student *models.Student) error
	List(ctx context.Context, tx *gorm.DB, filters StudentFilters) ([]*models.Student, int64, error)

	// Study plans: one per student, created on first write.
	GetStudyPlan(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudyPlan, error)
	SaveStudyPlan(ctx context.Context, tx *gorm.DB, plan *models.StudyPlan) error

	// ListDueForDelivery returns active students whose study plan schedules
	// the given weekday, for assignment scheduling.
	ListDueForDelivery(ctx context.Context, tx *gorm.DB, weekday string) ([]*models.Student, error)
}
