package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WeeklyReport aggregates one student's submissions over one calendar week.
// Idempotent per (student, week_start): regeneration overwrites the row.
type WeeklyReport struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	StudentID string    `json:"student_id" gorm:"not null;index:idx_report_student_week,unique;size:36"`
	WeekStart time.Time `json:"week_start" gorm:"not null;index:idx_report_student_week,unique"`

	AssignmentsScheduled int     `json:"assignments_scheduled"`
	AssignmentsCompleted int     `json:"assignments_completed"`
	QuestionsAnswered    int     `json:"questions_answered"`
	CorrectAnswers       int     `json:"correct_answers"`
	AverageScore         float64 `json:"average_score"`     // fraction in [0,1]
	TotalTimeSeconds     int     `json:"total_time_seconds"`

	StrongSubjects  datatypes.JSON `json:"strong_subjects" gorm:"type:jsonb"`  // []Subject, >=70% correct
	WeakSubjects    datatypes.JSON `json:"weak_subjects" gorm:"type:jsonb"`    // []Subject, <50% correct with >=3 attempts
	Recommendations datatypes.JSON `json:"recommendations" gorm:"type:jsonb"` // []string

	GeneratedAt time.Time `json:"generated_at"`
}

func (r *WeeklyReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
