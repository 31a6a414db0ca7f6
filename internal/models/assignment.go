package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentScheduled AssignmentStatus = "SCHEDULED"
	AssignmentDelivered AssignmentStatus = "DELIVERED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentExpired   AssignmentStatus = "EXPIRED"
)

func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentScheduled, AssignmentDelivered, AssignmentCompleted, AssignmentExpired:
		return true
	}
	return false
}

// Assignment is one generated practice set scheduled for one student.
type Assignment struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	StudentID string `json:"student_id" gorm:"not null;index;size:36"`

	Subject    Subject          `json:"subject" gorm:"not null;size:20"`
	Difficulty DifficultyLevel  `json:"difficulty" gorm:"not null;size:10"`
	Status     AssignmentStatus `json:"status" gorm:"not null;index;size:12;default:SCHEDULED"`

	ScheduledFor time.Time  `json:"scheduled_for" gorm:"not null;index"`
	DeliveredAt  *time.Time `json:"delivered_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions   []AssignmentQuestion   `json:"questions" gorm:"foreignKey:AssignmentID"`
	Submissions []AssignmentSubmission `json:"submissions,omitempty" gorm:"foreignKey:AssignmentID"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AssignmentQuestion pins a generated question into an assignment with a
// stable display order.
type AssignmentQuestion struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	AssignmentID string `json:"assignment_id" gorm:"not null;index;size:36"`
	QuestionID   string `json:"question_id" gorm:"not null;index;size:36"`
	Order        int    `json:"order" gorm:"column:display_order;not null"`

	CreatedAt time.Time `json:"created_at"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (q *AssignmentQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// AssignmentSubmission is one graded answer inside an assignment.
type AssignmentSubmission struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	AssignmentID string `json:"assignment_id" gorm:"not null;index;size:36"`
	QuestionID   string `json:"question_id" gorm:"not null;index;size:36"`

	SelectedChoiceID string `json:"selected_choice_id" gorm:"not null;size:36"`
	IsCorrect        bool   `json:"is_correct"`
	TimeSpentSeconds int    `json:"time_spent_seconds" gorm:"default:0"`

	SubmittedAt time.Time `json:"submitted_at"`
}

func (s *AssignmentSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
