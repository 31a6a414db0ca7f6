package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Student struct {
	ID    string `json:"id" gorm:"primaryKey;size:36"`
	Name  string `json:"name" gorm:"not null;size:255" validate:"required,max=255"`
	Email string `json:"email" gorm:"not null;uniqueIndex;size:255" validate:"required,email"`
	Grade int    `json:"grade" gorm:"not null" validate:"min=1,max=12"`

	// Locale used to build the generation fallback hierarchy.
	Country     string  `json:"country" gorm:"not null;size:8"`
	StateRegion *string `json:"state_region" gorm:"size:64"`

	EmailOptIn bool `json:"email_opt_in" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	StudyPlan   *StudyPlan   `json:"study_plan,omitempty" gorm:"foreignKey:StudentID"`
	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:StudentID"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type StudyPlan struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	StudentID string `json:"student_id" gorm:"not null;uniqueIndex;size:36"`

	Subjects          datatypes.JSON `json:"subjects" gorm:"type:jsonb"`      // []Subject
	ScheduleDays      datatypes.JSON `json:"schedule_days" gorm:"type:jsonb"` // []string, e.g. ["MONDAY","THURSDAY"]
	QuestionsPerDay   int            `json:"questions_per_day" gorm:"default:10" validate:"min=1,max=50"`
	TargetDifficulty  DifficultyLevel `json:"target_difficulty" gorm:"size:10;default:MEDIUM"`
	DeliveryChannels  datatypes.JSON `json:"delivery_channels" gorm:"type:jsonb"` // []string, e.g. ["EMAIL"]
	IsActive          bool           `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *StudyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
