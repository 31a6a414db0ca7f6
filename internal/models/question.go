package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Subject string

const (
	SubjectMath      Subject = "MATH"
	SubjectScience   Subject = "SCIENCE"
	SubjectEnglish   Subject = "ENGLISH"
	SubjectHistory   Subject = "HISTORY"
	SubjectGeography Subject = "GEOGRAPHY"
	SubjectPhysics   Subject = "PHYSICS"
	SubjectChemistry Subject = "CHEMISTRY"
	SubjectBiology   Subject = "BIOLOGY"
)

func (s Subject) IsValid() bool {
	switch s {
	case SubjectMath, SubjectScience, SubjectEnglish, SubjectHistory,
		SubjectGeography, SubjectPhysics, SubjectChemistry, SubjectBiology:
		return true
	}
	return false
}

// AllSubjects lists every valid subject tag, in display order.
func AllSubjects() []Subject {
	return []Subject{
		SubjectMath, SubjectScience, SubjectEnglish, SubjectHistory,
		SubjectGeography, SubjectPhysics, SubjectChemistry, SubjectBiology,
	}
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "EASY"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHard   DifficultyLevel = "HARD"
)

func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Question struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	Stem       string          `json:"stem" gorm:"type:text;not null" validate:"required"`
	Subject    Subject         `json:"subject" gorm:"not null;index;size:20"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;index;size:10"`

	// Locale scope tag: "GLOBAL", "COUNTRY:<code>" or "STATE:<country>-<region>".
	LocaleScope string         `json:"locale_scope" gorm:"not null;index;size:64;default:GLOBAL"`
	Tags        datatypes.JSON `json:"tags" gorm:"type:jsonb"` // []string

	// Soft-delete flag. Questions are never hard-deleted once analytics reference them.
	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedBy string    `json:"created_by" gorm:"index;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Choices   []QuestionChoice   `json:"choices" gorm:"foreignKey:QuestionID"`
	Analytics *QuestionAnalytics `json:"analytics,omitempty" gorm:"foreignKey:QuestionID"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// CorrectChoice returns the single choice flagged correct, or nil when the
// invariant is broken (should never happen for persisted questions).
func (q *Question) CorrectChoice() *QuestionChoice {
	for i := range q.Choices {
		if q.Choices[i].IsCorrect {
			return &q.Choices[i]
		}
	}
	return nil
}

type QuestionChoice struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"not null;index;size:36"`

	Text        string  `json:"text" gorm:"type:text;not null" validate:"required"`
	IsCorrect   bool    `json:"is_correct" gorm:"default:false"`
	Explanation *string `json:"explanation" gorm:"type:text"`

	// 1-based, unique within the parent question.
	Order int `json:"order" gorm:"column:display_order;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *QuestionChoice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// QuestionAnalytics is the per-question rolling usage record. One row per
// question, created lazily on the first recorded answer. CorrectCount holds
// the raw integer count; CorrectRate is maintained alongside it so reporting
// queries never divide by zero themselves.
type QuestionAnalytics struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"not null;uniqueIndex;size:36"`

	TimesUsed    int     `json:"times_used" gorm:"default:0"`
	CorrectCount int     `json:"correct_count" gorm:"default:0"`
	CorrectRate  float64 `json:"correct_rate" gorm:"default:0"` // fraction in [0,1]
	AvgTimeSpent int     `json:"avg_time_spent" gorm:"default:0"` // rounded seconds

	LastUsed  *time.Time `json:"last_used"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Question is preloaded on the reporting reads so responses can carry
	// the question summary alongside the counters.
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID;references:ID"`
}

func (a *QuestionAnalytics) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
