package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is a question-bank operator. Passwords are stored as bcrypt hashes
// and never serialized.
type Admin struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	Email        string `json:"email" gorm:"not null;uniqueIndex;size:255" validate:"required,email"`
	Name         string `json:"name" gorm:"not null;size:255"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
