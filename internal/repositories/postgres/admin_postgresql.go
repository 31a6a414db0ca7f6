package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
)

type AdminPostgreSQL struct {
	db *gorm.DB
}

func NewAdminPostgreSQL(db *gorm.DB) repositories.AdminRepository {
	return &AdminPostgreSQL{db: db}
}

func (a *AdminPostgreSQL) Create(ctx context.Context, tx *gorm.DB, admin *models.Admin) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (a *AdminPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Admin, error) {
	db := a.getDB(tx)
	var admin models.Admin
	if err := db.WithContext(ctx).First(&admin, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	return &admin, nil
}

func (a *AdminPostgreSQL) Update(ctx context.Context, tx *gorm.DB, admin *models.Admin) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(admin).Error; err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return nil
}

func (a *AdminPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
