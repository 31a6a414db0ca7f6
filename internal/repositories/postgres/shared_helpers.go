package postgres

import (
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/repositories"
)

// SharedHelpers contains query-building helpers used by multiple repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyQuestionFilters applies the admin list filters to a question query
func (h *SharedHelpers) ApplyQuestionFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.Subject != nil {
		query = query.Where("subject = ?", *filters.Subject)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.LocaleScope != nil {
		query = query.Where("locale_scope = ?", *filters.LocaleScope)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Search != "" {
		query = query.Where("stem ILIKE ?", "%"+filters.Search+"%")
	}
	return query
}

// ApplyScopedFilters applies the generation fetch filters. Only active
// questions are eligible; a nil scope leaves the locale unfiltered.
func (h *SharedHelpers) ApplyScopedFilters(query *gorm.DB, filters repositories.ScopedQuestionFilters) *gorm.DB {
	query = query.
		Where("subject = ?", filters.Subject).
		Where("difficulty = ?", filters.Difficulty).
		Where("is_active = ?", true)

	if filters.Scope != nil {
		query = query.Where("locale_scope = ?", *filters.Scope)
	}
	if len(filters.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filters.ExcludeIDs)
	}
	return query
}

// ApplyStudentFilters applies the student list filters
func (h *SharedHelpers) ApplyStudentFilters(query *gorm.DB, filters repositories.StudentFilters) *gorm.DB {
	if filters.Grade != nil {
		query = query.Where("grade = ?", *filters.Grade)
	}
	if filters.Country != nil {
		query = query.Where("country = ?", *filters.Country)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"id":           true,
		"subject":      true,
		"difficulty":   true,
		"locale_scope": true,
		"grade":        true,
		"email":        true,
		"times_used":   true,
	}

	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
