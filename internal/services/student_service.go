package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewStudentService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
) StudentService {
	return &studentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

func (s *studentService) Register(ctx context.Context, req *validator.StudentRegisterRequest) (*StudentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.Student().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyRegistered
	}

	student := &models.Student{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Grade:       req.Grade,
		Country:     strings.ToUpper(strings.TrimSpace(req.Country)),
		StateRegion: normalizeRegion(req.StateRegion),
		EmailOptIn:  true,
	}

	if err := s.repo.Student().Create(ctx, nil, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.logger.Info("student registered",
		"student_id", student.ID, "grade", student.Grade, "country", student.Country)
	return toStudentResponse(student), nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*StudentResponse, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return toStudentResponse(student), nil
}

func (s *studentService) List(ctx context.Context, req *ListStudentsRequest) (*StudentListResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filters := repositories.StudentFilters{
		Grade:   req.Grade,
		Country: req.Country,
		Search:  req.Search,
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	}

	students, total, err := s.repo.Student().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	responses := make([]*StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, toStudentResponse(student))
	}

	return &StudentListResponse{
		Students: responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *studentService) UpdateEmailPreference(ctx context.Context, studentID string, optIn bool) (*StudentResponse, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	student.EmailOptIn = optIn
	if err := s.repo.Student().Update(ctx, nil, student); err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	s.logger.Info("email preference updated", "student_id", studentID, "opt_in", optIn)
	return toStudentResponse(student), nil
}

func (s *studentService) GetStudyPlan(ctx context.Context, studentID string) (*StudyPlanResponse, error) {
	plan, err := s.repo.Student().GetStudyPlan(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudyPlanNotFound
		}
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}
	return toStudyPlanResponse(plan), nil
}

// SaveStudyPlan creates or replaces the student's single plan.
func (s *studentService) SaveStudyPlan(ctx context.Context, studentID string, req *validator.StudyPlanRequest) (*StudyPlanResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var saved *models.StudyPlan
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		student, err := txRepo.Student().GetByID(ctx, nil, studentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrStudentNotFound
			}
			return fmt.Errorf("failed to load student: %w", err)
		}

		plan, err := txRepo.Student().GetStudyPlan(ctx, nil, student.ID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to load study plan: %w", err)
			}
			plan = &models.StudyPlan{StudentID: student.ID}
		}

		subjects := make([]string, 0, len(req.Subjects))
		for _, subject := range req.Subjects {
			subjects = append(subjects, string(subject))
		}

		plan.Subjects = datatypes.JSON(encodeStringSlice(subjects))
		plan.ScheduleDays = datatypes.JSON(encodeStringSlice(req.ScheduleDays))
		plan.QuestionsPerDay = req.QuestionsPerDay
		plan.TargetDifficulty = req.TargetDifficulty
		plan.DeliveryChannels = datatypes.JSON(encodeStringSlice(req.DeliveryChannels))
		plan.IsActive = true

		if err := txRepo.Student().SaveStudyPlan(ctx, nil, plan); err != nil {
			return fmt.Errorf("failed to save study plan: %w", err)
		}
		saved = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("study plan saved", "student_id", studentID, "questions_per_day", saved.QuestionsPerDay)
	return toStudyPlanResponse(saved), nil
}

func normalizeRegion(region *string) *string {
	if region == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*region)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
