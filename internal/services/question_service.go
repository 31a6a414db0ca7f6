package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/locale"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

const defaultPageSize = 20

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

func (s *questionService) Create(ctx context.Context, req *validator.QuestionCreateRequest, createdBy string) (*QuestionResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	question := buildQuestion(req, createdBy)

	var created *models.Question
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Question().Create(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}

		// Fresh usage row so reporting queries never deal with a missing record.
		analytics := &models.QuestionAnalytics{QuestionID: question.ID}
		if err := txRepo.Analytics().Create(ctx, nil, analytics); err != nil {
			return fmt.Errorf("failed to create analytics row: %w", err)
		}

		created = question
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("question created",
		"question_id", created.ID, "subject", created.Subject, "locale_scope", created.LocaleScope)
	return toQuestionResponse(created), nil
}

func (s *questionService) GetByID(ctx context.Context, id string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByIDWithAnalytics(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return toQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, id string, req *validator.QuestionUpdateRequest) (*QuestionResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	var updated *models.Question
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		question, err := txRepo.Question().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to load question: %w", err)
		}

		applyQuestionUpdate(question, req)
		if err := txRepo.Question().Update(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}

		if req.Choices != nil {
			choices := buildChoices(id, req.Choices)
			if err := txRepo.Question().ReplaceChoices(ctx, nil, id, choices); err != nil {
				return fmt.Errorf("failed to replace choices: %w", err)
			}
			question.Choices = choices
		}

		updated = question
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("question updated", "question_id", id)
	return toQuestionResponse(updated), nil
}

// Delete deactivates a question. Rows stay in place so analytics and past
// assignments keep their references; deactivated questions simply stop
// appearing in generation.
func (s *questionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Question().SoftDelete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	s.logger.Info("question deactivated", "question_id", id)
	return nil
}

func (s *questionService) List(ctx context.Context, req *ListQuestionsRequest) (*QuestionListResponse, error) {
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

	filters := repositories.QuestionFilters{
		Subject:     req.Subject,
		Difficulty:  req.Difficulty,
		LocaleScope: req.LocaleScope,
		IsActive:    req.IsActive,
		Search:      req.Search,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}

	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	return &QuestionListResponse{
		Questions: toQuestionResponses(questions),
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

// BulkImport creates questions one by one with per-item isolation; a bad
// item is reported and skipped, never rolling back its siblings.
func (s *questionService) BulkImport(ctx context.Context, req *validator.BulkImportRequest, createdBy string) (*BulkImportResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	resp := &BulkImportResponse{Total: len(req.Questions)}
	for i := range req.Questions {
		item := req.Questions[i]
		if _, err := s.Create(ctx, &item, createdBy); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, BulkImportItem{Index: i, Error: err.Error()})
			continue
		}
		resp.Successful++
	}

	resp.Message = fmt.Sprintf("imported %d of %d questions", resp.Successful, resp.Total)
	s.logger.Info("bulk import finished",
		"total", resp.Total, "successful", resp.Successful, "failed", resp.Failed)
	return resp, nil
}

// ===== HELPERS =====

func buildQuestion(req *validator.QuestionCreateRequest, createdBy string) *models.Question {
	scope := req.LocaleScope
	if scope == "" {
		scope = locale.Global
	}

	question := &models.Question{
		Stem:        req.Stem,
		Subject:     req.Subject,
		Difficulty:  req.Difficulty,
		LocaleScope: scope,
		IsActive:    true,
		CreatedBy:   createdBy,
		Choices:     buildChoices("", req.Choices),
	}
	if len(req.Tags) > 0 {
		question.Tags = datatypes.JSON(encodeStringSlice(req.Tags))
	}
	return question
}

func buildChoices(questionID string, reqs []validator.ChoiceRequest) []models.QuestionChoice {
	choices := make([]models.QuestionChoice, 0, len(reqs))
	for _, c := range reqs {
		choices = append(choices, models.QuestionChoice{
			QuestionID:  questionID,
			Text:        c.Text,
			IsCorrect:   c.IsCorrect,
			Explanation: c.Explanation,
			Order:       c.Order,
		})
	}
	return choices
}

func applyQuestionUpdate(question *models.Question, req *validator.QuestionUpdateRequest) {
	if req.Stem != nil {
		question.Stem = *req.Stem
	}
	if req.Subject != nil {
		question.Subject = *req.Subject
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.LocaleScope != nil {
		question.LocaleScope = *req.LocaleScope
	}
	if req.Tags != nil {
		question.Tags = datatypes.JSON(encodeStringSlice(req.Tags))
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}
}
