package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/locale"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

// overFetchFactor widens each scoped fetch so the sampler has slack even
// when some of the fetched rows are already excluded downstream.
const overFetchFactor = 2

type generationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewGenerationService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
) GenerationService {
	return &generationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

// Generate assembles up to req.Count questions, preferring the most specific
// locale scope first and falling back to broader scopes, then to any scope.
// Under-fill is not an error: a thin bank returns what it has.
func (s *generationService) Generate(ctx context.Context, req *GenerateQuestionsRequest) (*GenerationResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	resp := &GenerationResponse{
		Questions:      []*QuestionResponse{},
		RequestedCount: req.Count,
		Localization: LocalizationInfo{
			Country:     req.Country,
			StateRegion: req.StateRegion,
		},
	}
	if req.Count <= 0 {
		return resp, nil
	}

	scopes := locale.BuildHierarchy(req.Country, req.StateRegion)

	excluded := make([]string, 0, len(req.ExcludeQuestionIDs)+req.Count)
	excluded = append(excluded, req.ExcludeQuestionIDs...)

	var picked []*models.Question
	for _, scope := range scopes {
		remaining := req.Count - len(picked)
		if remaining <= 0 {
			break
		}

		pool, err := s.fetchScope(ctx, req, &scope, remaining, excluded)
		if err != nil {
			return nil, err
		}

		sampled := sampleQuestions(pool, remaining)
		picked = append(picked, sampled...)
		for _, q := range sampled {
			excluded = append(excluded, q.ID)
		}
	}

	// Last resort: ignore scope entirely to close the remaining gap.
	if remaining := req.Count - len(picked); remaining > 0 {
		pool, err := s.fetchScope(ctx, req, nil, remaining, excluded)
		if err != nil {
			return nil, err
		}
		picked = append(picked, sampleQuestions(pool, remaining)...)
	}

	if len(picked) < req.Count {
		s.logger.Warn("question bank under-filled generation request",
			"subject", req.Subject,
			"difficulty", req.Difficulty,
			"requested", req.Count,
			"selected", len(picked))
	}

	resp.Questions = toQuestionResponses(picked)
	resp.Count = len(resp.Questions)
	return resp, nil
}

func (s *generationService) fetchScope(
	ctx context.Context,
	req *GenerateQuestionsRequest,
	scope *string,
	remaining int,
	excludeIDs []string,
) ([]*models.Question, error) {
	filters := repositories.ScopedQuestionFilters{
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Scope:      scope,
		Limit:      remaining * overFetchFactor,
		ExcludeIDs: excludeIDs,
	}

	pool, err := s.repo.Question().FindScoped(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoped questions: %w", err)
	}
	return pool, nil
}

// sampleQuestions draws count questions from pool without replacement.
// A pool no larger than count is returned whole; otherwise the pool is
// shuffled with Fisher-Yates and the head taken, so every subset of size
// count is equally likely. Negative counts are rejected at the request
// boundary before generation starts; here a non-positive count draws
// nothing.
func sampleQuestions(pool []*models.Question, count int) []*models.Question {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	if len(pool) <= count {
		return pool
	}

	shuffled := make([]*models.Question, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}
