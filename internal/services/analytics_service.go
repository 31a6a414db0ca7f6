package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/events"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

const (
	batchMaxSize    = 50
	topAnalyticsCap = 100
)

type analyticsService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAnalyticsService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
) AnalyticsService {
	return &analyticsService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// RecordAnswer folds one answer event into the question's rolling stats.
// The row is locked for the duration of the transaction so concurrent
// events on the same question serialize instead of losing updates.
func (s *analyticsService) RecordAnswer(ctx context.Context, req *AnswerEventRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	var updated *models.QuestionAnalytics
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		exists, err := txRepo.Question().Exists(ctx, nil, req.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to check question existence: %w", err)
		}
		if !exists {
			return ErrQuestionNotFound
		}

		analytics, err := txRepo.Analytics().GetByQuestionIDForUpdate(ctx, nil, req.QuestionID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to lock analytics row: %w", err)
		}

		now := time.Now().UTC()
		if analytics == nil || repositories.IsNotFoundError(err) {
			analytics = &models.QuestionAnalytics{
				QuestionID:   req.QuestionID,
				TimesUsed:    1,
				CorrectCount: boolToCount(req.IsCorrect),
				CorrectRate:  boolToRate(req.IsCorrect),
				AvgTimeSpent: req.TimeSpentSeconds,
				LastUsed:     &now,
			}
			if err := txRepo.Analytics().Create(ctx, nil, analytics); err != nil {
				return fmt.Errorf("failed to create analytics: %w", err)
			}
			updated = analytics
			return nil
		}

		applyAnswerEvent(analytics, req.IsCorrect, req.TimeSpentSeconds, now)
		if err := txRepo.Analytics().Update(ctx, nil, analytics); err != nil {
			return fmt.Errorf("failed to update analytics: %w", err)
		}
		updated = analytics
		return nil
	})
	if err != nil {
		return err
	}

	s.publishAnswerRecorded(ctx, req, updated)
	return nil
}

// RecordAnswerBatch processes up to 50 events, each in its own transaction
// so one bad event cannot roll back its siblings.
func (s *analyticsService) RecordAnswerBatch(ctx context.Context, req *BatchAnalyticsRequest) (*BatchAnalyticsResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Analytics) > batchMaxSize {
		return nil, &BusinessRuleError{
			Rule:    "batch_size_limit",
			Message: fmt.Sprintf("batch size %d exceeds maximum of %d", len(req.Analytics), batchMaxSize),
		}
	}

	resp := &BatchAnalyticsResponse{Total: len(req.Analytics)}
	for i := range req.Analytics {
		item := req.Analytics[i]
		if err := s.RecordAnswer(ctx, &item); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, BatchItemError{
				Index:      i,
				QuestionID: item.QuestionID,
				Error:      err.Error(),
			})
			continue
		}
		resp.Successful++
	}

	resp.Message = fmt.Sprintf("processed %d analytics events: %d successful, %d failed",
		resp.Total, resp.Successful, resp.Failed)
	return resp, nil
}

// GetAnalytics returns the stats for one question, or the most-used
// questions when questionID is nil.
func (s *analyticsService) GetAnalytics(ctx context.Context, questionID *string) ([]*AnalyticsResponse, error) {
	if questionID != nil {
		analytics, err := s.repo.Analytics().GetByQuestionID(ctx, nil, *questionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAnalyticsNotFound
			}
			return nil, fmt.Errorf("failed to get analytics: %w", err)
		}
		return []*AnalyticsResponse{toAnalyticsResponse(analytics)}, nil
	}

	rows, err := s.repo.Analytics().TopByUsage(ctx, nil, topAnalyticsCap)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}

	responses := make([]*AnalyticsResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, toAnalyticsResponse(row))
	}
	return responses, nil
}

// ExportAnalytics renders the most-used questions into an xlsx workbook.
func (s *analyticsService) ExportAnalytics(ctx context.Context) ([]byte, error) {
	rows, err := s.repo.Analytics().TopByUsage(ctx, nil, topAnalyticsCap)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Question Analytics"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Question ID", "Times Used", "Correct Count", "Correct Rate", "Avg Time (s)", "Last Used"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		lastUsed := ""
		if row.LastUsed != nil {
			lastUsed = row.LastUsed.Format(time.RFC3339)
		}
		values := []interface{}{row.QuestionID, row.TimesUsed, row.CorrectCount, row.CorrectRate, row.AvgTimeSpent, lastUsed}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *analyticsService) publishAnswerRecorded(ctx context.Context, req *AnswerEventRequest, analytics *models.QuestionAnalytics) {
	if s.publisher == nil || analytics == nil {
		return
	}
	event := events.NewEvent(events.TypeAnswerRecorded, events.AnswerRecordedEvent{
		QuestionID:       req.QuestionID,
		IsCorrect:        req.IsCorrect,
		TimeSpentSeconds: req.TimeSpentSeconds,
		TimesUsed:        analytics.TimesUsed,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish answer recorded event",
			"question_id", req.QuestionID, "error", err)
	}
}

// applyAnswerEvent folds one event into existing stats. The previous usage
// count n drives both rolling formulas; correct counts are kept as raw
// integers so the rate never drifts from accumulated rounding.
func applyAnswerEvent(a *models.QuestionAnalytics, isCorrect bool, timeSpent int, now time.Time) {
	n := a.TimesUsed
	correct := a.CorrectCount
	if correct == 0 && a.CorrectRate > 0 {
		// Rows written before correct counts were stored only carry the
		// rate; reconstruct the count from it.
		correct = int(math.Round(a.CorrectRate * float64(n)))
	}
	if isCorrect {
		correct++
	}

	a.TimesUsed = n + 1
	a.CorrectCount = correct
	a.CorrectRate = float64(correct) / float64(n+1)
	a.AvgTimeSpent = int(math.Round((float64(a.AvgTimeSpent)*float64(n) + float64(timeSpent)) / float64(n+1)))
	a.LastUsed = &now
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolToRate(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
