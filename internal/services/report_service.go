package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/events"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

const (
	strongSubjectThreshold = 0.7
	weakSubjectThreshold   = 0.5
	weakSubjectMinAttempts = 3
	defaultReportLimit     = 12
)

type reportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewReportService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
) ReportService {
	return &reportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// GenerateWeekly aggregates the student's submissions for the week starting
// at weekStart (normalized to midnight UTC). Regenerating an existing week
// overwrites the stored report.
func (s *reportService) GenerateWeekly(ctx context.Context, studentID string, weekStart time.Time) (*WeeklyReportResponse, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	weekStart = normalizeWeekStart(weekStart)
	weekEnd := weekStart.AddDate(0, 0, 7)

	submissions, err := s.repo.Assignment().GetSubmissionsInRange(ctx, nil, student.ID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	assignments, _, err := s.repo.Assignment().ListByStudent(ctx, nil, student.ID, repositories.AssignmentFilters{Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	report := buildWeeklyReport(student.ID, weekStart, weekEnd, assignments, submissions)
	if err := s.repo.Report().Save(ctx, nil, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	if s.publisher != nil {
		event := events.NewEvent(events.TypeReportGenerated, events.ReportGeneratedEvent{
			ReportID:  report.ID,
			StudentID: student.ID,
			WeekStart: weekStart,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish report generated event",
				"report_id", report.ID, "error", err)
		}
	}

	s.logger.Info("weekly report generated",
		"student_id", student.ID,
		"week_start", weekStart.Format("2006-01-02"),
		"questions_answered", report.QuestionsAnswered)
	return toWeeklyReportResponse(report), nil
}

func (s *reportService) GetWeekly(ctx context.Context, studentID string, weekStart time.Time) (*WeeklyReportResponse, error) {
	report, err := s.repo.Report().GetByStudentWeek(ctx, nil, studentID, normalizeWeekStart(weekStart))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return toWeeklyReportResponse(report), nil
}

func (s *reportService) ListByStudent(ctx context.Context, studentID string, limit int) ([]*WeeklyReportResponse, error) {
	if limit < 1 {
		limit = defaultReportLimit
	}
	reports, err := s.repo.Report().ListByStudent(ctx, nil, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	responses := make([]*WeeklyReportResponse, 0, len(reports))
	for _, r := range reports {
		responses = append(responses, toWeeklyReportResponse(r))
	}
	return responses, nil
}

// ===== AGGREGATION =====

type subjectTally struct {
	attempts int
	correct  int
}

func buildWeeklyReport(
	studentID string,
	weekStart, weekEnd time.Time,
	assignments []*models.Assignment,
	submissions []*models.AssignmentSubmission,
) *models.WeeklyReport {
	report := &models.WeeklyReport{
		StudentID:   studentID,
		WeekStart:   weekStart,
		GeneratedAt: time.Now().UTC(),
	}

	subjectByAssignment := make(map[string]models.Subject, len(assignments))
	for _, a := range assignments {
		subjectByAssignment[a.ID] = a.Subject
		if a.ScheduledFor.Before(weekEnd) && !a.ScheduledFor.Before(weekStart) {
			report.AssignmentsScheduled++
			if a.Status == models.AssignmentCompleted {
				report.AssignmentsCompleted++
			}
		}
	}

	tallies := make(map[models.Subject]*subjectTally)
	for _, sub := range submissions {
		report.QuestionsAnswered++
		report.TotalTimeSeconds += sub.TimeSpentSeconds
		if sub.IsCorrect {
			report.CorrectAnswers++
		}

		subject, ok := subjectByAssignment[sub.AssignmentID]
		if !ok {
			continue
		}
		tally := tallies[subject]
		if tally == nil {
			tally = &subjectTally{}
			tallies[subject] = tally
		}
		tally.attempts++
		if sub.IsCorrect {
			tally.correct++
		}
	}

	if report.QuestionsAnswered > 0 {
		report.AverageScore = float64(report.CorrectAnswers) / float64(report.QuestionsAnswered)
	}

	var strong, weak []string
	for _, subject := range models.AllSubjects() {
		tally, ok := tallies[subject]
		if !ok || tally.attempts == 0 {
			continue
		}
		rate := float64(tally.correct) / float64(tally.attempts)
		if rate >= strongSubjectThreshold {
			strong = append(strong, string(subject))
		} else if rate < weakSubjectThreshold && tally.attempts >= weakSubjectMinAttempts {
			weak = append(weak, string(subject))
		}
	}

	report.StrongSubjects = datatypes.JSON(encodeStringSlice(strong))
	report.WeakSubjects = datatypes.JSON(encodeStringSlice(weak))
	report.Recommendations = datatypes.JSON(encodeStringSlice(buildRecommendations(report, weak)))
	return report
}

func buildRecommendations(report *models.WeeklyReport, weakSubjects []string) []string {
	var recs []string
	if report.QuestionsAnswered == 0 {
		recs = append(recs, "No practice recorded this week. Try to complete at least one assignment.")
		return recs
	}
	for _, subject := range weakSubjects {
		recs = append(recs, fmt.Sprintf("Focus on %s: your correct rate was below 50%% this week.", subject))
	}
	if report.AssignmentsScheduled > report.AssignmentsCompleted {
		missed := report.AssignmentsScheduled - report.AssignmentsCompleted
		recs = append(recs, fmt.Sprintf("You have %d unfinished assignment(s) from this week.", missed))
	}
	if len(recs) == 0 {
		recs = append(recs, "Great week! Keep up the current pace.")
	}
	return recs
}

// normalizeWeekStart truncates to midnight UTC and rewinds to Monday.
func normalizeWeekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return t.AddDate(0, 0, -offset)
}
