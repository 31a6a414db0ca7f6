package services

import (
	"context"
	"testing"
	"time"

	"github.com/prepstack/testprep-service/internal/events"
	"github.com/prepstack/testprep-service/internal/models"
)

func newReportFixture() (*fakeRepository, ReportService) {
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewReportService(repo, nil, testLogger(), testValidator(), publisher)
	return repo, svc
}

func seedSubmissionWeek(repo *fakeRepository, studentID string, weekStart time.Time) {
	// Two assignments in the week: math (strong) and history (weak).
	mathAssignment := &models.Assignment{
		ID: "as-math", StudentID: studentID,
		Subject: models.SubjectMath, Difficulty: models.DifficultyMedium,
		Status: models.AssignmentCompleted, ScheduledFor: weekStart.Add(24 * time.Hour),
	}
	historyAssignment := &models.Assignment{
		ID: "as-hist", StudentID: studentID,
		Subject: models.SubjectHistory, Difficulty: models.DifficultyMedium,
		Status: models.AssignmentCompleted, ScheduledFor: weekStart.Add(48 * time.Hour),
	}
	repo.assignments[mathAssignment.ID] = mathAssignment
	repo.assignments[historyAssignment.ID] = historyAssignment

	submittedAt := weekStart.Add(72 * time.Hour)
	add := func(assignmentID, questionID string, correct bool, seconds int) {
		repo.submissions = append(repo.submissions, &models.AssignmentSubmission{
			ID: "sub-" + assignmentID + questionID, AssignmentID: assignmentID,
			QuestionID: questionID, SelectedChoiceID: "x",
			IsCorrect: correct, TimeSpentSeconds: seconds, SubmittedAt: submittedAt,
		})
	}

	// Math: 4 of 5 correct (80%)
	add("as-math", "m1", true, 30)
	add("as-math", "m2", true, 30)
	add("as-math", "m3", true, 30)
	add("as-math", "m4", true, 30)
	add("as-math", "m5", false, 30)
	// History: 1 of 4 correct (25%)
	add("as-hist", "h1", true, 60)
	add("as-hist", "h2", false, 60)
	add("as-hist", "h3", false, 60)
	add("as-hist", "h4", false, 60)
}

func TestGenerateWeekly_Aggregation(t *testing.T) {
	repo, svc := newReportFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US"}

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) // a Monday
	seedSubmissionWeek(repo, "s1", weekStart)

	report, err := svc.GenerateWeekly(context.Background(), "s1", weekStart)
	if err != nil {
		t.Fatalf("GenerateWeekly failed: %v", err)
	}

	if report.QuestionsAnswered != 9 {
		t.Errorf("expected 9 questions answered, got %d", report.QuestionsAnswered)
	}
	if report.CorrectAnswers != 5 {
		t.Errorf("expected 5 correct answers, got %d", report.CorrectAnswers)
	}
	if report.AssignmentsScheduled != 2 || report.AssignmentsCompleted != 2 {
		t.Errorf("expected 2 scheduled and completed, got %d / %d",
			report.AssignmentsScheduled, report.AssignmentsCompleted)
	}
	if report.TotalTimeSeconds != 5*30+4*60 {
		t.Errorf("unexpected total time %d", report.TotalTimeSeconds)
	}

	if len(report.StrongSubjects) != 1 || report.StrongSubjects[0] != models.SubjectMath {
		t.Errorf("expected MATH as strong subject, got %v", report.StrongSubjects)
	}
	if len(report.WeakSubjects) != 1 || report.WeakSubjects[0] != models.SubjectHistory {
		t.Errorf("expected HISTORY as weak subject, got %v", report.WeakSubjects)
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected at least one recommendation")
	}
}

func TestGenerateWeekly_IdempotentPerWeek(t *testing.T) {
	repo, svc := newReportFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US"}

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	seedSubmissionWeek(repo, "s1", weekStart)

	first, err := svc.GenerateWeekly(context.Background(), "s1", weekStart)
	if err != nil {
		t.Fatalf("first GenerateWeekly failed: %v", err)
	}
	second, err := svc.GenerateWeekly(context.Background(), "s1", weekStart)
	if err != nil {
		t.Fatalf("second GenerateWeekly failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("regeneration created a new row: %s vs %s", first.ID, second.ID)
	}
	if len(repo.reports) != 1 {
		t.Errorf("expected a single stored report, got %d", len(repo.reports))
	}
}

func TestGenerateWeekly_EmptyWeek(t *testing.T) {
	repo, svc := newReportFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US"}

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	report, err := svc.GenerateWeekly(context.Background(), "s1", weekStart)
	if err != nil {
		t.Fatalf("GenerateWeekly failed: %v", err)
	}

	if report.QuestionsAnswered != 0 || report.AverageScore != 0 {
		t.Errorf("expected empty aggregates, got %+v", report)
	}
	if len(report.Recommendations) == 0 {
		t.Error("empty week should still produce a recommendation")
	}
}

func TestNormalizeWeekStart(t *testing.T) {
	// Thursday afternoon rewinds to Monday midnight.
	thursday := time.Date(2026, 8, 27, 15, 30, 0, 0, time.UTC)
	got := normalizeWeekStart(thursday)
	want := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Sunday belongs to the week that started the prior Monday.
	sunday := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)
	if got := normalizeWeekStart(sunday); !got.Equal(want) {
		t.Errorf("expected %v for Sunday, got %v", want, got)
	}

	// Monday maps to itself.
	if got := normalizeWeekStart(want); !got.Equal(want) {
		t.Errorf("expected Monday to map to itself, got %v", got)
	}
}
