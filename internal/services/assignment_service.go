package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/events"
	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

type assignmentService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	generation GenerationService
	analytics  AnalyticsService
	publisher  events.EventPublisher
}

func NewAssignmentService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
	generation GenerationService,
	analytics AnalyticsService,
	publisher events.EventPublisher,
) AssignmentService {
	return &assignmentService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  v,
		generation: generation,
		analytics:  analytics,
		publisher:  publisher,
	}
}

// Schedule assembles a question set for the student using their locale for
// the generation fallback, and stores it as a SCHEDULED assignment.
func (s *assignmentService) Schedule(ctx context.Context, req *ScheduleAssignmentRequest) (*AssignmentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	student, err := s.repo.Student().GetByID(ctx, nil, req.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	genReq := &GenerateQuestionsRequest{
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Count:      req.Count,
		Country:    student.Country,
	}
	if student.StateRegion != nil {
		genReq.StateRegion = *student.StateRegion
	}
	if excluded, err := s.recentQuestionIDs(ctx, student.ID); err == nil {
		genReq.ExcludeQuestionIDs = excluded
	} else {
		s.logger.Warn("failed to load recent questions, scheduling without exclusions",
			"student_id", student.ID, "error", err)
	}

	generated, err := s.generation.Generate(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	if generated.Count == 0 {
		return nil, &BusinessRuleError{
			Rule:    "empty_question_set",
			Message: "no questions available for the requested subject and difficulty",
		}
	}

	scheduledFor := time.Now().UTC()
	if req.ScheduledFor != nil {
		scheduledFor = req.ScheduledFor.UTC()
	}

	assignment := &models.Assignment{
		StudentID:    student.ID,
		Subject:      req.Subject,
		Difficulty:   req.Difficulty,
		Status:       models.AssignmentScheduled,
		ScheduledFor: scheduledFor,
	}
	for i, q := range generated.Questions {
		assignment.Questions = append(assignment.Questions, models.AssignmentQuestion{
			QuestionID: q.ID,
			Order:      i + 1,
		})
	}

	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("assignment scheduled",
		"assignment_id", assignment.ID,
		"student_id", student.ID,
		"questions", len(assignment.Questions))

	resp := toAssignmentResponse(assignment)
	resp.Questions = generated.Questions
	return resp, nil
}

// Deliver marks a scheduled assignment as delivered to the student.
func (s *assignmentService) Deliver(ctx context.Context, assignmentID string) (*AssignmentResponse, error) {
	var delivered *models.Assignment
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		assignment, err := txRepo.Assignment().GetByID(ctx, nil, assignmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		if assignment.Status != models.AssignmentScheduled {
			return ErrAssignmentNotDeliverable
		}

		now := time.Now().UTC()
		assignment.Status = models.AssignmentDelivered
		assignment.DeliveredAt = &now
		if err := txRepo.Assignment().Update(ctx, nil, assignment); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}

		delivered = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := events.NewEvent(events.TypeAssignmentDelivered, events.AssignmentDeliveredEvent{
			AssignmentID:  delivered.ID,
			StudentID:     delivered.StudentID,
			QuestionCount: len(delivered.Questions),
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish assignment delivered event",
				"assignment_id", delivered.ID, "error", err)
		}
	}

	return toAssignmentResponse(delivered), nil
}

// RunScheduledDelivery is the study-plan delivery pass: every student whose
// active plan schedules asOf's weekday gets one assignment built from their
// plan, delivered immediately.
func (s *assignmentService) RunScheduledDelivery(ctx context.Context, asOf time.Time) (*DeliveryRunResponse, error) {
	weekday := strings.ToUpper(asOf.UTC().Weekday().String())

	students, err := s.repo.Student().ListDueForDelivery(ctx, nil, weekday)
	if err != nil {
		return nil, fmt.Errorf("failed to list students due for delivery: %w", err)
	}

	resp := &DeliveryRunResponse{Weekday: weekday}
	for _, student := range students {
		if err := s.deliverPlanned(ctx, student, asOf); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, DeliveryRunError{
				StudentID: student.ID,
				Error:     err.Error(),
			})
			continue
		}
		resp.Delivered++
	}

	s.logger.Info("scheduled delivery pass finished",
		"weekday", weekday, "delivered", resp.Delivered, "failed", resp.Failed)
	return resp, nil
}

// deliverPlanned builds one assignment from the student's study plan and
// delivers it. Subjects rotate by day of year so a multi-subject plan cycles
// through them instead of repeating the first.
func (s *assignmentService) deliverPlanned(ctx context.Context, student *models.Student, asOf time.Time) error {
	plan, err := s.repo.Student().GetStudyPlan(ctx, nil, student.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudyPlanNotFound
		}
		return fmt.Errorf("failed to load study plan: %w", err)
	}
	if !plan.IsActive {
		return &BusinessRuleError{
			Rule:    "inactive_study_plan",
			Message: "study plan is not active",
		}
	}

	subjects := decodeStringSlice(plan.Subjects)
	if len(subjects) == 0 {
		return &BusinessRuleError{
			Rule:    "empty_study_plan",
			Message: "study plan has no subjects",
		}
	}
	subject := models.Subject(subjects[asOf.YearDay()%len(subjects)])

	scheduled, err := s.Schedule(ctx, &ScheduleAssignmentRequest{
		StudentID:  student.ID,
		Subject:    subject,
		Difficulty: plan.TargetDifficulty,
		Count:      plan.QuestionsPerDay,
	})
	if err != nil {
		return err
	}

	_, err = s.Deliver(ctx, scheduled.ID)
	return err
}

func (s *assignmentService) GetByID(ctx context.Context, assignmentID string) (*AssignmentResponse, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return toAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByStudent(ctx context.Context, studentID string, status *models.AssignmentStatus) ([]*AssignmentResponse, error) {
	assignments, _, err := s.repo.Assignment().ListByStudent(ctx, nil, studentID, repositories.AssignmentFilters{
		Status: status,
		Limit:  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	responses := make([]*AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		responses = append(responses, toAssignmentResponse(a))
	}
	return responses, nil
}

// SubmitAnswers grades a delivered assignment against the stored correct
// choices, persists the submissions and feeds every answer into analytics.
func (s *assignmentService) SubmitAnswers(ctx context.Context, assignmentID string, req *SubmitAnswersRequest) (*SubmissionResultResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var result *SubmissionResultResponse
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		assignment, err := txRepo.Assignment().GetByID(ctx, nil, assignmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		switch assignment.Status {
		case models.AssignmentCompleted:
			return ErrAssignmentAlreadyCompleted
		case models.AssignmentDelivered:
			// gradeable
		default:
			return ErrAssignmentNotDeliverable
		}

		questions := make(map[string]*models.Question, len(assignment.Questions))
		for i := range assignment.Questions {
			q := &assignment.Questions[i].Question
			if q.ID != "" {
				questions[q.ID] = q
			}
		}

		graded, submissions, err := gradeAnswers(assignment.ID, questions, req.Answers)
		if err != nil {
			return err
		}

		if err := txRepo.Assignment().CreateSubmissions(ctx, nil, submissions); err != nil {
			return fmt.Errorf("failed to save submissions: %w", err)
		}

		now := time.Now().UTC()
		assignment.Status = models.AssignmentCompleted
		assignment.CompletedAt = &now
		if err := txRepo.Assignment().Update(ctx, nil, assignment); err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}

		result = graded
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Analytics updates run outside the grading transaction; each one is
	// independently retried/reported, never blocking the student's result.
	for _, r := range result.Results {
		timeSpent := 0
		for _, a := range req.Answers {
			if a.QuestionID == r.QuestionID {
				timeSpent = a.TimeSpentSeconds
				break
			}
		}
		event := &AnswerEventRequest{
			QuestionID:       r.QuestionID,
			IsCorrect:        r.IsCorrect,
			TimeSpentSeconds: timeSpent,
		}
		if err := s.analytics.RecordAnswer(ctx, event); err != nil {
			s.logger.Error("failed to record answer analytics",
				"assignment_id", assignmentID, "question_id", r.QuestionID, "error", err)
		}
	}

	s.logger.Info("assignment submitted",
		"assignment_id", assignmentID, "score", result.Score,
		"correct", result.Correct, "total", result.Total)
	return result, nil
}

// recentQuestionIDs collects the questions the student saw in the last 30
// days so fresh assignments avoid repeats.
func (s *assignmentService) recentQuestionIDs(ctx context.Context, studentID string) ([]string, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	submissions, err := s.repo.Assignment().GetSubmissionsInRange(ctx, nil, studentID, from, to)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(submissions))
	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		if _, ok := seen[sub.QuestionID]; ok {
			continue
		}
		seen[sub.QuestionID] = struct{}{}
		ids = append(ids, sub.QuestionID)
	}
	return ids, nil
}

func gradeAnswers(
	assignmentID string,
	questions map[string]*models.Question,
	answers []SubmittedAnswer,
) (*SubmissionResultResponse, []*models.AssignmentSubmission, error) {
	result := &SubmissionResultResponse{
		AssignmentID: assignmentID,
		Total:        len(answers),
	}
	submissions := make([]*models.AssignmentSubmission, 0, len(answers))
	now := time.Now().UTC()

	for _, answer := range answers {
		question, ok := questions[answer.QuestionID]
		if !ok {
			return nil, nil, &BusinessRuleError{
				Rule:    "answer_not_in_assignment",
				Message: fmt.Sprintf("question %s is not part of this assignment", answer.QuestionID),
			}
		}

		correct := question.CorrectChoice()
		if correct == nil {
			return nil, nil, &BusinessRuleError{
				Rule:    "question_missing_correct_choice",
				Message: fmt.Sprintf("question %s has no correct choice", question.ID),
			}
		}

		isCorrect := answer.SelectedChoiceID == correct.ID
		if isCorrect {
			result.Correct++
		}

		result.Results = append(result.Results, AnswerGradingResult{
			QuestionID:      question.ID,
			IsCorrect:       isCorrect,
			CorrectChoiceID: correct.ID,
			Explanation:     correct.Explanation,
		})
		submissions = append(submissions, &models.AssignmentSubmission{
			AssignmentID:     assignmentID,
			QuestionID:       question.ID,
			SelectedChoiceID: answer.SelectedChoiceID,
			IsCorrect:        isCorrect,
			TimeSpentSeconds: answer.TimeSpentSeconds,
			SubmittedAt:      now,
		})
	}

	if result.Total > 0 {
		result.Score = float64(result.Correct) / float64(result.Total)
	}
	return result, submissions, nil
}
