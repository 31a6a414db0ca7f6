package services

import (
	"encoding/json"

	"github.com/prepstack/testprep-service/internal/models"
)

// ===== MODEL -> RESPONSE MAPPERS =====

func toQuestionResponse(q *models.Question) *QuestionResponse {
	resp := &QuestionResponse{
		ID:          q.ID,
		Stem:        q.Stem,
		Subject:     q.Subject,
		Difficulty:  q.Difficulty,
		LocaleScope: q.LocaleScope,
		Tags:        decodeStringSlice(q.Tags),
		IsActive:    q.IsActive,
		CreatedAt:   q.CreatedAt,
		Choices:     make([]ChoiceResponse, 0, len(q.Choices)),
	}

	for _, c := range q.Choices {
		resp.Choices = append(resp.Choices, ChoiceResponse{
			ID:          c.ID,
			Text:        c.Text,
			IsCorrect:   c.IsCorrect,
			Explanation: c.Explanation,
			Order:       c.Order,
		})
	}

	if q.Analytics != nil {
		resp.Analytics = toAnalyticsResponse(q.Analytics)
	}

	return resp
}

func toQuestionResponses(questions []*models.Question) []*QuestionResponse {
	responses := make([]*QuestionResponse, 0, len(questions))
	for _, q := range questions {
		responses = append(responses, toQuestionResponse(q))
	}
	return responses
}

func toAnalyticsResponse(a *models.QuestionAnalytics) *AnalyticsResponse {
	resp := &AnalyticsResponse{
		QuestionID:   a.QuestionID,
		TimesUsed:    a.TimesUsed,
		CorrectCount: a.CorrectCount,
		CorrectRate:  a.CorrectRate,
		AvgTimeSpent: a.AvgTimeSpent,
		LastUsed:     a.LastUsed,
	}
	if a.Question != nil {
		resp.Question = &AnalyticsQuestionInfo{
			Stem:        a.Question.Stem,
			Subject:     a.Question.Subject,
			Difficulty:  a.Question.Difficulty,
			LocaleScope: a.Question.LocaleScope,
		}
	}
	return resp
}

func toStudentResponse(s *models.Student) *StudentResponse {
	resp := &StudentResponse{
		ID:          s.ID,
		Name:        s.Name,
		Email:       s.Email,
		Grade:       s.Grade,
		Country:     s.Country,
		StateRegion: s.StateRegion,
		EmailOptIn:  s.EmailOptIn,
		CreatedAt:   s.CreatedAt,
	}
	if s.StudyPlan != nil {
		resp.StudyPlan = toStudyPlanResponse(s.StudyPlan)
	}
	return resp
}

func toStudyPlanResponse(p *models.StudyPlan) *StudyPlanResponse {
	resp := &StudyPlanResponse{
		ID:               p.ID,
		QuestionsPerDay:  p.QuestionsPerDay,
		TargetDifficulty: p.TargetDifficulty,
		ScheduleDays:     decodeStringSlice(p.ScheduleDays),
		DeliveryChannels: decodeStringSlice(p.DeliveryChannels),
		IsActive:         p.IsActive,
	}
	for _, s := range decodeStringSlice(p.Subjects) {
		resp.Subjects = append(resp.Subjects, models.Subject(s))
	}
	return resp
}

func toAssignmentResponse(a *models.Assignment) *AssignmentResponse {
	resp := &AssignmentResponse{
		ID:           a.ID,
		StudentID:    a.StudentID,
		Subject:      a.Subject,
		Difficulty:   a.Difficulty,
		Status:       a.Status,
		ScheduledFor: a.ScheduledFor,
		DeliveredAt:  a.DeliveredAt,
		CompletedAt:  a.CompletedAt,
	}
	for i := range a.Questions {
		if a.Questions[i].Question.ID != "" {
			resp.Questions = append(resp.Questions, toQuestionResponse(&a.Questions[i].Question))
		}
	}
	return resp
}

func toWeeklyReportResponse(r *models.WeeklyReport) *WeeklyReportResponse {
	resp := &WeeklyReportResponse{
		ID:                   r.ID,
		StudentID:            r.StudentID,
		WeekStart:            r.WeekStart,
		AssignmentsScheduled: r.AssignmentsScheduled,
		AssignmentsCompleted: r.AssignmentsCompleted,
		QuestionsAnswered:    r.QuestionsAnswered,
		CorrectAnswers:       r.CorrectAnswers,
		AverageScore:         r.AverageScore,
		TotalTimeSeconds:     r.TotalTimeSeconds,
		Recommendations:      decodeStringSlice(r.Recommendations),
		GeneratedAt:          r.GeneratedAt,
	}
	for _, s := range decodeStringSlice(r.StrongSubjects) {
		resp.StrongSubjects = append(resp.StrongSubjects, models.Subject(s))
	}
	for _, s := range decodeStringSlice(r.WeakSubjects) {
		resp.WeakSubjects = append(resp.WeakSubjects, models.Subject(s))
	}
	return resp
}

// decodeStringSlice unmarshals a JSONB column into a string slice,
// returning nil on empty or malformed payloads.
func decodeStringSlice(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStringSlice(values []string) []byte {
	raw, err := json.Marshal(values)
	if err != nil {
		return []byte("[]")
	}
	return raw
}
