package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/repositories"
	"github.com/prepstack/testprep-service/internal/validator"
)

// fakeRepository is an in-memory repositories.Repository for service tests.
// WithTransaction serializes on a mutex so concurrent callers observe the
// same isolation the row lock gives us in production.
type fakeRepository struct {
	mu sync.Mutex

	questions   map[string]*models.Question
	analytics   map[string]*models.QuestionAnalytics // keyed by question ID
	students    map[string]*models.Student
	plans       map[string]*models.StudyPlan // keyed by student ID
	assignments map[string]*models.Assignment
	submissions []*models.AssignmentSubmission
	reports     map[string]*models.WeeklyReport // keyed by studentID|weekStart
	admins      map[string]*models.Admin        // keyed by email

	questionRepo   *fakeQuestionRepo
	analyticsRepo  *fakeAnalyticsRepo
	studentRepo    *fakeStudentRepo
	assignmentRepo *fakeAssignmentRepo
	reportRepo     *fakeReportRepo
	adminRepo      *fakeAdminRepo
}

func newFakeRepository() *fakeRepository {
	r := &fakeRepository{
		questions:   make(map[string]*models.Question),
		analytics:   make(map[string]*models.QuestionAnalytics),
		students:    make(map[string]*models.Student),
		plans:       make(map[string]*models.StudyPlan),
		assignments: make(map[string]*models.Assignment),
		reports:     make(map[string]*models.WeeklyReport),
		admins:      make(map[string]*models.Admin),
	}
	r.questionRepo = &fakeQuestionRepo{store: r}
	r.analyticsRepo = &fakeAnalyticsRepo{store: r}
	r.studentRepo = &fakeStudentRepo{store: r}
	r.assignmentRepo = &fakeAssignmentRepo{store: r}
	r.reportRepo = &fakeReportRepo{store: r}
	r.adminRepo = &fakeAdminRepo{store: r}
	return r
}

func (r *fakeRepository) Question() repositories.QuestionRepository { return r.questionRepo }
func (r *fakeRepository) Analytics() repositories.QuestionAnalyticsRepository {
	return r.analyticsRepo
}
func (r *fakeRepository) Student() repositories.StudentRepository       { return r.studentRepo }
func (r *fakeRepository) Assignment() repositories.AssignmentRepository { return r.assignmentRepo }
func (r *fakeRepository) Report() repositories.ReportRepository         { return r.reportRepo }
func (r *fakeRepository) Admin() repositories.AdminRepository           { return r.adminRepo }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// seedQuestion inserts an active question with a correct first choice.
func (r *fakeRepository) seedQuestion(id string, subject models.Subject, difficulty models.DifficultyLevel, scope string) *models.Question {
	q := &models.Question{
		ID:          id,
		Stem:        "stem " + id,
		Subject:     subject,
		Difficulty:  difficulty,
		LocaleScope: scope,
		IsActive:    true,
		Choices: []models.QuestionChoice{
			{ID: id + "-a", QuestionID: id, Text: "right", IsCorrect: true, Order: 1},
			{ID: id + "-b", QuestionID: id, Text: "wrong", IsCorrect: false, Order: 2},
		},
	}
	r.questions[id] = q
	return q
}

// ===== QUESTION REPO =====

type fakeQuestionRepo struct {
	store *fakeRepository
}

func (f *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if question.ID == "" {
		question.ID = fmt.Sprintf("q-%d", len(f.store.questions)+1)
	}
	for i := range question.Choices {
		if question.Choices[i].ID == "" {
			question.Choices[i].ID = fmt.Sprintf("%s-c%d", question.ID, i+1)
		}
		question.Choices[i].QuestionID = question.ID
	}
	question.CreatedAt = time.Now()
	f.store.questions[question.ID] = question
	return nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	q, ok := f.store.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeQuestionRepo) GetByIDWithAnalytics(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	q, err := f.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a, ok := f.store.analytics[id]; ok {
		q.Analytics = a
	}
	return q, nil
}

func (f *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if _, ok := f.store.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.store.questions[question.ID] = question
	return nil
}

func (f *fakeQuestionRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id string) error {
	q, ok := f.store.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.IsActive = false
	return nil
}

func (f *fakeQuestionRepo) ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID string, choices []models.QuestionChoice) error {
	q, ok := f.store.questions[questionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Choices = choices
	return nil
}

func (f *fakeQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var out []*models.Question
	for _, q := range f.store.questions {
		if filters.Subject != nil && q.Subject != *filters.Subject {
			continue
		}
		if filters.IsActive != nil && q.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, q)
	}
	return out, int64(len(out)), nil
}

func (f *fakeQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error) {
	var out []*models.Question
	for _, id := range ids {
		if q, ok := f.store.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	_, ok := f.store.questions[id]
	return ok, nil
}

func (f *fakeQuestionRepo) FindScoped(ctx context.Context, tx *gorm.DB, filters repositories.ScopedQuestionFilters) ([]*models.Question, error) {
	excluded := make(map[string]struct{}, len(filters.ExcludeIDs))
	for _, id := range filters.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	var out []*models.Question
	for _, q := range f.store.questions {
		if !q.IsActive || q.Subject != filters.Subject || q.Difficulty != filters.Difficulty {
			continue
		}
		if filters.Scope != nil && q.LocaleScope != *filters.Scope {
			continue
		}
		if _, skip := excluded[q.ID]; skip {
			continue
		}
		out = append(out, q)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) CountScoped(ctx context.Context, tx *gorm.DB, filters repositories.ScopedQuestionFilters) (int64, error) {
	found, err := f.FindScoped(ctx, tx, repositories.ScopedQuestionFilters{
		Subject:    filters.Subject,
		Difficulty: filters.Difficulty,
		Scope:      filters.Scope,
		ExcludeIDs: filters.ExcludeIDs,
	})
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// ===== ANALYTICS REPO =====

type fakeAnalyticsRepo struct {
	store *fakeRepository

	createErr error // force a failure, for batch isolation tests
}

func (f *fakeAnalyticsRepo) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error) {
	a, ok := f.store.analytics[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if q, ok := f.store.questions[questionID]; ok {
		a.Question = q
	}
	return a, nil
}

// GetByQuestionIDForUpdate mirrors the locked read, which does not preload.
func (f *fakeAnalyticsRepo) GetByQuestionIDForUpdate(ctx context.Context, tx *gorm.DB, questionID string) (*models.QuestionAnalytics, error) {
	a, ok := f.store.analytics[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAnalyticsRepo) Create(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error {
	if f.createErr != nil {
		return f.createErr
	}
	if analytics.ID == "" {
		analytics.ID = "an-" + analytics.QuestionID
	}
	f.store.analytics[analytics.QuestionID] = analytics
	return nil
}

func (f *fakeAnalyticsRepo) Update(ctx context.Context, tx *gorm.DB, analytics *models.QuestionAnalytics) error {
	if _, ok := f.store.analytics[analytics.QuestionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.store.analytics[analytics.QuestionID] = analytics
	return nil
}

func (f *fakeAnalyticsRepo) TopByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*models.QuestionAnalytics, error) {
	var out []*models.QuestionAnalytics
	for id, a := range f.store.analytics {
		if q, ok := f.store.questions[id]; ok {
			a.Question = q
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ===== STUDENT REPO =====

type fakeStudentRepo struct {
	store *fakeRepository
}

func (f *fakeStudentRepo) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	if student.ID == "" {
		student.ID = fmt.Sprintf("s-%d", len(f.store.students)+1)
	}
	student.CreatedAt = time.Now()
	f.store.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	s, ok := f.store.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeStudentRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Student, error) {
	for _, s := range f.store.students {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStudentRepo) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, tx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	if _, ok := f.store.students[student.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.store.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	var out []*models.Student
	for _, s := range f.store.students {
		if filters.Grade != nil && s.Grade != *filters.Grade {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStudentRepo) GetStudyPlan(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudyPlan, error) {
	p, ok := f.store.plans[studentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeStudentRepo) SaveStudyPlan(ctx context.Context, tx *gorm.DB, plan *models.StudyPlan) error {
	if plan.ID == "" {
		plan.ID = "plan-" + plan.StudentID
	}
	f.store.plans[plan.StudentID] = plan
	return nil
}

func (f *fakeStudentRepo) ListDueForDelivery(ctx context.Context, tx *gorm.DB, weekday string) ([]*models.Student, error) {
	var out []*models.Student
	for studentID, plan := range f.store.plans {
		if !plan.IsActive {
			continue
		}
		for _, day := range decodeStringSlice(plan.ScheduleDays) {
			if day == weekday {
				if s, ok := f.store.students[studentID]; ok {
					out = append(out, s)
				}
				break
			}
		}
	}
	return out, nil
}

// ===== ASSIGNMENT REPO =====

type fakeAssignmentRepo struct {
	store *fakeRepository
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = fmt.Sprintf("as-%d", len(f.store.assignments)+1)
	}
	assignment.CreatedAt = time.Now()
	f.store.assignments[assignment.ID] = assignment
	return nil
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error) {
	a, ok := f.store.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// Hydrate question relations the way the preloading store does.
	for i := range a.Questions {
		if q, ok := f.store.questions[a.Questions[i].QuestionID]; ok {
			a.Questions[i].Question = *q
		}
	}
	return a, nil
}

func (f *fakeAssignmentRepo) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	if _, ok := f.store.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.store.assignments[assignment.ID] = assignment
	return nil
}

func (f *fakeAssignmentRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	var out []*models.Assignment
	for _, a := range f.store.assignments {
		if a.StudentID != studentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssignmentRepo) CreateSubmissions(ctx context.Context, tx *gorm.DB, submissions []*models.AssignmentSubmission) error {
	for i, sub := range submissions {
		if sub.ID == "" {
			sub.ID = fmt.Sprintf("sub-%d-%d", len(f.store.submissions), i)
		}
	}
	f.store.submissions = append(f.store.submissions, submissions...)
	return nil
}

func (f *fakeAssignmentRepo) GetSubmissionsInRange(ctx context.Context, tx *gorm.DB, studentID string, from, to time.Time) ([]*models.AssignmentSubmission, error) {
	var out []*models.AssignmentSubmission
	for _, sub := range f.store.submissions {
		a, ok := f.store.assignments[sub.AssignmentID]
		if !ok || a.StudentID != studentID {
			continue
		}
		if sub.SubmittedAt.Before(from) || !sub.SubmittedAt.Before(to) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

// ===== REPORT REPO =====

type fakeReportRepo struct {
	store *fakeRepository
}

func reportKey(studentID string, weekStart time.Time) string {
	return studentID + "|" + weekStart.Format("2006-01-02")
}

func (f *fakeReportRepo) Save(ctx context.Context, tx *gorm.DB, report *models.WeeklyReport) error {
	key := reportKey(report.StudentID, report.WeekStart)
	if existing, ok := f.store.reports[key]; ok {
		report.ID = existing.ID
	} else if report.ID == "" {
		report.ID = "rep-" + key
	}
	f.store.reports[key] = report
	return nil
}

func (f *fakeReportRepo) GetByStudentWeek(ctx context.Context, tx *gorm.DB, studentID string, weekStart time.Time) (*models.WeeklyReport, error) {
	r, ok := f.store.reports[reportKey(studentID, weekStart)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeReportRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]*models.WeeklyReport, error) {
	var out []*models.WeeklyReport
	for _, r := range f.store.reports {
		if r.StudentID != studentID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ===== ADMIN REPO =====

type fakeAdminRepo struct {
	store *fakeRepository
}

func (f *fakeAdminRepo) Create(ctx context.Context, tx *gorm.DB, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = "adm-" + admin.Email
	}
	f.store.admins[admin.Email] = admin
	return nil
}

func (f *fakeAdminRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Admin, error) {
	a, ok := f.store.admins[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAdminRepo) Update(ctx context.Context, tx *gorm.DB, admin *models.Admin) error {
	f.store.admins[admin.Email] = admin
	return nil
}

// ===== SHARED TEST HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *validator.Validator {
	return validator.New()
}
