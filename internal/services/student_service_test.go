package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/validator"
)

func newStudentFixture() (*fakeRepository, StudentService) {
	repo := newFakeRepository()
	svc := NewStudentService(repo, nil, testLogger(), testValidator())
	return repo, svc
}

func TestStudentRegister(t *testing.T) {
	_, svc := newStudentFixture()

	region := "ca"
	resp, err := svc.Register(context.Background(), &validator.StudentRegisterRequest{
		Name:        "  Pat Jones ",
		Email:       "Pat@Example.COM",
		Grade:       8,
		Country:     "us",
		StateRegion: &region,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if resp.Email != "pat@example.com" {
		t.Errorf("email not normalized: %s", resp.Email)
	}
	if resp.Country != "US" {
		t.Errorf("country not normalized: %s", resp.Country)
	}
	if resp.Name != "Pat Jones" {
		t.Errorf("name not trimmed: %q", resp.Name)
	}
}

func TestStudentRegister_DuplicateEmail(t *testing.T) {
	_, svc := newStudentFixture()

	req := &validator.StudentRegisterRequest{
		Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestUpdateEmailPreference(t *testing.T) {
	repo, svc := newStudentFixture()

	registered, err := svc.Register(context.Background(), &validator.StudentRegisterRequest{
		Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !registered.EmailOptIn {
		t.Fatalf("expected opt-in by default")
	}

	resp, err := svc.UpdateEmailPreference(context.Background(), registered.ID, false)
	if err != nil {
		t.Fatalf("UpdateEmailPreference failed: %v", err)
	}
	if resp.EmailOptIn {
		t.Errorf("expected opt-out after update")
	}

	stored, err := repo.Student().GetByID(context.Background(), nil, registered.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.EmailOptIn {
		t.Errorf("opt-out not persisted")
	}
}

func TestUpdateEmailPreference_UnknownStudent(t *testing.T) {
	_, svc := newStudentFixture()

	if _, err := svc.UpdateEmailPreference(context.Background(), "missing", false); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestStudentRegister_InvalidGrade(t *testing.T) {
	_, svc := newStudentFixture()

	_, err := svc.Register(context.Background(), &validator.StudentRegisterRequest{
		Name: "Pat", Email: "pat@example.com", Grade: 13, Country: "US",
	})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
}

func TestSaveStudyPlan_CreateThenReplace(t *testing.T) {
	repo, svc := newStudentFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US"}

	first, err := svc.SaveStudyPlan(context.Background(), "s1", &validator.StudyPlanRequest{
		Subjects:         []models.Subject{models.SubjectMath},
		ScheduleDays:     []string{"MONDAY", "THURSDAY"},
		QuestionsPerDay:  10,
		TargetDifficulty: models.DifficultyMedium,
		DeliveryChannels: []string{"EMAIL"},
	})
	if err != nil {
		t.Fatalf("SaveStudyPlan failed: %v", err)
	}
	if first.QuestionsPerDay != 10 || len(first.ScheduleDays) != 2 {
		t.Errorf("unexpected plan: %+v", first)
	}

	second, err := svc.SaveStudyPlan(context.Background(), "s1", &validator.StudyPlanRequest{
		Subjects:         []models.Subject{models.SubjectMath, models.SubjectScience},
		ScheduleDays:     []string{"FRIDAY"},
		QuestionsPerDay:  5,
		TargetDifficulty: models.DifficultyHard,
		DeliveryChannels: []string{"IN_APP"},
	})
	if err != nil {
		t.Fatalf("second SaveStudyPlan failed: %v", err)
	}

	// One plan per student: the save replaces, never stacks.
	if second.ID != first.ID {
		t.Errorf("expected plan to be replaced in place, got new ID %s", second.ID)
	}
	if len(repo.plans) != 1 {
		t.Errorf("expected exactly one stored plan, got %d", len(repo.plans))
	}
	if second.QuestionsPerDay != 5 || len(second.Subjects) != 2 {
		t.Errorf("replacement not applied: %+v", second)
	}
}

func TestSaveStudyPlan_UnknownStudent(t *testing.T) {
	_, svc := newStudentFixture()

	_, err := svc.SaveStudyPlan(context.Background(), "missing", &validator.StudyPlanRequest{
		Subjects:         []models.Subject{models.SubjectMath},
		ScheduleDays:     []string{"MONDAY"},
		QuestionsPerDay:  10,
		TargetDifficulty: models.DifficultyMedium,
		DeliveryChannels: []string{"EMAIL"},
	})
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestGetStudyPlan_NotFound(t *testing.T) {
	repo, svc := newStudentFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Pat", Email: "pat@example.com", Grade: 8, Country: "US"}

	_, err := svc.GetStudyPlan(context.Background(), "s1")
	if !errors.Is(err, ErrStudyPlanNotFound) {
		t.Fatalf("expected ErrStudyPlanNotFound, got %v", err)
	}
}
