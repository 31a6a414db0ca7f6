package validator

import (
	"testing"

	"github.com/prepstack/testprep-service/internal/models"
)

func validQuestionCreate() *QuestionCreateRequest {
	return &QuestionCreateRequest{
		Stem:       "What is 2 + 2?",
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyEasy,
		Choices: []ChoiceRequest{
			{Text: "3", Order: 1},
			{Text: "4", IsCorrect: true, Order: 2},
			{Text: "5", Order: 3},
		},
	}
}

func TestValidateQuestionCreate_Valid(t *testing.T) {
	bv := NewBusinessValidator()

	if errs := bv.ValidateQuestionCreate(validQuestionCreate()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateQuestionCreate_NoCorrectChoice(t *testing.T) {
	bv := NewBusinessValidator()

	req := validQuestionCreate()
	req.Choices[1].IsCorrect = false

	errs := bv.ValidateQuestionCreate(req)
	if len(errs) == 0 {
		t.Fatal("expected an error for zero correct choices")
	}
}

func TestValidateQuestionCreate_MultipleCorrectChoices(t *testing.T) {
	bv := NewBusinessValidator()

	req := validQuestionCreate()
	req.Choices[0].IsCorrect = true

	errs := bv.ValidateQuestionCreate(req)
	if len(errs) == 0 {
		t.Fatal("expected an error for two correct choices")
	}
}

func TestValidateQuestionCreate_DuplicateOrder(t *testing.T) {
	bv := NewBusinessValidator()

	req := validQuestionCreate()
	req.Choices[2].Order = 1

	errs := bv.ValidateQuestionCreate(req)
	if len(errs) == 0 {
		t.Fatal("expected an error for duplicate choice order")
	}
}

func TestValidateQuestionCreate_ChoiceCountBounds(t *testing.T) {
	bv := NewBusinessValidator()

	req := validQuestionCreate()
	req.Choices = req.Choices[:1]
	req.Choices[0].IsCorrect = true

	if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
		t.Error("expected an error for a single choice")
	}

	req = validQuestionCreate()
	for i := 4; i <= 8; i++ {
		req.Choices = append(req.Choices, ChoiceRequest{Text: "extra", Order: i})
	}
	if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
		t.Error("expected an error for more than six choices")
	}
}

func TestValidateQuestionCreate_BadLocaleScope(t *testing.T) {
	bv := NewBusinessValidator()

	req := validQuestionCreate()
	req.LocaleScope = "REGION:US-CA"

	if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
		t.Fatal("expected an error for a malformed locale scope")
	}
}

func TestValidateQuestionUpdate_ChoicesOptional(t *testing.T) {
	bv := NewBusinessValidator()

	stem := "Updated stem"
	req := &QuestionUpdateRequest{Stem: &stem}

	if errs := bv.ValidateQuestionUpdate(req); len(errs) != 0 {
		t.Fatalf("expected no errors without choices, got %v", errs)
	}

	req.Choices = []ChoiceRequest{
		{Text: "a", Order: 1},
		{Text: "b", Order: 2},
	}
	if errs := bv.ValidateQuestionUpdate(req); len(errs) == 0 {
		t.Fatal("expected an error when replacement choices have no correct answer")
	}
}

func TestValidateStudentRegister(t *testing.T) {
	v := New()

	req := &StudentRegisterRequest{
		Name:    "Alice Nguyen",
		Email:   "alice@example.com",
		Grade:   9,
		Country: "US",
	}
	if err := v.Validate(req); err != nil {
		t.Fatalf("expected valid registration, got %v", err)
	}

	req.Grade = 13
	if err := v.Validate(req); err == nil {
		t.Error("expected an error for grade 13")
	}

	req.Grade = 9
	req.Country = "USA"
	if err := v.Validate(req); err == nil {
		t.Error("expected an error for a three-letter country code")
	}
}
