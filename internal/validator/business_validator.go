package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/prepstack/testprep-service/internal/locale"
)

// BusinessValidator handles business rule validation beyond struct tags
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	registerDomainRules(validate)

	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Choice invariants
	errors = append(errors, bv.validateChoiceRules(req.Choices)...)

	// Default scope is GLOBAL; anything else must be well formed
	if req.LocaleScope != "" && !locale.IsValidScope(req.LocaleScope) {
		errors = append(errors, ValidationError{
			Field:   "locale_scope",
			Message: "must be GLOBAL, COUNTRY:<code> or STATE:<country>-<region>",
			Value:   req.LocaleScope,
			Rule:    "locale_scope",
		})
	}

	errors = append(errors, bv.validateTags(req.Tags)...)

	return errors
}

// ValidateQuestionUpdate validates question update business rules
func (bv *BusinessValidator) ValidateQuestionUpdate(req *QuestionUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// Choices are optional on update; when sent, the full invariants apply
	if req.Choices != nil {
		errors = append(errors, bv.validateChoiceRules(req.Choices)...)
	}

	errors = append(errors, bv.validateTags(req.Tags)...)

	return errors
}

// validateChoiceRules enforces the choice-set invariants: exactly one
// correct choice, and 1-based display orders unique within the question.
func (bv *BusinessValidator) validateChoiceRules(choices []ChoiceRequest) ValidationErrors {
	var errors ValidationErrors

	correctCount := 0
	seenOrders := make(map[int]bool, len(choices))

	for i, choice := range choices {
		if choice.IsCorrect {
			correctCount++
		}
		if seenOrders[choice.Order] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("choices[%d].order", i),
				Message: "display order must be unique within the question",
				Value:   choice.Order,
				Rule:    "business_logic",
			})
		}
		seenOrders[choice.Order] = true
	}

	if correctCount != 1 {
		errors = append(errors, ValidationError{
			Field:   "choices",
			Message: "exactly one choice must be marked correct",
			Value:   correctCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateTags(tags []string) ValidationErrors {
	var errors ValidationErrors

	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tags[%d]", i),
				Message: "tag cannot be empty",
				Value:   tag,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}
