package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/prepstack/testprep-service/internal/locale"
	"github.com/prepstack/testprep-service/internal/models"
)

// Validator wraps struct validation plus the registered domain rules.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all domain rules registered
func New() *Validator {
	validate := validator.New()
	registerDomainRules(validate)

	return &Validator{
		validate: validate,
		business: NewBusinessValidator(),
	}
}

// Validate validates a struct; returns ValidationErrors or nil
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator returns the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// registerDomainRules registers the custom tags shared by all request DTOs
func registerDomainRules(validate *validator.Validate) {
	validate.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return models.Subject(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("locale_scope", func(fl validator.FieldLevel) bool {
		return locale.IsValidScope(fl.Field().String())
	})

	validate.RegisterValidation("country_code", func(fl validator.FieldLevel) bool {
		code := strings.TrimSpace(fl.Field().String())
		return len(code) == 2
	})
}

// ===== VALIDATION ERRORS =====

// ValidationError represents one failed field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// ToValidationErrors converts validator/v10 errors into our error type
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			errors = append(errors, ValidationError{
				Field:   fe.Field(),
				Message: getErrorMessage(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return errors
	}

	return ValidationErrors{{Field: "request", Message: err.Error()}}
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "subject":
		return "must be a valid subject"
	case "difficulty_level":
		return "must be EASY, MEDIUM or HARD"
	case "locale_scope":
		return "must be GLOBAL, COUNTRY:<code> or STATE:<country>-<region>"
	case "country_code":
		return "must be a two-letter country code"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
