package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services and mapped to HTTP codes in handlers.
var (
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAnalyticsNotFound  = errors.New("analytics not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrStudyPlanNotFound  = errors.New("study plan not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrReportNotFound     = errors.New("report not found")

	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")

	ErrAssignmentNotDeliverable   = errors.New("assignment cannot be delivered in its current status")
	ErrAssignmentAlreadyCompleted = errors.New("assignment already completed")
)

// BusinessRuleError signals a domain rule violation (HTTP 422).
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Rule, e.Message)
}
