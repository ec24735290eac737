package domain

import (
	"errors"
	"strings"
)

// Таксономия ошибок планировщика. Вызывающий код различает их через errors.Is / errors.As.
var (
	ErrValidation          = errors.New("validation failed")
	ErrPastDate            = errors.New("date is in the past")
	ErrSpecialistConflict  = errors.New("specialist already has an active reservation in this interval")
	ErrClientConflict      = errors.New("client already has an active reservation in this interval")
	ErrWeeklyLimitExceeded = errors.New("client already has an active reservation for this service this week")
	ErrInvalidTransition   = errors.New("status transition is not allowed")
	ErrNotFound            = errors.New("not found")
	ErrPersistence         = errors.New("persistence failure")
	ErrAccessDenied        = errors.New("access denied")
	ErrClosedDay           = errors.New("booking is closed on this day")
	ErrOutsideWorkingHours = errors.New("interval is outside the specialist's working hours")
	ErrIdempotencyConflict = errors.New("idempotency key was already used with a different request")
)

// FieldError ошибка конкретного поля запроса
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every field-level problem of a request
type ValidationError struct {
	Fields []FieldError
}

// Add appends a field error
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors true if at least one field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Err returns nil when nothing was collected
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError single-field shortcut
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
