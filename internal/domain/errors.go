package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrPivotMissing means a word has no pivot-language translation. Word
	// intake always creates one, so this indicates broken data upstream.
	ErrPivotMissing = errors.New("pivot translation missing")

	// External collaborator failures.
	ErrTranslationService = errors.New("translation service error")
	ErrSynthesis          = errors.New("speech synthesis error")
	ErrUpload             = errors.New("asset upload error")
	ErrRecognition        = errors.New("image recognition error")
	ErrSpeechService      = errors.New("speech recognition error")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// ServiceError wraps a failure of an external collaborator. Kind is one of
// the service sentinels (ErrTranslationService, ErrSynthesis, ...), Err is
// the underlying cause. Both are reachable through errors.Is.
type ServiceError struct {
	Kind error
	Err  error
}

// NewServiceError wraps err with the given kind. A nil err yields nil.
func NewServiceError(kind, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Kind: kind, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Timeout reports whether the call was cut off by its deadline.
func (e *ServiceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// FailureClass tells a transport layer how to present an error.
type FailureClass int

const (
	FailureUnknown FailureClass = iota
	// FailureRetryable is an external collaborator failure; the same call may succeed later.
	FailureRetryable
	// FailureInternal is a data-integrity problem (missing rows that must exist).
	FailureInternal
	// FailureInvalid is a caller error.
	FailureInvalid
)

func (c FailureClass) String() string {
	switch c {
	case FailureRetryable:
		return "retryable"
	case FailureInternal:
		return "internal"
	case FailureInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by the materialization services to a FailureClass.
func Classify(err error) FailureClass {
	var svcErr *ServiceError
	switch {
	case err == nil:
		return FailureUnknown
	case errors.As(err, &svcErr):
		return FailureRetryable
	case errors.Is(err, ErrPivotMissing), errors.Is(err, ErrNotFound):
		return FailureInternal
	case errors.Is(err, ErrValidation):
		return FailureInvalid
	default:
		return FailureUnknown
	}
}
