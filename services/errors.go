package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeConfiguration   ErrorType = "configuration"
	ErrorTypeEmbedding       ErrorType = "embedding"
	ErrorTypeBackend         ErrorType = "backend"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeExternal        ErrorType = "external"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when their types match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. They are compared by type, so use errors.Is with
// them rather than returning them directly from services.
var (
	// Deployment configuration missing (e.g. cloud/region at index creation)
	ErrConfiguration = NewDomainError(ErrorTypeConfiguration, "required configuration missing", nil)

	// Embedding service failures
	ErrEmbedding = NewDomainError(ErrorTypeEmbedding, "embedding generation failed", nil)

	// Vector index service failures
	ErrBackend        = NewDomainError(ErrorTypeBackend, "vector backend error", nil)
	ErrIndexNotFound  = NewDomainError(ErrorTypeBackend, "vector index not found", nil)
	ErrBackendTimeout = NewDomainError(ErrorTypeBackend, "vector backend timeout", nil)

	// Caller contract violations
	ErrInvalidArgument = NewDomainError(ErrorTypeInvalidArgument, "invalid argument", nil)

	// Request validation errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyQuestion   = NewDomainError(ErrorTypeValidation, "No question provided", nil)
	ErrQuestionTooLong = NewDomainError(ErrorTypeValidation, "question is too long", nil)

	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)

	// Completion provider errors
	ErrProviderUnavailable = NewDomainError(ErrorTypeExternal, "LLM provider unavailable", nil)
	ErrProviderError       = NewDomainError(ErrorTypeExternal, "LLM provider error", nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfiguration
}

// IsEmbeddingError checks if an error is an embedding service error
func IsEmbeddingError(err error) bool {
	return GetErrorType(err) == ErrorTypeEmbedding
}

// IsBackendError checks if an error is a vector backend error
func IsBackendError(err error) bool {
	return GetErrorType(err) == ErrorTypeBackend
}

// IsInvalidArgumentError checks if an error is a caller contract violation
func IsInvalidArgumentError(err error) bool {
	return GetErrorType(err) == ErrorTypeInvalidArgument
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the message of a domain error without its type
// prefix or wrapped cause, or err.Error() for other errors.
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapConfiguration wraps an error as a configuration error
func WrapConfiguration(message string, err error) error {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}

// WrapEmbedding wraps an error as an embedding service error
func WrapEmbedding(message string, err error) error {
	return NewDomainError(ErrorTypeEmbedding, message, err)
}

// WrapBackend wraps an error as a vector backend error
func WrapBackend(message string, err error) error {
	return NewDomainError(ErrorTypeBackend, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
