package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/circassiandna/chatbot/services"
)

// ValidationConfig holds configuration for question validation
type ValidationConfig struct {
	// MaxLength is the longest accepted question in characters; 0 disables
	// the check.
	MaxLength int
}

// DefaultValidationConfig returns a sensible default configuration
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxLength: 2000,
	}
}

// ValidationResult contains the results of question validation
type ValidationResult struct {
	// Question is the trimmed question passed on to retrieval.
	Question string

	// LogSafe is Question with secrets redacted, for logging only.
	LogSafe string

	SecretsDetected bool

	// Injections lists suspected prompt-injection phrasing. The question
	// is still answered.
	Injections []InjectionType
	Warnings   []string
}

// PromptService validates visitor questions and builds completion prompts
type PromptService struct {
	config ValidationConfig
}

// NewPromptService creates a new prompt service with the given configuration
func NewPromptService(config ValidationConfig) *PromptService {
	return &PromptService{
		config: config,
	}
}

// NewPromptServiceWithDefaults creates a new prompt service with default configuration
func NewPromptServiceWithDefaults() *PromptService {
	return NewPromptService(DefaultValidationConfig())
}

// Validate checks a question. An empty or whitespace-only question fails
// with services.ErrEmptyQuestion's type and message; one longer than
// MaxLength fails as a validation error. Whitespace-only questions
// deliberately count as empty.
func (s *PromptService) Validate(question string) (*ValidationResult, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrEmptyQuestion.Message, nil)
	}

	if s.config.MaxLength > 0 {
		if n := utf8.RuneCountInString(trimmed); n > s.config.MaxLength {
			return nil, services.NewDomainError(services.ErrorTypeValidation,
				fmt.Sprintf("question is too long: maximum %d characters", s.config.MaxLength), nil).
				WithDetail("length", n)
		}
	}

	if strings.ContainsRune(trimmed, '\x00') {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "question contains null bytes", nil)
	}

	result := &ValidationResult{
		Question: trimmed,
		LogSafe:  trimmed,
		Warnings: []string{},
	}

	if HasSecrets(trimmed) {
		result.SecretsDetected = true
		result.LogSafe = RedactSecrets(trimmed)
		result.Warnings = append(result.Warnings, "question contains sensitive data")
	}

	if injections := DetectInjections(trimmed); len(injections) > 0 {
		result.Injections = injections
		result.Warnings = append(result.Warnings, "question resembles a prompt injection")
	}

	return result, nil
}
