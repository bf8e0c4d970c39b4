package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/retrieval"
)

func TestNewPromptService(t *testing.T) {
	config := DefaultValidationConfig()
	service := NewPromptService(config)

	if service == nil {
		t.Fatal("NewPromptService() returned nil")
	}

	if service.config.MaxLength != config.MaxLength {
		t.Errorf("config not set correctly")
	}
}

func TestNewPromptServiceWithDefaults(t *testing.T) {
	service := NewPromptServiceWithDefaults()

	if service == nil {
		t.Fatal("NewPromptServiceWithDefaults() returned nil")
	}

	if service.config.MaxLength == 0 {
		t.Errorf("default config not properly initialized")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      ValidationConfig
		question    string
		want        string
		wantMessage string
	}{
		{
			name:     "valid question",
			config:   DefaultValidationConfig(),
			question: "How do I order a test?",
			want:     "How do I order a test?",
		},
		{
			name:     "surrounding whitespace trimmed",
			config:   DefaultValidationConfig(),
			question: "  What is mtDNA?\n",
			want:     "What is mtDNA?",
		},
		{
			name:        "empty question",
			config:      DefaultValidationConfig(),
			question:    "",
			wantMessage: "No question provided",
		},
		{
			name:        "whitespace only",
			config:      DefaultValidationConfig(),
			question:    " \t\n ",
			wantMessage: "No question provided",
		},
		{
			name:        "too long",
			config:      ValidationConfig{MaxLength: 10},
			question:    "this question is far too long",
			wantMessage: "question is too long: maximum 10 characters",
		},
		{
			name:     "length counted in characters",
			config:   ValidationConfig{MaxLength: 6},
			question: "Привет",
			want:     "Привет",
		},
		{
			name:     "no limit",
			config:   ValidationConfig{},
			question: strings.Repeat("a", 10000),
			want:     strings.Repeat("a", 10000),
		},
		{
			name:        "null byte",
			config:      DefaultValidationConfig(),
			question:    "hello\x00world",
			wantMessage: "question contains null bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewPromptService(tt.config)
			result, err := service.Validate(tt.question)

			if tt.wantMessage != "" {
				if err == nil {
					t.Fatalf("Validate() expected error %q, got nil", tt.wantMessage)
				}
				if !services.IsValidationError(err) {
					t.Errorf("Validate() error type = %s, want validation", services.GetErrorType(err))
				}
				if got := services.GetErrorMessage(err); got != tt.wantMessage {
					t.Errorf("Validate() message = %q, want %q", got, tt.wantMessage)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if result.Question != tt.want {
				t.Errorf("Question = %q, want %q", result.Question, tt.want)
			}
		})
	}
}

func TestValidate_EmptyMatchesSentinel(t *testing.T) {
	_, err := NewPromptServiceWithDefaults().Validate("")
	if !errors.Is(err, services.ErrEmptyQuestion) {
		t.Errorf("expected error to match ErrEmptyQuestion, got %v", err)
	}
}

func TestValidate_RedactsSecretsForLogging(t *testing.T) {
	question := "my key is sk-abcdefghijklmnopqrstuvwxyz123456, is my kit shipped?"

	result, err := NewPromptServiceWithDefaults().Validate(question)
	if err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	if !result.SecretsDetected {
		t.Error("expected SecretsDetected")
	}
	if result.Question != question {
		t.Errorf("Question should be untouched, got %q", result.Question)
	}
	if strings.Contains(result.LogSafe, "sk-abc") {
		t.Errorf("LogSafe still contains key: %q", result.LogSafe)
	}
	if !strings.Contains(result.LogSafe, "[REDACTED_OPENAI_KEY]") {
		t.Errorf("LogSafe missing marker: %q", result.LogSafe)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(result.Warnings))
	}
}

func strPtr(s string) *string { return &s }

func TestCombineContext(t *testing.T) {
	tests := []struct {
		name  string
		items []retrieval.ContextItem
		want  string
	}{
		{
			name:  "no items",
			items: nil,
			want:  "",
		},
		{
			name:  "single item",
			items: []retrieval.ContextItem{{Q: strPtr("hello"), A: strPtr("world")}},
			want:  "Q: hello\nA: world",
		},
		{
			name: "two items",
			items: []retrieval.ContextItem{
				{Q: strPtr("Ordering"), A: strPtr("Order a kit.")},
				{Q: strPtr("mtDNA"), A: strPtr("From mother.")},
			},
			want: "Q: Ordering\nA: Order a kit.\n\nQ: mtDNA\nA: From mother.",
		},
		{
			name:  "missing fields",
			items: []retrieval.ContextItem{{Q: strPtr("only title")}},
			want:  "Q: only title\nA: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineContext(tt.items); got != tt.want {
				t.Errorf("CombineContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	items := []retrieval.ContextItem{{Q: strPtr("hello"), A: strPtr("world")}}

	got := Build("hi?", items)
	want := "You are a helpful assistant for Circassian DNA.\n" +
		"First, check the knowledge base entries below.\n" +
		"If you find a relevant answer, use it directly.\n" +
		"If the knowledge base does not have a clear answer, you may use your own knowledge.\n" +
		"Always prefer the knowledge base if there is a match.\n\n" +
		"Knowledge base: Q: hello\nA: world\n\n" +
		"Question: hi?\nAnswer:"

	if got != want {
		t.Errorf("Build() =\n%q\nwant\n%q", got, want)
	}
}

func TestBuild_EmptyContext(t *testing.T) {
	got := Build("anything", nil)
	if !strings.Contains(got, "Knowledge base: \n\nQuestion: anything\nAnswer:") {
		t.Errorf("unexpected prompt for empty context: %q", got)
	}
}
