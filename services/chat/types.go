package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/circassiandna/chatbot/services/providers"
	"github.com/circassiandna/chatbot/services/retrieval"
)

// Request is the body of POST /api/chat
type Request struct {
	Question string `json:"question" validate:"required"`
}

// Response is the success body of POST /api/chat
type Response struct {
	Answer string `json:"answer"`
}

// Answer is the outcome of one pipeline run
type Answer struct {
	RequestID uuid.UUID
	Text      string
	Model     string
	Contexts  int
	Usage     providers.Usage
	Latency   time.Duration
}

// PipelineContext holds state during pipeline execution
type PipelineContext struct {
	RequestID uuid.UUID
	StartTime time.Time
	Question  string
	Contexts  []retrieval.ContextItem
	Prompt    string
	Usage     providers.Usage
}
