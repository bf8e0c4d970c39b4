// Package chat answers visitor questions: it retrieves knowledge base
// context, assembles the prompt and asks the completion provider.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/prompt"
	"github.com/circassiandna/chatbot/services/providers"
	"github.com/circassiandna/chatbot/services/retrieval"
)

// DefaultTopN is the number of context entries placed in a prompt.
const DefaultTopN = 3

// ContextRetriever supplies prompt context for a question.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, question string, topN int) []retrieval.ContextItem
}

// Config holds composer settings
type Config struct {
	Model string
	TopN  int
}

// ChatService orchestrates the answer pipeline
type ChatService struct {
	retriever     ContextRetriever
	provider      providers.Provider
	promptService *prompt.PromptService
	config        Config
	logger        *zap.Logger
}

// NewChatService creates a new chat service with all dependencies
func NewChatService(
	retriever ContextRetriever,
	provider providers.Provider,
	promptService *prompt.PromptService,
	config Config,
	logger *zap.Logger,
) *ChatService {
	if config.TopN < 1 {
		config.TopN = DefaultTopN
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	return &ChatService{
		retriever:     retriever,
		provider:      provider,
		promptService: promptService,
		config:        config,
		logger:        logger,
	}
}

// Answer runs the pipeline for a single question. Validation failures are
// returned as validation errors. Completion failures are returned as
// external errors whose message is safe to show to the visitor.
func (s *ChatService) Answer(ctx context.Context, question string) (resp *Answer, err error) {
	pipelineCtx := &PipelineContext{
		RequestID: uuid.New(),
		StartTime: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in answer pipeline",
				zap.String("request_id", pipelineCtx.RequestID.String()),
				zap.String("panic", fmt.Sprint(r)))
			CompletionsTotal.WithLabelValues(resultFailed).Inc()
			resp = nil
			err = services.NewDomainError(services.ErrorTypeExternal,
				fmt.Sprintf("Answer generation error: %v", r), nil)
		}
	}()

	// Step 1: Validate question
	validated, err := s.promptService.Validate(question)
	if err != nil {
		CompletionsTotal.WithLabelValues(resultRejected).Inc()
		return nil, err
	}
	pipelineCtx.Question = validated.Question

	s.logger.Info("starting answer pipeline",
		zap.String("request_id", pipelineCtx.RequestID.String()),
		zap.String("question", validated.LogSafe),
		zap.Bool("secrets_detected", validated.SecretsDetected))
	if len(validated.Injections) > 0 {
		types := make([]string, len(validated.Injections))
		for i, t := range validated.Injections {
			types[i] = string(t)
		}
		s.logger.Warn("question resembles a prompt injection",
			zap.String("request_id", pipelineCtx.RequestID.String()),
			zap.Strings("types", types))
	}

	// Step 2: Retrieve context
	pipelineCtx.Contexts = s.retriever.RetrieveContext(ctx, validated.Question, s.config.TopN)
	s.logger.Debug("context retrieved",
		zap.String("request_id", pipelineCtx.RequestID.String()),
		zap.Int("contexts", len(pipelineCtx.Contexts)))

	// Step 3: Build prompt
	pipelineCtx.Prompt = prompt.Build(validated.Question, pipelineCtx.Contexts)

	// Step 4: Invoke LLM
	content, err := s.invokeLLM(ctx, pipelineCtx)
	if err != nil {
		CompletionsTotal.WithLabelValues(resultFailed).Inc()
		return nil, err
	}

	latency := time.Since(pipelineCtx.StartTime)
	CompletionsTotal.WithLabelValues(resultOK).Inc()
	CompletionDuration.Observe(latency.Seconds())

	s.logger.Info("answer pipeline completed",
		zap.String("request_id", pipelineCtx.RequestID.String()),
		zap.Int("latency_ms", int(latency.Milliseconds())),
		zap.Int("tokens", pipelineCtx.Usage.TotalTokens))

	return &Answer{
		RequestID: pipelineCtx.RequestID,
		Text:      content,
		Model:     s.config.Model,
		Contexts:  len(pipelineCtx.Contexts),
		Usage:     pipelineCtx.Usage,
		Latency:   latency,
	}, nil
}

// invokeLLM sends the prompt as a single user message
func (s *ChatService) invokeLLM(ctx context.Context, pipelineCtx *PipelineContext) (string, error) {
	req := &providers.ChatRequest{
		Model: s.config.Model,
		Messages: []providers.Message{
			{Role: "user", Content: pipelineCtx.Prompt},
		},
		User: pipelineCtx.RequestID.String(),
	}

	providerResp, err := s.provider.ChatCompletion(ctx, req)
	if err != nil {
		s.logger.Error("completion request failed",
			zap.String("request_id", pipelineCtx.RequestID.String()),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		if providers.IsProviderError(err) {
			return "", services.WrapExternal("OpenAI API error: "+err.Error(), err)
		}
		return "", services.WrapExternal("Answer generation error: "+err.Error(), err)
	}

	content, err := providerResp.Content()
	if err != nil {
		s.logger.Error("completion returned no answer",
			zap.String("request_id", pipelineCtx.RequestID.String()),
			zap.Error(err))
		return "", services.WrapExternal("Answer generation error: "+err.Error(), err)
	}

	pipelineCtx.Usage = providerResp.Usage
	return content, nil
}
