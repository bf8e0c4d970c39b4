package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/internal/observability"
	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/chat"
	"github.com/circassiandna/chatbot/utils"
)

// maxChatBodyBytes bounds the request body of POST /api/chat
const maxChatBodyBytes = 64 << 10

// ChatService defines the interface for answering questions
type ChatService interface {
	Answer(ctx context.Context, question string) (*chat.Answer, error)
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequestID(ctx, h.logger)

	// Parse request body; a JSON null is treated as an empty object
	var chatReq chat.Request
	if err := decodeSingleJSON(http.MaxBytesReader(w, r.Body, maxChatBodyBytes), &chatReq); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	// Validate request
	if err := utils.ValidateStruct(&chatReq); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		if utils.FailedTag(err, "question") == "required" {
			_ = utils.WriteError(w, http.StatusBadRequest, services.ErrEmptyQuestion.Message)
			return
		}
		HandleValidationError(w, err, h.logger)
		return
	}

	answer, err := h.service.Answer(ctx, chatReq.Question)
	if err != nil {
		logger.Error("failed to answer question", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	logger.Debug("question answered",
		zap.String("chat_id", answer.RequestID.String()),
		zap.Int("contexts", answer.Contexts))

	_ = utils.WriteJSON(w, http.StatusOK, chat.Response{Answer: answer.Text})
}

// decodeSingleJSON decodes exactly one JSON value from r into v. Trailing
// data after the value is an error.
func decodeSingleJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON value")
		}
		return err
	}
	return nil
}
