package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/utils"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", services.NewDomainError(services.ErrorTypeValidation, "No question provided", nil), http.StatusBadRequest, "No question provided"},
		{"invalid argument", services.NewDomainError(services.ErrorTypeInvalidArgument, "top_k must be >= 1, got 0", nil), http.StatusBadRequest, "top_k must be >= 1, got 0"},
		{"rate limit", services.NewDomainError(services.ErrorTypeRateLimit, "rate limit exceeded", nil), http.StatusTooManyRequests, "rate limit exceeded"},
		{"external", services.WrapExternal("OpenAI API error: timeout", errors.New("timeout")), http.StatusInternalServerError, "OpenAI API error: timeout"},
		{"backend", services.WrapBackend("index unreachable", nil), http.StatusInternalServerError, "An unexpected error occurred"},
		{"internal", services.WrapInternal("boom", nil), http.StatusInternalServerError, "An internal error occurred"},
		{"plain error", errors.New("plain"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp["error"])
		})
	}
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		err := &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"question": "question is required"}}
		w := httptest.NewRecorder()
		HandleValidationError(w, err, zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Validation failed","details":{"question":"question is required"}}`, w.Body.String())
	})

	t.Run("generic", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("bad input"), zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"bad input"}`, w.Body.String())
	})
}
