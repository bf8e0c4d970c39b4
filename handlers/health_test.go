package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/vectorindex"
)

const testIndex = "circassiandna-knowledgebase"

type unreachableIndex struct{ vectorindex.Client }

func (unreachableIndex) ListIndexes(context.Context) ([]string, error) {
	return nil, services.WrapBackend("connection refused", nil)
}

func testStore() *knowledge.Store {
	return knowledge.NewStore([]knowledge.Entry{{Title: "hello", Text: "world"}})
}

func TestHandleHealth(t *testing.T) {
	h := NewHealthHandler(nil, nil, HealthConfig{}, zap.NewNop())
	w := httptest.NewRecorder()

	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestHandleReadiness(t *testing.T) {
	withIndex := vectorindex.NewMemoryClient(zap.NewNop())
	require.NoError(t, withIndex.CreateIndex(context.Background(), testIndex, vectorindex.Dimension, vectorindex.MetricCosine))

	tests := []struct {
		name       string
		store      *knowledge.Store
		index      vectorindex.Client
		credential bool
		wantStatus int
		wantChecks map[string]interface{}
	}{
		{
			name:       "fallback only",
			store:      testStore(),
			wantStatus: http.StatusOK,
			wantChecks: map[string]interface{}{"knowledge_base": "loaded", "vector_index": "disabled"},
		},
		{
			name:       "index present",
			store:      testStore(),
			index:      withIndex,
			credential: true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]interface{}{"knowledge_base": "loaded", "vector_index": "healthy"},
		},
		{
			name:       "index missing",
			store:      testStore(),
			index:      vectorindex.NewMemoryClient(zap.NewNop()),
			credential: true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]interface{}{"knowledge_base": "loaded", "vector_index": "missing"},
		},
		{
			name:       "index unreachable",
			store:      testStore(),
			index:      unreachableIndex{},
			credential: true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]interface{}{"knowledge_base": "loaded", "vector_index": "unreachable"},
		},
		{
			name:       "empty knowledge base",
			store:      knowledge.NewStore(nil),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]interface{}{"knowledge_base": "empty", "vector_index": "disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.index, HealthConfig{IndexName: testIndex, HasCredential: tt.credential}, zap.NewNop())
			w := httptest.NewRecorder()

			h.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantChecks, body["checks"])
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ready", body["status"])
			} else {
				assert.Equal(t, "not_ready", body["status"])
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	h := NewHealthHandler(testStore(), nil, HealthConfig{
		Environment:   "test",
		VectorBackend: "pinecone",
		IndexName:     testIndex,
		HasCredential: true,
	}, zap.NewNop())
	w := httptest.NewRecorder()

	h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, "pinecone", body["vector_backend"])
	assert.Equal(t, false, body["vector_enabled"])
	assert.Equal(t, float64(1), body["entries"])
}
