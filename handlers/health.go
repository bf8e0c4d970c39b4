package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/vectorindex"
	"github.com/circassiandna/chatbot/utils"
)

// Version is reported by the status endpoint
var Version = "0.1.0"

// HealthConfig describes what the readiness and status checks inspect
type HealthConfig struct {
	Environment   string
	VectorBackend string
	IndexName     string

	// HasCredential is false when the vector path is disabled; the index is
	// then not checked.
	HasCredential bool
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store  *knowledge.Store
	index  vectorindex.Client
	config HealthConfig
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. index may be nil.
func NewHealthHandler(store *knowledge.Store, index vectorindex.Client, config HealthConfig, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		index:  index,
		config: config,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz. It answers "OK" whenever the process
// is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteText(w, http.StatusOK, "OK")
}

// HandleReadiness handles GET /readyz. The knowledge base must be loaded;
// the vector index must be reachable and present when a credential is
// configured, although retrieval itself would still fall back.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.store == nil || h.store.Len() == 0 {
		checks["knowledge_base"] = "empty"
		ready = false
	} else {
		checks["knowledge_base"] = "loaded"
	}

	switch {
	case !h.config.HasCredential || h.index == nil:
		checks["vector_index"] = "disabled"
	default:
		exists, err := vectorindex.Exists(ctx, h.index, h.config.IndexName)
		switch {
		case err != nil:
			h.logger.Warn("vector index health check failed", zap.Error(err))
			checks["vector_index"] = "unreachable"
			ready = false
		case !exists:
			checks["vector_index"] = "missing"
			ready = false
		default:
			checks["vector_index"] = "healthy"
		}
	}

	status := http.StatusOK
	response := map[string]interface{}{
		"status": "ready",
		"checks": checks,
	}
	if !ready {
		status = http.StatusServiceUnavailable
		response["status"] = "not_ready"
	}
	_ = utils.WriteJSON(w, status, response)
}

// HandleStatus handles GET /api/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	entries := 0
	if h.store != nil {
		entries = h.store.Len()
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        Version,
		"environment":    h.config.Environment,
		"vector_backend": h.config.VectorBackend,
		"vector_enabled": h.config.HasCredential && h.index != nil,
		"index":          h.config.IndexName,
		"entries":        entries,
	})
}
