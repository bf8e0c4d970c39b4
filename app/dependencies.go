package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/config"
	"github.com/circassiandna/chatbot/services/chat"
	"github.com/circassiandna/chatbot/services/embedding"
	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/prompt"
	"github.com/circassiandna/chatbot/services/providers"
	"github.com/circassiandna/chatbot/services/providers/openai"
	"github.com/circassiandna/chatbot/services/ratelimit"
	"github.com/circassiandna/chatbot/services/retrieval"
	"github.com/circassiandna/chatbot/services/vectorindex"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Data and external services
	Store    *knowledge.Store
	Provider providers.Provider
	Embedder embedding.Embedder

	// Index is nil when the selected vector backend has no credential;
	// retrieval then always uses the keyword fallback.
	Index vectorindex.Client

	// Services
	Engine        *retrieval.Engine
	Builder       *retrieval.Builder
	PromptService *prompt.PromptService
	Chat          *chat.ChatService
	RateLimiter   *ratelimit.RateLimitService

	closers []io.Closer
}

// NewDependencies loads the knowledge base, connects the providers and
// wires every service. cfg must carry an OpenAI API key.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if err := cfg.RequireOpenAI(); err != nil {
		return nil, err
	}

	store, err := knowledge.Load(cfg.Knowledge.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logger.Info("knowledge base loaded",
		zap.String("path", cfg.Knowledge.Path),
		zap.Int("entries", store.Len()))

	provider := NewProvider(cfg.OpenAI)

	index, closer, err := NewVectorIndex(cfg.Vector, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	deps := Assemble(cfg, logger, store, provider, index)
	if closer != nil {
		deps.closers = append(deps.closers, closer)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.Bool("vector_enabled", deps.Index != nil))
	return deps, nil
}

// Assemble wires the services around already constructed data and clients.
// index may be nil.
func Assemble(cfg *config.Config, logger *zap.Logger, store *knowledge.Store, provider providers.Provider, index vectorindex.Client) *Dependencies {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Provider: provider,
		Index:    index,
	}

	deps.Embedder = embedding.NewService(provider, cfg.OpenAI.EmbeddingModel, logger)

	deps.Engine = retrieval.NewEngine(store, deps.Embedder, index, retrieval.Config{
		IndexName:     cfg.Vector.IndexName,
		Namespace:     cfg.Vector.Namespace,
		HasCredential: index != nil,
	}, logger)

	if index != nil {
		deps.Builder = retrieval.NewBuilder(store, deps.Embedder, index, cfg.Vector.BatchSize, logger)
	}

	deps.PromptService = prompt.NewPromptService(prompt.ValidationConfig{
		MaxLength: cfg.Chat.QuestionMaxLength,
	})

	deps.Chat = chat.NewChatService(deps.Engine, provider, deps.PromptService, chat.Config{
		Model: cfg.OpenAI.ChatModel,
		TopN:  cfg.Chat.TopN,
	}, logger)

	deps.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
		RequestsPerSecond: cfg.Chat.RateLimitRPS,
		Burst:             cfg.Chat.RateLimitBurst,
	}, logger)

	return deps
}

// NewProvider creates the OpenAI completion and embedding provider
func NewProvider(cfg config.OpenAIConfig) providers.Provider {
	providerConfig := providers.DefaultProviderConfig()
	providerConfig.APIKey = cfg.APIKey
	providerConfig.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		providerConfig.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries >= 0 {
		providerConfig.MaxRetries = cfg.MaxRetries
	}
	return openai.NewOpenAIAdapter(providerConfig)
}

// NewVectorIndex creates the client for the configured backend. It returns
// a nil client when the backend has no credential. The closer, if any,
// releases the backend connection.
func NewVectorIndex(cfg config.VectorConfig, logger *zap.Logger) (vectorindex.Client, io.Closer, error) {
	if !cfg.HasVectorCredential() {
		logger.Warn("vector backend not configured, using keyword fallback only",
			zap.String("vector_backend", cfg.Backend))
		return nil, nil, nil
	}

	switch cfg.Backend {
	case config.VectorBackendPinecone:
		return vectorindex.NewPineconeClient(vectorindex.PineconeConfig{
			APIKey:        cfg.Pinecone.APIKey,
			ControllerURL: cfg.Pinecone.ControllerURL,
			Cloud:         cfg.Pinecone.Cloud,
			Region:        cfg.Pinecone.Region,
			Timeout:       cfg.Pinecone.Timeout,
		}, logger), nil, nil

	case config.VectorBackendQdrant:
		client, err := vectorindex.NewQdrantClient(vectorindex.QdrantConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil

	case config.VectorBackendMemory:
		return vectorindex.NewMemoryClient(logger), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// WarmUp populates the in-process index when the memory backend is
// selected, since it starts empty on every run. Other backends are left
// alone. A failed build is logged and the server keeps the fallback.
func (d *Dependencies) WarmUp(ctx context.Context) {
	if d.Config.Vector.Backend != config.VectorBackendMemory || d.Builder == nil {
		return
	}

	report, err := d.Builder.BuildIndex(ctx, d.Config.Vector.IndexName)
	if err != nil {
		d.Logger.Error("failed to build in-memory index", zap.Error(err))
		return
	}
	d.Logger.Info("in-memory index built",
		zap.Int("embedded", report.Embedded),
		zap.Int("skipped", report.Skipped))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
