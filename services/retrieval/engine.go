// Package retrieval finds the knowledge base entries most relevant to a
// question. It prefers the vector index and falls back to a keyword scan of
// the local store whenever the index cannot answer.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/embedding"
	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/vectorindex"
)

// FallbackScore is the score given to every keyword match.
const FallbackScore = 1.0

// Hit is one retrieved entry. Title and Text are nil when the index
// returned a match without that metadata key.
type Hit struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
	Score float64 `json:"score"`
}

// Config selects the index the engine queries.
type Config struct {
	IndexName string
	Namespace string

	// HasCredential is false when no vector backend is configured; the
	// engine then always uses the keyword fallback.
	HasCredential bool
}

// Engine implements Retrieve and RetrieveContext.
type Engine struct {
	store    *knowledge.Store
	embedder embedding.Embedder
	index    vectorindex.Client
	config   Config
	logger   *zap.Logger
}

// NewEngine creates a retrieval engine. index and embedder may be nil when
// config.HasCredential is false.
func NewEngine(store *knowledge.Store, embedder embedding.Embedder, index vectorindex.Client, config Config, logger *zap.Logger) *Engine {
	if index == nil || embedder == nil {
		config.HasCredential = false
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		index:    index,
		config:   config,
		logger:   logger,
	}
}

// Retrieve returns up to topK hits for query. Only an invalid topK is
// reported as an error: every vector-side failure degrades to the keyword
// fallback.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK < 1 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidArgument,
			fmt.Sprintf("top_k must be >= 1, got %d", topK), nil)
	}

	e.logger.Debug("retrieval requested", zap.String("query", query), zap.Int("top_k", topK))

	hits, reason := runChain(ctx, query, topK, e.vectorChain())
	if reason == reasonOK {
		RetrievalsTotal.WithLabelValues(pathVector, reason).Inc()
		RetrievalHits.WithLabelValues(pathVector).Observe(float64(len(hits)))
		e.logger.Info("vector retrieval", zap.Int("hits", len(hits)))
		return hits, nil
	}

	hits = e.fallback(query, topK)
	RetrievalsTotal.WithLabelValues(pathFallback, reason).Inc()
	RetrievalHits.WithLabelValues(pathFallback).Observe(float64(len(hits)))
	e.logger.Info("keyword fallback retrieval", zap.String("reason", reason), zap.Int("hits", len(hits)))
	return hits, nil
}

// fallback scans the store for entries containing query, ignoring case.
func (e *Engine) fallback(query string, topK int) []Hit {
	entries := e.store.Search(query, topK)
	hits := make([]Hit, len(entries))
	for i, entry := range entries {
		title, text := entry.Title, entry.Text
		hits[i] = Hit{Title: &title, Text: &text, Score: FallbackScore}
	}
	return hits
}

// vectorChain lists the steps of the vector path in order. Each step either
// narrows toward a result or stops the chain with a reason.
func (e *Engine) vectorChain() []step {
	var vector []float32

	return []step{
		func(ctx context.Context, q query) ([]Hit, error) {
			if !e.config.HasCredential {
				e.logger.Warn("no vector backend credential configured, using keyword fallback")
				return nil, stop(reasonNoCredential, nil)
			}
			return nil, nil
		},
		func(ctx context.Context, q query) ([]Hit, error) {
			exists, err := vectorindex.Exists(ctx, e.index, e.config.IndexName)
			if err != nil {
				e.logger.Warn("listing vector indexes failed, using keyword fallback", zap.Error(err))
				return nil, stop(reasonListFailed, err)
			}
			if !exists {
				e.logger.Warn("vector index not found, using keyword fallback", zap.String("index", e.config.IndexName))
				return nil, stop(reasonIndexMissing, nil)
			}
			return nil, nil
		},
		func(ctx context.Context, q query) ([]Hit, error) {
			v, err := e.embedder.Embed(ctx, q.text)
			if err != nil {
				e.logger.Error("query embedding failed, using keyword fallback", zap.Error(err))
				return nil, stop(reasonEmbeddingFailed, err)
			}
			vector = v
			return nil, nil
		},
		func(ctx context.Context, q query) ([]Hit, error) {
			matches, err := e.index.Query(ctx, e.config.IndexName, vector, q.topK, e.config.Namespace)
			if err != nil {
				e.logger.Error("vector query failed, using keyword fallback", zap.Error(err))
				return nil, stop(reasonQueryFailed, err)
			}
			return hitsFromMatches(matches, q.topK), nil
		},
	}
}

func hitsFromMatches(matches []vectorindex.Match, topK int) []Hit {
	if len(matches) > topK {
		matches = matches[:topK]
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{Title: m.Metadata.Title, Text: m.Metadata.Text, Score: m.Score}
	}
	return hits
}
