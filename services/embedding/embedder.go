// Package embedding turns text into fixed-length vectors for the vector index.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/providers"
)

// Dimension is the vector length produced by text-embedding-3-small and
// expected by the index.
const Dimension = 1536

// Embedder maps text to a vector of length Dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service embeds text through a provider.
type Service struct {
	provider  providers.Provider
	model     string
	dimension int
	logger    *zap.Logger
}

// NewService creates an embedding service. An empty model selects the
// provider's default embedding model.
func NewService(provider providers.Provider, model string, logger *zap.Logger) *Service {
	return &Service{
		provider:  provider,
		model:     model,
		dimension: Dimension,
		logger:    logger,
	}
}

// Embed returns the embedding of text. Provider-side failures (error status,
// transport failure, malformed payload, wrong dimension) come back as
// embedding domain errors; anything else, such as a cancelled context, is
// returned as is.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.provider.CreateEmbedding(ctx, &providers.EmbeddingRequest{
		Model: s.model,
		Input: []string{text},
	})
	if err != nil {
		if providers.IsProviderError(err) {
			s.logger.Error("embedding generation failed",
				zap.Int("text_length", len(text)),
				zap.Error(err),
			)
			return nil, services.WrapEmbedding("embedding generation failed", err)
		}
		return nil, err
	}

	if len(resp.Vectors) == 0 {
		return nil, services.WrapEmbedding("embedding response contained no vectors", nil)
	}

	vec := resp.Vectors[0]
	if len(vec) != s.dimension {
		return nil, services.WrapEmbedding(
			fmt.Sprintf("embedding has dimension %d, expected %d", len(vec), s.dimension), nil)
	}

	s.logger.Debug("embedding generated", zap.Int("text_length", len(text)))
	return vec, nil
}
