package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ContextItem is a hit reshaped for prompt assembly: Q is the entry title
// and A its text.
type ContextItem struct {
	Q     *string  `json:"q"`
	A     *string  `json:"a"`
	Score *float64 `json:"score"`
}

// RetrieveContext returns up to topN context items for question. Retrieval
// failures, including an invalid topN and panics, yield an empty slice so
// that the caller can still answer without context.
func (e *Engine) RetrieveContext(ctx context.Context, question string, topN int) (items []ContextItem) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("unexpected error during context retrieval", zap.String("panic", fmt.Sprint(r)))
			items = []ContextItem{}
		}
	}()

	hits, err := e.Retrieve(ctx, question, topN)
	if err != nil {
		e.logger.Error("context retrieval failed", zap.Error(err))
		return []ContextItem{}
	}

	items = make([]ContextItem, len(hits))
	for i, h := range hits {
		score := h.Score
		items[i] = ContextItem{Q: h.Title, A: h.Text, Score: &score}
	}
	e.logger.Info("context retrieval found hits", zap.Int("hits", len(items)))
	return items
}
