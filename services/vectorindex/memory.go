package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
)

// namespaceSep joins an index name and a namespace into a chromem
// collection name.
const namespaceSep = "#"

// MemoryClient keeps indexes in an in-process chromem-go database. It needs
// no credentials and loses its data on restart, which makes it suitable for
// local development and tests.
type MemoryClient struct {
	db     *chromem.DB
	logger *zap.Logger
}

// NewMemoryClient creates an empty in-memory vector database.
func NewMemoryClient(logger *zap.Logger) *MemoryClient {
	return &MemoryClient{db: chromem.NewDB(), logger: logger}
}

// ListIndexes returns index names in sorted order.
func (c *MemoryClient) ListIndexes(ctx context.Context) ([]string, error) {
	collections := c.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		if strings.Contains(name, namespaceSep) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateIndex creates an empty collection. Only cosine similarity is
// supported by chromem-go.
func (c *MemoryClient) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	if metric != "" && !strings.EqualFold(metric, MetricCosine) {
		return services.WrapError(services.ErrorTypeInvalidArgument, fmt.Sprintf("unsupported metric %q", metric), nil)
	}
	if _, err := c.db.CreateCollection(name, map[string]string{"dimension": fmt.Sprint(dimension)}, noEmbedding); err != nil {
		return services.WrapBackend(fmt.Sprintf("creating collection %s failed", name), err)
	}
	return nil
}

// Upsert adds records to the default namespace. Documents with an existing
// id are replaced.
func (c *MemoryClient) Upsert(ctx context.Context, name string, records []Record) error {
	col := c.db.GetCollection(name, noEmbedding)
	if col == nil {
		return services.WrapBackend(fmt.Sprintf("collection %s not found", name), nil)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		meta := make(map[string]string, 2)
		content := r.ID
		if r.Metadata.Title != nil {
			meta[payloadTitle] = *r.Metadata.Title
		}
		if r.Metadata.Text != nil {
			meta[payloadText] = *r.Metadata.Text
			content = *r.Metadata.Text
		}
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  meta,
			Embedding: r.Values,
			Content:   content,
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return services.WrapBackend(fmt.Sprintf("adding documents to %s failed", name), err)
	}
	return nil
}

// Query returns the nearest documents by cosine similarity. A namespace
// other than the default one has no documents.
func (c *MemoryClient) Query(ctx context.Context, name string, vector []float32, topK int, namespace string) ([]Match, error) {
	col := c.db.GetCollection(name, noEmbedding)
	if col == nil {
		return nil, services.WrapBackend(fmt.Sprintf("collection %s not found", name), nil)
	}
	if namespace != "" {
		col = c.db.GetCollection(name+namespaceSep+namespace, noEmbedding)
		if col == nil {
			return []Match{}, nil
		}
	}

	// chromem rejects nResults larger than the collection.
	n := min(topK, col.Count())
	if n < 1 {
		return []Match{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, services.WrapBackend(fmt.Sprintf("querying collection %s failed", name), err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		m := Match{ID: r.ID, Score: float64(r.Similarity)}
		if title, ok := r.Metadata[payloadTitle]; ok {
			m.Metadata.Title = &title
		}
		if text, ok := r.Metadata[payloadText]; ok {
			m.Metadata.Text = &text
		}
		matches[i] = m
	}
	return matches, nil
}

// noEmbedding is installed on collections because vectors are always
// supplied by the caller.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("memory index does not embed text")
}
