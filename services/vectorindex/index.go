// Package vectorindex talks to the similarity-search backend that holds the
// embedded knowledge base. Three backends share one Client interface:
// Pinecone over REST, Qdrant over gRPC, and an in-process chromem-go store.
package vectorindex

import (
	"context"
	"fmt"
	"slices"

	"github.com/circassiandna/chatbot/services"
)

const (
	// Dimension of every vector stored in the index.
	Dimension = 1536

	// MetricCosine is the only similarity metric the index is created with.
	MetricCosine = "cosine"

	// BatchSize is the number of records sent per upsert request.
	BatchSize = 50
)

// Metadata is stored next to each vector. Fields are pointers so that a
// match whose metadata lacks a key yields nil instead of failing.
type Metadata struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// NewMetadata returns metadata with both keys set.
func NewMetadata(title, text string) Metadata {
	return Metadata{Title: &title, Text: &text}
}

// Record is a vector ready to be written to the index.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is one query result, in backend order.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Client is the subset of vector database operations the chatbot needs.
// Service failures are returned as backend domain errors.
type Client interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, name string, dimension int, metric string) error
	Upsert(ctx context.Context, name string, records []Record) error
	Query(ctx context.Context, name string, vector []float32, topK int, namespace string) ([]Match, error)
}

// Exists reports whether the named index is present.
func Exists(ctx context.Context, c Client, name string) (bool, error) {
	names, err := c.ListIndexes(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// UpsertBatches writes records in slices of batchSize, calling onBatch
// before each request with the half-open range [start, end). The first
// failing batch stops the upload; earlier batches stay written.
func UpsertBatches(ctx context.Context, c Client, name string, records []Record, batchSize int, onBatch func(start, end int)) (int, error) {
	if batchSize < 1 {
		batchSize = BatchSize
	}

	batches := 0
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if onBatch != nil {
			onBatch(start, end)
		}
		if err := c.Upsert(ctx, name, records[start:end]); err != nil {
			if services.IsBackendError(err) || services.IsConfigurationError(err) {
				return batches, err
			}
			return batches, services.WrapBackend(fmt.Sprintf("upsert of records %d-%d failed", start, end), err)
		}
		batches++
	}
	return batches, nil
}
