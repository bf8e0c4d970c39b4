package retrieval

import (
	"context"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/embedding"
	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/vectorindex"
)

// BuildReport summarizes an index build.
type BuildReport struct {
	Created  bool `json:"created"`
	Embedded int  `json:"embedded"`
	Skipped  int  `json:"skipped"`
	Batches  int  `json:"batches"`
}

// Builder embeds the knowledge base and uploads it to the vector index.
type Builder struct {
	store     *knowledge.Store
	embedder  embedding.Embedder
	index     vectorindex.Client
	batchSize int
	logger    *zap.Logger
}

// NewBuilder creates an index builder. A batchSize below 1 uses
// vectorindex.BatchSize.
func NewBuilder(store *knowledge.Store, embedder embedding.Embedder, index vectorindex.Client, batchSize int, logger *zap.Logger) *Builder {
	if batchSize < 1 {
		batchSize = vectorindex.BatchSize
	}
	return &Builder{
		store:     store,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// BuildIndex creates indexName if absent, embeds every entry as
// "title\ntext" and upserts the vectors in batches. Entries whose embedding
// fails are skipped; any other error aborts the build. Record ids are the
// entry positions in the store, so re-running a build overwrites the same
// records.
func (b *Builder) BuildIndex(ctx context.Context, indexName string) (*BuildReport, error) {
	report := &BuildReport{}

	names, err := b.index.ListIndexes(ctx)
	if err != nil {
		b.logger.Error("listing vector indexes failed", zap.Error(err))
		return report, err
	}
	b.logger.Info("current vector indexes", zap.Strings("indexes", names))

	if !slices.Contains(names, indexName) {
		b.logger.Info("creating vector index", zap.String("index", indexName))
		if err := b.index.CreateIndex(ctx, indexName, vectorindex.Dimension, vectorindex.MetricCosine); err != nil {
			b.logger.Error("creating vector index failed", zap.String("index", indexName), zap.Error(err))
			return report, err
		}
		report.Created = true
		b.logger.Info("created vector index", zap.String("index", indexName))
	}

	var records []vectorindex.Record
	for i, entry := range b.store.All() {
		vec, err := b.embedder.Embed(ctx, entry.Title+"\n"+entry.Text)
		if err != nil {
			if !services.IsEmbeddingError(err) {
				return report, err
			}
			b.logger.Warn("skipping entry due to embedding failure", zap.String("title", entry.Title), zap.Error(err))
			report.Skipped++
			IndexBuildRecords.WithLabelValues("skipped").Inc()
			continue
		}
		records = append(records, vectorindex.Record{
			ID:       strconv.Itoa(i),
			Values:   vec,
			Metadata: vectorindex.NewMetadata(entry.Title, entry.Text),
		})
		IndexBuildRecords.WithLabelValues("embedded").Inc()
	}
	report.Embedded = len(records)

	batches, err := vectorindex.UpsertBatches(ctx, b.index, indexName, records, b.batchSize, func(start, end int) {
		b.logger.Info("uploading batch",
			zap.String("index", indexName),
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("vectors", end-start),
		)
	})
	report.Batches = batches
	if err != nil {
		b.logger.Error("upsert failed during index build", zap.Error(err))
		return report, err
	}

	b.logger.Info("index build complete",
		zap.String("index", indexName),
		zap.Int("vectors", report.Embedded),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
