package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
	"github.com/circassiandna/chatbot/services/knowledge"
	"github.com/circassiandna/chatbot/services/vectorindex"
)

func TestBuilder_BuildIndex_CreatesAndUploads(t *testing.T) {
	// Scenario: one entry, index absent.
	store := knowledge.NewStore([]knowledge.Entry{{Title: "hello", Text: "world"}})
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, "hello\nworld").Return([]float32{0.5}, nil).Once()
	idx := newFakeIndex()

	report, err := NewBuilder(store, emb, idx, 50, zap.NewNop()).BuildIndex(context.Background(), indexName)
	require.NoError(t, err)

	assert.Equal(t, &BuildReport{Created: true, Embedded: 1, Batches: 1}, report)
	assert.Equal(t, []string{fmt.Sprintf("%s/%d/cosine", indexName, vectorindex.Dimension)}, idx.creates)
	require.Len(t, idx.upserts, 1)
	require.Len(t, idx.upserts[0], 1)

	rec := idx.upserts[0][0]
	assert.Equal(t, "0", rec.ID)
	assert.Equal(t, []float32{0.5}, rec.Values)
	assert.Equal(t, "hello", *rec.Metadata.Title)
	assert.Equal(t, "world", *rec.Metadata.Text)
	emb.AssertExpectations(t)
}

func TestBuilder_BuildIndex_Batches(t *testing.T) {
	entries := make([]knowledge.Entry, 120)
	for i := range entries {
		entries[i] = knowledge.Entry{Title: fmt.Sprintf("t%d", i), Text: "x"}
	}
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx := newFakeIndex(indexName)

	report, err := NewBuilder(knowledge.NewStore(entries), emb, idx, 0, zap.NewNop()).BuildIndex(context.Background(), indexName)
	require.NoError(t, err)

	assert.False(t, report.Created)
	assert.Empty(t, idx.creates)
	assert.Equal(t, 3, report.Batches)
	require.Len(t, idx.upserts, 3)
	assert.Len(t, idx.upserts[0], 50)
	assert.Len(t, idx.upserts[1], 50)
	assert.Len(t, idx.upserts[2], 20)
	assert.Equal(t, "119", idx.upserts[2][19].ID)
}

func TestBuilder_BuildIndex_SkipsFailedEmbeddings(t *testing.T) {
	store := knowledge.NewStore([]knowledge.Entry{
		{Title: "a", Text: "1"},
		{Title: "b", Text: "2"},
		{Title: "c", Text: "3"},
	})
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, "a\n1").Return([]float32{1}, nil)
	emb.On("Embed", mock.Anything, "b\n2").Return(nil, services.WrapEmbedding("too long", nil))
	emb.On("Embed", mock.Anything, "c\n3").Return([]float32{3}, nil)
	idx := newFakeIndex(indexName)

	report, err := NewBuilder(store, emb, idx, 50, zap.NewNop()).BuildIndex(context.Background(), indexName)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Embedded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, idx.upserts, 1)

	// Ids stay tied to store position even when an entry is skipped.
	ids := []string{idx.upserts[0][0].ID, idx.upserts[0][1].ID}
	assert.Equal(t, []string{"0", "2"}, ids)
}

func TestBuilder_BuildIndex_Idempotent(t *testing.T) {
	store := testStore()
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx := newFakeIndex()
	builder := NewBuilder(store, emb, idx, 50, zap.NewNop())

	first, err := builder.BuildIndex(context.Background(), indexName)
	require.NoError(t, err)
	second, err := builder.BuildIndex(context.Background(), indexName)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Len(t, idx.creates, 1)
	require.Len(t, idx.upserts, 2)

	for i := range idx.upserts[0] {
		assert.Equal(t, idx.upserts[0][i].ID, idx.upserts[1][i].ID)
	}
}

func TestBuilder_BuildIndex_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*MockEmbedder, *fakeIndex)
		check     func(*testing.T, error)
		noUpserts bool
	}{
		{
			name: "missing cloud and region",
			setup: func(e *MockEmbedder, f *fakeIndex) {
				delete(f.indexes, indexName)
				f.createErr = services.WrapConfiguration("PINECONE_CLOUD and PINECONE_REGION are required", nil)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, services.IsConfigurationError(err))
			},
			noUpserts: true,
		},
		{
			name: "listing fails",
			setup: func(e *MockEmbedder, f *fakeIndex) {
				f.listErr = services.WrapBackend("unreachable", nil)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, services.IsBackendError(err))
			},
			noUpserts: true,
		},
		{
			name: "upsert fails",
			setup: func(e *MockEmbedder, f *fakeIndex) {
				e.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
				f.upsertErr = services.WrapBackend("quota exceeded", nil)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, services.ErrBackend))
			},
			noUpserts: true,
		},
		{
			name: "unexpected embedding error aborts",
			setup: func(e *MockEmbedder, f *fakeIndex) {
				e.On("Embed", mock.Anything, mock.Anything).Return(nil, context.Canceled)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.Canceled)
			},
			noUpserts: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := new(MockEmbedder)
			idx := newFakeIndex(indexName)
			tt.setup(emb, idx)

			_, err := NewBuilder(testStore(), emb, idx, 50, zap.NewNop()).BuildIndex(context.Background(), indexName)
			require.Error(t, err)
			tt.check(t, err)
			if tt.noUpserts {
				assert.Empty(t, idx.upserts)
			}
		})
	}
}

func TestBuilder_BuildIndex_WithMemoryBackend(t *testing.T) {
	store := testStore()
	emb := new(MockEmbedder)
	vectors := map[string][]float32{
		"What is Y-DNA?\nY-DNA is passed from father to son.": {1, 0, 0},
		"Ordering\nOrder a kit from FTDNA.":                   {0, 1, 0},
		"mtDNA\nMitochondrial DNA is passed from mother.":     {0, 0, 1},
		"Projects\nJoin the Circassian project.":              {0.6, 0.8, 0},
	}
	for text, v := range vectors {
		emb.On("Embed", mock.Anything, text).Return(v, nil)
	}
	emb.On("Embed", mock.Anything, "buy a test").Return([]float32{0, 1, 0}, nil)

	mem := vectorindex.NewMemoryClient(zap.NewNop())
	_, err := NewBuilder(store, emb, mem, 50, zap.NewNop()).BuildIndex(context.Background(), indexName)
	require.NoError(t, err)

	engine := NewEngine(store, emb, mem, Config{IndexName: indexName, HasCredential: true}, zap.NewNop())
	hits, err := engine.Retrieve(context.Background(), "buy a test", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ordering", "Projects"}, titles(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.InDelta(t, 0.8, hits[1].Score, 1e-5)
}
