package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
)

// fakePinecone serves the control and data plane from one test server.
type fakePinecone struct {
	server    *httptest.Server
	indexes   map[string]bool
	upserted  []pineconeUpsert
	lastQuery pineconeQuery
	describes int32
	readyAt   int32
	failQuery bool
}

func newFakePinecone(t *testing.T) *fakePinecone {
	f := &fakePinecone{indexes: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /indexes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pc-key", r.Header.Get("Api-Key"))
		list := pineconeIndexList{}
		for name := range f.indexes {
			list.Indexes = append(list.Indexes, pineconeIndex{Name: name, Host: f.server.URL})
		}
		json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("POST /indexes", func(w http.ResponseWriter, r *http.Request) {
		var body pineconeCreateIndex
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, Dimension, body.Dimension)
		assert.Equal(t, MetricCosine, body.Metric)
		assert.Equal(t, "aws", body.Spec.Serverless.Cloud)
		assert.Equal(t, "us-east-1", body.Spec.Serverless.Region)

		f.indexes[body.Name] = true
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(pineconeIndex{Name: body.Name, Host: f.server.URL})
	})
	mux.HandleFunc("GET /indexes/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !f.indexes[name] {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Resource not found"}}`))
			return
		}
		n := atomic.AddInt32(&f.describes, 1)
		idx := pineconeIndex{Name: name, Host: f.server.URL}
		idx.Status.Ready = n >= f.readyAt
		json.NewEncoder(w).Encode(idx)
	})
	mux.HandleFunc("POST /vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var body pineconeUpsert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.upserted = append(f.upserted, body)
		json.NewEncoder(w).Encode(pineconeUpsertResponse{UpsertedCount: len(body.Vectors)})
	})
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		if f.failQuery {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"internal"}`))
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastQuery))
		w.Write([]byte(`{"matches":[
			{"id":"0","score":0.99,"metadata":{"title":"A","text":"alpha"}},
			{"id":"1","score":0.85,"metadata":{"title":"B"}},
			{"id":"2","score":0.5}
		],"namespace":""}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePinecone) client(cloud, region string) *PineconeClient {
	return NewPineconeClient(PineconeConfig{
		APIKey:            "pc-key",
		ControllerURL:     f.server.URL,
		Cloud:             cloud,
		Region:            region,
		Timeout:           5 * time.Second,
		ReadyPollInterval: time.Millisecond,
	}, zap.NewNop())
}

func TestPineconeClient_CreateListUpsert(t *testing.T) {
	f := newFakePinecone(t)
	f.readyAt = 2
	c := f.client("aws", "us-east-1")
	ctx := context.Background()

	ok, err := Exists(ctx, c, "kb")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.CreateIndex(ctx, "kb", Dimension, MetricCosine))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&f.describes), int32(2), "should poll until ready")

	names, err := c.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kb"}, names)

	records := []Record{
		{ID: "0", Values: []float32{0.1, 0.2}, Metadata: NewMetadata("A", "alpha")},
		{ID: "1", Values: []float32{0.3, 0.4}, Metadata: NewMetadata("B", "beta")},
	}
	require.NoError(t, c.Upsert(ctx, "kb", records))

	require.Len(t, f.upserted, 1)
	require.Len(t, f.upserted[0].Vectors, 2)
	assert.Equal(t, "0", f.upserted[0].Vectors[0].ID)
	assert.Equal(t, "alpha", *f.upserted[0].Vectors[0].Metadata.Text)
}

func TestPineconeClient_CreateIndexRequiresCloudAndRegion(t *testing.T) {
	f := newFakePinecone(t)

	tests := []struct {
		name   string
		cloud  string
		region string
	}{
		{"missing both", "", ""},
		{"missing region", "aws", ""},
		{"missing cloud", "", "us-east-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.client(tt.cloud, tt.region).CreateIndex(context.Background(), "kb", Dimension, MetricCosine)
			require.Error(t, err)
			assert.True(t, services.IsConfigurationError(err))
			assert.Empty(t, f.indexes)
		})
	}
}

func TestPineconeClient_Query(t *testing.T) {
	f := newFakePinecone(t)
	f.indexes["kb"] = true
	c := f.client("", "")

	matches, err := c.Query(context.Background(), "kb", []float32{0.1, 0.2}, 3, "en")
	require.NoError(t, err)

	assert.Equal(t, 3, f.lastQuery.TopK)
	assert.Equal(t, "en", f.lastQuery.Namespace)
	assert.True(t, f.lastQuery.IncludeMetadata)

	require.Len(t, matches, 3)
	assert.Equal(t, 0.99, matches[0].Score)
	assert.Equal(t, "A", *matches[0].Metadata.Title)
	assert.Equal(t, "alpha", *matches[0].Metadata.Text)
	assert.Equal(t, "B", *matches[1].Metadata.Title)
	assert.Nil(t, matches[1].Metadata.Text)
	assert.Nil(t, matches[2].Metadata.Title)
	assert.Nil(t, matches[2].Metadata.Text)
}

func TestPineconeClient_Errors(t *testing.T) {
	f := newFakePinecone(t)
	c := f.client("", "")
	ctx := context.Background()

	t.Run("unknown index", func(t *testing.T) {
		_, err := c.Query(ctx, "missing", []float32{1}, 3, "")
		require.Error(t, err)
		assert.True(t, services.IsBackendError(err))
		assert.Contains(t, err.Error(), "Resource not found")
	})

	t.Run("query failure", func(t *testing.T) {
		f.indexes["kb"] = true
		f.failQuery = true
		_, err := c.Query(ctx, "kb", []float32{1}, 3, "")
		require.Error(t, err)
		assert.True(t, services.IsBackendError(err))
	})

	t.Run("unreachable controller", func(t *testing.T) {
		down := NewPineconeClient(PineconeConfig{APIKey: "k", ControllerURL: "http://127.0.0.1:1"}, zap.NewNop())
		_, err := down.ListIndexes(ctx)
		require.Error(t, err)
		assert.True(t, services.IsBackendError(err))
	})
}

func TestPineconeClient_HostURL(t *testing.T) {
	c := NewPineconeClient(PineconeConfig{}, zap.NewNop())

	assert.Equal(t, "https://kb-abc.svc.pinecone.io", c.hostURL("kb-abc.svc.pinecone.io"))
	assert.Equal(t, "http://127.0.0.1:9000", c.hostURL("http://127.0.0.1:9000/"))
	assert.Equal(t, defaultControllerURL, c.config.ControllerURL)
}
