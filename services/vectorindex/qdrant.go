package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
)

const (
	payloadID        = "id"
	payloadTitle     = "title"
	payloadText      = "text"
	payloadNamespace = "namespace"
)

// QdrantConfig configures the Qdrant gRPC client.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// qdrantAPI is the part of *qdrant.Client used here.
type qdrantAPI interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// QdrantClient implements Client with Qdrant collections as indexes.
type QdrantClient struct {
	client qdrantAPI
	logger *zap.Logger
}

// NewQdrantClient connects to Qdrant over gRPC.
func NewQdrantClient(config QdrantConfig, logger *zap.Logger) (*QdrantClient, error) {
	if config.Host == "" {
		return nil, services.WrapConfiguration("QDRANT_HOST is required", nil)
	}
	if config.Port == 0 {
		config.Port = 6334
	}

	// Without TLS the client dials with insecure transport credentials
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, services.WrapBackend("failed to create qdrant client", err)
	}

	logger.Info("qdrant client created",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Bool("tls", config.UseTLS),
	)

	return &QdrantClient{client: client, logger: logger}, nil
}

// ListIndexes returns the collection names.
func (c *QdrantClient) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, services.WrapBackend("listing qdrant collections failed", err)
	}
	return names, nil
}

// CreateIndex creates a collection with the given vector size and metric.
func (c *QdrantClient) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	distance, err := qdrantDistance(metric)
	if err != nil {
		return err
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return services.WrapBackend(fmt.Sprintf("creating qdrant collection %s failed", name), err)
	}
	return nil
}

// Upsert writes records as points. Qdrant point ids must be integers or
// UUIDs, so each record id is mapped to a stable name-based UUID and the
// original id is kept in the payload.
func (c *QdrantClient) Upsert(ctx context.Context, name string, records []Record) error {
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(name, r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: recordPayload(r),
		}
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return services.WrapBackend(fmt.Sprintf("upserting into qdrant collection %s failed", name), err)
	}
	return nil
}

// Query searches the collection. A non-empty namespace restricts results to
// points whose namespace payload matches; records written by Upsert carry
// none, mirroring Pinecone's default namespace.
func (c *QdrantClient) Query(ctx context.Context, name string, vector []float32, topK int, namespace string) ([]Match, error) {
	req := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if namespace != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadNamespace, namespace)},
		}
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, services.WrapBackend(fmt.Sprintf("querying qdrant collection %s failed", name), err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		m := Match{Score: float64(p.GetScore())}
		for k, v := range p.GetPayload() {
			sv, ok := v.GetKind().(*qdrant.Value_StringValue)
			if !ok {
				continue
			}
			switch k {
			case payloadID:
				m.ID = sv.StringValue
			case payloadTitle:
				m.Metadata.Title = &sv.StringValue
			case payloadText:
				m.Metadata.Text = &sv.StringValue
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Close releases the gRPC connection.
func (c *QdrantClient) Close() error {
	return c.client.Close()
}

func pointID(index, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(index+"/"+id)).String()
}

func recordPayload(r Record) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		payloadID: {Kind: &qdrant.Value_StringValue{StringValue: r.ID}},
	}
	if r.Metadata.Title != nil {
		payload[payloadTitle] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: *r.Metadata.Title}}
	}
	if r.Metadata.Text != nil {
		payload[payloadText] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: *r.Metadata.Text}}
	}
	return payload
}

func qdrantDistance(metric string) (qdrant.Distance, error) {
	switch strings.ToLower(metric) {
	case "", MetricCosine:
		return qdrant.Distance_Cosine, nil
	case "dotproduct", "dot":
		return qdrant.Distance_Dot, nil
	case "euclidean":
		return qdrant.Distance_Euclid, nil
	default:
		return 0, services.WrapError(services.ErrorTypeInvalidArgument, fmt.Sprintf("unsupported metric %q", metric), nil)
	}
}
