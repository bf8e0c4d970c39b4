package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services"
)

const (
	defaultControllerURL = "https://api.pinecone.io"
	pineconeAPIVersion   = "2024-07"
)

// PineconeConfig configures the Pinecone REST client.
type PineconeConfig struct {
	APIKey        string
	ControllerURL string
	Cloud         string
	Region        string
	Timeout       time.Duration

	// ReadyPollInterval is how often CreateIndex checks a new index for
	// readiness.
	ReadyPollInterval time.Duration
}

// PineconeClient implements Client against the Pinecone control and data
// plane REST APIs.
type PineconeClient struct {
	config     PineconeConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	hosts map[string]string
}

// NewPineconeClient creates a Pinecone client.
func NewPineconeClient(config PineconeConfig, logger *zap.Logger) *PineconeClient {
	if config.ControllerURL == "" {
		config.ControllerURL = defaultControllerURL
	}
	config.ControllerURL = strings.TrimRight(config.ControllerURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	if config.ReadyPollInterval == 0 {
		config.ReadyPollInterval = 2 * time.Second
	}

	return &PineconeClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		hosts:      make(map[string]string),
	}
}

// ListIndexes returns the names of all indexes in the project.
func (c *PineconeClient) ListIndexes(ctx context.Context) ([]string, error) {
	var resp pineconeIndexList
	if err := c.do(ctx, http.MethodGet, c.config.ControllerURL+"/indexes", nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Indexes))
	for _, idx := range resp.Indexes {
		names = append(names, idx.Name)
		if idx.Host != "" {
			c.setHost(idx.Name, idx.Host)
		}
	}
	return names, nil
}

// CreateIndex creates a serverless index and waits until it is ready.
// Cloud and region must be configured.
func (c *PineconeClient) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	if c.config.Cloud == "" || c.config.Region == "" {
		c.logger.Error("pinecone cloud or region missing", zap.String("index", name))
		return services.WrapConfiguration("PINECONE_CLOUD and PINECONE_REGION are required to create an index", nil)
	}

	body := pineconeCreateIndex{
		Name:      name,
		Dimension: dimension,
		Metric:    metric,
	}
	body.Spec.Serverless.Cloud = c.config.Cloud
	body.Spec.Serverless.Region = c.config.Region

	var created pineconeIndex
	if err := c.do(ctx, http.MethodPost, c.config.ControllerURL+"/indexes", body, &created); err != nil {
		return err
	}
	if created.Host != "" {
		c.setHost(name, created.Host)
	}

	return c.waitReady(ctx, name, created)
}

func (c *PineconeClient) waitReady(ctx context.Context, name string, idx pineconeIndex) error {
	for !idx.Status.Ready {
		select {
		case <-ctx.Done():
			return services.WrapBackend(fmt.Sprintf("index %s did not become ready", name), ctx.Err())
		case <-time.After(c.config.ReadyPollInterval):
		}

		described, err := c.describe(ctx, name)
		if err != nil {
			return err
		}
		idx = *described
	}
	return nil
}

// Upsert writes records to the default namespace in a single request.
func (c *PineconeClient) Upsert(ctx context.Context, name string, records []Record) error {
	host, err := c.host(ctx, name)
	if err != nil {
		return err
	}

	body := pineconeUpsert{Vectors: make([]pineconeVector, len(records))}
	for i, r := range records {
		body.Vectors[i] = pineconeVector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}

	var resp pineconeUpsertResponse
	if err := c.do(ctx, http.MethodPost, host+"/vectors/upsert", body, &resp); err != nil {
		return err
	}

	c.logger.Debug("pinecone upsert",
		zap.String("index", name),
		zap.Int("records", len(records)),
		zap.Int("upserted", resp.UpsertedCount),
	)
	return nil
}

// Query returns up to topK nearest neighbours with metadata.
func (c *PineconeClient) Query(ctx context.Context, name string, vector []float32, topK int, namespace string) ([]Match, error) {
	host, err := c.host(ctx, name)
	if err != nil {
		return nil, err
	}

	body := pineconeQuery{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}

	var resp pineconeQueryResponse
	if err := c.do(ctx, http.MethodPost, host+"/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		var meta Metadata
		if m.Metadata != nil {
			meta = *m.Metadata
		}
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: meta})
	}
	return matches, nil
}

func (c *PineconeClient) describe(ctx context.Context, name string) (*pineconeIndex, error) {
	var idx pineconeIndex
	if err := c.do(ctx, http.MethodGet, c.config.ControllerURL+"/indexes/"+name, nil, &idx); err != nil {
		return nil, err
	}
	if idx.Host != "" {
		c.setHost(name, idx.Host)
	}
	return &idx, nil
}

// host returns the data plane base URL for an index, describing it on
// first use.
func (c *PineconeClient) host(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	h, ok := c.hosts[name]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	idx, err := c.describe(ctx, name)
	if err != nil {
		return "", err
	}
	if idx.Host == "" {
		return "", services.WrapBackend(fmt.Sprintf("index %s has no host", name), nil)
	}
	return c.hostURL(idx.Host), nil
}

func (c *PineconeClient) setHost(name, host string) {
	c.mu.Lock()
	c.hosts[name] = c.hostURL(host)
	c.mu.Unlock()
}

func (c *PineconeClient) hostURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

// do performs one JSON request. Non-2xx responses and transport failures
// become backend errors.
func (c *PineconeClient) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal pinecone request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.WrapBackend("pinecone request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.WrapBackend("failed to read pinecone response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := pineconeErrorMessage(respBody)
		c.logger.Warn("pinecone request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg),
		)
		return services.WrapBackend(fmt.Sprintf("pinecone returned %d: %s", resp.StatusCode, msg), nil)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return services.WrapBackend("failed to decode pinecone response", err)
	}
	return nil
}

func pineconeErrorMessage(body []byte) string {
	var e pineconeError
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// Pinecone wire types

type pineconeIndexList struct {
	Indexes []pineconeIndex `json:"indexes"`
}

type pineconeIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeCreateIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

type pineconeVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

type pineconeUpsert struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type pineconeQuery struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string    `json:"id"`
		Score    float64   `json:"score"`
		Metadata *Metadata `json:"metadata"`
	} `json:"matches"`
	Namespace string `json:"namespace"`
}

type pineconeError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}
