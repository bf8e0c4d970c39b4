package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/circassiandna/chatbot/utils"
)

// Vector backend identifiers accepted by VECTOR_BACKEND
const (
	VectorBackendPinecone = "pinecone"
	VectorBackendQdrant   = "qdrant"
	VectorBackendMemory   = "memory"
)

// Log formats accepted by LOG_FORMAT
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// DefaultIndexName is the index queried and built when PINECONE_INDEX is unset
const DefaultIndexName = "circassiandna-knowledgebase"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	OpenAI        OpenAIConfig
	Vector        VectorConfig
	Knowledge     KnowledgeConfig
	Chat          ChatConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

// OpenAIConfig holds the embedding and completion provider configuration
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
}

// VectorConfig holds vector index configuration. Backend selects which
// client is built; the Pinecone fields double as the generic index settings.
type VectorConfig struct {
	Backend   string
	IndexName string
	Namespace string
	BatchSize int
	Pinecone  PineconeConfig
	Qdrant    QdrantConfig
}

// PineconeConfig holds Pinecone configuration
type PineconeConfig struct {
	APIKey        string
	Cloud         string // required only for index creation
	Region        string // required only for index creation
	ControllerURL string
	Timeout       time.Duration
}

// QdrantConfig holds Qdrant gRPC configuration
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// KnowledgeConfig holds knowledge base configuration
type KnowledgeConfig struct {
	Path string
}

// ChatConfig holds chat endpoint behaviour
type ChatConfig struct {
	TopN              int
	QuestionMaxLength int
	RateLimitRPS      float64 // 0 disables per-client limiting
	RateLimitBurst    int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console; console by default in development
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"https://www.circassiandna.com",
				"https://circassiandna.com",
				"http://localhost:5000",
				"http://localhost:8000",
				"http://localhost:8080",
			}),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			MaxRetries:     getEnvAsInt("OPENAI_MAX_RETRIES", 2),
		},
		Vector: VectorConfig{
			Backend:   strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendPinecone)),
			IndexName: getEnv("PINECONE_INDEX", DefaultIndexName),
			Namespace: getEnv("PINECONE_NAMESPACE", ""),
			BatchSize: getEnvAsInt("INDEX_BATCH_SIZE", 50),
			Pinecone: PineconeConfig{
				APIKey:        getEnv("PINECONE_API_KEY", ""),
				Cloud:         getEnv("PINECONE_CLOUD", ""),
				Region:        getEnv("PINECONE_REGION", ""),
				ControllerURL: getEnv("PINECONE_CONTROLLER_URL", "https://api.pinecone.io"),
				Timeout:       getEnvAsDuration("PINECONE_TIMEOUT", 30*time.Second),
			},
			Qdrant: QdrantConfig{
				Host:   getEnv("QDRANT_HOST", ""),
				Port:   getEnvAsInt("QDRANT_PORT", 6334),
				APIKey: getEnv("QDRANT_API_KEY", ""),
				UseTLS: getEnvAsBool("QDRANT_USE_TLS", false),
			},
		},
		Knowledge: KnowledgeConfig{
			Path: getEnv("KNOWLEDGE_BASE_PATH", "knowledgebase.json"),
		},
		Chat: ChatConfig{
			TopN:              getEnvAsInt("RETRIEVAL_TOP_N", 3),
			QuestionMaxLength: getEnvAsInt("QUESTION_MAX_LENGTH", 2000),
			RateLimitRPS:      getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 1),
			RateLimitBurst:    getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "")),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = LogFormatJSON
		if cfg.IsDevelopment() {
			cfg.Observability.LogFormat = LogFormatConsole
		}
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set.
// OPENAI_API_KEY is not checked here: commands that call the provider
// require it through RequireOpenAI so that offline commands still run.
func (c *Config) Validate() error {
	if err := utils.ValidateOneOf(c.Vector.Backend, "vector backend",
		[]string{VectorBackendPinecone, VectorBackendQdrant, VectorBackendMemory}); err != nil {
		return err
	}
	if err := utils.ValidateRequired(c.Vector.IndexName, "index name"); err != nil {
		return err
	}
	if c.Vector.BatchSize < 1 {
		return fmt.Errorf("index batch size must be >= 1, got %d", c.Vector.BatchSize)
	}
	if c.Chat.TopN < 1 {
		return fmt.Errorf("retrieval top_n must be >= 1, got %d", c.Chat.TopN)
	}
	if c.Chat.RateLimitRPS < 0 {
		return fmt.Errorf("chat rate limit must not be negative")
	}
	if err := utils.ValidateRequired(c.Knowledge.Path, "knowledge base path"); err != nil {
		return err
	}

	// Observability validation
	if err := utils.ValidateRequired(c.Observability.LogLevel, "log level"); err != nil {
		return err
	}
	if err := utils.ValidateOneOf(c.Observability.LogFormat, "log format",
		[]string{LogFormatJSON, LogFormatConsole}); err != nil {
		return err
	}

	return nil
}

// RequireOpenAI returns an error when no OpenAI API key is configured
func (c *Config) RequireOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// HasVectorCredential reports whether the selected vector backend is configured.
// The retrieval engine falls back to keyword search when it is not.
func (c *VectorConfig) HasVectorCredential() bool {
	switch c.Backend {
	case VectorBackendPinecone:
		return c.Pinecone.APIKey != ""
	case VectorBackendQdrant:
		return c.Qdrant.Host != ""
	case VectorBackendMemory:
		return true
	default:
		return false
	}
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
