package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the knowledge-base chat service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Generation GenerationConfig `yaml:"generation"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IngestConfig holds chunking and bulk-ingest configuration.
type IngestConfig struct {
	MaxChunkSize int      `yaml:"max_chunk_size"` // section size bound, in code points
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "mistral", "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "mistral-embed"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // Override for OpenAI-compatible endpoints
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// VectorConfig holds vector index configuration.
type VectorConfig struct {
	Provider  string `yaml:"provider"`    // "bolt", "memory", "pinecone", "postgres"
	IndexName string `yaml:"index_name"`  // Pinecone index / collection name
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for Pinecone key
	Cloud     string `yaml:"cloud"`
	Region    string `yaml:"region"`
	DSN       string `yaml:"dsn"`  // Postgres DSN when provider is "postgres"
	Path      string `yaml:"path"` // Bolt database path when provider is "bolt"
}

// GenerationConfig holds the chat completion provider configuration.
type GenerationConfig struct {
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Referer     string  `yaml:"referer"`
	AppTitle    string  `yaml:"app_title"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// HistoryConfig holds conversation history storage configuration.
type HistoryConfig struct {
	Provider string `yaml:"provider"` // "redis", "memory"
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Ingest: IngestConfig{
			MaxChunkSize: 1000,
			Includes:     []string{"**/*.md", "**/*.txt"},
			Excludes:     []string{"**/node_modules/**", "**/.git/**", "**/.kbchat/**"},
		},
		Retrieve: RetrieveConfig{
			TopK: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:  "mistral",
			Model:     "mistral-embed",
			APIKeyEnv: "MISTRAL_API_KEY",
			Dimension: 1024,
			BatchSize: 100,
		},
		Vector: VectorConfig{
			Provider:  "bolt",
			IndexName: "kbchat-kb",
			APIKeyEnv: "PINECONE_API_KEY",
			Cloud:     "aws",
			Region:    "us-east-1",
		},
		Generation: GenerationConfig{
			Model:       "openai/gpt-4o-mini",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			BaseURL:     "https://openrouter.ai/api/v1",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		History: HistoryConfig{
			Provider: "memory",
			Addr:     "localhost:6379",
			TTLHours: 720,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for kbchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "kbchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".kbchat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// VectorDBPath returns the path to the local vector database.
func VectorDBPath(dir string) string {
	return filepath.Join(dir, ".kbchat", "vectors.db")
}

// DocStorePath returns the path to the document registry database.
func DocStorePath(dir string) string {
	return filepath.Join(dir, ".kbchat", "documents.db")
}

// EnsureDataDir ensures the .kbchat directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".kbchat"), 0755)
}
