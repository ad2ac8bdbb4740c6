// Package config provides configuration loading and management for the
// knowledge base services.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	NATS    NATSConfig    `yaml:"nats"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Events  EventsConfig  `yaml:"events"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
}

// ModelConfig configures the LLM analysis and embedding backend.
type ModelConfig struct {
	// Endpoint is the OpenAI-compatible API endpoint
	// (default: http://localhost:11434/v1)
	Endpoint string `yaml:"endpoint"`
	// APIKey is the bearer token, if the endpoint requires one
	APIKey string `yaml:"api_key"`
	// ChatModel is the model used for content analysis
	ChatModel string `yaml:"chat_model"`
	// EmbedModel is the model used for embeddings
	EmbedModel string `yaml:"embed_model"`
	// Temperature controls randomness (0.0-1.0, default: 0.3)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the NATS connection used for resource storage
// and task dispatch.
type NATSConfig struct {
	// URL is the NATS server URL (empty = in-memory storage, tasks
	// logged instead of dispatched)
	URL string `yaml:"url"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// Timeout bounds a single content fetch
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent identifies the fetcher to origin servers
	UserAgent string `yaml:"user_agent"`
	// MaxContentSize caps fetched content in bytes
	MaxContentSize int64 `yaml:"max_content_size"`
	// AllowHTTP permits plain-HTTP and private addresses; local
	// development only
	AllowHTTP bool `yaml:"allow_http"`
	// ArchiveRoot is the directory archived content is written under
	ArchiveRoot string `yaml:"archive_root"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	// HistoryCapacity bounds the emission history ring
	HistoryCapacity int `yaml:"history_capacity"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address for metrics and health endpoints
	Addr string `yaml:"addr"`
}

// StorageConfig configures resource persistence.
type StorageConfig struct {
	// Backend selects the store: "memory" or "nats"
	Backend string `yaml:"backend"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoint:    "http://localhost:11434/v1",
			ChatModel:   "qwen2.5:14b",
			EmbedModel:  "nomic-embed-text",
			Temperature: 0.3,
			Timeout:     2 * time.Minute,
		},
		NATS: NATSConfig{
			URL: "",
		},
		Ingest: IngestConfig{
			Timeout:        30 * time.Second,
			UserAgent:      "alexandria-bot/1.0",
			MaxContentSize: 10 << 20,
			ArchiveRoot:    "archive",
		},
		Events: EventsConfig{
			HistoryCapacity: 1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.ChatModel == "" {
		return fmt.Errorf("model.chat_model is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Ingest.MaxContentSize <= 0 {
		return fmt.Errorf("ingest.max_content_size must be positive")
	}
	if c.Ingest.ArchiveRoot == "" {
		return fmt.Errorf("ingest.archive_root is required")
	}
	if c.Events.HistoryCapacity <= 0 {
		return fmt.Errorf("events.history_capacity must be positive")
	}
	switch c.Storage.Backend {
	case "memory":
	case "nats":
		if c.NATS.URL == "" {
			return fmt.Errorf("storage.backend nats requires nats.url")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or nats, got %q", c.Storage.Backend)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.APIKey != "" {
		c.Model.APIKey = other.Model.APIKey
	}
	if other.Model.ChatModel != "" {
		c.Model.ChatModel = other.Model.ChatModel
	}
	if other.Model.EmbedModel != "" {
		c.Model.EmbedModel = other.Model.EmbedModel
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Ingest
	if other.Ingest.Timeout != 0 {
		c.Ingest.Timeout = other.Ingest.Timeout
	}
	if other.Ingest.UserAgent != "" {
		c.Ingest.UserAgent = other.Ingest.UserAgent
	}
	if other.Ingest.MaxContentSize != 0 {
		c.Ingest.MaxContentSize = other.Ingest.MaxContentSize
	}
	if other.Ingest.AllowHTTP {
		c.Ingest.AllowHTTP = true
	}
	if other.Ingest.ArchiveRoot != "" {
		c.Ingest.ArchiveRoot = other.Ingest.ArchiveRoot
	}

	// Events
	if other.Events.HistoryCapacity != 0 {
		c.Events.HistoryCapacity = other.Events.HistoryCapacity
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	// Storage
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
}
