// Package config loads the application configuration from YAML with
// environment variables supplying credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures the Google AI embedding and generation models.
type ProviderConfig struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	GenerationModel   string  `yaml:"generation_model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EngineConfig configures chunking, retrieval and snapshot naming.
type EngineConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	RetrievalK   int    `yaml:"retrieval_k"`
	SnapshotName string `yaml:"snapshot_name"`
	Compression  string `yaml:"compression"`
}

// LocalStorageConfig points snapshots at a local directory.
type LocalStorageConfig struct {
	Dir string `yaml:"dir"`
}

// S3StorageConfig points snapshots at an S3 bucket.
type S3StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
}

// MinIOStorageConfig points snapshots at a MinIO deployment.
type MinIOStorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// StorageConfig selects and configures the snapshot blob store.
type StorageConfig struct {
	Type  string              `yaml:"type"`
	Local *LocalStorageConfig `yaml:"local,omitempty"`
	S3    *S3StorageConfig    `yaml:"s3,omitempty"`
	MinIO *MinIOStorageConfig `yaml:"minio,omitempty"`
}

// SQLiteConversationConfig configures local conversation history.
type SQLiteConversationConfig struct {
	Dir string `yaml:"dir"`
}

// DynamoConversationConfig configures shared conversation history.
type DynamoConversationConfig struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region,omitempty"`
}

// ConversationConfig selects and configures the conversation store.
type ConversationConfig struct {
	Type     string                    `yaml:"type"`
	SQLite   *SQLiteConversationConfig `yaml:"sqlite,omitempty"`
	DynamoDB *DynamoConversationConfig `yaml:"dynamodb,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
}

// Config is the root application configuration.
type Config struct {
	Provider      ProviderConfig     `yaml:"provider"`
	Engine        EngineConfig       `yaml:"engine"`
	Storage       StorageConfig      `yaml:"storage"`
	Conversations ConversationConfig `yaml:"conversations"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./lexrag.yaml first, then ~/.config/lexrag/config.yaml.
// If neither exists it returns the defaults.
func LoadDefault() (*Config, string, error) {
	cwdPath := "lexrag.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("resolving home directory: %w", err)
	}
	userPath := filepath.Join(home, ".config", "lexrag", "config.yaml")
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}

	return Default(), "", nil
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Provider.APIKeyEnv)
}

// DataDir returns the directory used for local state, honouring the local
// storage configuration.
func (c *Config) DataDir() string {
	if c.Storage.Local != nil && c.Storage.Local.Dir != "" {
		return c.Storage.Local.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lexrag"
	}
	return filepath.Join(home, ".lexrag")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIKeyEnv:         "GEMINI_API_KEY",
			EmbeddingModel:    "embedding-001",
			GenerationModel:   "gemini-2.5-flash",
			TimeoutSecs:       30,
			RequestsPerSecond: 10,
		},
		Engine: EngineConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			RetrievalK:   4,
			SnapshotName: "index.lxs",
			Compression:  "lz4",
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Conversations: ConversationConfig{
			Type: "sqlite",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = def.Provider.APIKeyEnv
	}
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = def.Provider.EmbeddingModel
	}
	if cfg.Provider.GenerationModel == "" {
		cfg.Provider.GenerationModel = def.Provider.GenerationModel
	}
	if cfg.Provider.TimeoutSecs == 0 {
		cfg.Provider.TimeoutSecs = def.Provider.TimeoutSecs
	}
	if cfg.Provider.RequestsPerSecond == 0 {
		cfg.Provider.RequestsPerSecond = def.Provider.RequestsPerSecond
	}
	if cfg.Engine.ChunkSize == 0 {
		cfg.Engine.ChunkSize = def.Engine.ChunkSize
	}
	if cfg.Engine.ChunkOverlap == 0 {
		cfg.Engine.ChunkOverlap = def.Engine.ChunkOverlap
	}
	if cfg.Engine.RetrievalK == 0 {
		cfg.Engine.RetrievalK = def.Engine.RetrievalK
	}
	if cfg.Engine.SnapshotName == "" {
		cfg.Engine.SnapshotName = def.Engine.SnapshotName
	}
	if cfg.Engine.Compression == "" {
		cfg.Engine.Compression = def.Engine.Compression
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = def.Storage.Type
	}
	if cfg.Conversations.Type == "" {
		cfg.Conversations.Type = def.Conversations.Type
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}
