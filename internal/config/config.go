// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	// Chunking configuration
	Chunk ChunkConfig `yaml:"chunk"`

	// Index pipeline configuration
	Index IndexConfig `yaml:"index"`

	// Sink configuration
	Sink SinkConfig `yaml:"sink"`

	// HTTP server configuration
	Server ServerConfig `yaml:"server"`

	// Watch mode configuration
	Watch WatchConfig `yaml:"watch"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// ChunkConfig holds chunker settings.
type ChunkConfig struct {
	MaxChunkSize     int    `envconfig:"RICE_CHUNK_MAX_SIZE" yaml:"max_chunk_size"`
	ChunkOverlap     int    `envconfig:"RICE_CHUNK_OVERLAP" yaml:"chunk_overlap"`
	MetadataTemplate string `envconfig:"RICE_CHUNK_TEMPLATE" yaml:"metadata_template"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	Workers       int    `envconfig:"RICE_INDEX_WORKERS" yaml:"workers"`
	BatchSize     int    `envconfig:"RICE_INDEX_BATCH_SIZE" yaml:"batch_size"`
	MaxFileSize   int64  `envconfig:"RICE_INDEX_MAX_FILE_SIZE" yaml:"max_file_size"`
	NaiveFallback bool   `envconfig:"RICE_INDEX_NAIVE_FALLBACK" yaml:"naive_fallback"`
	SkipUnchanged bool   `envconfig:"RICE_INDEX_SKIP_UNCHANGED" yaml:"skip_unchanged"`
	StateFile     string `envconfig:"RICE_INDEX_STATE_FILE" yaml:"state_file"` // content hashes kept between runs
}

// SinkConfig holds chunk sink settings.
type SinkConfig struct {
	Type         string  `envconfig:"RICE_SINK_TYPE" yaml:"type"`
	Path         string  `envconfig:"RICE_SINK_PATH" yaml:"path"`
	KafkaBrokers string  `envconfig:"RICE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaTopic   string  `envconfig:"RICE_KAFKA_TOPIC" yaml:"kafka_topic"`
	RedisURL     string  `envconfig:"RICE_REDIS_URL" yaml:"redis_url"`
	RedisStream  string  `envconfig:"RICE_REDIS_STREAM" yaml:"redis_stream"`
	RateLimit    float64 `envconfig:"RICE_SINK_RATE_LIMIT" yaml:"rate_limit"` // records/sec, 0 = unlimited
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string `envconfig:"RICE_HOST" yaml:"host"`
	Port      int    `envconfig:"RICE_PORT" yaml:"port"`
	RateLimit int    `envconfig:"RICE_RATE_LIMIT" yaml:"rate_limit"` // requests/min per client, 0 = disabled
	MaxBody   int64  `envconfig:"RICE_MAX_BODY" yaml:"max_body"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `envconfig:"RICE_WATCH_DEBOUNCE" yaml:"debounce"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RICE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RICE_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "loading config file", err).
				WithDetail("path", configPath)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "processing env config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns the built-in defaults.
func Default() *Config {
	def := chunk.DefaultConfig()

	return &Config{
		Chunk: ChunkConfig{
			MaxChunkSize:     def.MaxChunkSize,
			ChunkOverlap:     def.ChunkOverlap,
			MetadataTemplate: string(def.MetadataTemplate),
		},
		Index: IndexConfig{
			Workers:       4,
			BatchSize:     64,
			MaxFileSize:   1 << 20,
			NaiveFallback: true,
			SkipUnchanged: true,
		},
		Sink: SinkConfig{
			Type:        "jsonl",
			KafkaTopic:  "rice.chunks",
			RedisURL:    "redis://localhost:6379",
			RedisStream: "rice:chunks",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			MaxBody: 10 << 20,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if err := c.ChunkingConfig().Validate(); err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			errs = append(errs, appErr.Message)
		} else {
			errs = append(errs, err.Error())
		}
	}

	// Index validation
	if c.Index.Workers < 1 {
		errs = append(errs, "index workers must be positive")
	}
	if c.Index.BatchSize < 1 {
		errs = append(errs, "index batch_size must be positive")
	}
	if c.Index.MaxFileSize < 1 {
		errs = append(errs, "index max_file_size must be positive")
	}

	// Sink validation
	validSinks := map[string]bool{"jsonl": true, "memory": true, "kafka": true, "redis": true, "sqlite": true, "bleve": true}
	if !validSinks[c.Sink.Type] {
		errs = append(errs, fmt.Sprintf("invalid sink type: %s (must be jsonl, memory, kafka, redis, sqlite, or bleve)", c.Sink.Type))
	}
	if c.Sink.Type == "kafka" && c.Sink.KafkaBrokers == "" {
		errs = append(errs, "kafka sink requires kafka_brokers")
	}
	if (c.Sink.Type == "sqlite" || c.Sink.Type == "bleve") && c.Sink.Path == "" {
		errs = append(errs, fmt.Sprintf("%s sink requires path", c.Sink.Type))
	}
	if c.Sink.RateLimit < 0 {
		errs = append(errs, "sink rate_limit must not be negative")
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server rate_limit must not be negative")
	}

	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch debounce must not be negative")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return apperrors.ConfigInvalidError("config validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// ChunkingConfig returns the chunker configuration.
func (c *Config) ChunkingConfig() chunk.Config {
	return chunk.Config{
		MaxChunkSize:     c.Chunk.MaxChunkSize,
		ChunkOverlap:     c.Chunk.ChunkOverlap,
		MetadataTemplate: chunk.Template(c.Chunk.MetadataTemplate),
	}
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}

// KafkaBrokers returns the configured broker list.
func (c *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Sink.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
