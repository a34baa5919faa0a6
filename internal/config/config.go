// Package config handles configuration loading for alarmscope.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Import  ImportConfig  `yaml:"import"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
	Archive ArchiveConfig `yaml:"archive"`
	Fetch   FetchConfig   `yaml:"fetch"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ImportConfig holds alarm import settings.
type ImportConfig struct {
	MaxPayloadSize int `yaml:"max_payload_size"`
	TopDefault     int `yaml:"top_default"` // default result cap for trend endpoints
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKeyHeader string   `yaml:"api_key_header"`
	APIKeys      []string `yaml:"api_keys"`
	Enabled      bool     `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	BatchWriter BatchWriterConfig `yaml:"batch_writer"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Hosts           []string      `yaml:"hosts"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TLSEnabled      bool          `yaml:"tls_enabled"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// BatchWriterConfig holds batch writer settings.
type BatchWriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// CacheConfig holds Redis snapshot cache settings.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ExportConfig holds Kafka record export settings.
type ExportConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Brokers    []string      `yaml:"brokers"`
	Topic      string        `yaml:"topic"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ArchiveConfig holds S3 raw-upload archival settings.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"` // custom endpoint for S3-compatible stores
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// FetchConfig holds upstream alarm API client settings.
type FetchConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Import: ImportConfig{
			MaxPayloadSize: 10 * 1024 * 1024, // 10MB
			TopDefault:     20,
		},
		Auth: AuthConfig{
			APIKeyHeader: "X-API-Key",
			Enabled:      false, // Disabled by default for development
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Enabled: false, // Disabled by default for development without ClickHouse
			ClickHouse: ClickHouseConfig{
				Hosts:           []string{"localhost:9000"},
				Database:        "alarmscope",
				Username:        "default",
				Password:        "",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				TLSEnabled:      false,
				DialTimeout:     10 * time.Second,
			},
			BatchWriter: BatchWriterConfig{
				BatchSize:     1000,
				FlushInterval: 5 * time.Second,
				MaxRetries:    3,
				RetryDelay:    time.Second,
			},
		},
		Cache: CacheConfig{
			Enabled: false,
			Address: "localhost:6379",
			DB:      0,
			TTL:     24 * time.Hour,
		},
		Export: ExportConfig{
			Enabled:    false,
			Brokers:    []string{"localhost:9092"},
			Topic:      "alarmscope.records",
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Archive: ArchiveConfig{
			Enabled:      false,
			Region:       "us-east-1",
			Bucket:       "alarmscope-uploads",
			UsePathStyle: false,
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load loads configuration from a file or returns defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("ALARMSCOPE_CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("ALARMSCOPE_HTTP_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.HTTPPort)
	}

	if level := os.Getenv("ALARMSCOPE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if apiKey := os.Getenv("ALARMSCOPE_API_KEY"); apiKey != "" {
		c.Auth.APIKeys = append(c.Auth.APIKeys, apiKey)
		c.Auth.Enabled = true
	}

	if enabled := os.Getenv("ALARMSCOPE_STORAGE_ENABLED"); enabled == "true" {
		c.Storage.Enabled = true
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		c.Storage.ClickHouse.Hosts = splitAndTrim(host, ",")
	}

	if db := os.Getenv("CLICKHOUSE_DATABASE"); db != "" {
		c.Storage.ClickHouse.Database = db
	}

	if user := os.Getenv("CLICKHOUSE_USER"); user != "" {
		c.Storage.ClickHouse.Username = user
	}

	if pass := os.Getenv("CLICKHOUSE_PASSWORD"); pass != "" {
		c.Storage.ClickHouse.Password = pass
	}

	if enabled := os.Getenv("ALARMSCOPE_CACHE_ENABLED"); enabled == "true" {
		c.Cache.Enabled = true
	}

	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		c.Cache.Address = addr
	}

	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		c.Cache.Password = pass
	}

	if enabled := os.Getenv("ALARMSCOPE_EXPORT_ENABLED"); enabled == "true" {
		c.Export.Enabled = true
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Export.Brokers = splitAndTrim(brokers, ",")
	}

	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		c.Export.Topic = topic
	}

	if enabled := os.Getenv("ALARMSCOPE_ARCHIVE_ENABLED"); enabled == "true" {
		c.Archive.Enabled = true
	}

	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		c.Archive.Endpoint = endpoint
		c.Archive.UsePathStyle = true
	}

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		c.Archive.Bucket = bucket
	}

	if key := os.Getenv("S3_ACCESS_KEY_ID"); key != "" {
		c.Archive.AccessKeyID = key
	}

	if secret := os.Getenv("S3_SECRET_ACCESS_KEY"); secret != "" {
		c.Archive.SecretAccessKey = secret
	}

	if url := os.Getenv("ALARMSCOPE_FETCH_URL"); url != "" {
		c.Fetch.BaseURL = url
	}

	if key := os.Getenv("ALARMSCOPE_FETCH_API_KEY"); key != "" {
		c.Fetch.APIKey = key
	}
}

// splitAndTrim splits a string by separator and trims whitespace from each part.
func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Import.MaxPayloadSize <= 0 {
		return fmt.Errorf("max_payload_size must be positive")
	}

	if c.Storage.Enabled && len(c.Storage.ClickHouse.Hosts) == 0 {
		return fmt.Errorf("storage enabled but no clickhouse hosts configured")
	}

	if c.Export.Enabled && len(c.Export.Brokers) == 0 {
		return fmt.Errorf("export enabled but no kafka brokers configured")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive enabled but no bucket configured")
	}

	return nil
}
