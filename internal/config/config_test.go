package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected ReadTimeout 30s, got %v", cfg.Server.ReadTimeout)
	}

	if cfg.Import.MaxPayloadSize != 10*1024*1024 {
		t.Errorf("expected MaxPayloadSize 10MB, got %d", cfg.Import.MaxPayloadSize)
	}
	if cfg.Import.TopDefault != 20 {
		t.Errorf("expected TopDefault 20, got %d", cfg.Import.TopDefault)
	}

	if cfg.Auth.Enabled {
		t.Error("expected Auth.Enabled to be false by default")
	}
	if cfg.Auth.APIKeyHeader != "X-API-Key" {
		t.Errorf("expected APIKeyHeader 'X-API-Key', got %s", cfg.Auth.APIKeyHeader)
	}

	if cfg.Storage.Enabled {
		t.Error("expected Storage.Enabled to be false by default")
	}
	if cfg.Storage.ClickHouse.Database != "alarmscope" {
		t.Errorf("expected database 'alarmscope', got %s", cfg.Storage.ClickHouse.Database)
	}
	if cfg.Storage.BatchWriter.BatchSize != 1000 {
		t.Errorf("expected BatchSize 1000, got %d", cfg.Storage.BatchWriter.BatchSize)
	}

	if cfg.Cache.Enabled || cfg.Export.Enabled || cfg.Archive.Enabled {
		t.Error("expected cache, export, and archive to be disabled by default")
	}
	if cfg.Export.Topic != "alarmscope.records" {
		t.Errorf("expected topic 'alarmscope.records', got %s", cfg.Export.Topic)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestValidate_InvalidHTTPPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"too high port", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server.HTTPPort = tt.port
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error for invalid port")
			}
		})
	}
}

func TestValidate_EnabledSubsystems(t *testing.T) {
	t.Run("storage without hosts", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Storage.Enabled = true
		cfg.Storage.ClickHouse.Hosts = nil
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for storage without hosts")
		}
	})

	t.Run("export without brokers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Export.Enabled = true
		cfg.Export.Brokers = nil
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for export without brokers")
		}
	})

	t.Run("archive without bucket", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Archive.Enabled = true
		cfg.Archive.Bucket = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for archive without bucket")
		}
	})
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sep      string
		expected []string
	}{
		{
			name:     "simple split",
			input:    "a,b,c",
			sep:      ",",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "with spaces",
			input:    "a , b , c",
			sep:      ",",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "empty parts filtered",
			input:    "a,,b",
			sep:      ",",
			expected: []string{"a", "b"},
		},
		{
			name:     "empty string",
			input:    "",
			sep:      ",",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.input, tt.sep)
			if len(result) != len(tt.expected) {
				t.Errorf("splitAndTrim(%q, %q) = %v, expected %v", tt.input, tt.sep, result, tt.expected)
				return
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("splitAndTrim(%q, %q)[%d] = %q, expected %q", tt.input, tt.sep, i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	original := map[string]string{
		"ALARMSCOPE_HTTP_PORT": os.Getenv("ALARMSCOPE_HTTP_PORT"),
		"ALARMSCOPE_LOG_LEVEL": os.Getenv("ALARMSCOPE_LOG_LEVEL"),
		"ALARMSCOPE_API_KEY":   os.Getenv("ALARMSCOPE_API_KEY"),
		"KAFKA_BROKERS":        os.Getenv("KAFKA_BROKERS"),
		"S3_ENDPOINT":          os.Getenv("S3_ENDPOINT"),
	}
	defer func() {
		for k, v := range original {
			os.Setenv(k, v)
		}
	}()

	t.Run("HTTP port override", func(t *testing.T) {
		os.Setenv("ALARMSCOPE_HTTP_PORT", "9000")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.Server.HTTPPort != 9000 {
			t.Errorf("expected HTTPPort 9000, got %d", cfg.Server.HTTPPort)
		}
	})

	t.Run("log level override", func(t *testing.T) {
		os.Setenv("ALARMSCOPE_LOG_LEVEL", "debug")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
		}
	})

	t.Run("API key override enables auth", func(t *testing.T) {
		os.Setenv("ALARMSCOPE_API_KEY", "test-key-123")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if !cfg.Auth.Enabled {
			t.Error("expected Auth.Enabled to be true when API key is set")
		}
		found := false
		for _, key := range cfg.Auth.APIKeys {
			if key == "test-key-123" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected API key to be added to APIKeys")
		}
	})

	t.Run("broker list split and trimmed", func(t *testing.T) {
		os.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if len(cfg.Export.Brokers) != 2 || cfg.Export.Brokers[1] != "broker2:9092" {
			t.Errorf("expected two trimmed brokers, got %v", cfg.Export.Brokers)
		}
	})

	t.Run("custom S3 endpoint forces path style", func(t *testing.T) {
		os.Setenv("S3_ENDPOINT", "http://localhost:9001")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.Archive.Endpoint != "http://localhost:9001" {
			t.Errorf("expected endpoint override, got %s", cfg.Archive.Endpoint)
		}
		if !cfg.Archive.UsePathStyle {
			t.Error("expected UsePathStyle to be true with a custom endpoint")
		}
	})
}
