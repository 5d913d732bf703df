// Package config resolves catchlog configuration once at startup.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/Lllllllleong/catchlog/internal/imaging"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "CATCHLOG_CONFIG"

const maxConfigFileSize = 1024 * 1024

// Config holds every recognised option. Keys match the lowercased
// environment variable names (STORAGE_BUCKET -> storage_bucket).
type Config struct {
	ProjectID           string `koanf:"project_id"`
	GoogleCloudProject  string `koanf:"google_cloud_project"`
	Bucket              string `koanf:"storage_bucket"`
	Collection          string `koanf:"firestore_collection"`
	VertexAIRegion      string `koanf:"vertex_ai_region"`
	Model               string `koanf:"gemini_model"`
	GeminiAPIKey        string `koanf:"gemini_api_key"`
	Port                int    `koanf:"port"`
	APIBaseURL          string `koanf:"api_base_url"`
	PublicBaseURL       string `koanf:"public_base_url"`
	MaxLongEdge         int    `koanf:"max_long_edge"`
	JPEGQuality         int    `koanf:"jpeg_quality"`
	DefaultDisplayName  string `koanf:"default_display_name"`
	BackfillConcurrency int    `koanf:"backfill_concurrency"`
}

// Load reads the optional YAML file named by CATCHLOG_CONFIG, overlays the
// environment, applies defaults and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Keys keep their underscores; "." is the nesting delimiter, so
	// STORAGE_BUCKET stays a flat storage_bucket key. Empty variables do not
	// mask values from the file.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProjectID == "" {
		cfg.ProjectID = cfg.GoogleCloudProject
	}
	if cfg.Collection == "" {
		cfg.Collection = "catches"
	}
	if cfg.VertexAIRegion == "" {
		cfg.VertexAIRegion = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "*"
	}
	if cfg.PublicBaseURL == "" && cfg.Bucket != "" {
		cfg.PublicBaseURL = "https://storage.googleapis.com/" + cfg.Bucket
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.MaxLongEdge == 0 {
		cfg.MaxLongEdge = imaging.DefaultMaxLongEdge
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = imaging.DefaultQuality
	}
	if cfg.DefaultDisplayName == "" {
		cfg.DefaultDisplayName = "Anonymous Angler"
	}
	if cfg.BackfillConcurrency == 0 {
		cfg.BackfillConcurrency = 10
	}
}

// Validate checks required options and value ranges.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET environment variable must be set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxLongEdge < 1 {
		return fmt.Errorf("MAX_LONG_EDGE must be positive, got %d", c.MaxLongEdge)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.BackfillConcurrency < 1 {
		return fmt.Errorf("BACKFILL_CONCURRENCY must be positive, got %d", c.BackfillConcurrency)
	}
	return nil
}

// UsesAPIKey reports whether the Gemini API-key client should be used instead
// of Vertex AI.
func (c *Config) UsesAPIKey() bool {
	return c.GeminiAPIKey != ""
}

// Redacted returns a copy safe for printing.
func (c *Config) Redacted() Config {
	out := *c
	if out.GeminiAPIKey != "" {
		out.GeminiAPIKey = "[REDACTED]"
	}
	return out
}
