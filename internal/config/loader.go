package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides mirrors the environment interface of the scheduled job:
// every variable, when set, replaces the value read from the YAML file.
type envOverrides struct {
	LotURLs            []string `envconfig:"LOT_URLS"`
	AllowKeywords      []string `envconfig:"ALLOW_KEYWORDS"`
	DenyKeywords       []string `envconfig:"DENY_KEYWORDS"`
	SupabaseURL        string   `envconfig:"SUPABASE_URL"`
	SupabaseServiceKey string   `envconfig:"SUPABASE_SERVICE_KEY"`
	SupabaseBucket     string   `envconfig:"SUPABASE_BUCKET"`
	StorageDriver      string   `envconfig:"STORAGE_DRIVER"`
	StorageDSN         string   `envconfig:"STORAGE_DSN"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
}

// LoadConfig reads the YAML file at filePath, applies environment overrides
// and defaults, then validates the result. A missing file is not an error:
// the job can be configured from the environment alone.
func LoadConfig(filePath string) (*Config, error) {
	var cfg Config

	file, err := os.Open(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Config file %s not found, using environment only", filePath)
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				log.Printf("Warning: failed to close config file: %v", closeErr)
			}
		}()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays the environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if _, ok := os.LookupEnv("LOT_URLS"); ok {
		c.Source.LotURLs = env.LotURLs
	}
	if _, ok := os.LookupEnv("ALLOW_KEYWORDS"); ok {
		c.Filter.AllowKeywords = env.AllowKeywords
	}
	if _, ok := os.LookupEnv("DENY_KEYWORDS"); ok {
		c.Filter.DenyKeywords = env.DenyKeywords
	}
	if env.SupabaseURL != "" {
		c.Blob.URL = env.SupabaseURL
	}
	if env.SupabaseServiceKey != "" {
		c.Blob.ServiceKey = env.SupabaseServiceKey
	}
	if env.SupabaseBucket != "" {
		c.Blob.Bucket = env.SupabaseBucket
	}
	if env.StorageDriver != "" {
		c.Storage.Driver = env.StorageDriver
	}
	if env.StorageDSN != "" {
		c.Storage.DSN = env.StorageDSN
	}
	if env.LogLevel != "" {
		c.Observability.LogLevel = env.LogLevel
	}
	return nil
}
