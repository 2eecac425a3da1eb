// config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// PortalConfig holds everything needed to talk to the Boston Open Data
// CKAN API (data.boston.gov).
type PortalConfig struct {
	BaseURL              string `yaml:"base_url"`
	UserAgent            string `yaml:"user_agent"`
	MaxRecordsPerRequest int    `yaml:"max_records_per_request"`
	RequestTimeoutStr    string `yaml:"request_timeout"`
	RetryAttempts        int    `yaml:"retry_attempts"`
	RetryBaseDelayStr    string `yaml:"retry_base_delay"`
	RetryMaxDelayStr     string `yaml:"retry_max_delay"`

	RequestTimeout time.Duration // Parsed duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DatasetConfig lets a deployment override the portal resource ID or the
// yearly CSV snapshot URL for a single dataset without a rebuild.
type DatasetConfig struct {
	ResourceID  string `yaml:"resource_id"`
	SnapshotCSV string `yaml:"snapshot_csv"`
	PageURL     string `yaml:"page_url"`
}

type EtlConfig struct {
	BatchSize    int `yaml:"batch_size"`
	DefaultLimit int `yaml:"default_limit"`
}

// CatalogSelectorsConfig holds the CSS selectors used when scraping dataset
// pages on the portal for freshness info and resource links.
type CatalogSelectorsConfig struct {
	LastUpdated  string `yaml:"last_updated"`
	ResourceLink string `yaml:"resource_link"`
}

type Config struct {
	Server           ServerConfig             `yaml:"server"`
	Database         DatabaseConfig           `yaml:"database"`
	Portal           PortalConfig             `yaml:"portal"`
	Datasets         map[string]DatasetConfig `yaml:"datasets"`
	Etl              EtlConfig                `yaml:"etl"`
	CatalogSelectors CatalogSelectorsConfig   `yaml:"catalog_selectors"`
}

// Load reads configuration from a YAML file and returns the parsed Config.
// The pipeline receives this value explicitly; there is no package-level
// config state.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config data: %w", err)
	}

	// Environment overrides for credentials (loaded from .env by main).
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}

	applyDefaults(&cfg)

	// Parse duration strings.
	cfg.Portal.RequestTimeout, err = time.ParseDuration(cfg.Portal.RequestTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid portal.request_timeout '%s': %w", cfg.Portal.RequestTimeoutStr, err)
	}
	cfg.Portal.RetryBaseDelay, err = time.ParseDuration(cfg.Portal.RetryBaseDelayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid portal.retry_base_delay '%s': %w", cfg.Portal.RetryBaseDelayStr, err)
	}
	cfg.Portal.RetryMaxDelay, err = time.ParseDuration(cfg.Portal.RetryMaxDelayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid portal.retry_max_delay '%s': %w", cfg.Portal.RetryMaxDelayStr, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = "https://data.boston.gov/api/3/action"
	}
	if cfg.Portal.MaxRecordsPerRequest <= 0 {
		// The portal caps datastore_search page size at 10000 records.
		cfg.Portal.MaxRecordsPerRequest = 10000
	}
	if cfg.Portal.RequestTimeoutStr == "" {
		cfg.Portal.RequestTimeoutStr = "30s"
	}
	if cfg.Portal.RetryAttempts <= 0 {
		cfg.Portal.RetryAttempts = 3
	}
	if cfg.Portal.RetryBaseDelayStr == "" {
		cfg.Portal.RetryBaseDelayStr = "2s"
	}
	if cfg.Portal.RetryMaxDelayStr == "" {
		cfg.Portal.RetryMaxDelayStr = "10s"
	}
	if cfg.Etl.BatchSize <= 0 {
		cfg.Etl.BatchSize = 1000
	}
}
