package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/legatepro/legate/pkg/observability"
)

// fileConfig is the YAML overlay shape. Only set fields override the
// environment-derived values, so a partial file is fine.
type fileConfig struct {
	Server struct {
		Host            string         `yaml:"host"`
		Port            string         `yaml:"port"`
		ReadTimeout     *time.Duration `yaml:"read_timeout"`
		WriteTimeout    *time.Duration `yaml:"write_timeout"`
		ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`
		HealthPort      string         `yaml:"health_port"`
	} `yaml:"server"`

	Storage struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
		S3Endpoint  string `yaml:"s3_endpoint"`
		S3Region    string `yaml:"s3_region"`
		S3Bucket    string `yaml:"s3_bucket"`
	} `yaml:"storage"`

	Auth struct {
		SessionTTL *time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`

	RateLimit struct {
		Enabled           *bool          `yaml:"enabled"`
		RequestsPerWindow *int           `yaml:"requests_per_window"`
		Window            *time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Planner struct {
		Endpoint  string `yaml:"endpoint"`
		Model     string `yaml:"model"`
		CacheSize *int   `yaml:"cache_size"`
	} `yaml:"planner"`

	Observability struct {
		LogLevel     string `yaml:"log_level"`
		AuditLogFile string `yaml:"audit_log_file"`
		OTelEnabled  *bool  `yaml:"otel_enabled"`
		OTelEndpoint string `yaml:"otel_endpoint"`
	} `yaml:"observability"`
}

// applyFile overlays values from a YAML config file onto cfg
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.Server.Host != "" {
		cfg.Server.Host = fc.Server.Host
	}
	if fc.Server.Port != "" {
		cfg.Server.Port = fc.Server.Port
	}
	if fc.Server.ReadTimeout != nil {
		cfg.Server.ReadTimeout = *fc.Server.ReadTimeout
	}
	if fc.Server.WriteTimeout != nil {
		cfg.Server.WriteTimeout = *fc.Server.WriteTimeout
	}
	if fc.Server.ShutdownTimeout != nil {
		cfg.Server.ShutdownTimeout = *fc.Server.ShutdownTimeout
	}
	if fc.Server.HealthPort != "" {
		cfg.Server.HealthPort = fc.Server.HealthPort
	}

	if fc.Storage.PostgresURL != "" {
		cfg.Storage.PostgresURL = fc.Storage.PostgresURL
	}
	if fc.Storage.RedisURL != "" {
		cfg.Storage.RedisURL = fc.Storage.RedisURL
	}
	if fc.Storage.S3Endpoint != "" {
		cfg.Storage.S3Endpoint = fc.Storage.S3Endpoint
	}
	if fc.Storage.S3Region != "" {
		cfg.Storage.S3Region = fc.Storage.S3Region
	}
	if fc.Storage.S3Bucket != "" {
		cfg.Storage.S3Bucket = fc.Storage.S3Bucket
	}

	if fc.Auth.SessionTTL != nil {
		cfg.Auth.SessionTTL = *fc.Auth.SessionTTL
	}

	if fc.RateLimit.Enabled != nil {
		cfg.RateLimit.Enabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.RequestsPerWindow != nil {
		cfg.RateLimit.RequestsPerWindow = *fc.RateLimit.RequestsPerWindow
	}
	if fc.RateLimit.Window != nil {
		cfg.RateLimit.Window = *fc.RateLimit.Window
	}

	if fc.Planner.Endpoint != "" {
		cfg.Planner.Endpoint = fc.Planner.Endpoint
	}
	if fc.Planner.Model != "" {
		cfg.Planner.Model = fc.Planner.Model
	}
	if fc.Planner.CacheSize != nil {
		cfg.Planner.CacheSize = *fc.Planner.CacheSize
	}

	if fc.Observability.LogLevel != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.AuditLogFile != "" {
		cfg.Observability.AuditLogFile = fc.Observability.AuditLogFile
	}
	if fc.Observability.OTelEnabled != nil {
		cfg.Observability.OTelEnabled = *fc.Observability.OTelEnabled
	}
	if fc.Observability.OTelEndpoint != "" {
		cfg.Observability.OTelEndpoint = fc.Observability.OTelEndpoint
	}

	return nil
}
