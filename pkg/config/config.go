package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/legatepro/legate/pkg/observability"
	"github.com/legatepro/legate/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Auth configuration
	Auth AuthConfig

	// SSO configuration
	SSO SSOConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Readiness planner (external text-generation service)
	Planner PlannerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds session and token settings
type AuthConfig struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

// SSOConfig holds identity provider settings
type SSOConfig struct {
	// OIDC
	OIDCEnabled      bool
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// SAML
	SAMLEnabled         bool
	SAMLIDPSSOURL       string
	SAMLIDPIssuer       string
	SAMLIDPCertificate  string
	SAMLSPIssuer        string
	SAMLACSURL          string
	SAMLSignRequests    bool
	SAMLSPPrivateKey    string
	SAMLSPCertificate   string
	SAMLAttributeEmail  string
	SAMLAttributeName   string
}

// RateLimitConfig holds request rate limiting settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

// PlannerConfig holds readiness plan generation settings
type PlannerConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// Audit file fan-out; empty keeps events database-only
	AuditLogFile string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables. When
// LEGATE_CONFIG_FILE is set, values from that YAML file are applied on
// top of the environment-derived defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		SSO:           loadSSOConfig(),
		RateLimit:     loadRateLimitConfig(),
		Planner:       loadPlannerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("LEGATE_CONFIG_FILE", ""); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("LEGATE_HOST", "0.0.0.0"),
		Port:            getEnv("LEGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("LEGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LEGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LEGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LEGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("LEGATE_HEALTH_PORT", "9090"),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("LEGATE_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("LEGATE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("LEGATE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("LEGATE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if s3Endpoint := getEnv("LEGATE_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("LEGATE_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("LEGATE_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("LEGATE_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("LEGATE_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("LEGATE_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	if redisURL := getEnv("LEGATE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("LEGATE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("LEGATE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SessionTTL:      getEnvDuration("LEGATE_SESSION_TTL", 24*time.Hour),
		CleanupInterval: getEnvDuration("LEGATE_SESSION_CLEANUP_INTERVAL", 1*time.Hour),
	}
}

func loadSSOConfig() SSOConfig {
	return SSOConfig{
		OIDCEnabled:      getEnvBool("LEGATE_OIDC_ENABLED", false),
		OIDCIssuerURL:    getEnv("LEGATE_OIDC_ISSUER_URL", ""),
		OIDCClientID:     getEnv("LEGATE_OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("LEGATE_OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("LEGATE_OIDC_REDIRECT_URL", ""),

		SAMLEnabled:        getEnvBool("LEGATE_SAML_ENABLED", false),
		SAMLIDPSSOURL:      getEnv("LEGATE_SAML_IDP_SSO_URL", ""),
		SAMLIDPIssuer:      getEnv("LEGATE_SAML_IDP_ISSUER", ""),
		SAMLIDPCertificate: getEnv("LEGATE_SAML_IDP_CERTIFICATE", ""),
		SAMLSPIssuer:       getEnv("LEGATE_SAML_SP_ISSUER", ""),
		SAMLACSURL:         getEnv("LEGATE_SAML_ACS_URL", ""),
		SAMLSignRequests:   getEnvBool("LEGATE_SAML_SIGN_REQUESTS", false),
		SAMLSPPrivateKey:   getEnv("LEGATE_SAML_SP_PRIVATE_KEY", ""),
		SAMLSPCertificate:  getEnv("LEGATE_SAML_SP_CERTIFICATE", ""),
		SAMLAttributeEmail: getEnv("LEGATE_SAML_ATTRIBUTE_EMAIL", "email"),
		SAMLAttributeName:  getEnv("LEGATE_SAML_ATTRIBUTE_NAME", "name"),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("LEGATE_RATE_LIMIT_ENABLED", true),
		RequestsPerWindow: getEnvInt("LEGATE_RATE_LIMIT_REQUESTS", 300),
		Window:            getEnvDuration("LEGATE_RATE_LIMIT_WINDOW", 1*time.Minute),
	}
}

func loadPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Endpoint:  getEnv("LEGATE_PLANNER_ENDPOINT", ""),
		APIKey:    getEnv("LEGATE_PLANNER_API_KEY", ""),
		Model:     getEnv("LEGATE_PLANNER_MODEL", ""),
		Timeout:   getEnvDuration("LEGATE_PLANNER_TIMEOUT", 30*time.Second),
		CacheSize: getEnvInt("LEGATE_PLANNER_CACHE_SIZE", 256),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("LEGATE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("LEGATE_METRICS_ENABLED", true),
		AuditLogFile:       getEnv("LEGATE_AUDIT_LOG_FILE", ""),
		OTelEnabled:        getEnvBool("LEGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("LEGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("LEGATE_OTEL_SERVICE_NAME", "legate"),
		OTelServiceVersion: getEnv("LEGATE_OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool("LEGATE_OTEL_INSECURE", true),
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("LEGATE_POSTGRES_URL must be set")
	}
	if c.RateLimit.Enabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("LEGATE_REDIS_URL must be set when rate limiting is enabled")
	}
	if c.SSO.OIDCEnabled {
		if c.SSO.OIDCIssuerURL == "" || c.SSO.OIDCClientID == "" || c.SSO.OIDCClientSecret == "" {
			return fmt.Errorf("OIDC requires issuer URL, client ID and client secret")
		}
	}
	if c.SSO.SAMLEnabled {
		if c.SSO.SAMLIDPSSOURL == "" || c.SSO.SAMLIDPCertificate == "" {
			return fmt.Errorf("SAML requires IdP SSO URL and certificate")
		}
		if c.SSO.SAMLSignRequests && (c.SSO.SAMLSPPrivateKey == "" || c.SSO.SAMLSPCertificate == "") {
			return fmt.Errorf("SAML request signing requires an SP private key and certificate")
		}
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Planner.CacheSize <= 0 {
		return fmt.Errorf("planner cache size must be positive")
	}
	return nil
}

// Environment helpers

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
