// Package config loads and validates the admin backend configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the GA_ prefix (e.g., GA_FILEHOST_GITHUB_TOKEN
// overrides filehost.github.token in the YAML). This layering allows the same binary
// to run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
//
// The GA_SESSION_SECRET variable is read directly by the auth package rather than
// through this file because it must be available to token validation even in test
// binaries that never load a full Config.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	FileHost  FileHostConfig  `mapstructure:"filehost"`
	Content   ContentConfig   `mapstructure:"content"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AdminConfig holds operator authentication configuration.
//
// Exactly one of Password / PasswordHash should be set. PasswordHash is the
// bcrypt hash produced by cmd/hash and is preferred; the plaintext Password
// form exists for local development only.
type AdminConfig struct {
	Password     string        `mapstructure:"password"`
	PasswordHash string        `mapstructure:"password_hash"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// CatalogConfig holds catalog store configuration
type CatalogConfig struct {
	Backend   string                 `mapstructure:"backend"`
	Firestore FirestoreCatalogConfig `mapstructure:"firestore"`
	Postgres  PostgresCatalogConfig  `mapstructure:"postgres"`
}

// FirestoreCatalogConfig holds Firestore document-store configuration
type FirestoreCatalogConfig struct {
	ProjectID string `mapstructure:"project_id"`
	// CredentialsFile is the path to a service account JSON key file.
	// Leave empty to use Application Default Credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// PostgresCatalogConfig holds PostgreSQL document-table configuration
type PostgresCatalogConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN returns the PostgreSQL connection string
func (c *PostgresCatalogConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// FileHostConfig holds file host configuration
type FileHostConfig struct {
	Backend string               `mapstructure:"backend"`
	GitHub  GitHubFileHostConfig `mapstructure:"github"`
	Local   LocalFileHostConfig  `mapstructure:"local"`
}

// GitHubFileHostConfig holds GitHub contents-API host configuration
type GitHubFileHostConfig struct {
	Token  string `mapstructure:"token"`
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"`
	// APIURL overrides the API endpoint, for GitHub Enterprise deployments
	// and for pointing tests at a stub server.
	APIURL string `mapstructure:"api_url"`
}

// LocalFileHostConfig holds local filesystem host configuration
type LocalFileHostConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// ContentConfig holds game content handling configuration
type ContentConfig struct {
	// BaseURL is the public address game files are served from; a game's URL
	// is always BaseURL/<slug>/<entry point>.
	BaseURL    string `mapstructure:"base_url"`
	EntryPoint string `mapstructure:"entry_point"`
	// MaxArchiveSize caps the accepted bundle size in bytes.
	MaxArchiveSize  int64  `mapstructure:"max_archive_size"`
	ScratchDir      string `mapstructure:"scratch_dir"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs
// during Unmarshal. viper.BindEnv only errors when called with zero keys; since
// every key here is a non-empty hardcoded string, any error indicates a
// programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Admin
		"admin.password",
		"admin.password_hash",
		"admin.session_ttl",

		// Catalog
		"catalog.backend",
		"catalog.firestore.project_id",
		"catalog.firestore.credentials_file",
		"catalog.postgres.host",
		"catalog.postgres.port",
		"catalog.postgres.name",
		"catalog.postgres.user",
		"catalog.postgres.password",
		"catalog.postgres.ssl_mode",
		"catalog.postgres.max_connections",
		"catalog.postgres.min_idle_connections",

		// File host
		"filehost.backend",
		"filehost.github.token",
		"filehost.github.owner",
		"filehost.github.repo",
		"filehost.github.branch",
		"filehost.github.api_url",
		"filehost.local.base_path",

		// Content
		"content.base_url",
		"content.entry_point",
		"content.max_archive_size",
		"content.scratch_dir",
		"content.default_page_size",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file path if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/game-admin")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	// Enable environment variable support
	v.SetEnvPrefix("GA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Admin.Password = expandEnv(cfg.Admin.Password)
	cfg.Admin.PasswordHash = expandEnv(cfg.Admin.PasswordHash)
	cfg.Catalog.Postgres.Password = expandEnv(cfg.Catalog.Postgres.Password)
	cfg.FileHost.GitHub.Token = expandEnv(cfg.FileHost.GitHub.Token)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	// Admin defaults
	v.SetDefault("admin.session_ttl", "12h")

	// Catalog defaults
	v.SetDefault("catalog.backend", "firestore")
	v.SetDefault("catalog.postgres.host", "localhost")
	v.SetDefault("catalog.postgres.port", 5432)
	v.SetDefault("catalog.postgres.name", "game_admin")
	v.SetDefault("catalog.postgres.user", "game_admin")
	v.SetDefault("catalog.postgres.ssl_mode", "require")
	v.SetDefault("catalog.postgres.max_connections", 25)
	v.SetDefault("catalog.postgres.min_idle_connections", 5)

	// File host defaults
	v.SetDefault("filehost.backend", "github")
	v.SetDefault("filehost.github.branch", "main")
	v.SetDefault("filehost.local.base_path", "./gamefiles")

	// Content defaults
	v.SetDefault("content.entry_point", "index.html")
	v.SetDefault("content.max_archive_size", 100*1024*1024)
	v.SetDefault("content.scratch_dir", os.TempDir())
	v.SetDefault("content.default_page_size", 10)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 120)
	v.SetDefault("security.rate_limiting.burst", 20)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	// Validate admin credentials
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("one of admin.password or admin.password_hash is required")
	}
	if c.Admin.Password != "" && c.Admin.PasswordHash != "" {
		return fmt.Errorf("admin.password and admin.password_hash are mutually exclusive")
	}

	// Validate catalog backend
	switch c.Catalog.Backend {
	case "firestore":
		if c.Catalog.Firestore.ProjectID == "" {
			return fmt.Errorf("catalog.firestore.project_id is required when using the firestore backend")
		}
	case "postgres":
		if c.Catalog.Postgres.Host == "" {
			return fmt.Errorf("catalog.postgres.host is required when using the postgres backend")
		}
		if c.Catalog.Postgres.Name == "" {
			return fmt.Errorf("catalog.postgres.name is required when using the postgres backend")
		}
		if c.Catalog.Postgres.User == "" {
			return fmt.Errorf("catalog.postgres.user is required when using the postgres backend")
		}
	default:
		return fmt.Errorf("invalid catalog backend: %s (must be 'firestore' or 'postgres')", c.Catalog.Backend)
	}

	// Validate file host backend
	switch c.FileHost.Backend {
	case "github":
		if c.FileHost.GitHub.Token == "" {
			return fmt.Errorf("filehost.github.token is required when using the github backend")
		}
		if c.FileHost.GitHub.Owner == "" || c.FileHost.GitHub.Repo == "" {
			return fmt.Errorf("filehost.github.owner and filehost.github.repo are required when using the github backend")
		}
	case "local":
		if c.FileHost.Local.BasePath == "" {
			return fmt.Errorf("filehost.local.base_path is required when using the local backend")
		}
	default:
		return fmt.Errorf("invalid file host backend: %s (must be 'github' or 'local')", c.FileHost.Backend)
	}

	// Validate content settings
	if c.Content.BaseURL == "" {
		return fmt.Errorf("content.base_url is required")
	}
	if c.Content.MaxArchiveSize <= 0 {
		return fmt.Errorf("content.max_archive_size must be positive")
	}
	if c.Content.DefaultPageSize < 1 {
		return fmt.Errorf("content.default_page_size must be at least 1")
	}

	// Validate TLS if enabled
	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
