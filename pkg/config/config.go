package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`

	// Context is the semantic "@context" URI echoed in scenario responses
	Context string `yaml:"context"`
}

// Account is a fixed account provisioned at startup
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// AuthConfig holds token and account settings
type AuthConfig struct {
	TokenTTL   time.Duration `yaml:"tokenTTL"`
	BcryptCost int           `yaml:"bcryptCost"`
	Admin      Account       `yaml:"admin"`
	Guest      Account       `yaml:"guest"`

	// Login and signup attempts allowed per client per window, 0 disables limiting
	AttemptLimit  int           `yaml:"attemptLimit"`
	AttemptWindow time.Duration `yaml:"attemptWindow"`

	// Peers allowed to set X-Forwarded-For and X-Real-IP, as CIDRs or addresses
	TrustedProxies []string `yaml:"trustedProxies"`
}

// StorageConfig holds database and cache settings
type StorageConfig struct {
	Driver              string        `yaml:"driver"`
	AuthDatabaseURL     string        `yaml:"authDatabaseURL"`
	LogDatabaseURL      string        `yaml:"logDatabaseURL"`
	ScenarioDatabaseURL string        `yaml:"scenarioDatabaseURL"`
	MaxOpenConns        int           `yaml:"maxOpenConns"`
	MaxIdleConns        int           `yaml:"maxIdleConns"`
	ConnMaxLifetime     time.Duration `yaml:"connMaxLifetime"`
	RunMigrations       bool          `yaml:"runMigrations"`

	RedisURL          string        `yaml:"redisURL"`
	CacheTTL          time.Duration `yaml:"cacheTTL"`
	DocumentCacheSize int           `yaml:"documentCacheSize"`
}

// AuditConfig holds event log settings
type AuditConfig struct {
	BufferSize        int    `yaml:"bufferSize"`
	MirrorToLog       bool   `yaml:"mirrorToLog"`
	RetentionDays     int    `yaml:"retentionDays"`
	RetentionSchedule string `yaml:"retentionSchedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	MetricsEnabled bool `yaml:"metricsEnabled"`

	OTelEnabled        bool   `yaml:"otelEnabled"`
	OTelEndpoint       string `yaml:"otelEndpoint"`
	OTelServiceName    string `yaml:"otelServiceName"`
	OTelServiceVersion string `yaml:"otelServiceVersion"`
	OTelInsecure       bool   `yaml:"otelInsecure"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel returns the tracing settings in the form observability.InitOTel expects
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
		},
		Auth: AuthConfig{
			TokenTTL:      90 * time.Minute,
			BcryptCost:    bcrypt.DefaultCost,
			AttemptLimit:  20,
			AttemptWindow: time.Minute,
		},
		Storage: StorageConfig{
			Driver:            "postgres",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			RunMigrations:     true,
			CacheTTL:          5 * time.Minute,
			DocumentCacheSize: 256,
		},
		Audit: AuditConfig{
			BufferSize:        256,
			MirrorToLog:       true,
			RetentionSchedule: "@daily",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          "json",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "swim-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from an optional .env file, an optional YAML
// file named by SWIM_CONFIG_FILE, and environment variables, in that order of
// increasing precedence.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(getEnv("SWIM_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := Default()

	if path := getEnv("SWIM_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates unset environment variables from path; a missing file is fine
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SWIM_HOST", c.Server.Host)
	c.Server.Port = getEnv("SWIM_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SWIM_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SWIM_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SWIM_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SWIM_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.CORSOrigins = getEnvList("SWIM_CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.MaxBodyBytes = getEnvInt64("SWIM_MAX_BODY_BYTES", c.Server.MaxBodyBytes)
	c.Server.Context = getEnv("SWIM_CONTEXT", getEnv("CONTEXT", c.Server.Context))

	// AUSER/APASSWORD and GUSER/GPASSWORD are the variable names older deployments use
	c.Auth.TokenTTL = getEnvDuration("SWIM_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.BcryptCost = getEnvInt("SWIM_BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.Admin.Email = getEnv("SWIM_ADMIN_EMAIL", getEnv("AUSER", c.Auth.Admin.Email))
	c.Auth.Admin.Password = getEnv("SWIM_ADMIN_PASSWORD", getEnv("APASSWORD", c.Auth.Admin.Password))
	c.Auth.Guest.Email = getEnv("SWIM_GUEST_EMAIL", getEnv("GUSER", c.Auth.Guest.Email))
	c.Auth.Guest.Password = getEnv("SWIM_GUEST_PASSWORD", getEnv("GPASSWORD", c.Auth.Guest.Password))
	c.Auth.AttemptLimit = getEnvInt("SWIM_AUTH_ATTEMPT_LIMIT", c.Auth.AttemptLimit)
	c.Auth.AttemptWindow = getEnvDuration("SWIM_AUTH_ATTEMPT_WINDOW", c.Auth.AttemptWindow)
	c.Auth.TrustedProxies = getEnvList("SWIM_TRUSTED_PROXIES", c.Auth.TrustedProxies)

	c.Storage.Driver = getEnv("SWIM_DB_DRIVER", c.Storage.Driver)
	c.Storage.AuthDatabaseURL = getEnv("SWIM_AUTH_DATABASE_URL", c.Storage.AuthDatabaseURL)
	c.Storage.LogDatabaseURL = getEnv("SWIM_LOG_DATABASE_URL", c.Storage.LogDatabaseURL)
	c.Storage.ScenarioDatabaseURL = getEnv("SWIM_SCENARIO_DATABASE_URL", c.Storage.ScenarioDatabaseURL)
	c.Storage.MaxOpenConns = getEnvInt("SWIM_DB_MAX_OPEN_CONNS", c.Storage.MaxOpenConns)
	c.Storage.MaxIdleConns = getEnvInt("SWIM_DB_MAX_IDLE_CONNS", c.Storage.MaxIdleConns)
	c.Storage.ConnMaxLifetime = getEnvDuration("SWIM_DB_CONN_MAX_LIFETIME", c.Storage.ConnMaxLifetime)
	c.Storage.RunMigrations = getEnvBool("SWIM_RUN_MIGRATIONS", c.Storage.RunMigrations)
	c.Storage.RedisURL = getEnv("SWIM_REDIS_URL", c.Storage.RedisURL)
	c.Storage.CacheTTL = getEnvDuration("SWIM_CACHE_TTL", c.Storage.CacheTTL)
	c.Storage.DocumentCacheSize = getEnvInt("SWIM_DOCUMENT_CACHE_SIZE", c.Storage.DocumentCacheSize)

	// log and scenario databases share the auth database unless configured
	if c.Storage.LogDatabaseURL == "" {
		c.Storage.LogDatabaseURL = c.Storage.AuthDatabaseURL
	}
	if c.Storage.ScenarioDatabaseURL == "" {
		c.Storage.ScenarioDatabaseURL = c.Storage.AuthDatabaseURL
	}

	c.Audit.BufferSize = getEnvInt("SWIM_AUDIT_BUFFER_SIZE", c.Audit.BufferSize)
	c.Audit.MirrorToLog = getEnvBool("SWIM_AUDIT_MIRROR_TO_LOG", c.Audit.MirrorToLog)
	c.Audit.RetentionDays = getEnvInt("SWIM_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.RetentionSchedule = getEnv("SWIM_AUDIT_RETENTION_SCHEDULE", c.Audit.RetentionSchedule)

	c.Observability.LogLevel = getEnv("SWIM_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("SWIM_LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsEnabled = getEnvBool("SWIM_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("SWIM_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("SWIM_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("SWIM_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("SWIM_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("SWIM_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.Guest.Email == "" || c.Auth.Guest.Password == "" {
		return fmt.Errorf("guest account email and password are required")
	}
	if (c.Auth.Admin.Email == "") != (c.Auth.Admin.Password == "") {
		return fmt.Errorf("admin account needs both email and password")
	}
	if c.Auth.AttemptLimit < 0 {
		return fmt.Errorf("auth attempt limit cannot be negative")
	}
	for _, proxy := range c.Auth.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			return fmt.Errorf("invalid trusted proxy: %s", proxy)
		}
	}

	switch c.Storage.Driver {
	case "postgres", "pgx", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres, pgx, or sqlite3)", c.Storage.Driver)
	}
	if c.Storage.AuthDatabaseURL == "" {
		return fmt.Errorf("auth database URL is required")
	}

	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit buffer size must be positive")
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit retention days cannot be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
