package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// setMinimalEnv sets the variables LoadConfig needs to validate
func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SWIM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SWIM_AUTH_DATABASE_URL", "postgres://swim@localhost/auth?sslmode=disable")
	t.Setenv("SWIM_GUEST_EMAIL", "guest@swim.test")
	t.Setenv("SWIM_GUEST_PASSWORD", "guest")
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "SWIM_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "SWIM_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("SWIM_TEST_BOOL", "1")
	t.Setenv("SWIM_TEST_INT", "12")
	t.Setenv("SWIM_TEST_BAD_INT", "twelve")
	t.Setenv("SWIM_TEST_DURATION", "45m")
	t.Setenv("SWIM_TEST_LIST", " a, b ,,c ")

	assert.True(t, getEnvBool("SWIM_TEST_BOOL", false))
	assert.Equal(t, 12, getEnvInt("SWIM_TEST_INT", 0))
	assert.Equal(t, 3, getEnvInt("SWIM_TEST_BAD_INT", 3))
	assert.Equal(t, int64(9), getEnvInt64("SWIM_TEST_UNSET", 9))
	assert.Equal(t, 45*time.Minute, getEnvDuration("SWIM_TEST_DURATION", time.Hour))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("SWIM_TEST_LIST", nil))
}

func TestLoadConfig_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, cfg.Storage.AuthDatabaseURL, cfg.Storage.LogDatabaseURL)
	assert.Equal(t, cfg.Storage.AuthDatabaseURL, cfg.Storage.ScenarioDatabaseURL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadConfig_LegacyAccountVariables(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("SWIM_GUEST_EMAIL", "")
	t.Setenv("SWIM_GUEST_PASSWORD", "")
	t.Setenv("GUSER", "legacy-guest@swim.test")
	t.Setenv("GPASSWORD", "legacy")
	t.Setenv("AUSER", "admin@swim.test")
	t.Setenv("APASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "legacy-guest@swim.test", cfg.Auth.Guest.Email)
	assert.Equal(t, "admin@swim.test", cfg.Auth.Admin.Email)
	assert.Equal(t, "secret", cfg.Auth.Admin.Password)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"SWIM_AUTH_DATABASE_URL=postgres://from-dotenv/auth",
		"SWIM_GUEST_EMAIL=guest@dotenv.test",
		"SWIM_GUEST_PASSWORD=pw",
		"SWIM_TOKEN_TTL=30m",
	}, "\n")
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Setenv("SWIM_ENV_FILE", envFile)
	for _, key := range []string{"SWIM_AUTH_DATABASE_URL", "SWIM_GUEST_EMAIL", "SWIM_GUEST_PASSWORD", "SWIM_TOKEN_TTL"} {
		key := key
		t.Setenv(key, "")
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-dotenv/auth", cfg.Storage.AuthDatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	setMinimalEnv(t)

	path := filepath.Join(t.TempDir(), "swim.yaml")
	yamlDoc := `
server:
  port: "9000"
  context: "https://swim.test/context"
auth:
  tokenTTL: 15m
storage:
  driver: pgx
  redisURL: redis://localhost:6379/0
observability:
  logLevel: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("SWIM_CONFIG_FILE", path)
	t.Setenv("SWIM_PORT", "9100")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "environment wins over YAML")
	assert.Equal(t, "https://swim.test/context", cfg.Server.Context)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "pgx", cfg.Storage.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
}

func TestLoadConfig_BadYAML(t *testing.T) {
	setMinimalEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))
	t.Setenv("SWIM_CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Storage.AuthDatabaseURL = "postgres://localhost/auth"
		cfg.Auth.Guest = Account{Email: "guest@swim.test", Password: "guest"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: "token TTL must be positive"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Auth.BcryptCost = 1 }, wantErr: "bcrypt cost"},
		{name: "missing guest", mutate: func(c *Config) { c.Auth.Guest = Account{} }, wantErr: "guest account"},
		{name: "half admin", mutate: func(c *Config) { c.Auth.Admin = Account{Email: "a@b.c"} }, wantErr: "admin account"},
		{name: "trusted proxies", mutate: func(c *Config) { c.Auth.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1"} }},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.Auth.TrustedProxies = []string{"proxy.local"} }, wantErr: "invalid trusted proxy"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "invalid database driver"},
		{name: "missing auth db", mutate: func(c *Config) { c.Storage.AuthDatabaseURL = "" }, wantErr: "auth database URL"},
		{name: "bad audit buffer", mutate: func(c *Config) { c.Audit.BufferSize = 0 }, wantErr: "audit buffer size"},
		{name: "otel without endpoint", mutate: func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, wantErr: "OpenTelemetry endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
