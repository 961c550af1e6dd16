package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.DefaultModel)
	assert.Equal(t, time.Second, cfg.Gemini.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Gemini.UploadTimeout)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-from-env")
	t.Setenv("TEST_PG_DSN", "postgres://u:p@localhost/kb?sslmode=disable")

	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9000"
  cors_allowed_origins:
    - "https://kb.example.com"
  max_upload_bytes: 1048576
  shutdown_timeout: "3s"

database:
  driver: postgres
  dsn: "${TEST_PG_DSN}"

gemini:
  api_key: "${TEST_GEMINI_KEY}"
  default_model: gemini-2.5-pro
  poll_interval: 250ms
  request_timeout: 2m
  upload_timeout: 30m

logging:
  level: debug
  format: json

metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"https://kb.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, int64(1048576), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/kb?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "secret-from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.DefaultModel)
	assert.Equal(t, 250*time.Millisecond, cfg.Gemini.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Gemini.RequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Gemini.UploadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "server: [", "parsing config file"},
		{"bad duration", "gemini:\n  poll_interval: soon\n", "gemini.poll_interval"},
		{"bad driver", "database:\n  driver: mysql\n", "database.driver"},
		{"empty dsn", "database:\n  dsn: \"\"\n", "database.dsn"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"zero poll", "gemini:\n  poll_interval: 0s\n", "gemini.poll_interval"},
		{"negative upload timeout", "gemini:\n  upload_timeout: -1m\n", "gemini.upload_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EXPAND_ME", "value")

	assert.Equal(t, "a: value", expandEnvVars("a: ${EXPAND_ME}"))
	assert.Equal(t, "a: ", expandEnvVars("a: ${DEFINITELY_NOT_SET_12345}"))
	assert.Equal(t, "a: $PLAIN", expandEnvVars("a: $PLAIN"))
}
