// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, duration parsing and env users

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9090"

auth:
  admin_token: "admin-secret"

users:
  - id: "alice"
    name: "Alice"
    email: "alice@example.com"
    bearer_token: "mcp_alice"
    pipedrive_api_token: "0123456789abcdef0123456789abcdef01234567"

rate_limit:
  max_requests: 10
  window: "30s"
  cleanup_interval: "2m"

pipedrive:
  base_url: "https://example.pipedrive.test/v1/"
  timeout: "5s"

optimizer:
  max_tokens_per_response: 5000
  chars_per_token: 3

sessions:
  require_initialize: true

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/prom"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:9090")
	}
	if cfg.Auth.AdminToken != "admin-secret" {
		t.Errorf("Auth.AdminToken = %q, want %q", cfg.Auth.AdminToken, "admin-secret")
	}
	if len(cfg.Users) != 1 {
		t.Fatalf("Users len = %d, want 1", len(cfg.Users))
	}
	if cfg.Users[0].BearerToken != "mcp_alice" {
		t.Errorf("Users[0].BearerToken = %q, want %q", cfg.Users[0].BearerToken, "mcp_alice")
	}

	if cfg.RateLimit.MaxRequests != 10 {
		t.Errorf("RateLimit.MaxRequests = %d, want 10", cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit.Window = %v, want %v", cfg.RateLimit.Window, 30*time.Second)
	}
	if cfg.RateLimit.CleanupInterval != 2*time.Minute {
		t.Errorf("RateLimit.CleanupInterval = %v, want %v", cfg.RateLimit.CleanupInterval, 2*time.Minute)
	}

	// Trailing slash is trimmed so paths can be appended
	if cfg.Pipedrive.BaseURL != "https://example.pipedrive.test/v1" {
		t.Errorf("Pipedrive.BaseURL = %q", cfg.Pipedrive.BaseURL)
	}
	if cfg.Pipedrive.Timeout != 5*time.Second {
		t.Errorf("Pipedrive.Timeout = %v, want 5s", cfg.Pipedrive.Timeout)
	}

	if cfg.Optimizer.MaxTokensPerResponse != 5000 {
		t.Errorf("Optimizer.MaxTokensPerResponse = %d, want 5000", cfg.Optimizer.MaxTokensPerResponse)
	}
	if !cfg.Sessions.RequireInitialize {
		t.Error("Sessions.RequireInitialize = false, want true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/prom" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, DefaultRateLimitMax, cfg.RateLimit.MaxRequests)
	assert.Equal(t, DefaultRateLimitWindow, cfg.RateLimit.Window)
	assert.Equal(t, DefaultRateLimitCleanup, cfg.RateLimit.CleanupInterval)
	assert.Equal(t, DefaultPipedriveBaseURL, cfg.Pipedrive.BaseURL)
	assert.Equal(t, DefaultPipedriveTimeout, cfg.Pipedrive.Timeout)
	assert.Equal(t, DefaultMaxTokensPerResponse, cfg.Optimizer.MaxTokensPerResponse)
	assert.Equal(t, DefaultCharsPerToken, cfg.Optimizer.CharsPerToken)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.False(t, cfg.Sessions.RequireInitialize)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ADMIN_TOKEN", "from-env")
	t.Setenv("TEST_UPSTREAM", "ffffffffffffffffffffffffffffffffffffffff")

	cfg, err := Load(writeConfig(t, `
auth:
  admin_token: "${TEST_ADMIN_TOKEN}"
users:
  - id: "bob"
    bearer_token: "mcp_bob"
    pipedrive_api_token: "${TEST_UPSTREAM}"
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.AdminToken)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "ffffffffffffffffffffffffffffffffffffffff", cfg.Users[0].PipedriveAPIToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("MCP_ADMIN_TOKEN", "override")
	t.Setenv("PIPEDRIVE_BASE_URL", "http://localhost:4000/v1")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
auth:
  admin_token: "file"
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3001", cfg.Server.HTTPAddr)
	assert.Equal(t, "override", cfg.Auth.AdminToken)
	assert.Equal(t, "http://localhost:4000/v1", cfg.Pipedrive.BaseURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"window", "rate_limit:\n  window: \"soon\"\n", "window"},
		{"cleanup", "rate_limit:\n  cleanup_interval: \"1x\"\n", "cleanup_interval"},
		{"timeout", "pipedrive:\n  timeout: \"forever\"\n", "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("MCP_ADMIN_TOKEN", "env-admin")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, "env-admin", cfg.Auth.AdminToken)
}

func TestLoad_UsersFromEnvAppended(t *testing.T) {
	t.Setenv("MCP_USER_carol", "mcp_carol:abcdefabcdefabcdefabcdefabcdefabcdefabcd:Carol:carol@example.com")

	cfg, err := Load(writeConfig(t, `
users:
  - id: "alice"
    bearer_token: "mcp_alice"
    pipedrive_api_token: "0123456789abcdef0123456789abcdef01234567"
`))
	require.NoError(t, err)

	var ids []string
	for _, u := range cfg.Users {
		ids = append(ids, u.ID)
	}
	assert.Contains(t, ids, "alice")
	assert.Contains(t, ids, "carol")
}

func TestUsersFromEnv(t *testing.T) {
	t.Run("parses all fields", func(t *testing.T) {
		users, err := UsersFromEnv([]string{
			"HOME=/root",
			"MCP_USER_2=tok2:up2",
			"MCP_USER_1=tok1:up1:Jane Doe:jane@example.com",
		})
		require.NoError(t, err)
		require.Len(t, users, 2)

		assert.Equal(t, UserConfig{ID: "1", BearerToken: "tok1", PipedriveAPIToken: "up1", Name: "Jane Doe", Email: "jane@example.com"}, users[0])
		assert.Equal(t, UserConfig{ID: "2", BearerToken: "tok2", PipedriveAPIToken: "up2"}, users[1])
	})

	t.Run("rejects missing upstream token", func(t *testing.T) {
		_, err := UsersFromEnv([]string{"MCP_USER_X=onlytoken"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MCP_USER_X")
	})

	t.Run("ignores empty values", func(t *testing.T) {
		users, err := UsersFromEnv([]string{"MCP_USER_EMPTY="})
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.Pipedrive.BaseURL = "ftp://nope" },
			wantErr: "pipedrive.base_url",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "user without bearer token",
			mutate: func(c *Config) {
				c.Users = []UserConfig{{ID: "a", PipedriveAPIToken: "x"}}
			},
			wantErr: "bearer_token",
		},
		{
			name: "duplicate bearer token",
			mutate: func(c *Config) {
				c.Users = []UserConfig{
					{ID: "a", BearerToken: "same", PipedriveAPIToken: "x"},
					{ID: "b", BearerToken: "same", PipedriveAPIToken: "y"},
				}
			},
			wantErr: "reuses the bearer token",
		},
		{
			name:    "negative max requests",
			mutate:  func(c *Config) { c.RateLimit.MaxRequests = -1 },
			wantErr: "rate_limit.max_requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
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

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EXPAND_A", "alpha")

	got := expandEnvVars("a=${EXPAND_A} b=${EXPAND_UNSET_VAR}")
	if got != "a=alpha b=" {
		t.Errorf("expandEnvVars() = %q, want %q", got, "a=alpha b=")
	}
}
