// ABOUTME: Configuration loading and parsing for pipedrive-gateway
// ABOUTME: Supports YAML files with environment variable expansion, duration parsing and env-declared users

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file leaves a field unset.
const (
	DefaultHTTPAddr             = "0.0.0.0:8080"
	DefaultRateLimitMax         = 100
	DefaultRateLimitWindow      = time.Minute
	DefaultRateLimitCleanup     = 5 * time.Minute
	DefaultPipedriveBaseURL     = "https://api.pipedrive.com/v1"
	DefaultPipedriveTimeout     = 30 * time.Second
	DefaultMaxTokensPerResponse = 150000
	DefaultCharsPerToken        = 4
	DefaultMetricsPath          = "/metrics"
)

// userEnvPrefix marks environment variables that declare a principal.
// Format: MCP_USER_<ID>=<bearer_token>:<pipedrive_api_token>[:<name>[:<email>]]
const userEnvPrefix = "MCP_USER_"

// Config represents the complete pipedrive-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Users     []UserConfig    `yaml:"users"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Pipedrive PipedriveConfig `yaml:"pipedrive"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AuthConfig holds authentication configuration.
// An empty AdminToken disables the admin API (requests answer 500).
type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

// UserConfig declares a principal loaded at startup.
type UserConfig struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Email             string `yaml:"email"`
	BearerToken       string `yaml:"bearer_token"`
	PipedriveAPIToken string `yaml:"pipedrive_api_token"`
}

// RateLimitConfig holds the fixed-window limiter settings
type RateLimitConfig struct {
	MaxRequests     int           `yaml:"max_requests"`
	Window          time.Duration `yaml:"-"`
	CleanupInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	WindowRaw          string `yaml:"window"`
	CleanupIntervalRaw string `yaml:"cleanup_interval"`
}

// PipedriveConfig holds upstream API settings
type PipedriveConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// OptimizerConfig holds response size budgeting settings
type OptimizerConfig struct {
	MaxTokensPerResponse int `yaml:"max_tokens_per_response"`
	CharsPerToken        int `yaml:"chars_per_token"`
}

// SessionsConfig controls MCP handshake enforcement.
// When RequireInitialize is false, methods are served before initialize.
type SessionsConfig struct {
	RequireInitialize bool `yaml:"require_initialize"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with every default applied and no users.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Users declared through MCP_USER_* environment variables are appended.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data)
}

// LoadOrDefault behaves like Load, but a missing file yields the defaults
// combined with environment overrides instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	envUsers, err := UsersFromEnv(os.Environ())
	if err != nil {
		return nil, err
	}
	cfg.Users = append(cfg.Users, envUsers...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides lets the conventional deployment variables win over the file.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.HTTPAddr = "0.0.0.0:" + port
	}
	if token := os.Getenv("MCP_ADMIN_TOKEN"); token != "" {
		cfg.Auth.AdminToken = token
	}
	if baseURL := os.Getenv("PIPEDRIVE_BASE_URL"); baseURL != "" {
		cfg.Pipedrive.BaseURL = baseURL
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = DefaultRateLimitMax
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}
	if cfg.RateLimit.CleanupInterval == 0 {
		cfg.RateLimit.CleanupInterval = DefaultRateLimitCleanup
	}
	if cfg.Pipedrive.BaseURL == "" {
		cfg.Pipedrive.BaseURL = DefaultPipedriveBaseURL
	}
	cfg.Pipedrive.BaseURL = strings.TrimRight(cfg.Pipedrive.BaseURL, "/")
	if cfg.Pipedrive.Timeout == 0 {
		cfg.Pipedrive.Timeout = DefaultPipedriveTimeout
	}
	if cfg.Optimizer.MaxTokensPerResponse == 0 {
		cfg.Optimizer.MaxTokensPerResponse = DefaultMaxTokensPerResponse
	}
	if cfg.Optimizer.CharsPerToken == 0 {
		cfg.Optimizer.CharsPerToken = DefaultCharsPerToken
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// UsersFromEnv extracts principals declared as MCP_USER_<ID> variables.
// Entries missing either token are rejected. The result is sorted by ID.
func UsersFromEnv(environ []string) ([]UserConfig, error) {
	var users []UserConfig
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, userEnvPrefix) || value == "" {
			continue
		}

		parts := strings.SplitN(value, ":", 4)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid user configuration in %s: expected <bearer_token>:<pipedrive_api_token>[:<name>[:<email>]]", key)
		}

		u := UserConfig{
			ID:                strings.TrimPrefix(key, userEnvPrefix),
			BearerToken:       parts[0],
			PipedriveAPIToken: parts[1],
		}
		if len(parts) > 2 {
			u.Name = parts[2]
		}
		if len(parts) > 3 {
			u.Email = parts[3]
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}

	if !strings.HasPrefix(c.Pipedrive.BaseURL, "http://") && !strings.HasPrefix(c.Pipedrive.BaseURL, "https://") {
		return fmt.Errorf("pipedrive.base_url must be an http(s) URL, got %q", c.Pipedrive.BaseURL)
	}

	if c.Optimizer.CharsPerToken < 0 {
		return fmt.Errorf("optimizer.chars_per_token must be positive, got %d", c.Optimizer.CharsPerToken)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	seen := make(map[string]string, len(c.Users))
	for i, u := range c.Users {
		if u.BearerToken == "" {
			return fmt.Errorf("users[%d].bearer_token is required", i)
		}
		if u.PipedriveAPIToken == "" {
			return fmt.Errorf("users[%d].pipedrive_api_token is required", i)
		}
		if other, dup := seen[u.BearerToken]; dup {
			return fmt.Errorf("users[%d] reuses the bearer token of user %q", i, other)
		}
		seen[u.BearerToken] = u.ID
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.RateLimit.WindowRaw != "" {
		cfg.RateLimit.Window, err = time.ParseDuration(cfg.RateLimit.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing window %q: %w", cfg.RateLimit.WindowRaw, err)
		}
	}

	if cfg.RateLimit.CleanupIntervalRaw != "" {
		cfg.RateLimit.CleanupInterval, err = time.ParseDuration(cfg.RateLimit.CleanupIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing cleanup_interval %q: %w", cfg.RateLimit.CleanupIntervalRaw, err)
		}
	}

	if cfg.Pipedrive.TimeoutRaw != "" {
		cfg.Pipedrive.Timeout, err = time.ParseDuration(cfg.Pipedrive.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Pipedrive.TimeoutRaw, err)
		}
	}

	return nil
}
