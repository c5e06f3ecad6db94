// Package config loads gateway configuration from YAML. Values in the form
// ${VAR_NAME} are expanded from the environment before parsing so secrets
// (DSNs, API tokens) never need to live in the file itself. Duration fields
// are written as Go duration strings ("5m", "1h") and parsed after
// unmarshaling.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete gateway configuration. Exactly one backend section
// is consulted, selected by the serve command.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	SQL        SQLConfig        `yaml:"sql"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Jira       JiraConfig       `yaml:"jira"`
	REST       RESTConfig       `yaml:"rest"`
	Proposer   ProposerConfig   `yaml:"proposer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	// Transport is "stdio" (default) or "http".
	Transport string `yaml:"transport"`
	// HTTPAddr is the listen address when Transport is "http".
	HTTPAddr string `yaml:"http_addr"`
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
}

// GatewayConfig holds policy ceilings and cache timing.
type GatewayConfig struct {
	MaxQueryLimit int `yaml:"max_query_limit"`
	CacheCapacity int `yaml:"cache_capacity"`

	QueryTTL    time.Duration `yaml:"-"`
	MetadataTTL time.Duration `yaml:"-"`

	QueryTTLRaw    string `yaml:"query_ttl"`
	MetadataTTLRaw string `yaml:"metadata_ttl"`
}

// SQLConfig holds SQL backend configuration.
type SQLConfig struct {
	// Driver is "sqlite" or "pgx".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// DangerousKeywords overrides the default forbidden keyword set.
	DangerousKeywords []string `yaml:"dangerous_keywords"`
}

// FilesystemConfig holds filesystem backend configuration.
type FilesystemConfig struct {
	Root          string   `yaml:"root"`
	MaxFileSize   int64    `yaml:"max_file_size"`
	ExcludedDirs  []string `yaml:"excluded_dirs"`
	IncludeHidden bool     `yaml:"include_hidden"`
	MaxDepth      int      `yaml:"max_depth"`
}

// JiraConfig holds JIRA backend configuration.
type JiraConfig struct {
	BaseURL           string   `yaml:"base_url"`
	Username          string   `yaml:"username"`
	APIToken          string   `yaml:"api_token"`
	ProjectKey        string   `yaml:"project_key"`
	DangerousKeywords []string `yaml:"dangerous_keywords"`
}

// RESTConfig holds REST backend configuration.
type RESTConfig struct {
	BaseURL string `yaml:"base_url"`
	// AuthType is "none", "bearer", or "api-key".
	AuthType string `yaml:"auth_type"`
	APIKey   string `yaml:"api_key"`
	// RateLimit is requests per minute; zero disables throttling.
	RateLimit     int `yaml:"rate_limit"`
	RetryAttempts int `yaml:"retry_attempts"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// ProposerConfig holds LLM provider configuration for the ask command.
type ProposerConfig struct {
	// Provider is "gemini", "openai", or "claude".
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	MaxTokens    int    `yaml:"max_tokens"`
	DefaultLimit int    `yaml:"default_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is "error", "warn", "info", or "debug".
	Level string `yaml:"level"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded, and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. An unset variable becomes an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.Name == "" {
		c.Server.Name = "mcp-gateway"
	}
	if c.Server.Version == "" {
		c.Server.Version = "dev"
	}
}

// Validate checks that the configuration is internally consistent. Backend
// sections are validated lazily by the backend constructors; only
// cross-cutting fields are checked here.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio":
	case "http":
		if c.Server.HTTPAddr == "" {
			return fmt.Errorf("server.http_addr is required when transport is http")
		}
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", "stdio", "http", c.Server.Transport)
	}

	if c.Gateway.MaxQueryLimit < 0 {
		return fmt.Errorf("gateway.max_query_limit must not be negative")
	}
	if c.Gateway.CacheCapacity < 0 {
		return fmt.Errorf("gateway.cache_capacity must not be negative")
	}

	return nil
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Gateway.QueryTTLRaw != "" {
		cfg.Gateway.QueryTTL, err = time.ParseDuration(cfg.Gateway.QueryTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing query_ttl %q: %w", cfg.Gateway.QueryTTLRaw, err)
		}
	}

	if cfg.Gateway.MetadataTTLRaw != "" {
		cfg.Gateway.MetadataTTL, err = time.ParseDuration(cfg.Gateway.MetadataTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing metadata_ttl %q: %w", cfg.Gateway.MetadataTTLRaw, err)
		}
	}

	if cfg.REST.TimeoutRaw != "" {
		cfg.REST.Timeout, err = time.ParseDuration(cfg.REST.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing rest timeout %q: %w", cfg.REST.TimeoutRaw, err)
		}
	}

	return nil
}
