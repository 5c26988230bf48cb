package domain

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration. It is loaded once at startup
// from an optional YAML file with environment variables layered on top, and
// never reloaded.
type Config struct {
	Jira      JiraConfig      `yaml:"jira"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
}

// JiraConfig holds the tracker connection settings.
type JiraConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	APIToken       string `yaml:"api_token"`
	DefaultProject string `yaml:"default_project"`
}

// TransportConfig selects how the MCP server is exposed.
type TransportConfig struct {
	Type string     `yaml:"type"`
	HTTP HTTPConfig `yaml:"http"`
}

// HTTPConfig holds the listen address for the HTTP transport.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Environment variable names recognized by LoadConfig. Environment values
// override file values, so a checked-in config file never needs to carry the
// API token.
const (
	EnvBaseURL        = "JIRA_BASE_URL"
	EnvUsername       = "JIRA_USERNAME"
	EnvAPIToken       = "JIRA_API_TOKEN"
	EnvDefaultProject = "JIRA_DEFAULT_PROJECT"
	EnvTransport      = "JIRA_MCP_TRANSPORT"
)

// LoadConfig reads configuration from the given YAML file, applies
// environment overrides and defaults, and validates the result. An empty
// path skips the file and configures from the environment alone.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax in configuration file: %w", err)
		}
	}

	config.applyEnvironment()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Jira.BaseURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Jira.Username = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.Jira.APIToken = v
	}
	if v := os.Getenv(EnvDefaultProject); v != "" {
		c.Jira.DefaultProject = v
	}
	if v := os.Getenv(EnvTransport); v != "" {
		c.Transport.Type = v
	}
}

func (c *Config) applyDefaults() {
	if c.Transport.Type == "" {
		c.Transport.Type = "stdio"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for completeness and well-formedness.
// All problems are collected into a single error so a bad config reports
// every defect at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Jira.BaseURL == "" {
		errs = append(errs, "jira base_url is required")
	} else if err := validateBaseURL(c.Jira.BaseURL); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Jira.Username == "" {
		errs = append(errs, "jira username is required")
	}
	if c.Jira.APIToken == "" {
		errs = append(errs, "jira api_token is required")
	}

	switch c.Transport.Type {
	case "stdio":
		// No additional settings.
	case "http":
		if c.Transport.HTTP.Host == "" {
			errs = append(errs, "HTTP host is required when transport type is http")
		}
		if c.Transport.HTTP.Port < 1 || c.Transport.HTTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid HTTP port: %d (must be between 1 and 65535)", c.Transport.HTTP.Port))
		}
	case "":
		errs = append(errs, "transport type is required")
	default:
		errs = append(errs, fmt.Sprintf("invalid transport type: %s (must be 'stdio' or 'http')", c.Transport.Type))
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		// Empty falls back to info.
	default:
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("jira base_url is not a valid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("jira base_url must use http or https scheme: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("jira base_url must include a host: %s", raw)
	}
	return nil
}

// ParseLogLevel maps a configured level name to a slog level. Unknown or
// empty names fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
