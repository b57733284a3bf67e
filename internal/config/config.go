// Package config loads and validates the agent server configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the agent server.
type Config struct {
	// APIPort is the port the HTTP API server listens on
	APIPort int `koanf:"api_port"`

	// LogLevel is the default logging level (debug, info, warn, error)
	LogLevel string `koanf:"log_level"`

	// PackageLogLevels overrides the log level per package, e.g.
	// {"agent.*": "debug", "api": "warn"}
	PackageLogLevels map[string]string `koanf:"package_log_levels"`

	// Provider selects the reasoning model backend (anthropic, mock)
	Provider string `koanf:"provider"`

	// Model is the model identifier passed to the provider
	Model string `koanf:"model"`

	// ProjectID is the default cloud project investigated when a turn
	// request does not name one
	ProjectID string `koanf:"project_id"`

	// ToolResultMaxBytes truncates oversized tool results before they are
	// fed back to the model
	ToolResultMaxBytes int `koanf:"tool_result_max_bytes"`

	// MemoryCacheSize is the number of sessions retained in the long-term
	// memory LRU
	MemoryCacheSize int `koanf:"memory_cache_size"`

	// MinClientVersion, when set, rejects chat requests whose
	// X-Client-Version header is older
	MinClientVersion string `koanf:"min_client_version"`

	// MCPEnabled exposes the diagnostic tool registry at /v1/mcp
	MCPEnabled bool `koanf:"mcp_enabled"`

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool `koanf:"tracing_enabled"`

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string `koanf:"tracing_endpoint"`

	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string `koanf:"tracing_tls_ca_path"`
}

// Default returns the configuration used when no file and no overrides are
// present.
func Default() *Config {
	return &Config{
		APIPort:            8080,
		LogLevel:           "info",
		Provider:           "anthropic",
		Model:              "claude-sonnet-4-5-20250929",
		ToolResultMaxBytes: 65536,
		MemoryCacheSize:    1024,
	}
}

// envPrefix is the prefix for environment overrides. SREAGENT_API_PORT
// overrides api_port, SREAGENT_TRACING_ENDPOINT overrides tracing_endpoint.
const envPrefix = "SREAGENT_"

// Load reads configuration from the given YAML file path, then applies
// environment overrides on top. An empty path skips the file and loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewConfigError("api_port must be between 1 and 65535")
	}

	switch c.Provider {
	case "anthropic", "mock":
	default:
		return NewConfigError(fmt.Sprintf("provider must be anthropic or mock, got %q", c.Provider))
	}

	if c.Model == "" {
		return NewConfigError("model must not be empty")
	}

	if c.ToolResultMaxBytes < 1024 {
		return NewConfigError("tool_result_max_bytes must be at least 1024")
	}

	if c.MemoryCacheSize < 1 {
		return NewConfigError("memory_cache_size must be at least 1")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("tracing_endpoint must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
