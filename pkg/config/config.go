// Package config provides configuration structures and loading logic for the flavor host.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/polisai/polis-flavor/pkg/domain"
	"github.com/polisai/polis-flavor/pkg/flavor"
)

// Source names accepted in flavor.sources.
const (
	SourceResource = "resource"
	SourceEnv      = "env"
	SourceEmbedded = "embedded"
	SourceSymbols  = "symbols"
)

// DefaultEnvVar is the environment variable read by the env source.
const DefaultEnvVar = "APP_FLAVOR"

var knownSources = []string{SourceResource, SourceEnv, SourceEmbedded, SourceSymbols}

// Config holds the global configuration for the flavor host.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Channel   ChannelConfig   `yaml:"channel"`
	Flavor    FlavorConfig    `yaml:"flavor"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds configuration for the HTTP bridge.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ChannelConfig names the flavor channel and any extra names routed to it.
type ChannelConfig struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// FlavorConfig lists the signal sources in lookup order.
type FlavorConfig struct {
	Sources      []string `yaml:"sources"`
	EnvVar       string   `yaml:"env_var"`
	ResourceFile string   `yaml:"resource_file"`
	ResourceName string   `yaml:"resource_name"`
	Watch        bool     `yaml:"watch"`
}

// PolicyConfig holds the optional Rego call policy.
type PolicyConfig struct {
	Entrypoint string   `yaml:"entrypoint"`
	Files      []string `yaml:"files"`
}

// Enabled reports whether any policy module is configured.
func (c PolicyConfig) Enabled() bool {
	return len(c.Files) > 0
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// MetricsConfig controls the Prometheus endpoint of the HTTP bridge.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8091",
		},
		Channel: ChannelConfig{
			Name: flavor.DefaultChannel,
		},
		Flavor: FlavorConfig{
			Sources:      []string{SourceEnv, SourceEmbedded, SourceSymbols},
			EnvVar:       DefaultEnvVar,
			ResourceName: flavor.DefaultResourceName,
		},
		Policy: PolicyConfig{
			Entrypoint: "channel/allow",
		},
		Telemetry: TelemetryConfig{
			Insecure:    true,
			ServiceName: "polis-flavor",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("POLIS_FLAVOR_ADDR"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("POLIS_FLAVOR_CHANNEL"); val != "" {
		cfg.Channel.Name = val
	}
	if val := os.Getenv("POLIS_FLAVOR_SOURCES"); val != "" {
		// Comma-separated, e.g. "resource,env"
		cfg.Flavor.Sources = splitList(val)
	}
	if val := os.Getenv("POLIS_FLAVOR_RESOURCE_FILE"); val != "" {
		cfg.Flavor.ResourceFile = val
	}
	if val := os.Getenv("POLIS_FLAVOR_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("POLIS_FLAVOR_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Validate performs validation of the entire configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		c.Server.Address = ":8091"
	}

	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel configuration: %w", err)
	}

	if err := c.Flavor.Validate(); err != nil {
		return fmt.Errorf("flavor configuration: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}

	return nil
}

// Validate rejects an empty channel name and aliases that repeat a name.
func (c *ChannelConfig) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("channel name is required")
	}

	seen := map[string]bool{c.Name: true}
	for _, alias := range c.Aliases {
		if strings.TrimSpace(alias) == "" {
			return invalid("empty channel alias")
		}
		if seen[alias] {
			return invalid("duplicate channel name %q", alias)
		}
		seen[alias] = true
	}
	return nil
}

// Validate checks source names and the settings each source needs.
func (c *FlavorConfig) Validate() error {
	if len(c.Sources) == 0 {
		return invalid("at least one flavor source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		src = strings.ToLower(strings.TrimSpace(src))
		if !slices.Contains(knownSources, src) {
			return invalid("unknown flavor source %q, supported sources: %s", c.Sources[i], strings.Join(knownSources, ", "))
		}
		if seen[src] {
			return invalid("flavor source %q listed twice", src)
		}
		seen[src] = true
		c.Sources[i] = src
	}

	if seen[SourceResource] && strings.TrimSpace(c.ResourceFile) == "" {
		return invalid("resource source requires resource_file")
	}
	if strings.TrimSpace(c.EnvVar) == "" {
		c.EnvVar = DefaultEnvVar
	}
	if strings.TrimSpace(c.ResourceName) == "" {
		c.ResourceName = flavor.DefaultResourceName
	}
	return nil
}

// Validate normalizes the metrics path.
func (c *MetricsConfig) Validate() error {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return invalid("metrics path %q must start with /", c.Path)
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return invalid("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}
