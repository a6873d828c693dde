package bridge

import (
	"time"
)

// ServerConfig holds the configuration for the HTTP bridge
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8091")
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// ShutdownTimeout is how long Start waits for in-flight requests after
	// its context is cancelled
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// MaxMessageBytes caps the size of an encoded method call
	MaxMessageBytes int64 `yaml:"max_message_bytes" json:"max_message_bytes"`

	// ServiceName names the otelhttp server spans
	ServiceName string `yaml:"service_name" json:"service_name"`

	// Metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	// Enabled determines if metrics collection is active
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the HTTP path for metrics endpoint (default: /metrics)
	Path string `yaml:"path" json:"path"`
}

// DefaultServerConfig returns a configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:      ":8091",
		ShutdownTimeout: 5 * time.Second,
		MaxMessageBytes: 1 << 20,
		ServiceName:     "polis-flavor",
		Metrics: &MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func (c *ServerConfig) withDefaults() *ServerConfig {
	def := DefaultServerConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.ListenAddr == "" {
		out.ListenAddr = def.ListenAddr
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = def.ShutdownTimeout
	}
	if out.MaxMessageBytes <= 0 {
		out.MaxMessageBytes = def.MaxMessageBytes
	}
	if out.ServiceName == "" {
		out.ServiceName = def.ServiceName
	}
	if out.Metrics != nil && out.Metrics.Path == "" {
		m := *out.Metrics
		m.Path = def.Metrics.Path
		out.Metrics = &m
	}
	return &out
}
