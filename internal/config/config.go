// Package config provides configuration types and defaults for symtab.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/symtab/internal/log"
)

// Config holds all configuration options for symtab.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Registry RegistryConfig  `mapstructure:"registry"`
	Memory   MemoryConfig    `mapstructure:"memory"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Tracing  TracingConfig   `mapstructure:"tracing"`
	Flags    map[string]bool `mapstructure:"flags"`
}

// ServerConfig holds the daemon's HTTP listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RegistryConfig holds symbol table behaviour.
type RegistryConfig struct {
	// Verbose logs redefinition and no-op delete notices.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// PreviewThreshold is the array size at which previews are truncated.
	// Default: 100
	PreviewThreshold int64 `mapstructure:"preview_threshold" yaml:"preview_threshold"`
}

// MemoryConfig holds the allocation budget.
type MemoryConfig struct {
	// Enabled turns the memory guard on. When false every allocation is accepted.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// LimitBytes is an absolute byte budget. Takes precedence over LimitPercent.
	LimitBytes int64 `mapstructure:"limit_bytes" yaml:"limit_bytes"`

	// LimitPercent is the budget as a percentage of physical memory.
	// Default: 90
	LimitPercent float64 `mapstructure:"limit_percent" yaml:"limit_percent"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// IdempotencyTTL is how long a create response is replayed for the same
	// Idempotency-Key header.
	// Default: 10m
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/symtab/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultAddr is the daemon listen address.
const DefaultAddr = "localhost:5555"

// DefaultConfigDir returns ~/.config/symtab, or empty string if home dir unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "symtab")
}

// DefaultConfigPath returns the user-level config file path.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/symtab/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Registry: RegistryConfig{
			Verbose:          false,
			PreviewThreshold: 100,
		},
		Memory: MemoryConfig{
			Enabled:      true,
			LimitBytes:   0,
			LimitPercent: 90,
		},
		Cache: CacheConfig{
			IdempotencyTTL: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks every section.
func Validate(cfg Config) error {
	if err := ValidateServer(cfg.Server); err != nil {
		return err
	}
	if err := ValidateRegistry(cfg.Registry); err != nil {
		return err
	}
	if err := ValidateMemory(cfg.Memory); err != nil {
		return err
	}
	if err := ValidateCache(cfg.Cache); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateServer checks listener configuration for errors.
func ValidateServer(s ServerConfig) error {
	if s.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}
	return nil
}

// ValidateRegistry checks registry configuration for errors.
func ValidateRegistry(r RegistryConfig) error {
	if r.PreviewThreshold < 0 {
		return fmt.Errorf("registry.preview_threshold cannot be negative, got %d", r.PreviewThreshold)
	}
	return nil
}

// ValidateMemory checks memory budget configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateMemory(m MemoryConfig) error {
	if m.LimitBytes < 0 {
		return fmt.Errorf("memory.limit_bytes cannot be negative, got %d", m.LimitBytes)
	}
	// The percentage only matters when no absolute limit is set
	if m.Enabled && m.LimitBytes == 0 && (m.LimitPercent <= 0 || m.LimitPercent > 100) {
		return fmt.Errorf("memory.limit_percent must be in (0, 100], got %v", m.LimitPercent)
	}
	return nil
}

// ValidateCache checks cache configuration for errors.
func ValidateCache(c CacheConfig) error {
	if c.IdempotencyTTL < 0 {
		return fmt.Errorf("cache.idempotency_ttl cannot be negative, got %s", c.IdempotencyTTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# symtab Configuration

# Daemon listener
server:
  addr: localhost:5555
  read_timeout: 30s
  write_timeout: 30s
  shutdown_timeout: 5s

# Symbol table behaviour
registry:
  verbose: false          # Log redefinition and skipped-delete notices
  preview_threshold: 100  # Arrays this large are previewed as first 3 ... last 3

# Allocation budget. Changes are picked up by a running daemon.
memory:
  enabled: true
  limit_bytes: 0          # Absolute limit in bytes; 0 uses limit_percent
  limit_percent: 90       # Percent of physical memory

# Idempotent create replay (requires the idempotent-create flag)
cache:
  idempotency_ttl: 10m

# Distributed tracing configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/symtab/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Feature flags
# flags:
#   idempotent-create: true
#   event-stream: true
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
