package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "localhost:5555", cfg.Server.Addr)
	require.Equal(t, int64(100), cfg.Registry.PreviewThreshold)
	require.False(t, cfg.Registry.Verbose)
	require.True(t, cfg.Memory.Enabled)
	require.Equal(t, float64(90), cfg.Memory.LimitPercent)
	require.Equal(t, 10*time.Minute, cfg.Cache.IdempotencyTTL)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.NoError(t, Validate(cfg))
}

func TestValidateServer_MissingAddr(t *testing.T) {
	err := ValidateServer(ServerConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.addr")
}

func TestValidateServer_NegativeTimeout(t *testing.T) {
	err := ValidateServer(ServerConfig{Addr: DefaultAddr, ReadTimeout: -time.Second})
	require.Error(t, err)
}

func TestValidateRegistry_NegativeThreshold(t *testing.T) {
	err := ValidateRegistry(RegistryConfig{PreviewThreshold: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "preview_threshold")
}

func TestValidateMemory(t *testing.T) {
	tests := []struct {
		name    string
		mem     MemoryConfig
		wantErr string
	}{
		{"disabled ignores percent", MemoryConfig{Enabled: false}, ""},
		{"absolute limit", MemoryConfig{Enabled: true, LimitBytes: 1 << 20}, ""},
		{"percent", MemoryConfig{Enabled: true, LimitPercent: 50}, ""},
		{"full percent", MemoryConfig{Enabled: true, LimitPercent: 100}, ""},
		{"negative bytes", MemoryConfig{LimitBytes: -1}, "limit_bytes"},
		{"zero percent", MemoryConfig{Enabled: true}, "limit_percent"},
		{"over 100 percent", MemoryConfig{Enabled: true, LimitPercent: 101}, "limit_percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMemory(tt.mem)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCache_NegativeTTL(t *testing.T) {
	require.Error(t, ValidateCache(CacheConfig{IdempotencyTTL: -time.Minute}))
	require.NoError(t, ValidateCache(CacheConfig{}))
}

func TestValidateTracing_Empty(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{}))
}

func TestValidateTracing_SampleRateOutOfRange(t *testing.T) {
	for _, rate := range []float64{-0.1, 1.5} {
		err := ValidateTracing(TracingConfig{SampleRate: rate})
		require.Error(t, err)
		require.Contains(t, err.Error(), "sample_rate")
	}
}

func TestValidateTracing_InvalidExporter(t *testing.T) {
	err := ValidateTracing(TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracing.exporter")
}

func TestValidateTracing_EnabledRequiresTargets(t *testing.T) {
	err := ValidateTracing(TracingConfig{Enabled: true, Exporter: "file"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path")

	err = ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint")

	// Disabled tracing does not need targets
	require.NoError(t, ValidateTracing(TracingConfig{Exporter: "otlp"}))
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	want := Defaults()
	require.Equal(t, want.Server, cfg.Server)
	require.Equal(t, want.Registry, cfg.Registry)
	require.Equal(t, want.Memory, cfg.Memory)
	require.Equal(t, want.Cache, cfg.Cache)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, filepath.Join(home, ".config", "symtab", "config.yaml"), DefaultConfigPath())
	require.Equal(t, filepath.Join(home, ".config", "symtab", "traces", "traces.jsonl"), DefaultTracesFilePath())
}
