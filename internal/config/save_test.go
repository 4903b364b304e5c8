package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveMemory_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	err := SaveMemory(configPath, MemoryConfig{Enabled: true, LimitBytes: 4096})
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "memory:")
	assert.Contains(t, string(data), "limit_bytes: 4096")
	assert.Contains(t, string(data), "enabled: true")
}

func TestSaveMemory_PreservesOtherConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	initial := `# symtab Configuration
server:
  addr: localhost:7000 # custom port
memory:
  enabled: false
  limit_percent: 50
`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0o644))

	err := SaveMemory(configPath, MemoryConfig{Enabled: true, LimitPercent: 75})
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# symtab Configuration")
	assert.Contains(t, content, "addr: localhost:7000 # custom port")
	assert.Contains(t, content, "limit_percent: 75")
	assert.NotContains(t, content, "limit_percent: 50")
}

func TestSaveRegistry_RoundTripsThroughViper(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(configPath))

	err := SaveRegistry(configPath, RegistryConfig{Verbose: true, PreviewThreshold: 12})
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.Equal(t, RegistryConfig{Verbose: true, PreviewThreshold: 12}, cfg.Registry)
	require.Equal(t, Defaults().Server.Addr, cfg.Server.Addr)
	require.Equal(t, Defaults().Memory, cfg.Memory)
}

func TestSaveFlags_AppendsSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: localhost:5555\n"), 0o644))

	err := SaveFlags(configPath, map[string]bool{"event-stream": true})
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flags:")
	assert.Contains(t, string(data), "event-stream: true")
	assert.Contains(t, string(data), "addr: localhost:5555")
}

func TestSaveMemory_RejectsNonMappingDocument(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("- just\n- a list\n"), 0o644))

	err := SaveMemory(configPath, MemoryConfig{})
	require.Error(t, err)
}

func TestSaveMemory_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o644))

	err := SaveMemory(configPath, MemoryConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config")
}
