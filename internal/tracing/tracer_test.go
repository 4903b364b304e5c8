package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/symtab/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	// Creating spans on the no-op tracer should not panic
	_, span := provider.Tracer().Start(context.Background(), "test-span")
	require.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")

	provider, err := NewProvider(Config{
		TracingConfig: config.TracingConfig{
			Enabled:    true,
			Exporter:   "file",
			FilePath:   tracePath,
			SampleRate: 1.0,
		},
		ServiceName: "symtab-test",
	})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "registry.create")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	// Shutdown flushes the batcher
	require.NoError(t, provider.Shutdown(context.Background()))

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan(), "expected one span line")
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	require.Equal(t, "registry.create", rec.Name)
}

func TestNewProvider_NoneExporter(t *testing.T) {
	provider, err := NewProvider(Config{TracingConfig: config.TracingConfig{Enabled: true, Exporter: "none"}})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "x")
	require.True(t, span.SpanContext().IsValid(), "spans are real without an exporter")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{TracingConfig: config.TracingConfig{Enabled: true, Exporter: "file"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path")

	_, err = NewProvider(Config{TracingConfig: config.TracingConfig{Enabled: true, Exporter: "jaeger"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter")
}
