package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complexome/internal/config"
)

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{Enabled: false}, slog.Default())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)

	_, err = CreatePipelineMetrics(providers.Meter)
	assert.NoError(t, err)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_MetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "complexome.prom")
	traceFile := filepath.Join(dir, "traces", "trace.json")

	providers, err := InitializeOTel(config.TelemetryConfig{
		Enabled:       true,
		TraceExporter: "stdout",
		TraceFile:     traceFile,
		SampleRatio:   1,
		MetricsFile:   metricsFile,
		Environment:   "test",
	}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)
	require.NotNil(t, providers.Registry)

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "test-run")
	RecordOutcome(ctx, metrics.AnnotationBatches, "failed")
	RecordOutcome(ctx, metrics.AnnotationBatches, "succeeded")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "complexome_annotation_batches_total")
	assert.Contains(t, string(content), `outcome="failed"`)

	traces, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(traces), "test-run")
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{Enabled: true, TraceExporter: "zipkin"}, nil)
	assert.Error(t, err)
}
