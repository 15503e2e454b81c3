package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/zhouzirui/voxlate/internal/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	before := otel.GetMeterProvider()
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, "voxlate-test")
	require.NoError(t, err)
	assert.Equal(t, before, otel.GetMeterProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupExportsToFiles(t *testing.T) {
	prevMeter, prevTracer := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMeter)
		otel.SetTracerProvider(prevTracer)
	})

	dir := t.TempDir()
	ctx := context.Background()
	shutdown, err := Setup(ctx, config.TelemetryConfig{Enabled: true, Dir: dir}, "voxlate-test")
	require.NoError(t, err)

	counter, err := otel.Meter("test").Int64Counter("test.count")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	_, span := otel.Tracer("test").Start(ctx, "test-span")
	span.End()

	require.NoError(t, shutdown(ctx))

	traces, err := os.ReadFile(filepath.Join(dir, "voxlate-test_traces.log"))
	require.NoError(t, err)
	assert.Contains(t, string(traces), "test-span")

	metrics, err := os.ReadFile(filepath.Join(dir, "voxlate-test_metrics.log"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "test.count")
}
