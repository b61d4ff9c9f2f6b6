package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/forcedowels/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test-meter"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounterAndDurationHistogram(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	counter, err := telemetry.NewCounter(meter, "test_total", "test counter", "{call}")
	require.NoError(t, err)
	counter.Inc(ctx, attribute.String("carrier", "large-parcel"))
	counter.Add(ctx, 3, attribute.String("carrier", "large-parcel"))

	hist, err := telemetry.NewDurationHistogram(meter, "test_duration_seconds", "test histogram",
		telemetry.CarrierDurationBuckets)
	require.NoError(t, err)
	hist.Observe(ctx, 1500*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName["test_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(4), sum.DataPoints[0].Value)

	histData, ok := byName["test_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histData.DataPoints, 1)
	assert.Equal(t, uint64(1), histData.DataPoints[0].Count)
	assert.InDelta(t, 1.5, histData.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, "s", byName["test_duration_seconds"].Unit)
}
