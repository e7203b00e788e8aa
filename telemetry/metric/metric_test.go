//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"trpc.group/trpc-go/trpc-query-go/internal/telemetry"
)

func TestMetricsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "custom-metric:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic:4317")
	assert.Equal(t, "custom-metric:4317", metricsEndpoint(telemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	assert.Equal(t, "generic:4317", metricsEndpoint(telemetry.ProtocolHTTP))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", metricsEndpoint(telemetry.ProtocolGRPC))
	assert.Equal(t, "localhost:4318", metricsEndpoint(telemetry.ProtocolHTTP))
}

func TestCounters(t *testing.T) {
	prev := Meter
	t.Cleanup(func() { Meter = prev })

	reader := sdkmetric.NewManualReader()
	Meter = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter(telemetry.InstrumentName)

	ctx := context.Background()
	IncExecutions(ctx, telemetry.EngineMemory, "DataElement")
	IncExecutions(ctx, telemetry.EngineMemory, "DataElement")
	IncCacheHits(ctx, "DataElement")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		data, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok, m.Name)
		for _, dp := range data.DataPoints {
			sums[m.Name] += dp.Value
		}
	}
	assert.Equal(t, int64(2), sums[telemetry.MetricExecutions])
	assert.Equal(t, int64(1), sums[telemetry.MetricCacheHits])
}

func TestStartAndClean(t *testing.T) {
	prev := Meter
	t.Cleanup(func() { Meter = prev })

	clean, err := Start(context.Background(), WithEndpoint("localhost:4317"))
	require.NoError(t, err)
	require.NotNil(t, clean)
	_ = clean() // no collector is running in tests

	clean, err = Start(context.Background(), WithProtocol(telemetry.ProtocolHTTP), WithEndpoint("localhost:4318"))
	require.NoError(t, err)
	_ = clean()
}
