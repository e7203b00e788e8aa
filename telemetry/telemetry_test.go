//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-query-go/telemetry/trace"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tracer, meter := trace.Tracer, metric.Meter
	t.Cleanup(func() {
		trace.Tracer, metric.Meter = tracer, meter
	})
}

func TestStartWithoutEndpoints(t *testing.T) {
	restoreGlobals(t)
	tracer, meter := trace.Tracer, metric.Meter

	clean, err := Start(context.Background())
	require.NoError(t, err)
	assert.NoError(t, clean())
	assert.Equal(t, tracer, trace.Tracer)
	assert.Equal(t, meter, metric.Meter)
}

func TestStartInstallsExporters(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		endpoint string
	}{
		{"grpc", itelemetry.ProtocolGRPC, "localhost:4317"},
		{"http", itelemetry.ProtocolHTTP, "localhost:4318"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreGlobals(t)
			tracer, meter := trace.Tracer, metric.Meter

			clean, err := Start(context.Background(),
				WithTracesEndpoint(tt.endpoint),
				WithMetricsEndpoint(tt.endpoint),
				WithProtocol(tt.protocol),
				WithServiceName("trpc-query-test"),
			)
			require.NoError(t, err)
			require.NotNil(t, clean)
			assert.NotEqual(t, tracer, trace.Tracer)
			assert.NotEqual(t, meter, metric.Meter)
			_ = clean() // no collector is running in tests
		})
	}
}
