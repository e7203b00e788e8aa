//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
)

func TestTracesEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "custom-trace:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic:4317")
	assert.Equal(t, "custom-trace:4317", tracesEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.Equal(t, "generic:4317", tracesEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", tracesEndpoint(itelemetry.ProtocolGRPC))
	assert.Equal(t, "localhost:4318", tracesEndpoint(itelemetry.ProtocolHTTP))
}

func TestParseEndpointURL(t *testing.T) {
	tests := []struct {
		in       string
		endpoint string
		path     string
		wantErr  bool
	}{
		{in: "http://localhost:3000/api/public/otel", endpoint: "localhost:3000", path: "/api/public/otel"},
		{in: "collector:4318", endpoint: "collector:4318", path: "/"},
		{in: "https://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			endpoint, path, err := parseEndpointURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestStartAndClean(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })
	for _, protocol := range []string{itelemetry.ProtocolGRPC, itelemetry.ProtocolHTTP} {
		t.Run(protocol, func(t *testing.T) {
			clean, err := Start(context.Background(), WithProtocol(protocol), WithEndpoint("localhost:4317"))
			require.NoError(t, err)
			require.NotNil(t, clean)
			_, span := StartSpan(context.Background(), itelemetry.SpanNameExecute)
			span.End()
			_ = clean() // no collector is running in tests
		})
	}
}
