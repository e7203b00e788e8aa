//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package metric exports query engine counters through OpenTelemetry.
package metric

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	noopm "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/log"
)

var (
	// Meter is the meter used by the engines.
	Meter metric.Meter = noopm.Meter{}
)

// Start installs an OTLP metric exporter and returns its shutdown function.
// The endpoint defaults to OTEL_EXPORTER_OTLP_METRICS_ENDPOINT, then
// OTEL_EXPORTER_OTLP_ENDPOINT, then localhost:4317 (4318 over HTTP).
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := &options{
		serviceName:      telemetry.ServiceName,
		serviceVersion:   telemetry.ServiceVersion,
		serviceNamespace: telemetry.ServiceNamespace,
		protocol:         telemetry.ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = metricsEndpoint(o.protocol)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(o.serviceNamespace),
			semconv.ServiceName(o.serviceName),
			semconv.ServiceVersion(o.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch o.protocol {
	case telemetry.ProtocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(o.endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		conn, cerr := telemetry.NewGRPCConn(o.endpoint)
		if cerr != nil {
			return nil, fmt.Errorf("failed to initialize metrics connection: %w", cerr)
		}
		exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	Meter = provider.Meter(telemetry.InstrumentName)

	return func() error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown MeterProvider: %w", err)
		}
		return nil
	}, nil
}

func metricsEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == telemetry.ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

// Option configures Start.
type Option func(*options)

type options struct {
	endpoint         string
	serviceName      string
	serviceVersion   string
	serviceNamespace string
	protocol         string
}

// WithEndpoint sets the collector host:port.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithProtocol selects "grpc" (default) or "http".
func WithProtocol(protocol string) Option {
	return func(o *options) {
		o.protocol = protocol
	}
}

// WithServiceName overrides the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// IncExecutions counts one query execution.
func IncExecutions(ctx context.Context, engine, typeName string) {
	add(ctx, telemetry.MetricExecutions, "Number of executed queries",
		attribute.String(telemetry.KeyEngine, engine),
		attribute.String(telemetry.KeyType, typeName))
}

// IncCacheHits counts one query served from the result cache.
func IncCacheHits(ctx context.Context, typeName string) {
	add(ctx, telemetry.MetricCacheHits, "Number of queries served from the result cache",
		attribute.String(telemetry.KeyType, typeName))
}

// add resolves the counter on every call so that a Meter installed by Start
// after package init is picked up.
func add(ctx context.Context, name, desc string, attrs ...attribute.KeyValue) {
	counter, err := Meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Warnf("metric: counter %s: %v", name, err)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
