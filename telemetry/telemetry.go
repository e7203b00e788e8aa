//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry starts span and metric export for a process in one call.
// Use the trace and metric subpackages directly for finer control.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-query-go/telemetry/trace"
)

// Start installs the exporters whose endpoint is set and returns a function
// shutting them down in reverse order. With no endpoint set nothing is
// installed and the engines keep their no-op tracer and meter.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := &options{protocol: itelemetry.ProtocolGRPC, serviceName: itelemetry.ServiceName}
	for _, opt := range opts {
		opt(o)
	}

	var cleans []func() error
	clean = func() error {
		var errs []error
		for i := len(cleans) - 1; i >= 0; i-- {
			errs = append(errs, cleans[i]())
		}
		return errors.Join(errs...)
	}

	if o.tracesEndpoint != "" {
		c, err := trace.Start(ctx,
			trace.WithEndpoint(o.tracesEndpoint),
			trace.WithProtocol(o.protocol),
			trace.WithServiceName(o.serviceName),
		)
		if err != nil {
			return nil, fmt.Errorf("start tracing: %w", err)
		}
		cleans = append(cleans, c)
	}
	if o.metricsEndpoint != "" {
		c, err := metric.Start(ctx,
			metric.WithEndpoint(o.metricsEndpoint),
			metric.WithProtocol(o.protocol),
			metric.WithServiceName(o.serviceName),
		)
		if err != nil {
			_ = clean()
			return nil, fmt.Errorf("start metrics: %w", err)
		}
		cleans = append(cleans, c)
	}
	return clean, nil
}

// Option configures Start.
type Option func(*options)

type options struct {
	tracesEndpoint  string
	metricsEndpoint string
	protocol        string
	serviceName     string
}

// WithTracesEndpoint enables span export to the collector at endpoint
// ("host:port", no scheme).
func WithTracesEndpoint(endpoint string) Option {
	return func(o *options) {
		o.tracesEndpoint = endpoint
	}
}

// WithMetricsEndpoint enables metric export to the collector at endpoint.
func WithMetricsEndpoint(endpoint string) Option {
	return func(o *options) {
		o.metricsEndpoint = endpoint
	}
}

// WithProtocol selects "grpc" (default) or "http" for both exporters.
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
