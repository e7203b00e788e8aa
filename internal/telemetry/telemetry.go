//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the names and span helpers shared by the query
// engines and the telemetry/trace and telemetry/metric packages.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "trpc-query"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-query"
	InstrumentName   = "trpc.query.go"

	SpanNameExecute = "trpc.query.execute"
	SpanNameCount   = "trpc.query.count"
	SpanNameSave    = "trpc.query.save"

	MetricExecutions = "trpc.query.executions"
	MetricCacheHits  = "trpc.query.cache.hits"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// telemetry attributes constants.
var (
	KeyType     = "trpc.query.type"
	KeyEngine   = "trpc.query.engine"
	KeyQuery    = "trpc.query.query"
	KeyResults  = "trpc.query.results"
	KeyCacheHit = "trpc.query.cache_hit"
	KeyObjects  = "trpc.query.objects"
)

// Engine names used as attribute values.
const (
	EngineMemory = "memory"
	EngineStore  = "store"
)

// TraceQuery records what is being executed on span.
func TraceQuery(span trace.Span, engine, typeName, rendered string) {
	span.SetAttributes(
		attribute.String(KeyEngine, engine),
		attribute.String(KeyType, typeName),
		attribute.String(KeyQuery, rendered),
	)
}

// TraceResult records the outcome on span.
func TraceResult(span trace.Span, results int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int(KeyResults, results))
}

// TraceCacheHit records whether the store result cache served the query.
func TraceCacheHit(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool(KeyCacheHit, hit))
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
