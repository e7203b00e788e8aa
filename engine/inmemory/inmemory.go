//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory evaluates queries against objects held in memory.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-query-go/engine"
	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
	"trpc.group/trpc-go/trpc-query-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-query-go/telemetry/trace"
)

var (
	// errNoObjects is returned when a query carries no objects and no source is set.
	errNoObjects = errors.New("inmemory: query has no objects and no source is configured")

	defaultParallelThreshold = 2048
)

var _ engine.Engine = (*Engine)(nil)

// SourceFunc supplies the objects of a type for queries that carry none.
type SourceFunc func(ctx context.Context, typeName string) ([]any, error)

// Engine evaluates compiled queries with closures over property accessors.
type Engine struct {
	registry  *schema.Registry
	converter *inmemoryConverter

	parallelism       int
	parallelThreshold int
	source            SourceFunc
}

// Option represents a functional option for configuring Engine.
type Option func(*Engine)

// WithParallelism sets the number of workers filtering large inputs.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		e.parallelism = n
	}
}

// WithParallelThreshold sets the input size from which filtering runs on the
// worker pool.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			n = defaultParallelThreshold
		}
		e.parallelThreshold = n
	}
}

// WithSource sets the object supplier for queries without objects.
func WithSource(fn SourceFunc) Option {
	return func(e *Engine) {
		e.source = fn
	}
}

// New creates an in-memory engine over r.
func New(r *schema.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:          r,
		converter:         &inmemoryConverter{registry: r},
		parallelism:       runtime.NumCPU(),
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements engine.Engine.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (items []any, err error) {
	ctx, span := trace.StartSpan(ctx, itelemetry.SpanNameExecute)
	defer span.End()
	itelemetry.TraceQuery(span, itelemetry.EngineMemory, q.Type(), q.String())
	defer func() { itelemetry.TraceResult(span, len(items), err) }()
	metric.IncExecutions(ctx, itelemetry.EngineMemory, q.Type())

	plan, matches, err := e.match(ctx, q)
	if err != nil {
		return nil, err
	}
	sortObjects(matches, e.converter.buildSortKeys(plan.Orders))
	return window(matches, plan.FirstResult, plan.MaxResults), nil
}

// Count implements engine.Engine.
func (e *Engine) Count(ctx context.Context, q *query.Query) (n int, err error) {
	ctx, span := trace.StartSpan(ctx, itelemetry.SpanNameCount)
	defer span.End()
	itelemetry.TraceQuery(span, itelemetry.EngineMemory, q.Type(), q.String())
	defer func() { itelemetry.TraceResult(span, n, err) }()

	_, matches, err := e.match(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// match compiles q and returns the matching objects in input order.
func (e *Engine) match(ctx context.Context, q *query.Query) (*query.Plan, []any, error) {
	plan, err := query.Compile(e.registry, q)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("inmemory: compiled %s", q)

	objs, err := e.objects(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	for _, obj := range objs {
		if s, ok := e.registry.SchemaOf(obj); !ok || s != plan.Schema {
			return nil, nil, &query.EvalError{Type: q.Type(), Err: fmt.Errorf("object of type %T is not a %s", obj, q.Type())}
		}
	}

	pred, err := e.converter.Convert(plan.Root)
	if err != nil {
		return nil, nil, &query.EvalError{Type: q.Type(), Err: err}
	}
	matches, err := e.filter(ctx, objs, pred)
	if err != nil {
		return nil, nil, err
	}
	return plan, matches, nil
}

func (e *Engine) objects(ctx context.Context, q *query.Query) ([]any, error) {
	if q.HasObjects() {
		return q.Objects(), nil
	}
	if e.source == nil {
		return nil, errNoObjects
	}
	objs, err := e.source(ctx, q.Type())
	if err != nil {
		return nil, fmt.Errorf("inmemory: load %s: %w", q.Type(), err)
	}
	return objs, nil
}

// filter applies pred, keeping input order. Inputs at or above the parallel
// threshold are split into chunks evaluated on a worker pool.
func (e *Engine) filter(ctx context.Context, objs []any, pred comparisonFunc) ([]any, error) {
	if len(objs) < e.parallelThreshold || e.parallelism <= 1 {
		out := make([]any, 0, len(objs))
		for _, obj := range objs {
			if pred(obj) {
				out = append(out, obj)
			}
		}
		return out, nil
	}

	pool, err := ants.NewPool(e.parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter worker pool: %w", err)
	}
	defer pool.Release()

	chunkSize := (len(objs) + e.parallelism - 1) / e.parallelism
	chunks := make([][]any, 0, e.parallelism)
	for start := 0; start < len(objs); start += chunkSize {
		chunks = append(chunks, objs[start:min(start+chunkSize, len(objs))])
	}
	results := make([][]any, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			var kept []any
			for _, obj := range chunk {
				if pred(obj) {
					kept = append(kept, obj)
				}
			}
			results[i] = kept
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit filter task: %w", err)
		}
	}
	wg.Wait()

	out := make([]any, 0, len(objs))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// window applies the offset and limit. An offset past the end yields an
// empty page.
func window(objs []any, first, limit int) []any {
	if first < 0 {
		first = 0
	}
	if first >= len(objs) {
		return []any{}
	}
	objs = objs[first:]
	if limit > 0 && limit < len(objs) {
		objs = objs[:limit]
	}
	return objs
}
