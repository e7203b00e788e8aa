//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlstore executes queries against a SQL store. Predicates are
// rendered as SQL over one table per type, with deep paths as correlated
// EXISTS subqueries, and matching rows are hydrated into new instances.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"trpc.group/trpc-go/trpc-query-go/config"
	"trpc.group/trpc-go/trpc-query-go/engine"
	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
	"trpc.group/trpc-go/trpc-query-go/storage/sqldb"
	"trpc.group/trpc-go/trpc-query-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-query-go/telemetry/trace"
)

var (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

var _ engine.Engine = (*Engine)(nil)

// AccessFilter returns a predicate over the query's type that is AND-ed with
// the query predicate, or nil to leave the query unrestricted.
type AccessFilter func(ctx context.Context, q *query.Query) (query.Node, error)

// CacheSkipSource supplies the cache-skip snapshot read at the start of each
// execution.
type CacheSkipSource interface {
	Snapshot() *config.CacheSkip
}

// Engine executes queries against a sqldb.Client.
type Engine struct {
	registry *schema.Registry
	client   sqldb.Client
	dialect  Dialect

	access AccessFilter
	skip   CacheSkipSource

	// cache maps a rendered statement to the identifiers it selected.
	cache *expirable.LRU[string, []string]
	group singleflight.Group
	// generation changes on every write so loads started before a write
	// never populate the cache after it.
	generation atomic.Uint64
}

type options struct {
	dialect   Dialect
	access    AccessFilter
	skip      CacheSkipSource
	cacheOff  bool
	cacheSize int
	cacheTTL  time.Duration
}

// Option represents a functional option for configuring Engine.
type Option func(*options)

// WithDialect sets the SQL dialect. The default is SQLite.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithAccessFilter sets the access filter applied around every query.
func WithAccessFilter(f AccessFilter) Option {
	return func(o *options) {
		o.access = f
	}
}

// WithCacheSkip sets the cache-skip source. The default skips the built-in
// type list.
func WithCacheSkip(src CacheSkipSource) Option {
	return func(o *options) {
		o.skip = src
	}
}

// WithCache sizes the result cache. Non-positive values keep the defaults.
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		if size > 0 {
			o.cacheSize = size
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithoutCache disables the result cache.
func WithoutCache() Option {
	return func(o *options) {
		o.cacheOff = true
	}
}

// New creates a store engine over client.
func New(r *schema.Registry, client sqldb.Client, opts ...Option) *Engine {
	o := &options{
		dialect:   SQLite,
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.skip == nil {
		o.skip = config.NewCacheSkipProvider("")
	}
	e := &Engine{
		registry: r,
		client:   client,
		dialect:  o.dialect,
		access:   o.access,
		skip:     o.skip,
	}
	if !o.cacheOff {
		e.cache = expirable.NewLRU[string, []string](o.cacheSize, nil, o.cacheTTL)
	}
	return e
}

// Dialect returns the engine's SQL dialect.
func (e *Engine) Dialect() Dialect { return e.dialect }

// Close closes the underlying client.
func (e *Engine) Close() error { return e.client.Close() }

// statement is a rendered query.
type statement struct {
	plan *query.Plan
	sql  string
	args []any
}

// Execute implements engine.Engine.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (items []any, err error) {
	ctx, span := trace.StartSpan(ctx, itelemetry.SpanNameExecute)
	defer span.End()
	itelemetry.TraceQuery(span, itelemetry.EngineStore, q.Type(), q.String())
	defer func() { itelemetry.TraceResult(span, len(items), err) }()
	metric.IncExecutions(ctx, itelemetry.EngineStore, q.Type())

	st, err := e.render(ctx, q, false)
	if err != nil {
		return nil, err
	}
	ids, hit, err := e.selectIDs(ctx, st)
	if err != nil {
		return nil, err
	}
	itelemetry.TraceCacheHit(span, hit)
	return e.hydrate(ctx, st.plan.Schema, ids)
}

// Count implements engine.Engine. Counts ignore paging and are never cached.
func (e *Engine) Count(ctx context.Context, q *query.Query) (n int, err error) {
	ctx, span := trace.StartSpan(ctx, itelemetry.SpanNameCount)
	defer span.End()
	itelemetry.TraceQuery(span, itelemetry.EngineStore, q.Type(), q.String())
	defer func() { itelemetry.TraceResult(span, n, err) }()

	st, err := e.render(ctx, q, true)
	if err != nil {
		return 0, err
	}
	err = e.client.Query(ctx, func(rows *sql.Rows) error {
		if rows.Next() {
			return rows.Scan(&n)
		}
		return nil
	}, st.sql, st.args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: count %s: %w", q.Type(), err)
	}
	return n, nil
}

// render compiles q, wraps it in the access filter and renders the
// identifier (or count) statement.
func (e *Engine) render(ctx context.Context, q *query.Query, count bool) (*statement, error) {
	plan, err := query.Compile(e.registry, q)
	if err != nil {
		return nil, err
	}
	root := query.PlanNode(plan.Root)
	if e.access != nil {
		n, err := e.access(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: access filter: %w", err)
		}
		if n != nil {
			restrict, err := query.CompileNode(e.registry, q.Type(), n)
			if err != nil {
				return nil, err
			}
			root = &query.Group{Kind: query.And, Children: []query.PlanNode{restrict, plan.Root}}
		}
	}

	c := newSQLConverter(e.registry, e.dialect)
	where, err := c.Convert(root)
	if err != nil {
		return nil, &query.EvalError{Type: q.Type(), Err: err}
	}

	var b strings.Builder
	if count {
		fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s %s WHERE %s", quote(plan.Schema.Table), rootAlias, where)
	} else {
		fmt.Fprintf(&b, "SELECT %s.%s FROM %s %s WHERE %s",
			rootAlias, quote(idColumn), quote(plan.Schema.Table), rootAlias, where)
		keys := make([]string, 0, len(plan.Orders))
		for _, k := range plan.Orders {
			expr, err := c.orderExpr(k)
			if err != nil {
				return nil, &query.EvalError{Type: q.Type(), Path: k.Path.Raw, Err: err}
			}
			keys = append(keys, expr)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
		b.WriteString(e.dialect.Window(plan.FirstResult, plan.MaxResults))
	}
	log.Debugf("sqlstore: %s rendered as %s", q, b.String())
	return &statement{plan: plan, sql: b.String(), args: c.args}, nil
}

// selectIDs runs the identifier statement, through the cache unless the
// type is skipped. Identical concurrent misses share one store round trip.
func (e *Engine) selectIDs(ctx context.Context, st *statement) (ids []string, hit bool, err error) {
	typeName := st.plan.Schema.Name
	skip := e.skip.Snapshot()
	if e.cache == nil || skip.Skips(typeName) {
		ids, err = e.queryIDs(ctx, st)
		return ids, false, err
	}

	gen := e.generation.Load()
	key := cacheKey(skip.Version(), gen, typeName, st)
	if ids, ok := e.cache.Get(key); ok {
		log.Debugf("sqlstore: cache hit for %s", typeName)
		metric.IncCacheHits(ctx, typeName)
		return ids, true, nil
	}

	// The shared call outlives any one caller, so it ignores cancellation.
	ch := e.group.DoChan(key, func() (any, error) {
		ids, err := e.queryIDs(context.WithoutCancel(ctx), st)
		if err != nil {
			return nil, err
		}
		if e.generation.Load() == gen {
			e.cache.Add(key, ids)
		}
		return ids, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]string), false, nil
	}
}

func cacheKey(version, gen uint64, typeName string, st *statement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\x00%d\x00%s\x00%s", version, gen, typeName, st.sql)
	for _, a := range st.args {
		fmt.Fprintf(&b, "\x00%T:%v", a, a)
	}
	return b.String()
}

func (e *Engine) queryIDs(ctx context.Context, st *statement) ([]string, error) {
	ids := []string{}
	err := e.client.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	}, st.sql, st.args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: select %s: %w", st.plan.Schema.Name, err)
	}
	return ids, nil
}

// invalidate drops every cached result.
func (e *Engine) invalidate() {
	e.generation.Add(1)
	if e.cache != nil {
		e.cache.Purge()
	}
}
