//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package engine defines the contract shared by the query engines and a
// Service routing each query to one of them.
package engine

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// ErrNoEngine is returned when no engine can serve a query.
var ErrNoEngine = errors.New("engine: no engine configured for query")

// Engine executes queries. Implementations must return the same membership
// for the same query and data.
type Engine interface {
	// Execute returns the ordered, paginated matches.
	Execute(ctx context.Context, q *query.Query) ([]any, error)
	// Count returns the number of matches, ignoring pagination.
	Count(ctx context.Context, q *query.Query) (int, error)
}

// Result is one page of matches and the total match count.
type Result struct {
	Items []any
	Total int
}

// Service routes queries: queries carrying objects go to the in-memory
// engine, all others to the store engine.
type Service struct {
	registry *schema.Registry
	parser   *query.Parser
	memory   Engine
	store    Engine
}

// Option configures a Service.
type Option func(*Service)

// WithMemoryEngine sets the engine for queries carrying objects.
func WithMemoryEngine(e Engine) Option {
	return func(s *Service) {
		s.memory = e
	}
}

// WithStoreEngine sets the engine for all other queries.
func WithStoreEngine(e Engine) Option {
	return func(s *Service) {
		s.store = e
	}
}

// NewService creates a Service over r.
func NewService(r *schema.Registry, opts ...Option) *Service {
	s := &Service{registry: r, parser: query.NewParser(r)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the schema registry queries are resolved against.
func (s *Service) Registry() *schema.Registry { return s.registry }

// Parser returns the parser bound to the service registry.
func (s *Service) Parser() *query.Parser { return s.parser }

func (s *Service) route(q *query.Query) (Engine, error) {
	if q.HasObjects() {
		if s.memory == nil {
			return nil, ErrNoEngine
		}
		return s.memory, nil
	}
	if s.store != nil {
		return s.store, nil
	}
	// A memory engine with a source can still serve store-less queries.
	if s.memory != nil {
		return s.memory, nil
	}
	return nil, ErrNoEngine
}

// Query returns one page of matches and the total count.
func (s *Service) Query(ctx context.Context, q *query.Query) (*Result, error) {
	e, err := s.route(q)
	if err != nil {
		return nil, err
	}
	items, err := e.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	total := len(items)
	if q.FirstResult() > 0 || q.MaxResults() > 0 {
		if total, err = e.Count(ctx, q); err != nil {
			return nil, err
		}
	}
	return &Result{Items: items, Total: total}, nil
}

// Count returns the number of matches of q.
func (s *Service) Count(ctx context.Context, q *query.Query) (int, error) {
	e, err := s.route(q)
	if err != nil {
		return 0, err
	}
	return e.Count(ctx, q)
}

// TokenRequest is a textual query as received from a request binding.
type TokenRequest struct {
	Type         string
	Filters      []string
	Orders       []string
	RootJunction query.JunctionKind
	Page         int
	PageSize     int
	// Objects, when set, are filtered in memory instead of reading the store.
	Objects []any
}

// Build parses req into a query. With no explicit order the default order
// applies.
func (s *Service) Build(req TokenRequest) (*query.Query, error) {
	q, err := s.parser.Parse(req.Type, req.Filters, query.WithRootJunction(req.RootJunction))
	if err != nil {
		return nil, err
	}
	orders, err := s.parser.ParseOrders(req.Type, req.Orders)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		q.SetDefaultOrder()
	}
	q.AddOrders(orders...)
	q.SetPager(req.Page, req.PageSize)
	if req.Objects != nil {
		q.SetObjects(req.Objects)
	}
	return q, nil
}

// QueryTokens parses and executes a textual query.
func (s *Service) QueryTokens(ctx context.Context, req TokenRequest) (*Result, error) {
	q, err := s.Build(req)
	if err != nil {
		return nil, err
	}
	log.Debugf("engine: %s", q)
	res, err := s.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Type, err)
	}
	return res, nil
}
