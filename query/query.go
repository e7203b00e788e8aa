//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package query is the predicate model shared by every engine: operators,
// filters, junctions, orderings and pagination, the textual filter parser,
// and the compiled Plan both engines execute.
package query

import (
	"fmt"
	"math"
	"strings"
)

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Order sorts by the value at Path.
type Order struct {
	Path      string
	Direction Direction
}

func (o Order) String() string { return o.Path + ":" + o.Direction.String() }

// Option configures a Query.
type Option func(*Query)

// WithRootJunction sets the connective of the root junction.
func WithRootJunction(kind JunctionKind) Option {
	return func(q *Query) {
		q.root.Kind = kind
	}
}

// Query is a filter tree, orderings and a result window over one type. It is
// built by a single caller and never modified by an engine.
type Query struct {
	typeName     string
	root         *Junction
	orders       []Order
	defaultOrder bool
	firstResult  int
	maxResults   int
	objects      []any
	hasObjects   bool
	user         any
}

// New creates a query over typeName. The root junction is AND unless
// WithRootJunction says otherwise.
func New(typeName string, opts ...Option) *Query {
	q := &Query{typeName: typeName, root: Conjunction()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Type returns the target type name.
func (q *Query) Type() string { return q.typeName }

// RootJunction returns the connective of the root junction.
func (q *Query) RootJunction() JunctionKind { return q.root.Kind }

// Root returns the root junction.
func (q *Query) Root() *Junction { return q.root }

// Add appends filters or junctions to the root junction.
func (q *Query) Add(nodes ...Node) *Query {
	q.root.Add(nodes...)
	return q
}

// Conjunction returns a new empty AND junction for the caller to fill and Add.
func (q *Query) Conjunction() *Junction { return Conjunction() }

// Disjunction returns a new empty OR junction for the caller to fill and Add.
func (q *Query) Disjunction() *Junction { return Disjunction() }

// AddOrder appends an ordering.
func (q *Query) AddOrder(path string, dir Direction) *Query {
	q.orders = append(q.orders, Order{Path: path, Direction: dir})
	return q
}

// AddOrders appends orderings.
func (q *Query) AddOrders(orders ...Order) *Query {
	q.orders = append(q.orders, orders...)
	return q
}

// Orders returns the explicit orderings.
func (q *Query) Orders() []Order { return append([]Order(nil), q.orders...) }

// SetDefaultOrder requests the fallback ordering when no explicit order is set.
func (q *Query) SetDefaultOrder() *Query {
	q.defaultOrder = true
	return q
}

// DefaultOrder reports whether the fallback ordering was requested.
func (q *Query) DefaultOrder() bool { return q.defaultOrder }

// SetFirstResult sets the zero-based offset of the first returned item.
func (q *Query) SetFirstResult(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.firstResult = n
	return q
}

// SetMaxResults limits the number of returned items. n <= 0 means no limit.
func (q *Query) SetMaxResults(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.maxResults = n
	return q
}

// SetPager sets the window from a 1-based page. page < 1 is treated as 1 and
// pageSize <= 0 disables paging. An offset past math.MaxInt saturates, so a
// huge page is simply beyond the last one.
func (q *Query) SetPager(page, pageSize int) *Query {
	if pageSize <= 0 {
		q.firstResult, q.maxResults = 0, 0
		return q
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/pageSize {
		q.firstResult = math.MaxInt
	} else {
		q.firstResult = (page - 1) * pageSize
	}
	q.maxResults = pageSize
	return q
}

// FirstResult returns the offset of the first returned item.
func (q *Query) FirstResult() int { return q.firstResult }

// MaxResults returns the result limit, 0 when unlimited.
func (q *Query) MaxResults() int { return q.maxResults }

// SetObjects supplies the objects to evaluate in memory instead of reading
// the store.
func (q *Query) SetObjects(objs []any) *Query {
	q.objects = objs
	q.hasObjects = true
	return q
}

// Objects returns the supplied objects.
func (q *Query) Objects() []any { return q.objects }

// HasObjects reports whether objects were supplied, even an empty set.
func (q *Query) HasObjects() bool { return q.hasObjects }

// SetUser attaches the caller identity consumed by store access filters.
func (q *Query) SetUser(user any) *Query {
	q.user = user
	return q
}

// User returns the caller identity.
func (q *Query) User() any { return q.user }

func (q *Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", q.typeName, q.root)
	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			parts[i] = o.String()
		}
		fmt.Fprintf(&b, " order %s", strings.Join(parts, ","))
	}
	if q.firstResult > 0 || q.maxResults > 0 {
		fmt.Fprintf(&b, " window %d+%d", q.firstResult, q.maxResults)
	}
	return b.String()
}
