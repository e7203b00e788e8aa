//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package query

import (
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-query-go/schema"
)

// Plan is a query with every path resolved and every operator validated and
// normalized. Engines execute plans, never raw queries, so path semantics
// cannot drift between them.
type Plan struct {
	Query  *Query
	Schema *schema.Schema
	Root   *Group
	// Orders is the effective ordering, identifier tiebreak included.
	Orders      []SortKey
	FirstResult int
	MaxResults  int
}

// PlanNode is a *Condition or a *Group.
type PlanNode interface {
	planNode()
}

// Condition is a compiled filter.
type Condition struct {
	// Filter is the source filter.
	Filter *Filter
	// Path is the evaluated path. Value operators on a collection terminal
	// are evaluated against the members' identifiers, one hop further.
	Path *schema.Path
	// Op has its arguments in canonical form.
	Op Operator
}

// Group is a compiled junction.
type Group struct {
	Kind     JunctionKind
	Children []PlanNode
}

// SortKey is a compiled ordering.
type SortKey struct {
	Path      *schema.Path
	Direction Direction
}

func (*Condition) planNode() {}
func (*Group) planNode()     {}

var errCycle = errors.New("junction contains itself")

// Compile resolves and validates q against r. Every failure is an *EvalError.
func Compile(r *schema.Registry, q *Query) (*Plan, error) {
	s, ok := r.Schema(q.Type())
	if !ok {
		return nil, &EvalError{Type: q.Type(), Err: fmt.Errorf("%w: %s", schema.ErrUnknownType, q.Type())}
	}
	c := &compiler{registry: r, typeName: q.Type(), active: map[*Junction]bool{}}
	root, err := c.junction(q.Root())
	if err != nil {
		return nil, err
	}
	orders, err := c.orders(s, q)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Query:       q,
		Schema:      s,
		Root:        root,
		Orders:      orders,
		FirstResult: q.FirstResult(),
		MaxResults:  q.MaxResults(),
	}, nil
}

// CompileNode compiles a standalone predicate over typeName, for example an
// access filter supplied next to a query.
func CompileNode(r *schema.Registry, typeName string, n Node) (PlanNode, error) {
	if _, ok := r.Schema(typeName); !ok {
		return nil, &EvalError{Type: typeName, Err: fmt.Errorf("%w: %s", schema.ErrUnknownType, typeName)}
	}
	c := &compiler{registry: r, typeName: typeName, active: map[*Junction]bool{}}
	return c.node(n)
}

type compiler struct {
	registry *schema.Registry
	typeName string
	active   map[*Junction]bool
}

func (c *compiler) fail(path string, err error) error {
	return &EvalError{Type: c.typeName, Path: path, Err: err}
}

func (c *compiler) node(n Node) (PlanNode, error) {
	switch x := n.(type) {
	case *Filter:
		return c.filter(x)
	case *Junction:
		return c.junction(x)
	default:
		return nil, c.fail("", fmt.Errorf("unsupported node %T", n))
	}
}

func (c *compiler) junction(j *Junction) (*Group, error) {
	if c.active[j] {
		return nil, c.fail("", errCycle)
	}
	c.active[j] = true
	defer delete(c.active, j)

	g := &Group{Kind: j.Kind, Children: make([]PlanNode, 0, len(j.children))}
	for _, child := range j.children {
		n, err := c.node(child)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, n)
	}
	return g, nil
}

func (c *compiler) filter(f *Filter) (*Condition, error) {
	path, err := c.registry.Resolve(c.typeName, f.path)
	if err != nil {
		return nil, c.fail(f.path, err)
	}
	op := f.op
	if err := op.Validate(path); err != nil {
		return nil, c.fail(f.path, err)
	}
	norm, err := op.Normalize(c.registry, path.Terminal().Property)
	if err != nil {
		return nil, c.fail(f.path, err)
	}
	if path.Terminal().IsCollection() && valueOperator(op.Kind) {
		target := c.registry.MustSchema(path.Terminal().Property.Target)
		if path, err = c.registry.Child(path, target.Identifier().Name); err != nil {
			return nil, c.fail(f.path, err)
		}
	}
	return &Condition{Filter: f, Path: path, Op: norm}, nil
}

func (c *compiler) orders(s *schema.Schema, q *Query) ([]SortKey, error) {
	orders := q.Orders()
	if len(orders) == 0 && q.DefaultOrder() {
		if p, ok := s.Property("name"); ok && p.Kind == schema.KindString {
			orders = append(orders, Order{Path: p.Name})
		}
	}

	id := s.Identifier().Name
	keys := make([]SortKey, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		path, err := c.registry.Resolve(c.typeName, o.Path)
		if err != nil {
			return nil, c.fail(o.Path, err)
		}
		if err := validateOrderPath(path); err != nil {
			return nil, c.fail(o.Path, err)
		}
		if o.Path == id {
			hasID = true
		}
		keys = append(keys, SortKey{Path: path, Direction: o.Direction})
	}
	if !hasID {
		path, err := c.registry.Resolve(c.typeName, id)
		if err != nil {
			return nil, c.fail(id, err)
		}
		keys = append(keys, SortKey{Path: path, Direction: Asc})
	}
	return keys, nil
}

// valueOperator reports whether the kind compares against argument values.
func valueOperator(k OperatorKind) bool {
	switch k {
	case OpEqual, OpNotEqual, OpIn, OpNotIn:
		return true
	}
	return false
}

// Converter turns a compiled predicate into an engine's native form.
type Converter[T any] interface {
	// Convert converts a compiled node, recursing into groups.
	Convert(node PlanNode) (T, error)
}
