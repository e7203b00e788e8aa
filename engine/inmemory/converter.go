//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"fmt"
	"runtime/debug"
	"strings"

	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// comparisonFunc reports whether obj satisfies a compiled predicate.
type comparisonFunc func(obj any) bool

var _ query.Converter[comparisonFunc] = (*inmemoryConverter)(nil)

// inmemoryConverter converts compiled predicates into closures.
type inmemoryConverter struct {
	registry *schema.Registry
}

// Convert converts a compiled node into a closure. A panic inside the
// closure is logged and counts as no match.
func (c *inmemoryConverter) Convert(node query.PlanNode) (fn comparisonFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in inmemoryConverter Convert: %v\n%s", r, string(debug.Stack()))
			err = fmt.Errorf("convert predicate: %v", r)
		}
	}()

	condFunc, err := c.convertNode(node)
	if err != nil {
		return nil, err
	}
	return func(obj any) (matched bool) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic in condition function: %v\n%s", r, string(debug.Stack()))
				matched = false
			}
		}()
		return condFunc(obj)
	}, nil
}

func (c *inmemoryConverter) convertNode(node query.PlanNode) (comparisonFunc, error) {
	switch n := node.(type) {
	case *query.Group:
		return c.buildLogicalCondition(n)
	case *query.Condition:
		return c.buildCondition(n)
	default:
		return nil, fmt.Errorf("unsupported plan node %T", node)
	}
}

// buildLogicalCondition combines children with short circuiting. An empty
// group matches everything.
func (c *inmemoryConverter) buildLogicalCondition(g *query.Group) (comparisonFunc, error) {
	children := make([]comparisonFunc, 0, len(g.Children))
	for _, child := range g.Children {
		fn, err := c.convertNode(child)
		if err != nil {
			return nil, err
		}
		children = append(children, fn)
	}
	if len(children) == 0 {
		return func(any) bool { return true }, nil
	}

	isAnd := g.Kind == query.And
	return func(obj any) bool {
		for _, fn := range children {
			ok := fn(obj)
			if !isAnd && ok {
				return true
			}
			if isAnd && !ok {
				return false
			}
		}
		return isAnd
	}, nil
}

// buildCondition walks the hops of the path and applies the terminal test to
// every object reached. Any hit satisfies the condition; an absent reference
// along the way reaches nothing.
func (c *inmemoryConverter) buildCondition(cond *query.Condition) (comparisonFunc, error) {
	test, err := c.buildTerminalTest(cond.Path.Terminal().Property, cond.Op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cond.Path.Raw, err)
	}
	hops := cond.Path.Hops()
	return func(obj any) bool {
		return reach(obj, hops, test)
	}, nil
}

func reach(obj any, hops []schema.Step, test comparisonFunc) bool {
	if len(hops) == 0 {
		return test(obj)
	}
	v, ok := hops[0].Property.Get(obj)
	if !ok {
		return false
	}
	if hops[0].IsCollection() {
		for _, member := range v.([]any) {
			if reach(member, hops[1:], test) {
				return true
			}
		}
		return false
	}
	return reach(v, hops[1:], test)
}

// buildTerminalTest returns the test applied to the object owning the
// terminal property.
func (c *inmemoryConverter) buildTerminalTest(prop *schema.Property, op query.Operator) (comparisonFunc, error) {
	switch op.Kind {
	case query.OpNull, query.OpNotNull:
		want := op.Kind == query.OpNotNull
		if prop.IsCollection() {
			return func(holder any) bool {
				v, _ := prop.Get(holder)
				members, _ := v.([]any)
				return (len(members) > 0) == want
			}, nil
		}
		return func(holder any) bool {
			_, ok := prop.Get(holder)
			return ok == want
		}, nil
	case query.OpSizeEqual:
		if !prop.IsCollection() {
			return nil, fmt.Errorf("size test on non-collection %q", prop.Name)
		}
		n, _ := op.Arg(0).(int64)
		return func(holder any) bool {
			v, _ := prop.Get(holder)
			members, _ := v.([]any)
			return int64(len(members)) == n
		}, nil
	}

	if prop.IsCollection() {
		return nil, fmt.Errorf("%s on collection %q", op.Kind, prop.Name)
	}
	match, err := buildValueTest(op)
	if err != nil {
		return nil, err
	}
	value := func(holder any) (any, bool) { return prop.Get(holder) }
	if prop.IsReference() {
		target, ok := c.registry.Schema(prop.Target)
		if !ok {
			return nil, fmt.Errorf("unknown target %s", prop.Target)
		}
		value = func(holder any) (any, bool) {
			ref, ok := prop.Get(holder)
			if !ok {
				return nil, false
			}
			return target.ID(ref), true
		}
	}
	return func(holder any) bool {
		v, ok := value(holder)
		// Absent values never satisfy a value test, negated ones included.
		return ok && match(v)
	}, nil
}

// buildValueTest returns the test applied to a present canonical value.
func buildValueTest(op query.Operator) (func(v any) bool, error) {
	switch op.Kind {
	case query.OpEqual:
		want := op.Arg(0)
		return func(v any) bool { return query.EqualValues(v, want) }, nil
	case query.OpNotEqual:
		want := op.Arg(0)
		return func(v any) bool {
			_, comparable := query.CompareValues(v, want)
			return comparable && !query.EqualValues(v, want)
		}, nil
	case query.OpIn, query.OpNotIn:
		set := op.Args
		in := op.Kind == query.OpIn
		return func(v any) bool {
			for _, want := range set {
				if query.EqualValues(v, want) {
					return in
				}
			}
			return !in
		}, nil
	case query.OpIEqual, query.OpLike, query.OpNotLike, query.OpILike, query.OpNotILike:
		pattern, _ := op.Arg(0).(string)
		fold := op.CaseInsensitive()
		negate := op.Negated()
		if fold {
			pattern = strings.ToLower(pattern)
		}
		mode := op.Mode
		if op.Kind == query.OpIEqual {
			mode = query.Exact
		}
		return func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			if fold {
				s = strings.ToLower(s)
			}
			return matchString(s, pattern, mode) != negate
		}, nil
	case query.OpGreaterThan, query.OpGreaterEqual, query.OpLessThan, query.OpLessEqual:
		bound := op.Arg(0)
		kind := op.Kind
		return func(v any) bool {
			c, ok := query.CompareValues(v, bound)
			if !ok {
				return false
			}
			switch kind {
			case query.OpGreaterThan:
				return c > 0
			case query.OpGreaterEqual:
				return c >= 0
			case query.OpLessThan:
				return c < 0
			default:
				return c <= 0
			}
		}, nil
	case query.OpBetween:
		lower, upper := op.Arg(0), op.Arg(1)
		return func(v any) bool {
			lo, ok1 := query.CompareValues(v, lower)
			hi, ok2 := query.CompareValues(v, upper)
			return ok1 && ok2 && lo >= 0 && hi <= 0
		}, nil
	default:
		return nil, fmt.Errorf("unsupported operator: %s", op.Kind)
	}
}

func matchString(s, pattern string, mode query.MatchMode) bool {
	switch mode {
	case query.Start:
		return strings.HasPrefix(s, pattern)
	case query.End:
		return strings.HasSuffix(s, pattern)
	case query.Exact:
		return s == pattern
	default:
		return strings.Contains(s, pattern)
	}
}
