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
	"strings"
)

// Node is an element of a predicate tree: a *Filter or a *Junction.
type Node interface {
	String() string
	node()
}

// Filter is an immutable leaf: an operator applied to the value at a path.
type Filter struct {
	path string
	op   Operator
}

// Where builds a filter applying op to path.
func Where(path string, op Operator) *Filter {
	args := make([]any, len(op.Args))
	copy(args, op.Args)
	op.Args = args
	return &Filter{path: path, op: op}
}

// Path returns the dotted property path.
func (f *Filter) Path() string { return f.path }

// Operator returns a copy of the operator.
func (f *Filter) Operator() Operator {
	op := f.op
	op.Args = append([]any(nil), f.op.Args...)
	return op
}

func (f *Filter) String() string { return f.path + ":" + f.op.String() }

func (*Filter) node() {}

// Eq matches values equal to v.
func Eq(path string, v any) *Filter { return Where(path, NewOperator(OpEqual, v)) }

// Ne matches present values not equal to v.
func Ne(path string, v any) *Filter { return Where(path, NewOperator(OpNotEqual, v)) }

// IEq matches strings equal to s ignoring case.
func IEq(path, s string) *Filter { return Where(path, NewOperator(OpIEqual, s)) }

// Like matches strings containing s at the position given by mode.
func Like(path, s string, mode MatchMode) *Filter {
	return Where(path, Operator{Kind: OpLike, Mode: mode, Args: []any{s}})
}

// NotLike matches present strings that Like would not match.
func NotLike(path, s string, mode MatchMode) *Filter {
	return Where(path, Operator{Kind: OpNotLike, Mode: mode, Args: []any{s}})
}

// ILike is Like ignoring case.
func ILike(path, s string, mode MatchMode) *Filter {
	return Where(path, Operator{Kind: OpILike, Mode: mode, Args: []any{s}})
}

// NotILike matches present strings that ILike would not match.
func NotILike(path, s string, mode MatchMode) *Filter {
	return Where(path, Operator{Kind: OpNotILike, Mode: mode, Args: []any{s}})
}

// Gt matches values greater than v.
func Gt(path string, v any) *Filter { return Where(path, NewOperator(OpGreaterThan, v)) }

// Ge matches values greater than or equal to v.
func Ge(path string, v any) *Filter { return Where(path, NewOperator(OpGreaterEqual, v)) }

// Lt matches values less than v.
func Lt(path string, v any) *Filter { return Where(path, NewOperator(OpLessThan, v)) }

// Le matches values less than or equal to v.
func Le(path string, v any) *Filter { return Where(path, NewOperator(OpLessEqual, v)) }

// Between matches lower <= value <= upper.
func Between(path string, lower, upper any) *Filter {
	return Where(path, NewOperator(OpBetween, lower, upper))
}

// In matches values equal to any of vs.
func In(path string, vs ...any) *Filter { return Where(path, NewOperator(OpIn, vs...)) }

// NotIn matches present values equal to none of vs.
func NotIn(path string, vs ...any) *Filter { return Where(path, NewOperator(OpNotIn, vs...)) }

// Null matches absent values and empty collections.
func Null(path string) *Filter { return Where(path, NewOperator(OpNull)) }

// NotNull matches present values and non-empty collections.
func NotNull(path string) *Filter { return Where(path, NewOperator(OpNotNull)) }

// SizeEq matches collections with exactly n members.
func SizeEq(path string, n int) *Filter { return Where(path, NewOperator(OpSizeEqual, n)) }

// JunctionKind is the boolean connective of a Junction.
type JunctionKind int

// Junction kinds.
const (
	And JunctionKind = iota
	Or
)

func (k JunctionKind) String() string {
	if k == Or {
		return "OR"
	}
	return "AND"
}

// ParseJunctionKind parses "AND" or "OR", case-insensitively. Empty means AND.
func ParseJunctionKind(s string) (JunctionKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return And, true
	case "OR":
		return Or, true
	}
	return And, false
}

// Junction combines its children with one connective. An empty junction
// places no restriction.
type Junction struct {
	Kind     JunctionKind
	children []Node
}

// Conjunction returns an empty AND junction.
func Conjunction() *Junction { return &Junction{Kind: And} }

// Disjunction returns an empty OR junction.
func Disjunction() *Junction { return &Junction{Kind: Or} }

// Add appends children and returns j.
func (j *Junction) Add(nodes ...Node) *Junction {
	for _, n := range nodes {
		if n != nil {
			j.children = append(j.children, n)
		}
	}
	return j
}

// Children returns the child nodes in insertion order.
func (j *Junction) Children() []Node {
	return append([]Node(nil), j.children...)
}

// Len returns the number of children.
func (j *Junction) Len() int { return len(j.children) }

func (j *Junction) String() string {
	parts := make([]string, len(j.children))
	for i, c := range j.children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+j.Kind.String()+" ") + ")"
}

func (*Junction) node() {}
