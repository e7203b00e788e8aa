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
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-query-go/schema"
)

// OperatorKind tags an Operator. The set is closed: every engine switches over
// all kinds and fails on an unknown one.
type OperatorKind int

// Operator kinds.
const (
	OpEqual OperatorKind = iota + 1
	OpNotEqual
	OpIEqual
	OpLike
	OpNotLike
	OpILike
	OpNotILike
	OpGreaterThan
	OpGreaterEqual
	OpLessThan
	OpLessEqual
	OpBetween
	OpIn
	OpNotIn
	OpNull
	OpNotNull
	OpSizeEqual
)

var operatorNames = map[OperatorKind]string{
	OpEqual:        "eq",
	OpNotEqual:     "!eq",
	OpIEqual:       "ieq",
	OpLike:         "like",
	OpNotLike:      "!like",
	OpILike:        "ilike",
	OpNotILike:     "!ilike",
	OpGreaterThan:  "gt",
	OpGreaterEqual: "ge",
	OpLessThan:     "lt",
	OpLessEqual:    "le",
	OpBetween:      "between",
	OpIn:           "in",
	OpNotIn:        "!in",
	OpNull:         "null",
	OpNotNull:      "!null",
	OpSizeEqual:    "size",
}

func (k OperatorKind) String() string {
	if n, ok := operatorNames[k]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Arity returns the number of arguments the kind takes. OpIn and OpNotIn take
// one list, reported as -1.
func (k OperatorKind) Arity() int {
	switch k {
	case OpNull, OpNotNull:
		return 0
	case OpBetween:
		return 2
	case OpIn, OpNotIn:
		return -1
	default:
		return 1
	}
}

// MatchMode selects the substring test of the Like family.
type MatchMode int

// Match modes.
const (
	Anywhere MatchMode = iota
	Start
	End
	// Exact matches the whole string. Used by OpIEqual.
	Exact
)

func (m MatchMode) String() string {
	switch m {
	case Start:
		return "start"
	case End:
		return "end"
	case Exact:
		return "exact"
	default:
		return "anywhere"
	}
}

// Operator is a predicate applied to the terminal value of a path.
type Operator struct {
	Kind OperatorKind
	// Mode is used by the Like family.
	Mode MatchMode
	Args []any
}

// NewOperator builds an operator of kind with args.
func NewOperator(kind OperatorKind, args ...any) Operator {
	op := Operator{Kind: kind, Args: args}
	if kind == OpIEqual {
		op.Mode = Exact
	}
	return op
}

// Arity returns the number of arguments this operator takes, -1 for a list.
func (o Operator) Arity() int { return o.Kind.Arity() }

// Arg returns the i-th argument.
func (o Operator) Arg(i int) any { return o.Args[i] }

func (o Operator) String() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	if o.isLike() && o.Kind != OpIEqual && o.Mode != Anywhere {
		b.WriteString("/" + o.Mode.String())
	}
	for _, a := range o.Args {
		fmt.Fprintf(&b, ":%v", a)
	}
	return b.String()
}

func (o Operator) isLike() bool {
	switch o.Kind {
	case OpIEqual, OpLike, OpNotLike, OpILike, OpNotILike:
		return true
	}
	return false
}

// CaseInsensitive reports whether the operator folds case.
func (o Operator) CaseInsensitive() bool {
	switch o.Kind {
	case OpIEqual, OpILike, OpNotILike:
		return true
	}
	return false
}

// Negated reports whether the operator is the negation of a positive test.
// Negations still never match an absent value.
func (o Operator) Negated() bool {
	switch o.Kind {
	case OpNotEqual, OpNotLike, OpNotILike, OpNotIn:
		return true
	}
	return false
}

// Validate checks the argument count and that the operator applies to the
// terminal of p.
func (o Operator) Validate(p *schema.Path) error {
	if _, ok := operatorNames[o.Kind]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownOperator, o.Kind)
	}
	switch arity := o.Arity(); {
	case arity < 0 && len(o.Args) == 0:
		return fmt.Errorf("%w: %s needs at least one value", ErrArgumentCount, o.Kind)
	case arity >= 0 && len(o.Args) != arity:
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgumentCount, o.Kind, arity, len(o.Args))
	}
	if o.isLike() && o.Mode > Exact {
		return fmt.Errorf("%w: match mode %d", ErrInvalidArgument, o.Mode)
	}

	t := p.Terminal().Property
	incompatible := func() error {
		return fmt.Errorf("%w: %s cannot be applied to %s property %q", ErrIncompatibleOperator, o.Kind, t.Kind, p.Raw)
	}
	switch o.Kind {
	case OpNull, OpNotNull:
		return nil
	case OpSizeEqual:
		if !t.IsCollection() {
			return incompatible()
		}
	case OpEqual, OpNotEqual, OpIn, OpNotIn:
		return nil
	case OpIEqual, OpLike, OpNotLike, OpILike, OpNotILike:
		if t.Kind != schema.KindString {
			return incompatible()
		}
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual, OpBetween:
		if !t.Kind.Ordered() {
			return incompatible()
		}
	}
	return nil
}

// Normalize coerces the arguments to the canonical type of prop: text is
// parsed, numbers are widened, and objects of the referenced type become
// identifiers. prop is the property the operator is finally evaluated against.
func (o Operator) Normalize(r *schema.Registry, prop *schema.Property) (Operator, error) {
	if o.Arity() == 0 {
		if len(o.Args) != 0 {
			return o, fmt.Errorf("%w: %s takes no arguments", ErrArgumentCount, o.Kind)
		}
		return Operator{Kind: o.Kind, Mode: o.Mode}, nil
	}
	if o.Kind == OpSizeEqual {
		if len(o.Args) != 1 {
			return o, fmt.Errorf("%w: %s takes 1 argument(s), got %d", ErrArgumentCount, o.Kind, len(o.Args))
		}
		n, err := toInt(o.Args[0])
		if err != nil {
			return o, fmt.Errorf("%w: size: %v", ErrInvalidArgument, err)
		}
		if n < 0 {
			return o, fmt.Errorf("%w: size must not be negative", ErrInvalidArgument)
		}
		return Operator{Kind: o.Kind, Mode: o.Mode, Args: []any{n}}, nil
	}

	args := make([]any, 0, len(o.Args))
	for _, a := range o.Args {
		if o.Kind == OpIn || o.Kind == OpNotIn {
			if list, ok := a.([]any); ok {
				for _, item := range list {
					v, err := normalizeValue(r, prop, item)
					if err != nil {
						return o, err
					}
					args = append(args, v)
				}
				continue
			}
		}
		v, err := normalizeValue(r, prop, a)
		if err != nil {
			return o, err
		}
		args = append(args, v)
	}
	if arity := o.Arity(); (arity < 0 && len(args) == 0) || (arity > 0 && len(args) != arity) {
		return o, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgumentCount, o.Kind, arity, len(args))
	}
	return Operator{Kind: o.Kind, Mode: o.Mode, Args: args}, nil
}
