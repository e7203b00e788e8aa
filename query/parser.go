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

// parsedOp describes one textual operator name.
type parsedOp struct {
	kind OperatorKind
	mode MatchMode
	// empty marks "empty", a size test against zero.
	empty bool
}

var textOperators = map[string]parsedOp{
	"eq":      {kind: OpEqual},
	"!eq":     {kind: OpNotEqual},
	"ne":      {kind: OpNotEqual},
	"neq":     {kind: OpNotEqual},
	"ieq":     {kind: OpIEqual, mode: Exact},
	"like":    {kind: OpLike, mode: Anywhere},
	"!like":   {kind: OpNotLike, mode: Anywhere},
	"$like":   {kind: OpLike, mode: Start},
	"!$like":  {kind: OpNotLike, mode: Start},
	"like$":   {kind: OpLike, mode: End},
	"!like$":  {kind: OpNotLike, mode: End},
	"ilike":   {kind: OpILike, mode: Anywhere},
	"!ilike":  {kind: OpNotILike, mode: Anywhere},
	"$ilike":  {kind: OpILike, mode: Start},
	"!$ilike": {kind: OpNotILike, mode: Start},
	"ilike$":  {kind: OpILike, mode: End},
	"!ilike$": {kind: OpNotILike, mode: End},
	"gt":      {kind: OpGreaterThan},
	"ge":      {kind: OpGreaterEqual},
	"lt":      {kind: OpLessThan},
	"le":      {kind: OpLessEqual},
	"between": {kind: OpBetween},
	"in":      {kind: OpIn},
	"!in":     {kind: OpNotIn},
	"null":    {kind: OpNull},
	"!null":   {kind: OpNotNull},
	"empty":   {kind: OpSizeEqual, empty: true},
}

// Parser turns filter tokens of the form path:operator[:arg]* into queries.
// It only consults the registry; it never reads data.
type Parser struct {
	registry *schema.Registry
}

// NewParser creates a parser resolving paths against r.
func NewParser(r *schema.Registry) *Parser {
	return &Parser{registry: r}
}

// Parse builds a query over typeName with one root-level filter per token.
// Every failure is a *ParserError.
func (p *Parser) Parse(typeName string, tokens []string, opts ...Option) (*Query, error) {
	if _, ok := p.registry.Schema(typeName); !ok {
		return nil, &ParserError{Token: typeName, Err: fmt.Errorf("%w: %s", schema.ErrUnknownType, typeName)}
	}
	q := New(typeName, opts...)
	for _, tok := range tokens {
		f, err := p.ParseFilter(typeName, tok)
		if err != nil {
			return nil, err
		}
		q.Add(f)
	}
	return q, nil
}

// ParseFilter parses a single token into a validated filter.
func (p *Parser) ParseFilter(typeName, token string) (*Filter, error) {
	fail := func(err error) (*Filter, error) {
		return nil, &ParserError{Token: token, Err: err}
	}

	path, rest, ok := strings.Cut(token, ":")
	if !ok {
		return fail(ErrMissingOperator)
	}
	name, argText, hasArgs := strings.Cut(rest, ":")
	def, ok := textOperators[name]
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownOperator, name))
	}

	resolved, err := p.registry.Resolve(typeName, path)
	if err != nil {
		return fail(err)
	}
	terminal := resolved.Terminal().Property

	kind := def.kind
	if kind == OpEqual && terminal.IsCollection() {
		kind = OpSizeEqual
	}
	if def.empty && !terminal.IsCollection() {
		return fail(fmt.Errorf("%w: empty applies to collections, %q is %s", ErrIncompatibleOperator, path, terminal.Kind))
	}

	var args []any
	switch {
	case def.empty:
		if hasArgs {
			return fail(fmt.Errorf("%w: empty takes no arguments", ErrArgumentCount))
		}
		args = []any{0}
	case hasArgs:
		args = splitArgs(argText, kind.Arity())
	}

	op := Operator{Kind: kind, Mode: def.mode, Args: args}
	if err := op.Validate(resolved); err != nil {
		return fail(err)
	}
	if _, err := op.Normalize(p.registry, terminal); err != nil {
		return fail(err)
	}
	return Where(path, op), nil
}

// splitArgs splits the text after the operator name. A bracketed list is
// split on commas. Otherwise single-argument and list operators keep the whole
// text, so values may contain colons, and the others split on colons.
func splitArgs(text string, arity int) []any {
	var parts []string
	switch {
	case len(text) >= 2 && text[0] == '[' && text[len(text)-1] == ']':
		inner := text[1 : len(text)-1]
		if inner != "" {
			parts = strings.Split(inner, ",")
		}
	case arity == 1 || arity < 0:
		parts = []string{text}
	default:
		parts = strings.Split(text, ":")
	}
	out := make([]any, len(parts))
	for i, s := range parts {
		out[i] = s
	}
	return out
}

// ParseOrders parses orderings of the form path[:asc|:desc]. Order paths may
// cross to-one references only and must end in a sortable property.
func (p *Parser) ParseOrders(typeName string, orders []string) ([]Order, error) {
	out := make([]Order, 0, len(orders))
	for _, tok := range orders {
		path, dirText, _ := strings.Cut(strings.TrimSpace(tok), ":")
		dir := Asc
		switch strings.ToLower(dirText) {
		case "", "asc":
		case "desc":
			dir = Desc
		default:
			return nil, &ParserError{Token: tok, Err: fmt.Errorf("%w: direction %q", ErrInvalidOrder, dirText)}
		}
		resolved, err := p.registry.Resolve(typeName, path)
		if err != nil {
			return nil, &ParserError{Token: tok, Err: err}
		}
		if err := validateOrderPath(resolved); err != nil {
			return nil, &ParserError{Token: tok, Err: err}
		}
		out = append(out, Order{Path: path, Direction: dir})
	}
	return out, nil
}

func validateOrderPath(p *schema.Path) error {
	for _, s := range p.Hops() {
		if s.IsCollection() {
			return fmt.Errorf("%w: %q crosses collection %q", ErrInvalidOrder, p.Raw, s.Property.Name)
		}
	}
	t := p.Terminal()
	if t.IsCollection() {
		return fmt.Errorf("%w: cannot sort by collection %q", ErrInvalidOrder, p.Raw)
	}
	return nil
}
