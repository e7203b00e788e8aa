//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package sqlstore

import (
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

const rootAlias = "t0"

var _ query.Converter[string] = (*sqlConverter)(nil)

// sqlConverter renders compiled predicates as SQL boolean expressions over
// the root alias. Bind arguments accumulate in args, in placeholder order.
type sqlConverter struct {
	registry *schema.Registry
	dialect  Dialect
	args     []any
	aliases  int
}

func newSQLConverter(r *schema.Registry, d Dialect) *sqlConverter {
	return &sqlConverter{registry: r, dialect: d}
}

// Convert renders node against the root alias.
func (c *sqlConverter) Convert(node query.PlanNode) (string, error) {
	switch n := node.(type) {
	case *query.Group:
		return c.buildLogicalCondition(n)
	case *query.Condition:
		return c.buildCondition(n)
	default:
		return "", fmt.Errorf("unsupported plan node %T", node)
	}
}

func (c *sqlConverter) arg(v any) string {
	c.args = append(c.args, v)
	return c.dialect.Placeholder(len(c.args))
}

func (c *sqlConverter) alias(prefix string) string {
	c.aliases++
	return fmt.Sprintf("%s%d", prefix, c.aliases)
}

// buildLogicalCondition joins the children. An empty group matches everything.
func (c *sqlConverter) buildLogicalCondition(g *query.Group) (string, error) {
	if len(g.Children) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		s, err := c.Convert(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	sep := " AND "
	if g.Kind == query.Or {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// buildCondition nests one EXISTS per hop so a deep path holds when any
// reachable object passes the terminal test.
func (c *sqlConverter) buildCondition(cond *query.Condition) (string, error) {
	s, err := c.reach(rootAlias, cond.Path.Hops(), cond.Path.Terminal().Property, cond.Op)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cond.Path.Raw, err)
	}
	return s, nil
}

func (c *sqlConverter) reach(holder string, hops []schema.Step, term *schema.Property, op query.Operator) (string, error) {
	if len(hops) == 0 {
		return c.buildTerminalTest(holder, term, op)
	}
	prop := hops[0].Property
	target, ok := c.registry.Schema(prop.Target)
	if !ok {
		return "", fmt.Errorf("unknown target %s", prop.Target)
	}
	next := c.alias("t")
	var from, link string
	if prop.IsCollection() {
		j := c.alias("j")
		from = fmt.Sprintf("%s %s JOIN %s %s ON %s.%s = %s.%s",
			quote(prop.JoinTable), j, quote(target.Table), next, next, quote(idColumn), j, quote(memberColumn))
		link = fmt.Sprintf("%s.%s = %s.%s", j, quote(ownerColumn), holder, quote(idColumn))
	} else {
		from = fmt.Sprintf("%s %s", quote(target.Table), next)
		link = fmt.Sprintf("%s.%s = %s.%s", next, quote(idColumn), holder, quote(prop.Column))
	}
	rest, err := c.reach(next, hops[1:], term, op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s AND %s)", from, link, rest), nil
}

// buildTerminalTest renders the test applied to the holder row of the
// terminal property.
func (c *sqlConverter) buildTerminalTest(holder string, prop *schema.Property, op query.Operator) (string, error) {
	if prop.IsCollection() {
		members := func(sel string) string {
			j := c.alias("j")
			return fmt.Sprintf("SELECT %s FROM %s %s WHERE %s.%s = %s.%s",
				sel, quote(prop.JoinTable), j, j, quote(ownerColumn), holder, quote(idColumn))
		}
		switch op.Kind {
		case query.OpNull:
			return "NOT EXISTS (" + members("1") + ")", nil
		case query.OpNotNull:
			return "EXISTS (" + members("1") + ")", nil
		case query.OpSizeEqual:
			return fmt.Sprintf("(%s) = %s", members("COUNT(*)"), c.arg(op.Arg(0))), nil
		}
		return "", fmt.Errorf("%s on collection %q", op.Kind, prop.Name)
	}

	col := holder + "." + quote(prop.Column)
	kind := prop.Kind
	if prop.IsReference() {
		kind = schema.KindString
	}
	value := func(v any) string { return c.arg(c.dialect.Encode(kind, v)) }
	ordered := col
	if kind == schema.KindString {
		ordered = c.dialect.Collate(col)
	}

	switch op.Kind {
	case query.OpNull:
		return col + " IS NULL", nil
	case query.OpNotNull:
		return col + " IS NOT NULL", nil
	case query.OpEqual:
		return fmt.Sprintf("%s = %s", col, value(op.Arg(0))), nil
	case query.OpNotEqual:
		return fmt.Sprintf("%s <> %s", col, value(op.Arg(0))), nil
	case query.OpIn, query.OpNotIn:
		list := make([]string, 0, len(op.Args))
		for _, a := range op.Args {
			list = append(list, value(a))
		}
		in := "IN"
		if op.Kind == query.OpNotIn {
			in = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, in, strings.Join(list, ", ")), nil
	case query.OpGreaterThan:
		return fmt.Sprintf("%s > %s", ordered, value(op.Arg(0))), nil
	case query.OpGreaterEqual:
		return fmt.Sprintf("%s >= %s", ordered, value(op.Arg(0))), nil
	case query.OpLessThan:
		return fmt.Sprintf("%s < %s", ordered, value(op.Arg(0))), nil
	case query.OpLessEqual:
		return fmt.Sprintf("%s <= %s", ordered, value(op.Arg(0))), nil
	case query.OpBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", ordered, value(op.Arg(0)), value(op.Arg(1))), nil
	case query.OpIEqual, query.OpLike, query.OpNotLike, query.OpILike, query.OpNotILike:
		// NULL columns drop out: a negated pattern over NULL is still not true.
		return c.dialect.Match(col, op, c.arg), nil
	case query.OpSizeEqual:
		return "", fmt.Errorf("size test on non-collection %q", prop.Name)
	}
	return "", fmt.Errorf("unsupported operator: %s", op.Kind)
}

// orderExpr renders the value a sort key orders by. Hops are to-one, so
// each is a scalar subquery through the reference column.
func (c *sqlConverter) orderExpr(k query.SortKey) (string, error) {
	expr, err := c.orderValue(rootAlias, k.Path.Hops(), k.Path.Terminal().Property)
	if err != nil {
		return "", fmt.Errorf("%s: %w", k.Path.Raw, err)
	}
	term := k.Path.Terminal().Property
	if term.Kind == schema.KindString || term.IsReference() {
		expr = c.dialect.Collate(expr)
	}
	if k.Direction == query.Desc {
		return expr + " DESC NULLS LAST", nil
	}
	return expr + " ASC NULLS FIRST", nil
}

func (c *sqlConverter) orderValue(holder string, hops []schema.Step, term *schema.Property) (string, error) {
	if len(hops) == 0 {
		if term.IsCollection() {
			return "", fmt.Errorf("cannot order by collection %q", term.Name)
		}
		return holder + "." + quote(term.Column), nil
	}
	prop := hops[0].Property
	if prop.IsCollection() {
		return "", fmt.Errorf("cannot order through collection %q", prop.Name)
	}
	target, ok := c.registry.Schema(prop.Target)
	if !ok {
		return "", fmt.Errorf("unknown target %s", prop.Target)
	}
	next := c.alias("t")
	inner, err := c.orderValue(next, hops[1:], term)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(SELECT %s FROM %s %s WHERE %s.%s = %s.%s)",
		inner, quote(target.Table), next, next, quote(idColumn), holder, quote(prop.Column)), nil
}
