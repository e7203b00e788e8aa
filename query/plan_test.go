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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

func TestCompile(t *testing.T) {
	r := metadata.MustRegistry()
	q := New(metadata.TypeDataElement).
		Add(
			Gt("created", "2024-01-02"),
			Eq("dataElementGroups", "g1"),
			Eq("categoryCombo", &metadata.CategoryCombo{ID: "cc1"}),
			q0().Add(Null("code"), In("valueType", "TEXT", "NUMBER")),
		).
		AddOrder("name", Desc).
		SetPager(2, 10)

	plan, err := Compile(r, q)
	require.NoError(t, err)
	assert.Equal(t, 10, plan.FirstResult)
	assert.Equal(t, 10, plan.MaxResults)
	require.Len(t, plan.Root.Children, 4)

	created := plan.Root.Children[0].(*Condition)
	assert.Equal(t, []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, created.Op.Args)

	groups := plan.Root.Children[1].(*Condition)
	assert.Equal(t, "dataElementGroups.id", groups.Path.Raw, "member identifier hop")
	assert.True(t, groups.Path.ToMany())

	combo := plan.Root.Children[2].(*Condition)
	assert.Equal(t, []any{"cc1"}, combo.Op.Args)

	sub := plan.Root.Children[3].(*Group)
	assert.Equal(t, Or, sub.Kind)
	assert.Len(t, sub.Children, 2)

	require.Len(t, plan.Orders, 2)
	assert.Equal(t, "name", plan.Orders[0].Path.Raw)
	assert.Equal(t, Desc, plan.Orders[0].Direction)
	assert.Equal(t, "id", plan.Orders[1].Path.Raw)
	assert.Equal(t, Asc, plan.Orders[1].Direction)
}

// q0 returns a disjunction the way callers obtain one from a query.
func q0() *Junction { return New(metadata.TypeDataElement).Disjunction() }

func TestCompileOrders(t *testing.T) {
	r := metadata.MustRegistry()

	plan, err := Compile(r, New(metadata.TypeDataElement))
	require.NoError(t, err)
	require.Len(t, plan.Orders, 1)
	assert.Equal(t, "id", plan.Orders[0].Path.Raw)

	plan, err = Compile(r, New(metadata.TypeDataElement).SetDefaultOrder())
	require.NoError(t, err)
	require.Len(t, plan.Orders, 2)
	assert.Equal(t, "name", plan.Orders[0].Path.Raw)

	plan, err = Compile(r, New(metadata.TypeDataElement).AddOrder("id", Desc))
	require.NoError(t, err)
	require.Len(t, plan.Orders, 1)
	assert.Equal(t, Desc, plan.Orders[0].Direction)

	_, err = Compile(r, New(metadata.TypeDataElement).AddOrder("dataElementGroups.name", Asc))
	assert.ErrorIs(t, err, ErrEval)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestCompileErrors(t *testing.T) {
	r := metadata.MustRegistry()
	cyclic := Conjunction()
	cyclic.Add(Eq("id", "a"), cyclic)

	tests := []struct {
		name  string
		query *Query
		cause error
	}{
		{"unknown type", New("Nope"), schema.ErrUnknownType},
		{"scalar hop", New(metadata.TypeDataElement).Add(Eq("dataElementGroups.id.name", "x")), schema.ErrUnknownPath},
		{"unknown path", New(metadata.TypeDataElement).Add(Null("nope")), schema.ErrUnknownPath},
		{"wrong arity", New(metadata.TypeDataElement).Add(Where("name", NewOperator(OpBetween, "a"))), ErrArgumentCount},
		{"size on scalar", New(metadata.TypeDataElement).Add(SizeEq("name", 1)), ErrIncompatibleOperator},
		{"bad argument", New(metadata.TypeDataElement).Add(Gt("created", true)), ErrInvalidArgument},
		{"nil argument", New(metadata.TypeDataElement).Add(Eq("name", nil)), ErrInvalidArgument},
		{"empty in", New(metadata.TypeDataElement).Add(In("id")), ErrArgumentCount},
		{"unknown kind", New(metadata.TypeDataElement).Add(Where("id", Operator{Kind: 99})), ErrUnknownOperator},
		{"foreign object", New(metadata.TypeDataElement).Add(Eq("categoryCombo", &metadata.DataElement{ID: "x"})), ErrInvalidArgument},
		{"cycle", New(metadata.TypeDataElement).Add(cyclic), errCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(r, tt.query)
			require.Error(t, err)
			var ee *EvalError
			require.ErrorAs(t, err, &ee)
			assert.ErrorIs(t, err, tt.cause)
			assert.NotErrorIs(t, err, ErrParse)
		})
	}
}

func TestUnresolvablePathFailsBothWays(t *testing.T) {
	r := metadata.MustRegistry()
	const path = "dataElementGroups.id.name"

	_, err := NewParser(r).Parse(metadata.TypeDataElement, []string{path + ":eq:x"})
	var pe *ParserError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, schema.ErrUnknownPath)

	_, err = Compile(r, New(metadata.TypeDataElement).Add(Eq(path, "x")))
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, schema.ErrUnknownPath)
	assert.Equal(t, path, ee.Path)
}

func TestCompileNode(t *testing.T) {
	r := metadata.MustRegistry()
	n, err := CompileNode(r, metadata.TypeDataElement, Eq("zeroIsSignificant", "true"))
	require.NoError(t, err)
	assert.Equal(t, []any{true}, n.(*Condition).Op.Args)

	_, err = CompileNode(r, "Nope", Eq("id", "x"))
	assert.ErrorIs(t, err, ErrEval)
}
