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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/internal/enginetest"
	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/query"
)

func newSourceEngine(t *testing.T, set *metadata.Set, opts ...Option) engine.Engine {
	t.Helper()
	src := func(_ context.Context, typeName string) ([]any, error) {
		return set.Objects(typeName), nil
	}
	return New(metadata.MustRegistry(), append([]Option{WithSource(src)}, opts...)...)
}

func TestSuite(t *testing.T) {
	enginetest.Run(t, func(t *testing.T, set *metadata.Set) engine.Engine {
		return newSourceEngine(t, set)
	})
}

func TestSuiteParallel(t *testing.T) {
	enginetest.Run(t, func(t *testing.T, set *metadata.Set) engine.Engine {
		return newSourceEngine(t, set, WithParallelThreshold(1), WithParallelism(4))
	})
}

func TestExecuteObjects(t *testing.T) {
	r := metadata.MustRegistry()
	e := New(r)
	world := enginetest.World()

	q := query.New(metadata.TypeDataElement).
		Add(query.Like("name", "ANC", query.Start)).
		SetObjects(world.Objects(metadata.TypeDataElement))
	items, err := e.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"deA", "deB"}, enginetest.IDs(r, items))

	q = query.New(metadata.TypeDataElement).SetObjects([]any{})
	items, err = e.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExecuteErrors(t *testing.T) {
	r := metadata.MustRegistry()
	e := New(r)
	ctx := context.Background()

	_, err := e.Execute(ctx, query.New(metadata.TypeDataElement))
	assert.True(t, errors.Is(err, errNoObjects))

	q := query.New(metadata.TypeDataElement).SetObjects([]any{&metadata.CategoryCombo{ID: "x"}})
	_, err = e.Execute(ctx, q)
	assert.ErrorIs(t, err, query.ErrEval)

	failing := New(r, WithSource(func(context.Context, string) ([]any, error) {
		return nil, errors.New("down")
	}))
	_, err = failing.Count(ctx, query.New(metadata.TypeDataElement))
	assert.ErrorContains(t, err, "down")
}

func TestFilterKeepsOrderInParallel(t *testing.T) {
	set := metadata.Generate(7, 5000)
	objs := set.Objects(metadata.TypeDataElement)
	keepEven := func(obj any) bool { return obj.(*metadata.DataElement).Created.Day()%2 == 0 }

	seq := New(metadata.MustRegistry(), WithParallelThreshold(len(objs)+1))
	par := New(metadata.MustRegistry(), WithParallelThreshold(1), WithParallelism(8))

	want, err := seq.filter(context.Background(), objs, keepEven)
	require.NoError(t, err)
	got, err := par.filter(context.Background(), objs, keepEven)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = par.filter(ctx, objs, keepEven)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertUnsupportedNode(t *testing.T) {
	c := &inmemoryConverter{registry: metadata.MustRegistry()}
	fn, err := c.Convert(&query.Group{Kind: query.And, Children: []query.PlanNode{panicNode{}}})
	assert.Error(t, err)
	assert.Nil(t, fn)
}

type panicNode struct{ query.PlanNode }

func TestWindow(t *testing.T) {
	objs := []any{1, 2, 3, 4, 5}
	assert.Equal(t, []any{1, 2, 3, 4, 5}, window(objs, 0, 0))
	assert.Equal(t, []any{3, 4}, window(objs, 2, 2))
	assert.Equal(t, []any{5}, window(objs, 4, 10))
	assert.Equal(t, []any{}, window(objs, 5, 2))
	assert.Equal(t, []any{}, window(objs, 50, 0))
	assert.Equal(t, []any{}, window(objs, math.MaxInt, 4))
	assert.Equal(t, []any{1, 2}, window(objs, -3, 2))
}
