//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/engine/inmemory"
	"trpc.group/trpc-go/trpc-query-go/internal/enginetest"
	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/query"
)

// recordingEngine answers every query with no items and remembers the last one.
type recordingEngine struct {
	last *query.Query
}

func (e *recordingEngine) Execute(_ context.Context, q *query.Query) ([]any, error) {
	e.last = q
	return nil, nil
}

func (e *recordingEngine) Count(_ context.Context, q *query.Query) (int, error) {
	e.last = q
	return 42, nil
}

func TestRouting(t *testing.T) {
	r := metadata.MustRegistry()
	ctx := context.Background()
	mem, store := &recordingEngine{}, &recordingEngine{}
	svc := engine.NewService(r, engine.WithMemoryEngine(mem), engine.WithStoreEngine(store))

	_, err := svc.Query(ctx, query.New(metadata.TypeDataElement))
	require.NoError(t, err)
	assert.NotNil(t, store.last)
	assert.Nil(t, mem.last)

	_, err = svc.Query(ctx, query.New(metadata.TypeDataElement).SetObjects([]any{}))
	require.NoError(t, err)
	assert.NotNil(t, mem.last, "queries carrying objects run in memory")

	storeOnly := engine.NewService(r, engine.WithStoreEngine(store))
	_, err = storeOnly.Query(ctx, query.New(metadata.TypeDataElement).SetObjects([]any{}))
	assert.ErrorIs(t, err, engine.ErrNoEngine)

	none := engine.NewService(r)
	_, err = none.Count(ctx, query.New(metadata.TypeDataElement))
	assert.ErrorIs(t, err, engine.ErrNoEngine)

	memOnly := engine.NewService(r, engine.WithMemoryEngine(mem))
	n, err := memOnly.Count(ctx, query.New(metadata.TypeDataElement))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestQueryTotals(t *testing.T) {
	r := metadata.MustRegistry()
	ctx := context.Background()
	svc := engine.NewService(r, engine.WithMemoryEngine(inmemory.New(r)))
	world := enginetest.World()

	res, err := svc.Query(ctx, query.New(metadata.TypeDataElement).SetObjects(world.Objects(metadata.TypeDataElement)))
	require.NoError(t, err)
	assert.Len(t, res.Items, 6)
	assert.Equal(t, 6, res.Total)

	res, err = svc.QueryTokens(ctx, engine.TokenRequest{
		Type:     metadata.TypeDataElement,
		Filters:  []string{"name:like:doses"},
		Page:     2,
		PageSize: 2,
		Objects:  world.Objects(metadata.TypeDataElement),
	})
	require.NoError(t, err)
	// Default name order: BCG, Measles, Penta.
	assert.Equal(t, []string{"deF"}, enginetest.IDs(r, res.Items))
	assert.Equal(t, 3, res.Total)
}

func TestBuild(t *testing.T) {
	svc := engine.NewService(metadata.MustRegistry())

	q, err := svc.Build(engine.TokenRequest{
		Type:         metadata.TypeDataElement,
		Filters:      []string{"code:!null", "created:gt:2024-01-02"},
		Orders:       []string{"created:desc", "name"},
		RootJunction: query.Or,
		Page:         3,
		PageSize:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, query.Or, q.RootJunction())
	assert.Equal(t, 2, q.Root().Len())
	assert.Equal(t, []query.Order{{Path: "created", Direction: query.Desc}, {Path: "name"}}, q.Orders())
	assert.False(t, q.DefaultOrder())
	assert.Equal(t, 20, q.FirstResult())
	assert.Equal(t, 10, q.MaxResults())
	assert.False(t, q.HasObjects())

	q, err = svc.Build(engine.TokenRequest{Type: metadata.TypeDataElement})
	require.NoError(t, err)
	assert.True(t, q.DefaultOrder())
	assert.Zero(t, q.MaxResults())

	_, err = svc.Build(engine.TokenRequest{Type: metadata.TypeDataElement, Filters: []string{"name"}})
	assert.ErrorIs(t, err, query.ErrParse)
	_, err = svc.Build(engine.TokenRequest{Type: metadata.TypeDataElement, Orders: []string{"name:sideways"}})
	assert.ErrorIs(t, err, query.ErrInvalidOrder)
	_, err = svc.QueryTokens(context.Background(), engine.TokenRequest{Type: metadata.TypeDataElement})
	assert.ErrorIs(t, err, engine.ErrNoEngine)
}
