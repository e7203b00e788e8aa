//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.Resolve("Author", "books.author.books.title")
	require.NoError(t, err)
	require.Len(t, p.Steps, 4)
	assert.True(t, p.Steps[0].IsCollection())
	assert.True(t, p.Steps[1].IsReference())
	assert.True(t, p.Terminal().IsScalar())
	assert.Equal(t, "Book", p.Terminal().Owner.Name)
	assert.True(t, p.ToMany())
	assert.True(t, p.Deep())
	assert.Len(t, p.Hops(), 3)

	p, err = r.Resolve("Book", "author")
	require.NoError(t, err)
	assert.False(t, p.Deep())
	assert.False(t, p.ToMany())
	assert.True(t, p.Terminal().IsReference())

	p, err = r.Resolve("Book", "author.name")
	require.NoError(t, err)
	assert.False(t, p.ToMany())
}

func TestResolveErrors(t *testing.T) {
	r := newTestRegistry(t)
	tests := []struct {
		name    string
		typ     string
		path    string
		segment string
	}{
		{name: "unknown type", typ: "Nope", path: "id"},
		{name: "empty path", typ: "Book", path: ""},
		{name: "unknown first segment", typ: "Book", path: "nope", segment: "nope"},
		{name: "unknown nested segment", typ: "Book", path: "author.nope", segment: "nope"},
		{name: "navigate through scalar", typ: "Author", path: "books.id.name", segment: "id"},
		{name: "empty segment", typ: "Book", path: "author..name", segment: ""},
		{name: "trailing dot", typ: "Book", path: "author.", segment: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.typ, tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownPath))
			var pe *PathError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.segment, pe.Segment)
			assert.Equal(t, tt.path, pe.Path)
		})
	}
}
