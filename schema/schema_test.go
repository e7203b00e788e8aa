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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAuthor struct {
	ID    string      `query:"id,identifier"`
	Name  string      `query:"name"`
	Books []*testBook `query:"books"`
}

type testBook struct {
	ID        string      `query:"id,identifier"`
	Title     string      `query:"title"`
	Pages     int         `query:"pages"`
	Rating    *float64    `query:"rating"`
	Published *time.Time  `query:"published"`
	InPrint   bool        `query:"inPrint"`
	Author    *testAuthor `query:"author"`
	Skipped   string      `query:"-"`
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewBuilder().
		Entity("Author", testAuthor{}).
		Entity("Book", &testBook{}, WithTable("books")).
		Build()
	require.NoError(t, err)
	return r
}

func TestBuild(t *testing.T) {
	r := newTestRegistry(t)

	book := r.MustSchema("Book")
	assert.Equal(t, "books", book.Table)
	assert.Equal(t, "id", book.Identifier().Name)
	assert.Len(t, book.Properties(), 7)

	tests := []struct {
		name      string
		kind      Kind
		nullable  bool
		column    string
		joinTable string
		target    string
	}{
		{name: "title", kind: KindString, column: "title"},
		{name: "pages", kind: KindInteger, column: "pages"},
		{name: "rating", kind: KindNumber, nullable: true, column: "rating"},
		{name: "published", kind: KindTime, nullable: true, column: "published"},
		{name: "inPrint", kind: KindBoolean, column: "in_print"},
		{name: "author", kind: KindReference, nullable: true, column: "author_id", target: "Author"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := book.Property(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.nullable, p.Nullable)
			assert.Equal(t, tt.column, p.Column)
			assert.Equal(t, tt.joinTable, p.JoinTable)
			assert.Equal(t, tt.target, p.Target)
		})
	}

	books, ok := r.Property("Author", "books")
	require.True(t, ok)
	assert.True(t, books.IsCollection())
	assert.Equal(t, "author_books", books.JoinTable)
	assert.Equal(t, "Book", books.Target)

	_, ok = book.Property("Skipped")
	assert.False(t, ok)

	names := []string{}
	for _, s := range r.Schemas() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Author", "Book"}, names)
}

func TestBuildErrors(t *testing.T) {
	type noID struct {
		Name string `query:"name"`
	}
	type twoIDs struct {
		A string `query:"a,identifier"`
		B string `query:"b,identifier"`
	}
	type intID struct {
		ID int `query:"id,identifier"`
	}
	type badField struct {
		ID   string         `query:"id,identifier"`
		Tags map[string]int `query:"tags"`
	}
	type unregistered struct {
		ID    string      `query:"id,identifier"`
		Other *testAuthor `query:"other"`
	}
	type dupName struct {
		ID string `query:"id,identifier"`
		A  string `query:"x"`
		B  string `query:"x"`
	}

	tests := []struct {
		name  string
		build func() *Builder
	}{
		{"no identifier", func() *Builder { return NewBuilder().Entity("T", noID{}) }},
		{"two identifiers", func() *Builder { return NewBuilder().Entity("T", twoIDs{}) }},
		{"non string identifier", func() *Builder { return NewBuilder().Entity("T", intID{}) }},
		{"unsupported field", func() *Builder { return NewBuilder().Entity("T", badField{}) }},
		{"unregistered target", func() *Builder { return NewBuilder().Entity("T", unregistered{}) }},
		{"duplicate property", func() *Builder { return NewBuilder().Entity("T", dupName{}) }},
		{"duplicate type", func() *Builder {
			return NewBuilder().Entity("T", noID{}).Entity("T", intID{})
		}},
		{"not a struct", func() *Builder { return NewBuilder().Entity("T", "x") }},
		{"nil sample", func() *Builder { return NewBuilder().Entity("T", nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRegistration), err.Error())
		})
	}
}

func TestAccessors(t *testing.T) {
	r := newTestRegistry(t)
	book := r.MustSchema("Book")
	author := &testAuthor{ID: "a1", Name: "Ann"}
	published := time.Date(2020, 5, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	b := &testBook{ID: "b1", Title: "Go", Pages: 300, Published: &published, Author: author}
	author.Books = []*testBook{b, nil}

	get := func(s *Schema, name string, obj any) (any, bool) {
		p, ok := s.Property(name)
		require.True(t, ok)
		return p.Get(obj)
	}

	v, ok := get(book, "pages", b)
	assert.True(t, ok)
	assert.Equal(t, int64(300), v)

	v, ok = get(book, "published", b)
	assert.True(t, ok)
	assert.Equal(t, time.UTC, v.(time.Time).Location())
	assert.True(t, published.Equal(v.(time.Time)))

	_, ok = get(book, "rating", b)
	assert.False(t, ok, "nil pointer is absent")

	v, ok = get(book, "author", b)
	assert.True(t, ok)
	assert.Same(t, author, v)

	v, ok = get(r.MustSchema("Author"), "books", author)
	assert.True(t, ok)
	assert.Equal(t, []any{b}, v, "nil members are skipped")

	v, ok = get(book, "title", *b)
	assert.True(t, ok, "struct values are readable")
	assert.Equal(t, "Go", v)

	_, ok = get(book, "title", author)
	assert.False(t, ok, "foreign types are absent")

	assert.Equal(t, "b1", book.ID(b))
	s, ok := r.SchemaOf(b)
	require.True(t, ok)
	assert.Equal(t, "Book", s.Name)
}

func TestSet(t *testing.T) {
	r := newTestRegistry(t)
	book := r.MustSchema("Book")
	obj := book.New()
	require.IsType(t, &testBook{}, obj)

	set := func(name string, v any) error {
		p, _ := book.Property(name)
		return p.Set(obj, v)
	}
	require.NoError(t, set("id", "b9"))
	require.NoError(t, set("pages", int64(12)))
	require.NoError(t, set("rating", 4.5))
	require.NoError(t, set("inPrint", true))
	require.NoError(t, set("author", &testAuthor{ID: "a"}))

	got := obj.(*testBook)
	assert.Equal(t, "b9", got.ID)
	assert.Equal(t, 12, got.Pages)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)
	assert.True(t, got.InPrint)
	assert.Equal(t, "a", got.Author.ID)

	require.NoError(t, set("rating", nil))
	assert.Nil(t, got.Rating)
	assert.Error(t, set("pages", nil), "non pointer fields are not nullable")
	assert.Error(t, set("pages", "12"), "values must be canonical")
	assert.Error(t, book.Identifier().Set(testBook{}, "x"), "target must be a pointer")

	authors, _ := r.Property("Author", "books")
	a := &testAuthor{}
	require.NoError(t, authors.Set(a, []any{got}))
	assert.Equal(t, []*testBook{got}, a.Books)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"name":              "name",
		"shortName":         "short_name",
		"DataElementGroup":  "data_element_group",
		"zeroIsSignificant": "zero_is_significant",
		"OrgUnitID":         "org_unit_id",
		"HTTPServer":        "http_server",
		"level2":            "level2",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
