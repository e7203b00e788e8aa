//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package schema holds the type metadata the query engines navigate: which
// properties an entity type declares, whether they are scalars, references or
// collections, and how to read and write them on Go values.
//
// A Registry is built once at startup with a Builder and is immutable after
// Build returns, so it may be shared by any number of concurrent queries.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	// ErrUnknownPath is returned when a dotted property path cannot be resolved.
	ErrUnknownPath = errors.New("unknown path")
	// ErrInvalidRegistration is returned by Builder.Build for malformed entity declarations.
	ErrInvalidRegistration = errors.New("invalid schema registration")
	// ErrUnknownType is returned when a type name is not registered.
	ErrUnknownType = errors.New("unknown type")
)

// Kind classifies a property value.
type Kind int

// Property kinds.
const (
	KindString Kind = iota + 1
	KindInteger
	KindNumber
	KindBoolean
	KindTime
	KindReference
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindTime:
		return "time"
	case KindReference:
		return "reference"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scalar reports whether values of this kind are plain values.
func (k Kind) Scalar() bool {
	return k >= KindString && k <= KindTime
}

// Ordered reports whether values of this kind have a total order.
func (k Kind) Ordered() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindTime:
		return true
	}
	return false
}

// Property describes one declared property of an entity type.
type Property struct {
	// Name is the property name used in paths.
	Name string
	// Kind classifies the property value.
	Kind Kind
	// Target is the referenced type name for references and collections.
	Target string
	// Identifier marks the type's identifier property.
	Identifier bool
	// Nullable is set when the Go field can hold no value (pointer fields).
	Nullable bool
	// Column is the store column. For references it holds the referenced id.
	Column string
	// JoinTable is the store table linking owners to members, collections only.
	JoinTable string

	acc *accessor
}

// IsReference reports whether the property is a to-one association.
func (p *Property) IsReference() bool { return p.Kind == KindReference }

// IsCollection reports whether the property is a to-many association.
func (p *Property) IsCollection() bool { return p.Kind == KindCollection }

// Navigable reports whether a path may continue past this property.
func (p *Property) Navigable() bool { return p.IsReference() || p.IsCollection() }

// Get reads the property from obj.
//
// Scalars are returned in canonical form (string, int64, float64, bool, or
// time.Time in UTC). References return the referenced object, collections a
// []any of members. present is false when the value is absent: a nil pointer
// field, a nil reference, or obj not being of the owning type. Collections are
// always present; an empty collection is a value.
func (p *Property) Get(obj any) (value any, present bool) {
	return p.acc.get(obj)
}

// Set writes a canonical value into obj, which must be a pointer to the owning
// struct type. A nil value clears pointer fields.
func (p *Property) Set(obj any, value any) error {
	if err := p.acc.set(obj, value); err != nil {
		return fmt.Errorf("set %s: %w", p.Name, err)
	}
	return nil
}

// Schema describes one registered entity type.
type Schema struct {
	// Name is the registered type name, e.g. "DataElement".
	Name string
	// Table is the store table holding rows of this type.
	Table string

	goType     reflect.Type
	properties []*Property
	byName     map[string]*Property
	identifier *Property
}

// Property returns the property with the given name.
func (s *Schema) Property(name string) (*Property, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Properties returns the properties in declaration order.
func (s *Schema) Properties() []*Property {
	out := make([]*Property, len(s.properties))
	copy(out, s.properties)
	return out
}

// Identifier returns the identifier property.
func (s *Schema) Identifier() *Property { return s.identifier }

// New allocates a zero instance of the type and returns a pointer to it.
func (s *Schema) New() any {
	return reflect.New(s.goType).Interface()
}

// ID returns the identifier of obj, or "" when obj has none.
func (s *Schema) ID(obj any) string {
	v, ok := s.identifier.Get(obj)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// Registry is the immutable set of registered schemas.
type Registry struct {
	schemas map[string]*Schema
	byType  map[reflect.Type]*Schema
	names   []string
}

// Schema returns the schema registered under name.
func (r *Registry) Schema(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// MustSchema returns the schema registered under name and panics if missing.
func (r *Registry) MustSchema(name string) *Schema {
	s, ok := r.schemas[name]
	if !ok {
		panic(fmt.Sprintf("schema: %s is not registered", name))
	}
	return s
}

// Property returns the named property of the named type.
func (r *Registry) Property(typeName, name string) (*Property, bool) {
	s, ok := r.schemas[typeName]
	if !ok {
		return nil, false
	}
	return s.Property(name)
}

// SchemaOf returns the schema of a registered value (struct or pointer to struct).
func (r *Registry) SchemaOf(obj any) (*Schema, bool) {
	if obj == nil {
		return nil, false
	}
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s, ok := r.byType[t]
	return s, ok
}

// Schemas returns all schemas ordered by name.
func (r *Registry) Schemas() []*Schema {
	out := make([]*Schema, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.schemas[n])
	}
	return out
}

func (r *Registry) sortNames() {
	r.names = r.names[:0]
	for n := range r.schemas {
		r.names = append(r.names, n)
	}
	sort.Strings(r.names)
}
