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
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

const (
	tagName       = "query"
	tagIdentifier = "identifier"
)

// Builder collects entity declarations and turns them into a Registry.
//
// Properties are declared with a struct tag on exported fields:
//
//	type DataElement struct {
//		ID     string              `query:"id,identifier"`
//		Name   string              `query:"name"`
//		Groups []*DataElementGroup `query:"dataElementGroups"`
//	}
//
// Untagged fields are not part of the schema.
type Builder struct {
	entities []*entity
}

type entity struct {
	name  string
	typ   reflect.Type
	table string
}

// EntityOption customizes one entity declaration.
type EntityOption func(*entity)

// WithTable overrides the store table of an entity.
func WithTable(table string) EntityOption {
	return func(e *entity) {
		e.table = table
	}
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Entity declares a type under name. sample is a value or pointer of the struct type.
func (b *Builder) Entity(name string, sample any, opts ...EntityOption) *Builder {
	var t reflect.Type
	if sample != nil {
		t = reflect.TypeOf(sample)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	e := &entity{name: name, typ: t, table: snakeCase(name)}
	for _, opt := range opts {
		opt(e)
	}
	b.entities = append(b.entities, e)
	return b
}

// Build validates every declaration and generates property accessors.
// All errors wrap ErrInvalidRegistration.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		schemas: make(map[string]*Schema, len(b.entities)),
		byType:  make(map[reflect.Type]*Schema, len(b.entities)),
	}

	for _, e := range b.entities {
		if e.name == "" {
			return nil, fmt.Errorf("%w: empty type name", ErrInvalidRegistration)
		}
		if e.typ == nil || e.typ.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s: sample must be a struct or pointer to struct", ErrInvalidRegistration, e.name)
		}
		if _, dup := r.schemas[e.name]; dup {
			return nil, fmt.Errorf("%w: %s registered twice", ErrInvalidRegistration, e.name)
		}
		if other, dup := r.byType[e.typ]; dup {
			return nil, fmt.Errorf("%w: Go type %s already registered as %s", ErrInvalidRegistration, e.typ, other.Name)
		}
		s := &Schema{
			Name:   e.name,
			Table:  e.table,
			goType: e.typ,
			byName: make(map[string]*Property),
		}
		r.schemas[e.name] = s
		r.byType[e.typ] = s
	}

	for _, s := range r.schemas {
		if err := r.buildProperties(s); err != nil {
			return nil, err
		}
	}
	r.sortNames()
	return r, nil
}

func (r *Registry) buildProperties(s *Schema) error {
	for _, sf := range reflect.VisibleFields(s.goType) {
		tag, ok := sf.Tag.Lookup(tagName)
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return fmt.Errorf("%w: %s.%s: tagged field is not exported", ErrInvalidRegistration, s.Name, sf.Name)
		}
		name, flags, _ := strings.Cut(tag, ",")
		if name == "" {
			return fmt.Errorf("%w: %s.%s: empty property name", ErrInvalidRegistration, s.Name, sf.Name)
		}
		if strings.Contains(name, ".") {
			return fmt.Errorf("%w: %s.%s: property name %q contains a dot", ErrInvalidRegistration, s.Name, sf.Name, name)
		}
		if _, dup := s.byName[name]; dup {
			return fmt.Errorf("%w: %s: duplicate property %q", ErrInvalidRegistration, s.Name, name)
		}

		sh, kind, ptr, elem, ok := classify(sf.Type)
		if !ok {
			return fmt.Errorf("%w: %s.%s: unsupported field type %s", ErrInvalidRegistration, s.Name, name, sf.Type)
		}
		p := &Property{
			Name:     name,
			Kind:     kind,
			Nullable: ptr || kind == KindReference,
			Column:   snakeCase(name),
			acc: &accessor{
				owner: s.goType,
				index: sf.Index,
				shape: sh,
				ptr:   ptr,
				field: sf.Type,
			},
		}
		if elem != nil {
			target, ok := r.byType[elem]
			if !ok {
				return fmt.Errorf("%w: %s.%s: %s is not a registered type", ErrInvalidRegistration, s.Name, name, elem)
			}
			p.Target = target.Name
		}
		switch kind {
		case KindReference:
			p.Column = snakeCase(name) + "_id"
		case KindCollection:
			p.Column = ""
			p.JoinTable = s.Table + "_" + snakeCase(name)
		}
		if strings.TrimSpace(flags) == tagIdentifier {
			if s.identifier != nil {
				return fmt.Errorf("%w: %s: more than one identifier", ErrInvalidRegistration, s.Name)
			}
			if kind != KindString || ptr {
				return fmt.Errorf("%w: %s.%s: identifier must be a string field", ErrInvalidRegistration, s.Name, name)
			}
			p.Identifier = true
			p.Column = "id"
			s.identifier = p
		}
		s.properties = append(s.properties, p)
		s.byName[name] = p
	}
	if s.identifier == nil {
		return fmt.Errorf("%w: %s has no identifier property", ErrInvalidRegistration, s.Name)
	}
	return nil
}

// snakeCase converts camelCase and PascalCase names to snake_case.
// Acronym runs stay together: "OrgUnitID" becomes "org_unit_id".
func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
