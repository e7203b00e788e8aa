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
	"context"
	"database/sql"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-query-go/schema"
)

// hydrateBatch bounds the identifiers bound into one IN list.
const hydrateBatch = 500

// hydrate loads the objects of s with the given identifiers, in id order.
// Scalars are set from the row; references and collection members become
// stubs carrying only their identifier.
func (e *Engine) hydrate(ctx context.Context, s *schema.Schema, ids []string) ([]any, error) {
	byID := make(map[string]any, len(ids))
	for start := 0; start < len(ids); start += hydrateBatch {
		batch := ids[start:min(start+hydrateBatch, len(ids))]
		if err := e.loadRows(ctx, s, batch, byID); err != nil {
			return nil, err
		}
		for _, p := range s.Properties() {
			if !p.IsCollection() {
				continue
			}
			if err := e.loadMembers(ctx, p, batch, byID); err != nil {
				return nil, err
			}
		}
	}

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		// Rows deleted between the id query and hydration are skipped.
		if obj, ok := byID[id]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (e *Engine) inList(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return e.placeholders(1, len(ids)), args
}

func (e *Engine) loadRows(ctx context.Context, s *schema.Schema, ids []string, byID map[string]any) error {
	var props []*schema.Property
	var cols []string
	for _, p := range s.Properties() {
		if p.IsCollection() {
			continue
		}
		props = append(props, p)
		cols = append(cols, rootAlias+"."+quote(p.Column))
	}
	list, args := e.inList(ids)
	stmt := fmt.Sprintf("SELECT %s FROM %s %s WHERE %s.%s IN (%s)",
		strings.Join(cols, ", "), quote(s.Table), rootAlias, rootAlias, quote(idColumn), list)

	return e.client.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			raw := make([]any, len(props))
			dest := make([]any, len(props))
			for i := range raw {
				dest[i] = &raw[i]
			}
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("sqlstore: scan %s: %w", s.Name, err)
			}
			obj := s.New()
			for i, p := range props {
				if err := e.setColumn(obj, p, raw[i]); err != nil {
					return fmt.Errorf("sqlstore: hydrate %s.%s: %w", s.Name, p.Name, err)
				}
			}
			byID[s.ID(obj)] = obj
		}
		return nil
	}, stmt, args...)
}

func (e *Engine) setColumn(obj any, p *schema.Property, raw any) error {
	if raw == nil {
		if p.Nullable || p.IsReference() {
			return p.Set(obj, nil)
		}
		return fmt.Errorf("unexpected NULL")
	}
	if p.IsReference() {
		id, err := e.dialect.Decode(schema.KindString, raw)
		if err != nil {
			return err
		}
		stub, err := e.stub(p.Target, id.(string))
		if err != nil {
			return err
		}
		return p.Set(obj, stub)
	}
	v, err := e.dialect.Decode(p.Kind, raw)
	if err != nil {
		return err
	}
	return p.Set(obj, v)
}

func (e *Engine) loadMembers(ctx context.Context, p *schema.Property, ids []string, byID map[string]any) error {
	list, args := e.inList(ids)
	stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s, %s",
		quote(ownerColumn), quote(memberColumn), quote(p.JoinTable), quote(ownerColumn), list,
		quote(ownerColumn), quote(positionColumn))

	members := map[string][]any{}
	err := e.client.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var owner, member string
			if err := rows.Scan(&owner, &member); err != nil {
				return fmt.Errorf("sqlstore: scan %s: %w", p.JoinTable, err)
			}
			stub, err := e.stub(p.Target, member)
			if err != nil {
				return err
			}
			members[owner] = append(members[owner], stub)
		}
		return nil
	}, stmt, args...)
	if err != nil {
		return err
	}
	for _, id := range ids {
		obj, ok := byID[id]
		if !ok {
			continue
		}
		if err := p.Set(obj, members[id]); err != nil {
			return fmt.Errorf("sqlstore: hydrate %s: %w", p.Name, err)
		}
	}
	return nil
}

// stub returns a new instance of typeName carrying only id.
func (e *Engine) stub(typeName, id string) (any, error) {
	target, ok := e.registry.Schema(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnregistered, typeName)
	}
	obj := target.New()
	if err := target.Identifier().Set(obj, id); err != nil {
		return nil, err
	}
	return obj, nil
}
