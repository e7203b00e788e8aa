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
	"sort"

	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// sortKey extracts one ordering value from an object.
type sortKey struct {
	value func(obj any) (any, bool)
	desc  bool
}

func (c *inmemoryConverter) buildSortKeys(keys []query.SortKey) []sortKey {
	out := make([]sortKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, sortKey{value: c.sortValue(k.Path), desc: k.Direction == query.Desc})
	}
	return out
}

// sortValue follows the to-one hops of p. A reference terminal sorts by the
// referenced identifier.
func (c *inmemoryConverter) sortValue(p *schema.Path) func(obj any) (any, bool) {
	hops := p.Hops()
	term := p.Terminal().Property
	var target *schema.Schema
	if term.IsReference() {
		target, _ = c.registry.Schema(term.Target)
	}
	return func(obj any) (any, bool) {
		cur := obj
		for _, h := range hops {
			v, ok := h.Property.Get(cur)
			if !ok {
				return nil, false
			}
			cur = v
		}
		v, ok := term.Get(cur)
		if !ok {
			return nil, false
		}
		if target != nil {
			return target.ID(v), true
		}
		return v, true
	}
}

// sortObjects orders objs in place. Absent values sort first ascending and
// last descending.
func sortObjects(objs []any, keys []sortKey) {
	if len(keys) == 0 {
		return
	}
	type row struct {
		obj    any
		values []any
		ok     []bool
	}
	rows := make([]row, len(objs))
	for i, obj := range objs {
		r := row{obj: obj, values: make([]any, len(keys)), ok: make([]bool, len(keys))}
		for j, k := range keys {
			r.values[j], r.ok[j] = k.value(obj)
		}
		rows[i] = r
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		for j, k := range keys {
			c := compareNullable(ra.values[j], ra.ok[j], rb.values[j], rb.ok[j])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	for i, r := range rows {
		objs[i] = r.obj
	}
}

func compareNullable(a any, aok bool, b any, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c, _ := query.CompareValues(a, b)
	return c
}
