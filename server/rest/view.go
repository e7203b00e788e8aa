//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package rest

import (
	"time"

	"trpc.group/trpc-go/trpc-query-go/schema"
)

// view renders obj as a flat JSON object. Associations are written as
// identifier objects so cyclic object graphs serialize finitely.
func view(r *schema.Registry, obj any) map[string]any {
	s, ok := r.SchemaOf(obj)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(s.Properties()))
	for _, p := range s.Properties() {
		v, present := p.Get(obj)
		if !present {
			continue
		}
		switch {
		case p.IsReference():
			out[p.Name] = ref(r, p.Target, v)
		case p.IsCollection():
			members := v.([]any)
			refs := make([]map[string]string, 0, len(members))
			for _, m := range members {
				refs = append(refs, ref(r, p.Target, m))
			}
			out[p.Name] = refs
		default:
			if t, ok := v.(time.Time); ok {
				v = t.Format(time.RFC3339Nano)
			}
			out[p.Name] = v
		}
	}
	return out
}

func ref(r *schema.Registry, typeName string, v any) map[string]string {
	target := r.MustSchema(typeName)
	return map[string]string{target.Identifier().Name: target.ID(v)}
}
