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
	"strings"
)

// Step is one resolved segment of a path.
type Step struct {
	// Owner is the type declaring Property.
	Owner *Schema
	// Property is the property named by the segment.
	Property *Property
}

// IsScalar reports whether the step holds a plain value.
func (s Step) IsScalar() bool { return s.Property.Kind.Scalar() }

// IsReference reports whether the step is a to-one association.
func (s Step) IsReference() bool { return s.Property.IsReference() }

// IsCollection reports whether the step is a to-many association.
func (s Step) IsCollection() bool { return s.Property.IsCollection() }

// Path is a dotted property path resolved against a root type.
type Path struct {
	// Root is the type the path starts from.
	Root *Schema
	// Raw is the path as written.
	Raw string
	// Steps holds one entry per segment, terminal last.
	Steps []Step
}

// Terminal returns the last step.
func (p *Path) Terminal() Step { return p.Steps[len(p.Steps)-1] }

// Hops returns the navigation steps before the terminal.
func (p *Path) Hops() []Step { return p.Steps[:len(p.Steps)-1] }

// Deep reports whether the path crosses at least one association.
func (p *Path) Deep() bool { return len(p.Steps) > 1 }

// ToMany reports whether any hop before the terminal is a collection.
func (p *Path) ToMany() bool {
	for _, s := range p.Hops() {
		if s.IsCollection() {
			return true
		}
	}
	return false
}

func (p *Path) String() string { return p.Raw }

// PathError describes a failed resolution.
type PathError struct {
	Type    string
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("unknown path %q on %s: %s", e.Path, e.Type, e.Reason)
	}
	return fmt.Sprintf("unknown path %q on %s: segment %q %s", e.Path, e.Type, e.Segment, e.Reason)
}

// Unwrap returns ErrUnknownPath.
func (e *PathError) Unwrap() error { return ErrUnknownPath }

// Resolve walks path from typeName using only registered metadata. Every
// segment but the last must name a reference or collection whose target
// declares the next segment.
func (r *Registry) Resolve(typeName, path string) (*Path, error) {
	fail := func(segment, reason string) (*Path, error) {
		return nil, &PathError{Type: typeName, Path: path, Segment: segment, Reason: reason}
	}
	root, ok := r.schemas[typeName]
	if !ok {
		return fail("", "type is not registered")
	}
	if path == "" {
		return fail("", "path is empty")
	}

	segments := strings.Split(path, ".")
	out := &Path{Root: root, Raw: path, Steps: make([]Step, 0, len(segments))}
	cur := root
	for i, seg := range segments {
		if seg == "" {
			return fail(seg, "is empty")
		}
		if cur == nil {
			prev := segments[i-1]
			return fail(prev, "is not navigable")
		}
		prop, ok := cur.byName[seg]
		if !ok {
			return fail(seg, "is not a property of "+cur.Name)
		}
		out.Steps = append(out.Steps, Step{Owner: cur, Property: prop})
		if prop.Navigable() {
			cur = r.schemas[prop.Target]
		} else {
			cur = nil
		}
	}
	return out, nil
}

// Child resolves segment against the terminal type of a navigable path and
// returns the extended path.
func (r *Registry) Child(p *Path, segment string) (*Path, error) {
	return r.Resolve(p.Root.Name, p.Raw+"."+segment)
}
