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
	"time"
)

// shape is the Go representation of a property field, fixed at Build time so
// reads never have to rediscover it.
type shape int

const (
	shapeString shape = iota + 1
	shapeInt
	shapeFloat
	shapeBool
	shapeTime
	shapeRef
	shapeSlice
)

var timeType = reflect.TypeOf(time.Time{})

// accessor reads and writes one struct field.
type accessor struct {
	owner reflect.Type
	index []int
	shape shape
	// ptr is set for pointer-to-scalar fields.
	ptr bool
	// field is the declared field type.
	field reflect.Type
}

// classify maps a field type onto a shape and kind. elem is the referenced
// struct type for references and collections.
func classify(t reflect.Type) (s shape, k Kind, ptr bool, elem reflect.Type, ok bool) {
	base := t
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
		if base.Kind() == reflect.Struct && base != timeType {
			return shapeRef, KindReference, false, base, true
		}
		ptr = true
	}
	if t.Kind() == reflect.Slice {
		e := t.Elem()
		if e.Kind() == reflect.Pointer && e.Elem().Kind() == reflect.Struct && e.Elem() != timeType {
			return shapeSlice, KindCollection, false, e.Elem(), true
		}
		return 0, 0, false, nil, false
	}
	if base == timeType {
		return shapeTime, KindTime, ptr, nil, true
	}
	switch base.Kind() {
	case reflect.String:
		return shapeString, KindString, ptr, nil, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return shapeInt, KindInteger, ptr, nil, true
	case reflect.Float32, reflect.Float64:
		return shapeFloat, KindNumber, ptr, nil, true
	case reflect.Bool:
		return shapeBool, KindBoolean, ptr, nil, true
	}
	return 0, 0, false, nil, false
}

func (a *accessor) structValue(obj any) (reflect.Value, bool) {
	if obj == nil {
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Type() != a.owner {
		return reflect.Value{}, false
	}
	return v, true
}

func (a *accessor) get(obj any) (any, bool) {
	v, ok := a.structValue(obj)
	if !ok {
		return nil, false
	}
	f := v.FieldByIndex(a.index)

	switch a.shape {
	case shapeRef:
		if f.IsNil() {
			return nil, false
		}
		return f.Interface(), true
	case shapeSlice:
		out := make([]any, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			e := f.Index(i)
			if e.IsNil() {
				continue
			}
			out = append(out, e.Interface())
		}
		return out, true
	}

	if a.ptr {
		if f.IsNil() {
			return nil, false
		}
		f = f.Elem()
	}
	switch a.shape {
	case shapeString:
		return f.String(), true
	case shapeInt:
		return f.Int(), true
	case shapeFloat:
		return f.Float(), true
	case shapeBool:
		return f.Bool(), true
	case shapeTime:
		return f.Interface().(time.Time).UTC(), true
	}
	return nil, false
}

func (a *accessor) set(obj any, value any) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != a.owner {
		return fmt.Errorf("target must be a non-nil *%s, got %T", a.owner.Name(), obj)
	}
	f := v.Elem().FieldByIndex(a.index)

	switch a.shape {
	case shapeRef:
		if value == nil {
			f.Set(reflect.Zero(a.field))
			return nil
		}
		rv := reflect.ValueOf(value)
		if rv.Type() != a.field {
			return fmt.Errorf("reference must be %s, got %T", a.field, value)
		}
		f.Set(rv)
		return nil
	case shapeSlice:
		items, ok := value.([]any)
		if value != nil && !ok {
			return fmt.Errorf("collection must be []any, got %T", value)
		}
		s := reflect.MakeSlice(a.field, 0, len(items))
		for _, it := range items {
			rv := reflect.ValueOf(it)
			if rv.Type() != a.field.Elem() {
				return fmt.Errorf("collection member must be %s, got %T", a.field.Elem(), it)
			}
			s = reflect.Append(s, rv)
		}
		f.Set(s)
		return nil
	}

	if value == nil {
		if !a.ptr {
			return fmt.Errorf("field is not nullable")
		}
		f.Set(reflect.Zero(a.field))
		return nil
	}

	base := a.field
	if a.ptr {
		base = a.field.Elem()
	}
	cv := reflect.New(base).Elem()
	switch a.shape {
	case shapeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		cv.SetString(s)
	case shapeInt:
		n, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want int64, got %T", value)
		}
		cv.SetInt(n)
	case shapeFloat:
		n, ok := value.(float64)
		if !ok {
			return fmt.Errorf("want float64, got %T", value)
		}
		cv.SetFloat(n)
	case shapeBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		cv.SetBool(b)
	case shapeTime:
		t, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("want time.Time, got %T", value)
		}
		cv.Set(reflect.ValueOf(t))
	}

	if a.ptr {
		p := reflect.New(base)
		p.Elem().Set(cv)
		f.Set(p)
		return nil
	}
	f.Set(cv)
	return nil
}
