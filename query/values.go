//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package query

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-query-go/schema"
)

// timeLayouts are the accepted textual time forms, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func normalizeValue(r *schema.Registry, prop *schema.Property, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value for %q, use null", ErrInvalidArgument, prop.Name)
	}
	if prop.Navigable() {
		return identifierOf(r, prop, v)
	}
	var (
		out any
		err error
	)
	switch prop.Kind {
	case schema.KindString:
		out, err = toString(v)
	case schema.KindInteger:
		out, err = toInt(v)
	case schema.KindNumber:
		out, err = toFloat(v)
	case schema.KindBoolean:
		out, err = toBool(v)
	case schema.KindTime:
		out, err = toTime(v)
	default:
		err = fmt.Errorf("unsupported kind %s", prop.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, prop.Name, err)
	}
	return out, nil
}

// identifierOf turns an association argument into the referenced identifier.
func identifierOf(r *schema.Registry, prop *schema.Property, v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	if r != nil {
		if s, ok := r.SchemaOf(v); ok && s.Name == prop.Target {
			if id := s.ID(v); id != "" {
				return id, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q expects a %s identifier, got %T", ErrInvalidArgument, prop.Name, prop.Target, v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case *string:
		if x != nil {
			return *x, nil
		}
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("want string, got %T", v)
}

func toInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	case reflect.String:
		n, err := strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", rv.String())
		}
		return n, nil
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return 0, fmt.Errorf("NaN is not comparable")
		}
		return f, nil
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		if err != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("%q is not a number", rv.String())
		}
		return f, nil
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	}
	return false, fmt.Errorf("want boolean, got %T", v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case *time.Time:
		if x != nil {
			return x.UTC(), nil
		}
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a time", x)
	}
	return time.Time{}, fmt.Errorf("want time, got %T", v)
}

// CompareValues orders two canonical values of the same kind. ok is false
// when the values are not mutually comparable.
func CompareValues(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), true
		case float64:
			return cmpOrdered(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), true
		case int64:
			return cmpOrdered(x, float64(y)), true
		}
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

// EqualValues reports whether two canonical values are equal.
func EqualValues(a, b any) bool {
	c, ok := CompareValues(a, b)
	return ok && c == 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
