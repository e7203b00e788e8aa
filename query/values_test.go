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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b any
		want int
		ok   bool
	}{
		{"strings", "a", "b", -1, true},
		{"strings are byte ordered", "B", "a", -1, true},
		{"ints", int64(3), int64(2), 1, true},
		{"int and float", int64(2), 2.0, 0, true},
		{"floats", 1.5, 2.5, -1, true},
		{"bools", false, true, -1, true},
		{"equal bools", true, true, 0, true},
		{"times", t1, t1.Add(time.Second), -1, true},
		{"mixed", "1", int64(1), 0, false},
		{"nil", nil, "a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CompareValues(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, EqualValues(t1, t1.In(time.FixedZone("x", 7200))))
	assert.False(t, EqualValues("a", nil))
}

func TestConversions(t *testing.T) {
	n, err := toInt("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), n)
	_, err = toInt(2.5)
	assert.Error(t, err)
	n, err = toInt(uint8(7))
	assert.NoError(t, err)
	assert.Equal(t, int64(7), n)

	f, err := toFloat("1.25")
	assert.NoError(t, err)
	assert.Equal(t, 1.25, f)
	_, err = toFloat("NaN")
	assert.Error(t, err)

	b, err := toBool("TRUE")
	assert.NoError(t, err)
	assert.True(t, b)

	for _, s := range []string{"2024-03-01T10:20:30.5+02:00", "2024-03-01T08:20:30.5", "2024-03-01T08:20", "2024-03-01"} {
		tm, err := toTime(s)
		assert.NoError(t, err, s)
		assert.Equal(t, time.UTC, tm.Location(), s)
		assert.Equal(t, 2024, tm.Year())
	}
	tm, err := toTime("2024-03-01T10:20:30.5+02:00")
	assert.NoError(t, err)
	assert.Equal(t, 8, tm.Hour())
}
