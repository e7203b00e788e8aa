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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
)

func TestSetPager(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		first, limit int
	}{
		{name: "first page", page: 1, size: 10, first: 0, limit: 10},
		{name: "third page", page: 3, size: 10, first: 20, limit: 10},
		{name: "page below one", page: -4, size: 5, first: 0, limit: 5},
		{name: "paging disabled", page: 3, size: 0, first: 0, limit: 0},
		{name: "offset saturates", page: math.MaxInt/4 + 2, size: 4, first: math.MaxInt, limit: 4},
		{name: "max page", page: math.MaxInt, size: math.MaxInt, first: math.MaxInt, limit: math.MaxInt},
		{name: "largest exact offset", page: math.MaxInt/8 + 1, size: 8, first: math.MaxInt / 8 * 8, limit: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(metadata.TypeDataElement).SetPager(tt.page, tt.size)
			assert.Equal(t, tt.first, q.FirstResult())
			assert.Equal(t, tt.limit, q.MaxResults())
			assert.GreaterOrEqual(t, q.FirstResult(), 0)
		})
	}
}
