//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"trpc.group/trpc-go/trpc-query-go/log"
)

const (
	// DefaultCacheSkipTypes applies when the setting is absent or empty.
	DefaultCacheSkipTypes = "OrganisationUnit"
	// EnvCacheSkipTypes overrides cache.skip_types.
	EnvCacheSkipTypes = "TRPC_QUERY_CACHE_SKIP_TYPES"
)

// CacheSkip is an immutable snapshot of the types whose queries must not be
// served from the result cache.
type CacheSkip struct {
	version uint64
	types   map[string]struct{}
}

// ParseCacheSkip parses a comma separated type list. Entries are trimmed and
// matched exactly; an empty list falls back to DefaultCacheSkipTypes.
func ParseCacheSkip(raw string) *CacheSkip {
	s := &CacheSkip{types: parseTypes(raw)}
	if len(s.types) == 0 {
		s.types = parseTypes(DefaultCacheSkipTypes)
	}
	return s
}

func parseTypes(raw string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}

// Version identifies the snapshot. Every published snapshot has a new version.
func (s *CacheSkip) Version() uint64 { return s.version }

// Skips reports whether queries on typeName bypass the cache.
func (s *CacheSkip) Skips(typeName string) bool {
	_, ok := s.types[typeName]
	return ok
}

// Types returns the skipped type names sorted.
func (s *CacheSkip) Types() []string {
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CacheSkipProvider publishes CacheSkip snapshots. Readers take a snapshot
// per query and never see a partially applied change.
type CacheSkipProvider struct {
	mu  sync.Mutex
	cur atomic.Pointer[CacheSkip]
}

// NewCacheSkipProvider publishes raw as the first snapshot.
func NewCacheSkipProvider(raw string) *CacheSkipProvider {
	p := &CacheSkipProvider{}
	s := ParseCacheSkip(raw)
	s.version = 1
	p.cur.Store(s)
	return p
}

// Snapshot returns the current snapshot.
func (p *CacheSkipProvider) Snapshot() *CacheSkip {
	return p.cur.Load()
}

// Set parses raw and publishes it under a new version.
func (p *CacheSkipProvider) Set(raw string) *CacheSkip {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := ParseCacheSkip(raw)
	s.version = p.cur.Load().version + 1
	p.cur.Store(s)
	log.Warnf("config: cache skip types now %v (version %d)", s.Types(), s.version)
	return s
}
