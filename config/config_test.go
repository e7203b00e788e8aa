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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
store:
  driver: postgres
  dsn: postgres://localhost/query
cache:
  enabled: false
  ttl: 30s
  skip_types: "DataElement, OrganisationUnit"
memory:
  parallelism: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.Size, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Memory.Parallelism)
	assert.Equal(t, 2048, cfg.Memory.ParallelThreshold)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvCacheSkipTypes, "DataElementGroup")
	cfg, err := Load(writeFile(t, "cache:\n  skip_types: DataElement\n"))
	require.NoError(t, err)
	assert.Equal(t, "DataElementGroup", cfg.Cache.SkipTypes)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "store: [oops"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "store:\n  driver: mysql\n"))
	assert.ErrorIs(t, err, errUnknownDriver)

	_, err = Load(writeFile(t, "store:\n  dsn: \"\"\n"))
	assert.ErrorIs(t, err, errEmptyDSN)
}

func TestParseCacheSkip(t *testing.T) {
	cases := []struct {
		raw      string
		expected []string
	}{
		{"", []string{"OrganisationUnit"}},
		{" , ,", []string{"OrganisationUnit"}},
		{"DataElement", []string{"DataElement"}},
		{" DataElement ,OrganisationUnit ,", []string{"DataElement", "OrganisationUnit"}},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			assert.Equal(t, c.expected, ParseCacheSkip(c.raw).Types())
		})
	}

	s := ParseCacheSkip("DataElement")
	assert.True(t, s.Skips("DataElement"))
	assert.False(t, s.Skips("dataelement"), "names match exactly")
	assert.False(t, s.Skips("OrganisationUnit"))
}

func TestCacheSkipProvider(t *testing.T) {
	p := NewCacheSkipProvider("")
	first := p.Snapshot()
	assert.Equal(t, uint64(1), first.Version())
	assert.True(t, first.Skips("OrganisationUnit"))

	second := p.Set("DataElement")
	assert.Equal(t, uint64(2), second.Version())
	assert.Same(t, second, p.Snapshot())
	assert.True(t, second.Skips("DataElement"))
	assert.False(t, second.Skips("OrganisationUnit"))

	// Earlier snapshots are never mutated.
	assert.True(t, first.Skips("OrganisationUnit"))
	assert.False(t, first.Skips("DataElement"))
}

func TestCacheSkipProviderConcurrentSet(t *testing.T) {
	p := NewCacheSkipProvider("")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Set("DataElement")
			_ = p.Snapshot().Skips("DataElement")
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(17), p.Snapshot().Version())
}
