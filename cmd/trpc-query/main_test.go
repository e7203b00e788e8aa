//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-query-go/server/rest"
)

const fixturePattern = "testdata/fixtures/**/*.yaml"

// run executes the CLI with args and returns its standard output.
func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// writeConfig points the store at a fresh SQLite file.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trpc-query.yaml")
	body := fmt.Sprintf("log:\n  level: error\nstore:\n  driver: sqlite\n  dsn: %q\ncache:\n  enabled: true\n  size: 16\n  ttl: 1m\n",
		"file:"+filepath.Join(dir, "store.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func decodePage(t *testing.T, out string) rest.Page {
	t.Helper()
	var page rest.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	return page
}

func ids(page rest.Page) []string {
	out := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, it["id"].(string))
	}
	return out
}

func TestExpandFixtures(t *testing.T) {
	paths, err := expandFixtures([]string{fixturePattern, "testdata/fixtures/base/*.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "fixtures", "base", "combos.yaml"),
		filepath.Join("testdata", "fixtures", "elements", "data_elements.yaml"),
	}, paths)

	_, err = expandFixtures([]string{"testdata/fixtures/**/*.json"})
	assert.ErrorIs(t, err, errNoFixtureMatch)
}

func TestLoadFixturesLinksAcrossFiles(t *testing.T) {
	set, err := loadFixtures([]string{fixturePattern})
	require.NoError(t, err)
	require.Len(t, set.DataElements, 3)
	assert.Equal(t, "cc1", set.DataElements[0].CategoryCombo.ID)
	require.Len(t, set.OrganisationUnits, 2)
	assert.Equal(t, "ouSL", set.OrganisationUnits[1].Parent.ID)
	assert.Len(t, set.All(), 9)
}

func TestQueryMemory(t *testing.T) {
	ctx := context.Background()
	out, err := run(t, ctx, "query", "DataElement",
		"--engine", "memory", "--fixtures", fixturePattern,
		"--filter", "name:ilike:anc", "--order", "created:desc")
	require.NoError(t, err)
	page := decodePage(t, out)
	assert.Equal(t, []string{"deB", "deA"}, ids(page))
	assert.Equal(t, rest.Pager{Page: 1, PageSize: 2, Total: 2, PageCount: 1}, page.Pager)
	assert.Equal(t, map[string]any{"id": "cc2"}, page.Items[0]["categoryCombo"])

	out, err = run(t, ctx, "query", "DataElement",
		"--engine", "memory", "--fixtures", fixturePattern,
		"--filter", "code:null", "--filter", "dataElementGroups.id:eq:gA",
		"--root-junction", "or", "--page", "2", "--page-size", "1")
	require.NoError(t, err)
	page = decodePage(t, out)
	assert.Equal(t, []string{"deB"}, ids(page), "default order is by name")
	assert.Equal(t, rest.Pager{Page: 2, PageSize: 1, Total: 2, PageCount: 2}, page.Pager)

	out, err = run(t, ctx, "query", "OrganisationUnit",
		"--engine", "memory", "--fixtures", fixturePattern, "--filter", "parent:null", "--count")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 1}`, out)
}

func TestLoadThenQueryStore(t *testing.T) {
	ctx := context.Background()
	cfg := writeConfig(t)

	out, err := run(t, ctx, "load", "--config", cfg, "--fixtures", fixturePattern)
	require.NoError(t, err)
	assert.Equal(t, "loaded 9 objects\n", out)

	// Loading twice overwrites instead of duplicating.
	_, err = run(t, ctx, "load", "--config", cfg, "--fixtures", fixturePattern)
	require.NoError(t, err)

	out, err = run(t, ctx, "query", "DataElement", "--config", cfg,
		"--filter", "dataElementGroups.groupSets.id:eq:gsX", "--order", "name:desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"deB", "deA"}, ids(decodePage(t, out)))

	out, err = run(t, ctx, "query", "DataElement", "--config", cfg, "--filter", "categoryCombo:null", "--count")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 1}`, out)
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		args []string
	}{
		{"missing type", []string{"query"}},
		{"memory without fixtures", []string{"query", "DataElement", "--engine", "memory"}},
		{"unknown engine", []string{"query", "DataElement", "--engine", "disk"}},
		{"bad junction", []string{"query", "DataElement", "--engine", "memory", "--fixtures", fixturePattern, "--root-junction", "XOR"}},
		{"bad filter", []string{"query", "DataElement", "--engine", "memory", "--fixtures", fixturePattern, "--filter", "name:near:x"}},
		{"unknown type", []string{"query", "Widget", "--engine", "memory", "--fixtures", fixturePattern}},
		{"load without fixtures", []string{"load"}},
		{"missing config", []string{"query", "DataElement", "--config", "does-not-exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, ctx, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "serve", "--addr", "127.0.0.1:0", "--engine", "memory", "--fixtures", fixturePattern)
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
