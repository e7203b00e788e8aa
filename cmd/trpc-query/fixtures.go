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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/log"
)

var errNoFixtureMatch = errors.New("fixture pattern matched no files")

// expandFixtures resolves doublestar patterns such as "data/**/*.yaml" into
// file paths. Every pattern must match at least one file; duplicates are
// dropped.
func expandFixtures(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %s", errNoFixtureMatch, pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			p := filepath.Join(base, filepath.FromSlash(m))
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// loadFixtures reads and links every file matched by patterns.
func loadFixtures(patterns []string) (*metadata.Set, error) {
	paths, err := expandFixtures(patterns)
	if err != nil {
		return nil, err
	}
	log.Debugf("loading fixtures from %d files", len(paths))
	return metadata.LoadFiles(paths...)
}
