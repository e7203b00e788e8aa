//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestRegistry(t *testing.T) {
	r := MustRegistry()
	for _, typeName := range []string{
		TypeCategoryCombo, TypeDataElement, TypeDataElementGroup,
		TypeDataElementGroupSet, TypeOrganisationUnit,
	} {
		_, ok := r.Schema(typeName)
		assert.True(t, ok, typeName)
	}
	s, ok := r.SchemaOf(&DataElement{ID: "x"})
	require.True(t, ok)
	assert.Equal(t, TypeDataElement, s.Name)
	assert.Equal(t, "x", s.ID(&DataElement{ID: "x"}))
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", `
categoryCombos:
  - id: cc1
    name: Default
organisationUnits:
  - name: Root
    level: 1
dataElements:
  - id: de1
    name: First
    categoryCombo: cc1
  - name: Second
`)
	b := writeFile(t, dir, "b.yaml", `
dataElementGroups:
  - id: g1
    name: Group
    dataElements: [de1]
dataElementGroupSets:
  - id: gs1
    name: Set
    dataElementGroups: [g1]
`)
	set, err := LoadFiles(a, b)
	require.NoError(t, err)

	require.Len(t, set.DataElements, 2)
	de1, de2 := set.DataElements[0], set.DataElements[1]
	assert.Same(t, set.CategoryCombos[0], de1.CategoryCombo)
	assert.Nil(t, de2.CategoryCombo)
	_, err = uuid.Parse(de2.ID)
	assert.NoError(t, err, "missing identifiers are generated")
	_, err = uuid.Parse(set.OrganisationUnits[0].ID)
	assert.NoError(t, err)

	g := set.DataElementGroups[0]
	assert.Equal(t, []*DataElement{de1}, g.DataElements)
	assert.Equal(t, []*DataElementGroup{g}, de1.DataElementGroups)
	assert.Equal(t, []*DataElementGroupSet{set.DataElementGroupSets[0]}, g.GroupSets)

	all := set.All()
	require.Len(t, all, 6)
	assert.IsType(t, &CategoryCombo{}, all[0], "referenced types come first")
	assert.IsType(t, &DataElementGroupSet{}, all[5])
}

func TestLoadFilesErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"unknown combo", "dataElements:\n  - id: de1\n    categoryCombo: nope\n"},
		{"unknown parent", "organisationUnits:\n  - id: ou1\n    parent: nope\n"},
		{"unknown member", "dataElementGroups:\n  - id: g1\n    dataElements: [nope]\n"},
		{"unknown group", "dataElementGroupSets:\n  - id: gs1\n    dataElementGroups: [nope]\n"},
		{"malformed yaml", "dataElements: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFiles(writeFile(t, dir, "f.yaml", tt.body))
			assert.Error(t, err)
		})
	}
	_, err := LoadFiles(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateIsReproducible(t *testing.T) {
	a, b := Generate(7, 40), Generate(7, 40)
	require.Len(t, a.DataElements, 40)
	for i := range a.DataElements {
		assert.Equal(t, a.DataElements[i].ID, b.DataElements[i].ID)
		assert.Equal(t, a.DataElements[i].Name, b.DataElements[i].Name)
		assert.Equal(t, a.DataElements[i].Created, b.DataElements[i].Created)
	}
	for _, ou := range a.OrganisationUnits[1:] {
		require.NotNil(t, ou.Parent)
		assert.Equal(t, ou.Parent.Level+1, ou.Level)
	}
}
