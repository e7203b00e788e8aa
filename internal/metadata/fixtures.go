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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Set is a linked object graph of metadata.
type Set struct {
	CategoryCombos       []*CategoryCombo
	DataElements         []*DataElement
	DataElementGroups    []*DataElementGroup
	DataElementGroupSets []*DataElementGroupSet
	OrganisationUnits    []*OrganisationUnit
}

// Objects returns the objects of one type in load order.
func (s *Set) Objects(typeName string) []any {
	var out []any
	switch typeName {
	case TypeCategoryCombo:
		for _, o := range s.CategoryCombos {
			out = append(out, o)
		}
	case TypeDataElement:
		for _, o := range s.DataElements {
			out = append(out, o)
		}
	case TypeDataElementGroup:
		for _, o := range s.DataElementGroups {
			out = append(out, o)
		}
	case TypeDataElementGroupSet:
		for _, o := range s.DataElementGroupSets {
			out = append(out, o)
		}
	case TypeOrganisationUnit:
		for _, o := range s.OrganisationUnits {
			out = append(out, o)
		}
	}
	return out
}

// All returns every object, referenced types first.
func (s *Set) All() []any {
	var out []any
	for _, t := range []string{
		TypeCategoryCombo, TypeOrganisationUnit, TypeDataElement,
		TypeDataElementGroup, TypeDataElementGroupSet,
	} {
		out = append(out, s.Objects(t)...)
	}
	return out
}

// fixtureFile is the on-disk shape: associations are written as identifiers.
type fixtureFile struct {
	CategoryCombos []CategoryCombo `yaml:"categoryCombos"`
	DataElements   []struct {
		DataElement   `yaml:",inline"`
		CategoryCombo string `yaml:"categoryCombo"`
	} `yaml:"dataElements"`
	DataElementGroups []struct {
		DataElementGroup `yaml:",inline"`
		DataElements     []string `yaml:"dataElements"`
	} `yaml:"dataElementGroups"`
	DataElementGroupSets []struct {
		DataElementGroupSet `yaml:",inline"`
		DataElementGroups   []string `yaml:"dataElementGroups"`
	} `yaml:"dataElementGroupSets"`
	OrganisationUnits []struct {
		OrganisationUnit `yaml:",inline"`
		Parent           string `yaml:"parent"`
	} `yaml:"organisationUnits"`
}

// LoadFiles reads fixture files and links them into one Set. Objects without an
// identifier get a generated one; references may point into any of the files.
func LoadFiles(paths ...string) (*Set, error) {
	var files []fixtureFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", p, err)
		}
		var f fixtureFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", p, err)
		}
		files = append(files, f)
	}
	return link(files)
}

func link(files []fixtureFile) (*Set, error) {
	set := &Set{}
	combos := map[string]*CategoryCombo{}
	elements := map[string]*DataElement{}
	groups := map[string]*DataElementGroup{}
	units := map[string]*OrganisationUnit{}

	ensureID := func(id *string) {
		if *id == "" {
			*id = NewID()
		}
	}

	for _, f := range files {
		for i := range f.CategoryCombos {
			cc := f.CategoryCombos[i]
			ensureID(&cc.ID)
			combos[cc.ID] = &cc
			set.CategoryCombos = append(set.CategoryCombos, &cc)
		}
		for i := range f.OrganisationUnits {
			ou := f.OrganisationUnits[i].OrganisationUnit
			ensureID(&ou.ID)
			units[ou.ID] = &ou
			set.OrganisationUnits = append(set.OrganisationUnits, &ou)
		}
		for i := range f.DataElements {
			de := f.DataElements[i].DataElement
			ensureID(&de.ID)
			elements[de.ID] = &de
			set.DataElements = append(set.DataElements, &de)
		}
		for i := range f.DataElementGroups {
			g := f.DataElementGroups[i].DataElementGroup
			ensureID(&g.ID)
			groups[g.ID] = &g
			set.DataElementGroups = append(set.DataElementGroups, &g)
		}
		for i := range f.DataElementGroupSets {
			gs := f.DataElementGroupSets[i].DataElementGroupSet
			ensureID(&gs.ID)
			set.DataElementGroupSets = append(set.DataElementGroupSets, &gs)
		}
	}

	// Second pass: resolve identifiers now that every file has been read.
	var (
		deIdx, gIdx, gsIdx, ouIdx int
	)
	for _, f := range files {
		for _, raw := range f.OrganisationUnits {
			ou := set.OrganisationUnits[ouIdx]
			ouIdx++
			if raw.Parent == "" {
				continue
			}
			parent, ok := units[raw.Parent]
			if !ok {
				return nil, fmt.Errorf("organisation unit %s: unknown parent %s", ou.ID, raw.Parent)
			}
			SetParent(ou, parent)
		}
		for _, raw := range f.DataElements {
			de := set.DataElements[deIdx]
			deIdx++
			if raw.CategoryCombo == "" {
				continue
			}
			cc, ok := combos[raw.CategoryCombo]
			if !ok {
				return nil, fmt.Errorf("data element %s: unknown category combo %s", de.ID, raw.CategoryCombo)
			}
			de.CategoryCombo = cc
		}
		for _, raw := range f.DataElementGroups {
			g := set.DataElementGroups[gIdx]
			gIdx++
			for _, id := range raw.DataElements {
				de, ok := elements[id]
				if !ok {
					return nil, fmt.Errorf("data element group %s: unknown data element %s", g.ID, id)
				}
				AddToGroup(de, g)
			}
		}
		for _, raw := range f.DataElementGroupSets {
			gs := set.DataElementGroupSets[gsIdx]
			gsIdx++
			for _, id := range raw.DataElementGroups {
				g, ok := groups[id]
				if !ok {
					return nil, fmt.Errorf("data element group set %s: unknown group %s", gs.ID, id)
				}
				AddToGroupSet(g, gs)
			}
		}
	}
	return set, nil
}
