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
	"math/rand"
	"time"
)

var (
	words      = []string{"ANC", "Visit", "Malaria", "Measles", "BCG", "Penta", "Fever", "Weight", "OPD", "anc"}
	valueTypes = []string{"NUMBER", "INTEGER", "TEXT", "BOOLEAN", "DATE"}
	baseTime   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Generate builds a random but reproducible metadata graph with about n data
// elements. Names and timestamps are drawn from small pools so that ties,
// shared prefixes and absent values all occur.
func Generate(seed int64, n int) *Set {
	rnd := rand.New(rand.NewSource(seed))
	set := &Set{}
	pick := func(xs []string) string { return xs[rnd.Intn(len(xs))] }
	id := func(prefix string, i int) string { return fmt.Sprintf("%s%08d", prefix, i) }
	when := func() time.Time { return baseTime.Add(time.Duration(rnd.Intn(5)) * 24 * time.Hour) }

	for i := 0; i < 3; i++ {
		set.CategoryCombos = append(set.CategoryCombos, &CategoryCombo{
			ID:   id("cc", i),
			Code: fmt.Sprintf("CC_%d", i),
			Name: pick(words) + " combo",
		})
	}

	for i := 0; i < max(n/3, 1); i++ {
		ou := &OrganisationUnit{ID: id("ou", i), Name: pick(words) + " unit", Level: 1}
		if rnd.Intn(3) > 0 {
			t := when()
			ou.OpeningDate = &t
		}
		if i > 0 {
			parent := set.OrganisationUnits[rnd.Intn(i)]
			ou.Level = parent.Level + 1
			SetParent(ou, parent)
		}
		set.OrganisationUnits = append(set.OrganisationUnits, ou)
	}

	for i := 0; i < n; i++ {
		de := &DataElement{
			ID:                id("de", i),
			Name:              pick(words) + " " + pick(words),
			ShortName:         pick(words),
			ValueType:         pick(valueTypes),
			ZeroIsSignificant: rnd.Intn(2) == 0,
			Created:           when(),
		}
		if rnd.Intn(4) > 0 {
			de.Code = StrPtr(fmt.Sprintf("DE_%d", rnd.Intn(n)))
		}
		if rnd.Intn(4) > 0 {
			de.CategoryCombo = set.CategoryCombos[rnd.Intn(len(set.CategoryCombos))]
		}
		set.DataElements = append(set.DataElements, de)
	}

	for i := 0; i < max(n/4, 1); i++ {
		g := &DataElementGroup{ID: id("deg", i), Name: pick(words) + " group", Created: when()}
		if rnd.Intn(2) == 0 {
			g.Code = StrPtr(fmt.Sprintf("DEG_%d", i))
		}
		if len(set.DataElements) > 0 {
			for _, j := range rnd.Perm(len(set.DataElements))[:rnd.Intn(min(6, len(set.DataElements)+1))] {
				AddToGroup(set.DataElements[j], g)
			}
		}
		set.DataElementGroups = append(set.DataElementGroups, g)
	}

	for i := 0; i < 3; i++ {
		gs := &DataElementGroupSet{ID: id("degs", i), Name: pick(words) + " set", Compulsory: i%2 == 0}
		for _, j := range rnd.Perm(len(set.DataElementGroups))[:rnd.Intn(len(set.DataElementGroups)+1)] {
			AddToGroupSet(set.DataElementGroups[j], gs)
		}
		set.DataElementGroupSets = append(set.DataElementGroupSets, gs)
	}
	return set
}
