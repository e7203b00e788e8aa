//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package enginetest is the behaviour suite every engine.Engine must pass.
package enginetest

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// Factory builds an engine serving the objects of set.
type Factory func(t *testing.T, set *metadata.Set) engine.Engine

// T0 is the creation time of the first data element in World.
var T0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return T0.AddDate(0, 0, n) }

// World returns the fixed metadata graph the suite queries.
//
//	deA "ANC 1st visit"  code DE_A  day 0  combo cc1
//	deB "ANC 2nd visit"  no code    day 1  combo cc2
//	deC "Malaria cases"  code DE_C  day 2  no combo
//	deD "Measles doses"  code DE_D  day 3  no combo
//	deE "BCG doses"      code DE_E  day 3  no combo
//	deF "Penta doses"    code DE_F  day 4  no combo
//
// Group gA holds A, B, C, D; gB holds D, E, F; gC is empty. Set gsX holds gA
// and gB, gsY holds gC.
func World() *metadata.Set {
	cc1 := &metadata.CategoryCombo{ID: "cc1", Code: "CC_DEFAULT", Name: "Default"}
	cc2 := &metadata.CategoryCombo{ID: "cc2", Code: "CC_BIRTHS", Name: "Births"}
	de := func(id, name string, code *string, created time.Time, cc *metadata.CategoryCombo) *metadata.DataElement {
		return &metadata.DataElement{
			ID: id, Name: name, ShortName: name, Code: code, Created: created,
			ValueType: "NUMBER", CategoryCombo: cc,
		}
	}
	deA := de("deA", "ANC 1st visit", metadata.StrPtr("DE_A"), day(0), cc1)
	deB := de("deB", "ANC 2nd visit", nil, day(1), cc2)
	deC := de("deC", "Malaria cases", metadata.StrPtr("DE_C"), day(2), nil)
	deD := de("deD", "Measles doses", metadata.StrPtr("DE_D"), day(3), nil)
	deE := de("deE", "BCG doses", metadata.StrPtr("DE_E"), day(3), nil)
	deF := de("deF", "Penta doses", metadata.StrPtr("DE_F"), day(4), nil)
	deA.ZeroIsSignificant = true
	deB.ValueType = "TEXT"

	gA := &metadata.DataElementGroup{ID: "gA", Name: "ANC group", Code: metadata.StrPtr("G_ANC"), Created: day(0)}
	gB := &metadata.DataElementGroup{ID: "gB", Name: "Doses group", Created: day(1)}
	gC := &metadata.DataElementGroup{ID: "gC", Name: "Empty group", Created: day(2)}
	for _, d := range []*metadata.DataElement{deA, deB, deC, deD} {
		metadata.AddToGroup(d, gA)
	}
	for _, d := range []*metadata.DataElement{deD, deE, deF} {
		metadata.AddToGroup(d, gB)
	}
	gsX := &metadata.DataElementGroupSet{ID: "gsX", Name: "Main set", Compulsory: true}
	gsY := &metadata.DataElementGroupSet{ID: "gsY", Name: "Other set"}
	metadata.AddToGroupSet(gA, gsX)
	metadata.AddToGroupSet(gB, gsX)
	metadata.AddToGroupSet(gC, gsY)

	opened := day(10)
	sl := &metadata.OrganisationUnit{ID: "ouSL", Name: "Sierra Leone", Level: 1}
	bo := &metadata.OrganisationUnit{ID: "ouBo", Name: "Bo", Level: 2, OpeningDate: &opened}
	ke := &metadata.OrganisationUnit{ID: "ouKe", Name: "Kenema", Level: 2}
	metadata.SetParent(bo, sl)
	metadata.SetParent(ke, sl)

	return &metadata.Set{
		CategoryCombos:       []*metadata.CategoryCombo{cc1, cc2},
		DataElements:         []*metadata.DataElement{deA, deB, deC, deD, deE, deF},
		DataElementGroups:    []*metadata.DataElementGroup{gA, gB, gC},
		DataElementGroupSets: []*metadata.DataElementGroupSet{gsX, gsY},
		OrganisationUnits:    []*metadata.OrganisationUnit{sl, bo, ke},
	}
}

// TiedWorld returns data elements that share name and timestamps, inserted
// out of identifier order.
func TiedWorld() *metadata.Set {
	set := &metadata.Set{}
	for _, id := range []string{"tie3", "tie1", "tie5", "tie2", "tie4"} {
		set.DataElements = append(set.DataElements, &metadata.DataElement{ID: id, Name: "Same", Created: T0})
	}
	return set
}

// UnicodeWorld returns data elements whose names need more than ASCII case
// folding.
func UnicodeWorld() *metadata.Set {
	set := &metadata.Set{}
	for id, name := range map[string]string{
		"uni1": "ÅLAND Visit",
		"uni2": "åland visit",
		"uni3": "Ísafjörður",
		"uni4": "ÉCOLE",
	} {
		set.DataElements = append(set.DataElements, &metadata.DataElement{ID: id, Name: name, Created: T0})
	}
	return set
}

// IDs returns the identifiers of objs in order.
func IDs(r *schema.Registry, objs []any) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		s, ok := r.SchemaOf(o)
		if !ok {
			out = append(out, "?")
			continue
		}
		out = append(out, s.ID(o))
	}
	return out
}

// SortedIDs returns the identifiers of objs sorted.
func SortedIDs(r *schema.Registry, objs []any) []string {
	ids := IDs(r, objs)
	sort.Strings(ids)
	return ids
}

// Run executes the suite against engines built by newEngine.
func Run(t *testing.T, newEngine Factory) {
	r := metadata.MustRegistry()
	world := newEngine(t, World())
	ctx := context.Background()
	p := query.NewParser(r)

	run := func(t *testing.T, e engine.Engine, q *query.Query) []string {
		t.Helper()
		items, err := e.Execute(ctx, q)
		require.NoError(t, err, q.String())
		return SortedIDs(r, items)
	}
	parse := func(t *testing.T, typeName string, root query.JunctionKind, tokens ...string) *query.Query {
		t.Helper()
		q, err := p.Parse(typeName, tokens, query.WithRootJunction(root))
		require.NoError(t, err)
		return q
	}
	des := metadata.TypeDataElement

	t.Run("identifier equality under AND and OR", func(t *testing.T) {
		tokens := []string{"id:eq:deA", "id:eq:deC", "id:eq:deF"}
		assert.Empty(t, run(t, world, parse(t, des, query.And, tokens...)))
		assert.Equal(t, []string{"deA", "deC", "deF"}, run(t, world, parse(t, des, query.Or, tokens...)))
	})

	t.Run("like modes", func(t *testing.T) {
		tests := []struct {
			token string
			want  []string
		}{
			{"name:like:doses", []string{"deD", "deE", "deF"}},
			{"name:like:es", []string{"deC", "deD", "deE", "deF"}},
			{"name:$like:ANC", []string{"deA", "deB"}},
			{"name:$like:visit", nil},
			{"name:like$:visit", []string{"deA", "deB"}},
			{"name:like$:ANC", nil},
			{"name:like:anc", nil},
			{"name:ilike:anc", []string{"deA", "deB"}},
			{"name:$ilike:anc 1", []string{"deA"}},
			{"name:ilike$:DOSES", []string{"deD", "deE", "deF"}},
			{"name:!like:doses", []string{"deA", "deB", "deC"}},
			{"name:!$ilike:anc", []string{"deC", "deD", "deE", "deF"}},
			{"name:!ilike$:VISIT", []string{"deC", "deD", "deE", "deF"}},
			{"name:ieq:malaria CASES", []string{"deC"}},
			{"name:ieq:malaria", nil},
			{"name:like:%", nil},
			{"name:like:_", nil},
			{"name:like:*", nil},
			{"name:like:?", nil},
			{"name:like:[", nil},
		}
		for _, tt := range tests {
			t.Run(tt.token, func(t *testing.T) {
				got := run(t, world, parse(t, des, query.And, tt.token))
				if tt.want == nil {
					assert.Empty(t, got)
					return
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("range boundaries", func(t *testing.T) {
		lower, upper := day(1).Format(time.RFC3339), day(3).Format(time.RFC3339)
		tests := []struct {
			typeName string
			filter   *query.Filter
			want     []string
		}{
			{des, query.Between("created", lower, upper), []string{"deB", "deC", "deD", "deE"}},
			{des, query.Gt("created", lower), []string{"deC", "deD", "deE", "deF"}},
			{des, query.Ge("created", lower), []string{"deB", "deC", "deD", "deE", "deF"}},
			{des, query.Lt("created", upper), []string{"deA", "deB", "deC"}},
			{des, query.Le("created", upper), []string{"deA", "deB", "deC", "deD", "deE"}},
			{des, query.Gt("name", "Measles doses"), []string{"deF"}},
			{metadata.TypeOrganisationUnit, query.Between("level", 2, 2), []string{"ouBo", "ouKe"}},
			{metadata.TypeOrganisationUnit, query.Lt("level", 2), []string{"ouSL"}},
		}
		for _, tt := range tests {
			t.Run(tt.filter.String(), func(t *testing.T) {
				assert.Equal(t, tt.want, run(t, world, query.New(tt.typeName).Add(tt.filter)))
			})
		}
	})

	t.Run("deep paths are existential", func(t *testing.T) {
		got := run(t, world, parse(t, metadata.TypeDataElementGroupSet, query.And,
			"dataElementGroups.dataElements.name:like$:doses"))
		assert.Equal(t, []string{"gsX"}, got)

		got = run(t, world, parse(t, des, query.And, "dataElementGroups.groupSets.name:eq:Main set"))
		assert.Equal(t, []string{"deA", "deB", "deC", "deD", "deE", "deF"}, got)

		got = run(t, world, parse(t, des, query.And, "dataElementGroups.name:!eq:ANC group"))
		assert.Equal(t, []string{"deD", "deE", "deF"}, got, "deD is also in a group that is not gA")

		got = run(t, world, parse(t, metadata.TypeDataElementGroup, query.And, "dataElements.categoryCombo.name:eq:Births"))
		assert.Equal(t, []string{"gA"}, got)

		got = run(t, world, parse(t, metadata.TypeOrganisationUnit, query.And, "parent.name:eq:Sierra Leone"))
		assert.Equal(t, []string{"ouBo", "ouKe"}, got)

		got = run(t, world, parse(t, metadata.TypeOrganisationUnit, query.And, "children.openingDate:null"))
		assert.Equal(t, []string{"ouSL"}, got)
	})

	t.Run("unresolvable path fails evaluation", func(t *testing.T) {
		_, err := world.Execute(ctx, query.New(des).Add(query.Eq("dataElementGroups.id.name", "x")))
		var ee *query.EvalError
		require.ErrorAs(t, err, &ee)
		assert.ErrorIs(t, err, schema.ErrUnknownPath)

		_, err = world.Count(ctx, query.New(des).Add(query.Like("nope", "x", query.Anywhere)))
		assert.ErrorIs(t, err, query.ErrEval)
	})

	t.Run("collection size", func(t *testing.T) {
		g := metadata.TypeDataElementGroup
		assert.Equal(t, []string{"gA"}, run(t, world, parse(t, g, query.And, "dataElements:eq:4")))
		assert.Equal(t, []string{"gB"}, run(t, world, query.New(g).Add(query.SizeEq("dataElements", 3))))
		assert.Equal(t, []string{"gC"}, run(t, world, parse(t, g, query.And, "dataElements:empty")))
		assert.Empty(t, run(t, world, parse(t, g, query.And, "dataElements:eq:5")))
		assert.Equal(t, []string{"gA", "gB"}, run(t, world, parse(t, g, query.And, "dataElements:!null")))
		assert.Equal(t, []string{"gC"}, run(t, world, parse(t, g, query.And, "dataElements:null")))
		assert.Equal(t, []string{"deD"}, run(t, world, parse(t, des, query.And, "dataElementGroups:eq:2")))
	})

	t.Run("absent values", func(t *testing.T) {
		assert.Equal(t, []string{"deB"}, run(t, world, parse(t, des, query.And, "code:null")))
		assert.Equal(t, []string{"deA", "deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "code:!null")))
		assert.Equal(t, []string{"deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "code:!eq:DE_A")),
			"absent code never satisfies a negation")
		assert.Equal(t, []string{"deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "code:!in:[DE_A,DE_X]")))
		assert.Equal(t, []string{"deA", "deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "code:!like:X")))
		assert.Equal(t, []string{"deA", "deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "code:!ilike:x")))
		assert.Empty(t, run(t, world, parse(t, des, query.And, "categoryCombo.name:null")),
			"absent references reach nothing")
		assert.Equal(t, []string{"ouBo"}, run(t, world, parse(t, metadata.TypeOrganisationUnit, query.And, "openingDate:!null")))
	})

	t.Run("references", func(t *testing.T) {
		assert.Equal(t, []string{"deA"}, run(t, world, parse(t, des, query.And, "categoryCombo:eq:cc1")))
		assert.Equal(t, []string{"deB"}, run(t, world, parse(t, des, query.And, "categoryCombo:!eq:cc1")))
		assert.Equal(t, []string{"deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "categoryCombo:null")))
		assert.Equal(t, []string{"deA"}, run(t, world, parse(t, des, query.And, "categoryCombo.name:eq:Default")))
		assert.Equal(t, []string{"deA", "deB"}, run(t, world, parse(t, des, query.And, "categoryCombo.id:in:[cc1,cc2]")))
		assert.Equal(t, []string{"deD", "deE", "deF"},
			run(t, world, query.New(des).Add(query.Eq("dataElementGroups", &metadata.DataElementGroup{ID: "gB"}))))
	})

	t.Run("scalars", func(t *testing.T) {
		assert.Equal(t, []string{"deA"}, run(t, world, parse(t, des, query.And, "zeroIsSignificant:eq:true")))
		assert.Equal(t, []string{"deB", "deC", "deD", "deE", "deF"}, run(t, world, parse(t, des, query.And, "zeroIsSignificant:!eq:true")))
		assert.Equal(t, []string{"deB"}, run(t, world, parse(t, des, query.And, "valueType:in:[TEXT,DATE]")))
		assert.Equal(t, []string{"deD", "deE"}, run(t, world, parse(t, des, query.And, "created:eq:"+day(3).Format(time.RFC3339))))
		assert.Equal(t, []string{"ouBo", "ouKe"}, run(t, world, parse(t, metadata.TypeOrganisationUnit, query.And, "level:gt:1")))
		assert.Equal(t, []string{"gsX"}, run(t, world, parse(t, metadata.TypeDataElementGroupSet, query.And, "compulsory:eq:true")))
	})

	t.Run("nested junctions", func(t *testing.T) {
		q := query.New(des)
		or := q.Disjunction().Add(query.Eq("id", "deA"), query.Eq("id", "deF"))
		and := q.Conjunction().Add(query.Like("name", "doses", query.Anywhere), query.Ge("created", day(4)))
		q.Add(or, and)
		assert.Equal(t, []string{"deF"}, run(t, world, q))

		q = query.New(des, query.WithRootJunction(query.Or))
		q.Add(q.Conjunction().Add(query.Eq("id", "deA"), query.Eq("code", "DE_A")), query.Eq("id", "deC"))
		assert.Equal(t, []string{"deA", "deC"}, run(t, world, q))

		assert.Len(t, run(t, world, query.New(des, query.WithRootJunction(query.Or))), 6, "an empty root matches everything")
		assert.Len(t, run(t, world, query.New(des).Add(query.Disjunction())), 6)
	})

	t.Run("pagination", func(t *testing.T) {
		page := func(n int) []string {
			q := parse(t, des, query.And)
			q.SetDefaultOrder().SetPager(n, 3)
			items, err := world.Execute(ctx, q)
			require.NoError(t, err)
			return IDs(r, items)
		}
		p1, p2, p3 := page(1), page(2), page(3)
		require.Len(t, p1, 3)
		require.Len(t, p2, 3)
		assert.Empty(t, p3)
		all := append(append([]string{}, p1...), p2...)
		sort.Strings(all)
		assert.Equal(t, []string{"deA", "deB", "deC", "deD", "deE", "deF"}, all)
		// name ASC: ANC 1st, ANC 2nd, BCG, Malaria, Measles, Penta
		assert.Equal(t, []string{"deA", "deB", "deE"}, p1)
		assert.Equal(t, []string{"deC", "deD", "deF"}, p2)

		n, err := world.Count(ctx, parse(t, des, query.And).SetPager(2, 2))
		require.NoError(t, err)
		assert.Equal(t, 6, n, "count ignores pagination")

		q := parse(t, des, query.And)
		q.SetFirstResult(5).SetMaxResults(10)
		items, err := world.Execute(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"deF"}, IDs(r, items))

		for _, n := range []int{1<<20 + 1, math.MaxInt/3 + 1, math.MaxInt} {
			assert.Empty(t, page(n), "page %d is beyond the last page", n)
		}
	})

	t.Run("ordering", func(t *testing.T) {
		exec := func(orders ...query.Order) []string {
			items, err := world.Execute(ctx, query.New(des).AddOrders(orders...))
			require.NoError(t, err)
			return IDs(r, items)
		}
		assert.Equal(t, []string{"deF", "deD", "deC", "deE", "deB", "deA"},
			exec(query.Order{Path: "name", Direction: query.Desc}))
		assert.Equal(t, []string{"deF", "deD", "deE", "deC", "deB", "deA"},
			exec(query.Order{Path: "created", Direction: query.Desc}, query.Order{Path: "code"}))
		assert.Equal(t, []string{"deA", "deB", "deC", "deE", "deD", "deF"},
			exec(query.Order{Path: "created"}, query.Order{Path: "name"}))
		assert.Equal(t, []string{"deB", "deA", "deC", "deD", "deE", "deF"},
			exec(query.Order{Path: "code"}), "absent values sort first ascending")
		assert.Equal(t, []string{"deF", "deE", "deD", "deC", "deA", "deB"},
			exec(query.Order{Path: "code", Direction: query.Desc}), "absent values sort last descending")
		assert.Equal(t, []string{"deC", "deD", "deE", "deF", "deB", "deA"},
			exec(query.Order{Path: "categoryCombo.name"}), "absent references first, then Births and Default")
		assert.Equal(t, []string{"deA", "deB", "deC", "deD", "deE", "deF"},
			exec(query.Order{Path: "categoryCombo.name", Direction: query.Desc}), "absent values sort last descending")
		assert.Equal(t, []string{"deC", "deD", "deE", "deF", "deA", "deB"},
			exec(query.Order{Path: "categoryCombo"}), "references sort by identifier")
	})

	t.Run("case folding beyond ascii", func(t *testing.T) {
		uni := newEngine(t, UnicodeWorld())
		tests := []struct {
			token string
			want  []string
		}{
			{"name:ieq:åland visit", []string{"uni1", "uni2"}},
			{"name:ieq:ÅLAND VISIT", []string{"uni1", "uni2"}},
			{"name:ilike:ÍSAFJ", []string{"uni3"}},
			{"name:$ilike:école", []string{"uni4"}},
			{"name:ilike$:JÖRÐUR", []string{"uni3"}},
			{"name:!ilike:åland", []string{"uni3", "uni4"}},
			{"name:like:ÅLAND", []string{"uni1"}},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, run(t, uni, parse(t, des, query.And, tt.token)), tt.token)
		}
	})

	t.Run("default order breaks ties by identifier", func(t *testing.T) {
		tied := newEngine(t, TiedWorld())
		want := []string{"tie1", "tie2", "tie3", "tie4", "tie5"}
		for i := 0; i < 3; i++ {
			q := query.New(des).SetDefaultOrder()
			items, err := tied.Execute(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, want, IDs(r, items))
		}
		items, err := tied.Execute(ctx, query.New(des).AddOrder("created", query.Asc))
		require.NoError(t, err)
		assert.Equal(t, want, IDs(r, items))
	})
}
