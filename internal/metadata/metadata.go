//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package metadata declares the metadata domain used by the CLI, the HTTP
// server and the engine tests: data elements, their groups and group sets,
// category combinations and the organisation unit hierarchy.
package metadata

import (
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// Registered type names.
const (
	TypeDataElement         = "DataElement"
	TypeDataElementGroup    = "DataElementGroup"
	TypeDataElementGroupSet = "DataElementGroupSet"
	TypeCategoryCombo       = "CategoryCombo"
	TypeOrganisationUnit    = "OrganisationUnit"
)

// CategoryCombo is a combination of categories a data element is disaggregated by.
type CategoryCombo struct {
	ID   string `query:"id,identifier" yaml:"id" json:"id"`
	Code string `query:"code" yaml:"code" json:"code,omitempty"`
	Name string `query:"name" yaml:"name" json:"name"`
}

// DataElement is a single collected value definition.
type DataElement struct {
	ID                string              `query:"id,identifier" yaml:"id" json:"id"`
	Code              *string             `query:"code" yaml:"code" json:"code,omitempty"`
	Name              string              `query:"name" yaml:"name" json:"name"`
	ShortName         string              `query:"shortName" yaml:"shortName" json:"shortName,omitempty"`
	ValueType         string              `query:"valueType" yaml:"valueType" json:"valueType,omitempty"`
	ZeroIsSignificant bool                `query:"zeroIsSignificant" yaml:"zeroIsSignificant" json:"zeroIsSignificant"`
	Created           time.Time           `query:"created" yaml:"created" json:"created"`
	CategoryCombo     *CategoryCombo      `query:"categoryCombo" yaml:"-" json:"categoryCombo,omitempty"`
	DataElementGroups []*DataElementGroup `query:"dataElementGroups" yaml:"-" json:"dataElementGroups,omitempty"`
}

// DataElementGroup groups data elements.
type DataElementGroup struct {
	ID           string                 `query:"id,identifier" yaml:"id" json:"id"`
	Code         *string                `query:"code" yaml:"code" json:"code,omitempty"`
	Name         string                 `query:"name" yaml:"name" json:"name"`
	Created      time.Time              `query:"created" yaml:"created" json:"created"`
	DataElements []*DataElement         `query:"dataElements" yaml:"-" json:"dataElements,omitempty"`
	GroupSets    []*DataElementGroupSet `query:"groupSets" yaml:"-" json:"groupSets,omitempty"`
}

// DataElementGroupSet groups data element groups.
type DataElementGroupSet struct {
	ID                string              `query:"id,identifier" yaml:"id" json:"id"`
	Name              string              `query:"name" yaml:"name" json:"name"`
	Compulsory        bool                `query:"compulsory" yaml:"compulsory" json:"compulsory"`
	DataElementGroups []*DataElementGroup `query:"dataElementGroups" yaml:"-" json:"dataElementGroups,omitempty"`
}

// OrganisationUnit is a node of the organisation unit hierarchy.
type OrganisationUnit struct {
	ID          string              `query:"id,identifier" yaml:"id" json:"id"`
	Name        string              `query:"name" yaml:"name" json:"name"`
	Level       int                 `query:"level" yaml:"level" json:"level"`
	OpeningDate *time.Time          `query:"openingDate" yaml:"openingDate" json:"openingDate,omitempty"`
	Parent      *OrganisationUnit   `query:"parent" yaml:"-" json:"parent,omitempty"`
	Children    []*OrganisationUnit `query:"children" yaml:"-" json:"children,omitempty"`
}

// NewRegistry registers every metadata type.
func NewRegistry() (*schema.Registry, error) {
	return schema.NewBuilder().
		Entity(TypeCategoryCombo, CategoryCombo{}).
		Entity(TypeDataElement, DataElement{}).
		Entity(TypeDataElementGroup, DataElementGroup{}).
		Entity(TypeDataElementGroupSet, DataElementGroupSet{}).
		Entity(TypeOrganisationUnit, OrganisationUnit{}).
		Build()
}

// MustRegistry is NewRegistry for tests and program setup.
func MustRegistry() *schema.Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// NewID returns a fresh identifier for objects loaded without one.
func NewID() string {
	return uuid.NewString()
}

// AddToGroup links a data element and a group in both directions.
func AddToGroup(de *DataElement, g *DataElementGroup) {
	de.DataElementGroups = append(de.DataElementGroups, g)
	g.DataElements = append(g.DataElements, de)
}

// AddToGroupSet links a group and a group set in both directions.
func AddToGroupSet(g *DataElementGroup, gs *DataElementGroupSet) {
	g.GroupSets = append(g.GroupSets, gs)
	gs.DataElementGroups = append(gs.DataElementGroups, g)
}

// SetParent links an organisation unit to its parent.
func SetParent(child, parent *OrganisationUnit) {
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
