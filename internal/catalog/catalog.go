// Package catalog provides the type/property-schema catalog consumed by the
// repository engine. The engine only depends on the Catalog interface; the
// static catalog below is the built-in implementation covering the two base
// types.
package catalog

import (
	"errors"
	"fmt"

	"docvault/internal/model"
)

// ErrUnknownType is returned when a type id is not present in the catalog.
var ErrUnknownType = errors.New("unknown type")

// Cardinality of a property value.
type Cardinality string

const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
)

// Updatability constrains when a property may be set.
type Updatability string

const (
	UpdatabilityReadWrite Updatability = "readwrite"
	UpdatabilityReadOnly  Updatability = "readonly"
	UpdatabilityOnCreate  Updatability = "oncreate"
)

// PropertyDefinition describes one property of a type.
type PropertyDefinition struct {
	ID           string
	QueryName    string
	Cardinality  Cardinality
	Updatability Updatability
	Required     bool
	Default      any
}

// TypeDefinition describes a node type: its base kind plus property schema.
type TypeDefinition struct {
	ID         string
	Kind       model.Kind
	Properties []PropertyDefinition
}

// Property looks up a property definition by its query name.
func (t *TypeDefinition) Property(queryName string) (*PropertyDefinition, bool) {
	for i := range t.Properties {
		if t.Properties[i].QueryName == queryName {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// Catalog resolves type ids to definitions.
type Catalog interface {
	Definition(typeID string) (*TypeDefinition, error)
}

// StaticCatalog is an in-memory Catalog with a fixed set of types.
type StaticCatalog struct {
	types map[string]*TypeDefinition
}

// NewStatic builds a catalog containing the two base types, "folder" and
// "document", with the well-known properties.
func NewStatic() *StaticCatalog {
	shared := []PropertyDefinition{
		{ID: model.PropertyName, QueryName: model.PropertyName, Cardinality: CardinalitySingle, Updatability: UpdatabilityOnCreate, Required: true},
		{ID: model.PropertyDescription, QueryName: model.PropertyDescription, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite, Default: ""},
	}
	return &StaticCatalog{types: map[string]*TypeDefinition{
		"folder": {
			ID:         "folder",
			Kind:       model.KindFolder,
			Properties: shared,
		},
		"document": {
			ID:   "document",
			Kind: model.KindDocument,
			Properties: append([]PropertyDefinition{
				{ID: model.PropertyContentType, QueryName: model.PropertyContentType, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadOnly},
				{ID: model.PropertyFileName, QueryName: model.PropertyFileName, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadOnly},
			}, shared...),
		},
	}}
}

// Definition returns the type definition for the given id.
func (c *StaticCatalog) Definition(typeID string) (*TypeDefinition, error) {
	def, ok := c.types[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return def, nil
}
