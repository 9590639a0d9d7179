// Package spec holds the declarative domain specification: a named group of
// related tables, loaded from YAML into an explicit tree that the compiler
// consumes. Column and child declaration order is preserved because it is
// significant for the generated DDL.
package spec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec marks configuration errors: a specification that is
// structurally malformed or references things it does not define.
var ErrInvalidSpec = errors.New("invalid domain specification")

// IndexPolicy decides which columns receive an index automatically.
type IndexPolicy string

const (
	IndexPolicySelected IndexPolicy = "selected"
	IndexPolicyExplicit IndexPolicy = "explicit"
	IndexPolicyAll      IndexPolicy = "all"
)

// ParseIndexPolicy normalizes a raw policy value. An empty value defaults to
// "selected"; the legacy spelling "unless excluded" is accepted for "all".
func ParseIndexPolicy(raw string) (IndexPolicy, error) {
	switch raw {
	case "", "selected":
		return IndexPolicySelected, nil
	case "explicit":
		return IndexPolicyExplicit, nil
	case "all", "unless excluded":
		return IndexPolicyAll, nil
	default:
		return "", fmt.Errorf("%w: invalid indexing policy %q", ErrInvalidSpec, raw)
	}
}

// Action is the configured response to an invalid row.
type Action string

const (
	ActionInsert Action = "insert"
	ActionIgnore Action = "ignore"
)

// Spec is one parsed specification file: global values plus the domains it
// declares, in declaration order.
type Spec struct {
	Globals map[string]string
	Domains []*DomainSpec
}

// Domain returns the named domain, or nil if the file does not declare it.
func (s *Spec) Domain(name string) *DomainSpec {
	for _, d := range s.Domains {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// DomainSpec is one named configuration unit: a schema, an index policy and a
// tree of tables.
type DomainSpec struct {
	Name        string
	Schema      string // "" means unqualified table names
	IndexPolicy IndexPolicy
	// AuxSchemas are the values of "schema.<suffix>" keys, in declaration
	// order. Each one gets its own CREATE SCHEMA statement.
	AuxSchemas []string
	// Values holds every scalar domain-level entry, addressable from
	// $-references inside the domain.
	Values map[string]string
	Tables []*Table
}

// Find locates a table by basename anywhere in the domain tree, depth-first.
func (d *DomainSpec) Find(name string) *Table {
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
		if found := t.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Table is one node in the domain's table tree.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Invalid    *InvalidPolicy
	Children   []*Table
}

// Find locates a descendant table by basename, depth-first.
func (t *Table) Find(name string) *Table {
	for _, c := range t.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Column is a single column entry: a bare name, or a name plus attributes.
type Column struct {
	Name   string
	Type   string // "" renders as VARCHAR
	Index  *IndexAttr
	Source *Source
}

// IsArray reports whether the declared type is an array type. Any type
// literal ending in "]" counts.
func (c Column) IsArray() bool {
	return strings.HasSuffix(c.Type, "]")
}

// IsGenerated reports whether the column is computed from a SQL expression.
func (c Column) IsGenerated() bool {
	return c.Source != nil && strings.EqualFold(c.Source.Type, "generated")
}

// IndexAttr carries an explicit index request on a column. A bare string in
// the source YAML populates only Name.
type IndexAttr struct {
	Name  string
	Using string
}

// Source describes where a column's values come from. Type "generated" means
// the column definition carries Code verbatim as its compute expression.
type Source struct {
	Type string
	Code string
}

// InvalidPolicy is the invalid-records handling declared on a table. Target
// references are resolved during loading, so TargetSchema and TargetTable are
// always literals here; empty values fall back to the domain schema and the
// owning table's basename.
type InvalidPolicy struct {
	Action       Action
	TargetSchema string
	TargetTable  string
}

// Ref is a domain-level value reference: either a literal, or the name of a
// scalar entry in the owning domain ("$name" in the source YAML).
type Ref struct {
	Literal string
	Name    string
}

// ParseRef interprets a scalar: a leading "$" makes it a named reference.
func ParseRef(raw string) Ref {
	if strings.HasPrefix(raw, "$") {
		return Ref{Name: raw[1:]}
	}
	return Ref{Literal: raw}
}

// Resolve returns the literal value, looking named references up in the
// domain's scalar values.
func (r Ref) Resolve(values map[string]string) (string, error) {
	if r.Name == "" {
		return r.Literal, nil
	}
	v, ok := values[r.Name]
	if !ok {
		return "", fmt.Errorf("%w: reference $%s has no value", ErrInvalidSpec, r.Name)
	}
	return v, nil
}
