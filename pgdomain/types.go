package pgdomain

import (
	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/spec"
)

// Re-export important types for external consumption

// Spec is a parsed specification file: globals plus one or more domains.
type Spec = spec.Spec

// DomainSpec is the declaration of one domain inside a specification.
type DomainSpec = spec.DomainSpec

// Table is one table declaration, possibly with nested children.
type Table = spec.Table

// Column is one column declaration.
type Column = spec.Column

// IndexPolicy selects which columns receive indexes.
type IndexPolicy = spec.IndexPolicy

// Domain is a compiled domain exposing its DDL and index statements.
type Domain = compiler.Domain

// Statement is one compiled SQL statement with its kind and target table.
type Statement = compiler.Statement

// StatementKind classifies a compiled statement.
type StatementKind = compiler.StatementKind
