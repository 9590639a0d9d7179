// Package compiler turns a domain specification into an ordered list of
// PostgreSQL DDL statements: schemas, tables with propagated foreign keys,
// spillover tables, validation triggers and indexes. Compilation is purely
// in-memory; execution is the executor package's concern.
package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pgdomain/pgdomain/internal/registry"
	"github.com/pgdomain/pgdomain/internal/spec"
	"github.com/pgdomain/pgdomain/internal/util"
)

// ErrTableNotFound marks lookups of tables a domain does not contain. It is
// deliberately distinct from spec.ErrInvalidSpec: the specification is fine,
// the caller asked for the wrong table.
var ErrTableNotFound = errors.New("table not found in domain")

// IndexMethodFunc resolves a default index method for a bare column name.
type IndexMethodFunc func(column string) (string, bool)

// Domain is one independently compiled group of related tables. Init
// populates the statement lists; everything else is read-only.
type Domain struct {
	Name   string
	Schema string
	Policy spec.IndexPolicy

	// ConcurrentIndexes switches index creation to CREATE INDEX CONCURRENTLY.
	// There is no configuration surface for it yet.
	ConcurrentIndexes bool

	// DefaultIndexMethod is consulted by the "selected" policy for columns
	// without an explicit index marker.
	DefaultIndexMethod IndexMethodFunc

	spec    *spec.DomainSpec
	ddl     []Statement
	indexes []Statement
}

// New builds a Domain for one named domain of a parsed specification.
func New(s *spec.Spec, name string) (*Domain, error) {
	ds := s.Domain(name)
	if ds == nil {
		return nil, fmt.Errorf("%w: domain %s is not declared", spec.ErrInvalidSpec, name)
	}
	policy, err := spec.ParseIndexPolicy(string(ds.IndexPolicy))
	if err != nil {
		return nil, fmt.Errorf("domain %s: %w", name, err)
	}
	return &Domain{
		Name:               name,
		Schema:             ds.Schema,
		Policy:             policy,
		DefaultIndexMethod: registry.DefaultMethod,
		spec:               ds,
	}, nil
}

// ddlBuilder accumulates statements during one compilation pass.
type ddlBuilder struct {
	ddl     []Statement
	indexes []Statement
}

// node is a table together with its working column list, which includes any
// foreign-key columns inherited from its own parent. Children copy key
// columns from this list, never from the specification directly, so key
// propagation crosses multiple levels without mutating the specification.
type node struct {
	table   *spec.Table
	columns []spec.Column
}

// Init compiles the domain: schema statements first, then every root table
// recursively. Calling it again rebuilds the lists from scratch and yields
// byte-identical output.
func (d *Domain) Init() error {
	b := &ddlBuilder{}
	if d.Schema != "" {
		b.ddl = append(b.ddl, Statement{
			Kind: StatementSchema,
			SQL:  fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", d.Schema),
		})
	}
	for _, aux := range d.spec.AuxSchemas {
		b.ddl = append(b.ddl, Statement{
			Kind: StatementSchema,
			SQL:  fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", aux),
		})
	}
	for _, t := range d.spec.Tables {
		if err := d.compileNode(b, t, nil); err != nil {
			return err
		}
	}
	d.ddl = b.ddl
	d.indexes = b.indexes
	return nil
}

// DDL returns the schema, table, function and trigger statements in
// dependency order.
func (d *Domain) DDL() []Statement {
	return d.ddl
}

// IndexDDL returns the index statements, after the tables they index.
func (d *Domain) IndexDDL() []Statement {
	return d.indexes
}

// Statements returns the full ordered statement list: DDL first, indexes
// last, so every table exists before anything indexes it.
func (d *Domain) Statements() []Statement {
	return append(slices.Clone(d.ddl), d.indexes...)
}

// FQN qualifies a table basename with the domain schema, if one is set.
// Either part is quoted when it cannot appear as a bare identifier.
func (d *Domain) FQN(table string) string {
	return util.Qualify(d.Schema, table)
}

// Find locates a table definition by basename anywhere in the domain tree.
func (d *Domain) Find(table string) *spec.Table {
	return d.spec.Find(table)
}

// FindDependent returns the fully qualified names of a table and everything
// that depends on it: the table itself, then each child subtree, then the
// table's own spillover. This ordering is the contract for CASCADE drops.
func (d *Domain) FindDependent(table string) ([]string, error) {
	t := d.Find(table)
	if t == nil {
		return nil, fmt.Errorf("%w: %s in domain %s", ErrTableNotFound, table, d.Name)
	}
	result := []string{d.FQN(table)}
	for _, child := range t.Children {
		dependent, err := d.FindDependent(child.Name)
		if err != nil {
			return nil, err
		}
		result = append(result, dependent...)
	}
	if spill := d.SpilloverTable(t); spill != "" {
		result = append(result, spill)
	}
	return result, nil
}

// SpilloverTable resolves the fully qualified name of the table receiving
// rejected rows, or "" when the table declares none (no invalid-records
// policy, or action ignore). Target schema and table default to the domain
// schema and the owning table's basename.
func (d *Domain) SpilloverTable(t *spec.Table) string {
	if t.Invalid == nil || t.Invalid.Action != spec.ActionInsert {
		return ""
	}
	schema := t.Invalid.TargetSchema
	if schema == "" {
		schema = d.Schema
	}
	table := t.Invalid.TargetTable
	if table == "" {
		table = t.Name
	}
	return util.Qualify(schema, table)
}

func (d *Domain) compileNode(b *ddlBuilder, t *spec.Table, parent *node) error {
	table := d.FQN(t.Name)
	columns := slices.Clone(t.Columns)

	fk := ""
	if parent != nil {
		if len(parent.table.PrimaryKey) == 0 {
			return fmt.Errorf("%w: parent table %s must define a primary key",
				spec.ErrInvalidSpec, parent.table.Name)
		}
		fkColumns := joinQuoted(parent.table.PrimaryKey)
		fk = fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			util.QuoteIdentifier(t.Name+"_to_"+parent.table.Name),
			fkColumns, d.FQN(parent.table.Name), fkColumns)

		// Key columns must physically exist on the child row. Copy each
		// parent key column unless the child already declares the name.
		for _, pc := range parent.columns {
			if slices.Contains(parent.table.PrimaryKey, pc.Name) && !hasColumn(columns, pc.Name) {
				columns = append(columns, pc)
			}
		}
	}

	clauses := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		clause, err := columnSpec(t.Name, c)
		if err != nil {
			return err
		}
		clauses = append(clauses, clause)
	}
	features := slices.Clone(clauses)
	if len(t.PrimaryKey) > 0 {
		features = append(features, fmt.Sprintf("PRIMARY KEY (%s)", joinQuoted(t.PrimaryKey)))
	}
	if fk != "" {
		features = append(features, fk)
	}
	b.ddl = append(b.ddl, Statement{
		Kind:  StatementTable,
		Table: t.Name,
		SQL:   createTable(table, features),
	})

	if t.Invalid != nil {
		spill := d.SpilloverTable(t)
		if spill == table {
			// Both target defaults resolve to the owning table itself:
			// the CREATE TABLE would collide and the trigger would audit
			// rejected rows back into the table that rejected them.
			return fmt.Errorf("%w: table %s: spillover target must name a different table",
				spec.ErrInvalidSpec, table)
		}
		if spill != "" {
			// The spillover mirrors the column clauses only: no keys, no
			// constraints, plus the rejection reason and a server timestamp.
			ff := slices.Clone(clauses)
			ff = append(ff, "REASON VARCHAR(16)")
			ff = append(ff, "recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
			b.ddl = append(b.ddl, Statement{
				Kind:  StatementTable,
				Table: t.Name,
				SQL:   createTable(spill, ff),
			})
		}
		if err := d.compileValidation(b, t, table, columns, parent, spill); err != nil {
			return err
		}
	}

	for _, c := range columns {
		if !d.needIndex(c) {
			continue
		}
		b.indexes = append(b.indexes, d.indexStatement(t.Name, table, c))
	}

	for _, child := range t.Children {
		if err := d.compileNode(b, child, &node{table: t, columns: columns}); err != nil {
			return err
		}
	}
	return nil
}

func createTable(name string, features []string) string {
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);", name, strings.Join(features, ",\n\t"))
}

// columnSpec renders one column clause: name and type, plus the verbatim
// compute expression for generated columns.
func columnSpec(table string, c spec.Column) (string, error) {
	sqlType := c.Type
	if sqlType == "" {
		sqlType = "VARCHAR"
	}
	if c.IsGenerated() {
		if c.Source.Code == "" {
			return "", fmt.Errorf("%w: table %s: generated column %s must specify the compute code",
				spec.ErrInvalidSpec, table, c.Name)
		}
		return fmt.Sprintf("%s %s %s", util.QuoteIdentifier(c.Name), sqlType, c.Source.Code), nil
	}
	return fmt.Sprintf("%s %s", util.QuoteIdentifier(c.Name), sqlType), nil
}

func (d *Domain) needIndex(c spec.Column) bool {
	if d.Policy == spec.IndexPolicyAll {
		return true
	}
	if c.Index != nil {
		return true
	}
	if d.Policy == spec.IndexPolicySelected {
		_, ok := d.DefaultIndexMethod(c.Name)
		return ok
	}
	return false
}

// indexStatement synthesizes one CREATE INDEX. Method resolution: explicit
// "using" wins, array types get GIN, everything else BTREE.
func (d *Domain) indexStatement(basename, table string, c spec.Column) Statement {
	method := ""
	name := ""
	if c.Index != nil {
		name = c.Index.Name
		method = c.Index.Using
	}
	if method == "" {
		if c.IsArray() {
			method = "GIN"
		} else {
			method = "BTREE"
		}
	}
	if name == "" {
		name = fmt.Sprintf("%s_%s_idx", basename, c.Name)
	}
	option := ""
	if d.ConcurrentIndexes {
		option = "CONCURRENTLY "
	}
	return Statement{
		Kind:  StatementIndex,
		Table: basename,
		SQL: fmt.Sprintf("CREATE INDEX %s%s ON %s USING %s (%s);",
			option, util.QuoteIdentifier(name), table, method, util.QuoteIdentifier(c.Name)),
	}
}

// joinQuoted renders a key column list, quoting each name as needed.
func joinQuoted(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = util.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func hasColumn(columns []spec.Column, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
