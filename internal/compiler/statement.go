package compiler

import "slices"

// StatementKind classifies a generated DDL statement.
type StatementKind string

const (
	StatementSchema   StatementKind = "schema"
	StatementTable    StatementKind = "table"
	StatementFunction StatementKind = "function"
	StatementTrigger  StatementKind = "trigger"
	StatementIndex    StatementKind = "index"
)

// Statement is one generated DDL statement together with the table it
// targets, so that executors can filter without re-parsing SQL text. Table is
// the basename of the owning table; spillover, function, trigger and index
// statements all carry the basename of the table they belong to. Schema
// statements carry no table.
type Statement struct {
	Kind  StatementKind
	Table string
	SQL   string
}

// Matches reports whether the statement targets one of the named tables.
// Schema statements never match a table filter.
func (s Statement) Matches(tables []string) bool {
	if s.Table == "" {
		return false
	}
	return slices.Contains(tables, s.Table)
}
