// Package executor applies compiled DDL to a database. It owns no connection
// logic beyond an injected Conn; each operation issues one multi-statement
// script, which the driver runs as a single implicit transaction.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/logger"
)

// Conn is the injected database collaborator. *sql.DB satisfies it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor applies a compiled domain's statements through a Conn.
type Executor struct {
	Conn Conn
}

// New returns an Executor bound to a connection.
func New(conn Conn) *Executor {
	return &Executor{Conn: conn}
}

// Create executes the domain's DDL. With a non-empty allow-list, only
// statements targeting one of the named tables run: a table's CREATE TABLE,
// its spillover, its validation function and trigger, and its indexes.
// Schema statements are skipped under a filter, matching the expectation
// that filtered creation targets tables inside an existing schema.
func (e *Executor) Create(ctx context.Context, domain *compiler.Domain, tables []string) error {
	log := logger.Get()
	statements := domain.Statements()
	if len(tables) > 0 {
		filtered := statements[:0:0]
		for _, s := range statements {
			if s.Matches(tables) {
				filtered = append(filtered, s)
			}
		}
		statements = filtered
	}
	if len(statements) == 0 {
		return fmt.Errorf("no statements to execute for domain %s", domain.Name)
	}

	script := make([]string, len(statements))
	for i, s := range statements {
		log.Info(s.SQL)
		script[i] = s.SQL
	}
	if _, err := e.Conn.ExecContext(ctx, strings.Join(script, "\n")); err != nil {
		return fmt.Errorf("failed to create domain %s: %w", domain.Name, err)
	}
	log.Info("Schema and all tables have been created", "domain", domain.Name)
	return nil
}

// Drop removes a table and everything depending on it: children recursively,
// then its spillover. Returns the fully qualified names dropped, in order.
func (e *Executor) Drop(ctx context.Context, domain *compiler.Domain, table string) ([]string, error) {
	log := logger.Get()
	tables, err := domain.FindDependent(table)
	if err != nil {
		return nil, err
	}
	script := make([]string, len(tables))
	for i, t := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", t)
		log.Info(stmt)
		script[i] = stmt
	}
	if _, err := e.Conn.ExecContext(ctx, strings.Join(script, "\n")); err != nil {
		return nil, fmt.Errorf("failed to drop %s from domain %s: %w", table, domain.Name, err)
	}
	return tables, nil
}
