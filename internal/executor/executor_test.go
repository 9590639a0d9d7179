package executor

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/spec"
)

const storeSpec = `
store:
  schema: s
  schema.spill: spill
  index: explicit
  tables:
    orders:
      columns:
        - order_id:
            type: INT
        - placed_on:
            type: DATE
            index: true_date_idx
      primary_key:
        - order_id
      invalid.records:
        action: insert
        target:
          schema: spill
      children:
        line_items:
          columns:
            - line_no:
                type: INT
            - sku
          primary_key:
            - order_id
            - line_no
`

type fakeConn struct {
	scripts []string
	err     error
}

func (f *fakeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.scripts = append(f.scripts, query)
	return nil, f.err
}

func compileStore(t *testing.T) *compiler.Domain {
	t.Helper()
	s, err := spec.Parse([]byte(storeSpec))
	if err != nil {
		t.Fatalf("Failed to parse specification: %v", err)
	}
	domain, err := compiler.New(s, "store")
	if err != nil {
		t.Fatalf("Failed to construct domain: %v", err)
	}
	if err := domain.Init(); err != nil {
		t.Fatalf("Failed to compile domain: %v", err)
	}
	return domain
}

func TestCreateExecutesOneScript(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	if err := New(conn).Create(context.Background(), domain, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(conn.scripts) != 1 {
		t.Fatalf("expected one script, got %d", len(conn.scripts))
	}

	script := conn.scripts[0]
	statements := domain.Statements()
	pos := 0
	for _, s := range statements {
		i := strings.Index(script[pos:], s.SQL)
		if i < 0 {
			t.Fatalf("statement missing or out of order in script:\n%s", s.SQL)
		}
		pos += i + len(s.SQL)
	}
}

func TestCreateWithTableFilter(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	if err := New(conn).Create(context.Background(), domain, []string{"orders"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	script := conn.scripts[0]

	for _, want := range []string{
		"CREATE TABLE s.orders (",
		"CREATE TABLE spill.orders (",
		"CREATE OR REPLACE FUNCTION s.validate_orders()",
		"CREATE TRIGGER s_orders_validation",
		"CREATE INDEX true_date_idx ON s.orders",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("filtered script missing %q", want)
		}
	}
	for _, skip := range []string{
		"CREATE SCHEMA",
		"line_items",
	} {
		if strings.Contains(script, skip) {
			t.Errorf("filtered script should not contain %q", skip)
		}
	}
}

func TestCreateEmptyFilterFails(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	err := New(conn).Create(context.Background(), domain, []string{"no_such_table"})
	if err == nil {
		t.Fatal("expected an error for a filter matching nothing")
	}
	if len(conn.scripts) != 0 {
		t.Errorf("nothing should have been executed, got %d scripts", len(conn.scripts))
	}
}

func TestCreatePropagatesConnError(t *testing.T) {
	domain := compileStore(t)
	want := errors.New("connection reset")
	conn := &fakeConn{err: want}

	err := New(conn).Create(context.Background(), domain, nil)
	if !errors.Is(err, want) {
		t.Fatalf("expected wrapped connection error, got %v", err)
	}
}

func TestDropCascadesToDependents(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	dropped, err := New(conn).Drop(context.Background(), domain, "orders")
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	want := []string{"s.orders", "s.line_items", "spill.orders"}
	if diff := cmp.Diff(want, dropped); diff != "" {
		t.Errorf("dropped tables mismatch (-want +got):\n%s", diff)
	}

	wantScript := strings.Join([]string{
		"DROP TABLE IF EXISTS s.orders CASCADE;",
		"DROP TABLE IF EXISTS s.line_items CASCADE;",
		"DROP TABLE IF EXISTS spill.orders CASCADE;",
	}, "\n")
	if conn.scripts[0] != wantScript {
		t.Errorf("drop script mismatch:\n%s", conn.scripts[0])
	}
}

func TestDropLeafTable(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	dropped, err := New(conn).Drop(context.Background(), domain, "line_items")
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if diff := cmp.Diff([]string{"s.line_items"}, dropped); diff != "" {
		t.Errorf("dropped tables mismatch (-want +got):\n%s", diff)
	}
}

func TestDropUnknownTable(t *testing.T) {
	domain := compileStore(t)
	conn := &fakeConn{}

	_, err := New(conn).Drop(context.Background(), domain, "missing")
	if !errors.Is(err, compiler.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if len(conn.scripts) != 0 {
		t.Errorf("nothing should have been executed, got %d scripts", len(conn.scripts))
	}
}
