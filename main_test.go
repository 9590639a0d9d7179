package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pgdomain/pgdomain/cmd"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.RootCmd.SetOut(&out)
	cmd.RootCmd.SetErr(&out)
	cmd.RootCmd.SetArgs(args)
	err := cmd.RootCmd.Execute()
	return out.String(), err
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{
			name:     "compile without spec",
			args:     []string{"compile"},
			errorMsg: `required flag(s) "spec" not set`,
		},
		{
			name:     "create without domain",
			args:     []string{"create", "--spec", "x.yaml", "--db", "testdb", "--user", "tester"},
			errorMsg: `"domain" not set`,
		},
		{
			name:     "create without database",
			args:     []string{"create", "--spec", "x.yaml", "--domain", "d", "--db", "", "--user", "tester"},
			errorMsg: "database name is required",
		},
		{
			name:     "drop without table",
			args:     []string{"drop", "--spec", "x.yaml", "--domain", "d", "--db", "testdb", "--user", "tester"},
			errorMsg: `"table" not set`,
		},
		{
			name:     "analyze without source",
			args:     []string{"analyze"},
			errorMsg: `"source" not set`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected a flag error")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestCompileCommandWritesDDL(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "sales.yaml")
	outPath := filepath.Join(dir, "sales.sql")

	source := `
sales:
  schema: s
  tables:
    orders:
      columns:
        - order_id:
            type: INT
      primary_key:
        - order_id
`
	if err := os.WriteFile(specPath, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write specification: %v", err)
	}

	if _, err := runCLI(t, "compile", "--spec", specPath, "--file", outPath); err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	ddl, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	for _, want := range []string{
		"-- DDL for domain sales",
		"CREATE SCHEMA IF NOT EXISTS s;",
		"CREATE TABLE s.orders (",
		"PRIMARY KEY (order_id)",
	} {
		if !strings.Contains(string(ddl), want) {
			t.Errorf("output missing %q:\n%s", want, ddl)
		}
	}
}

func TestCompileToStdout(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "sales.yaml")
	source := `
sales:
  schema: s
  tables:
    orders:
      columns:
        - order_id:
            type: INT
      primary_key:
        - order_id
`
	if err := os.WriteFile(specPath, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write specification: %v", err)
	}

	out, err := runCLI(t, "compile", "--spec", specPath, "--file", "")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	for _, want := range []string{"CREATE SCHEMA IF NOT EXISTS s;", "CREATE TABLE s.orders ("} {
		if !strings.Contains(out, want) {
			t.Errorf("captured output missing %q:\n%s", want, out)
		}
	}
}

func TestDropDryRunPrintsClosure(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "store.yaml")
	source := `
store:
  schema: s
  schema.spill: spill
  tables:
    orders:
      primary_key: [order_id]
      columns:
        - order_id:
            type: INT
      invalid.records:
        action: insert
        target:
          schema: spill
      children:
        line_items:
          columns:
            - line_no:
                type: INT
`
	if err := os.WriteFile(specPath, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write specification: %v", err)
	}

	out, err := runCLI(t, "drop", "--spec", specPath, "--domain", "store",
		"--table", "orders", "--db", "testdb", "--user", "tester", "--dry-run")
	if err != nil {
		t.Fatalf("drop --dry-run failed: %v", err)
	}
	for _, want := range []string{"s.orders", "s.line_items", "spill.orders"} {
		if !strings.Contains(out, want) {
			t.Errorf("captured closure missing %q:\n%s", want, out)
		}
	}
}

func TestCompileUnknownDomain(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "sales.yaml")
	source := "sales:\n  tables:\n    t:\n      columns:\n        - a\n"
	if err := os.WriteFile(specPath, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write specification: %v", err)
	}

	_, err := runCLI(t, "compile", "--spec", specPath, "--domain", "nope")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected an unknown domain error, got %v", err)
	}
}
