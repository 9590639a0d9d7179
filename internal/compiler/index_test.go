package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pgdomain/pgdomain/internal/spec"
)

const indexSpec = `
d:
  schema: s
  index: %s
  tables:
    t:
      columns:
        - order_id:
            type: INT
        - payload
        - tags:
            type: "TEXT[]"
            index:
              using: GIN
        - lookup:
            index: lookup_custom_idx
`

func compileWithPolicy(t *testing.T, policy string) *Domain {
	t.Helper()
	return compile(t, strings.Replace(indexSpec, "%s", policy, 1), "d")
}

func indexedColumns(domain *Domain) []string {
	var columns []string
	for _, s := range domain.IndexDDL() {
		start := strings.LastIndex(s.SQL, "(")
		columns = append(columns, strings.TrimSuffix(s.SQL[start+1:], ");"))
	}
	return columns
}

func TestIndexPolicyExplicit(t *testing.T) {
	domain := compileWithPolicy(t, "explicit")
	want := []string{"tags", "lookup"}
	if diff := cmp.Diff(want, indexedColumns(domain)); diff != "" {
		t.Errorf("explicit policy indexes only marked columns (-want +got):\n%s", diff)
	}
}

func TestIndexPolicySelected(t *testing.T) {
	domain := compileWithPolicy(t, "selected")
	want := []string{"order_id", "tags", "lookup"}
	if diff := cmp.Diff(want, indexedColumns(domain)); diff != "" {
		t.Errorf("selected policy adds registry matches (-want +got):\n%s", diff)
	}
}

func TestIndexPolicyAll(t *testing.T) {
	domain := compileWithPolicy(t, "all")
	want := []string{"order_id", "payload", "tags", "lookup"}
	if diff := cmp.Diff(want, indexedColumns(domain)); diff != "" {
		t.Errorf("all policy indexes every column (-want +got):\n%s", diff)
	}
}

func TestIndexMethodResolution(t *testing.T) {
	domain := compileWithPolicy(t, "all")

	methods := map[string]string{}
	names := map[string]string{}
	for _, s := range domain.IndexDDL() {
		fields := strings.Fields(s.SQL)
		// CREATE INDEX <name> ON <table> USING <method> (<column>)
		column := strings.TrimSuffix(strings.TrimPrefix(fields[7], "("), ");")
		names[column] = fields[2]
		methods[column] = fields[6]
	}

	if methods["order_id"] != "BTREE" {
		t.Errorf("plain column method = %q, want BTREE", methods["order_id"])
	}
	if methods["tags"] != "GIN" {
		t.Errorf("explicit using wins, got %q", methods["tags"])
	}
	if names["lookup"] != "lookup_custom_idx" {
		t.Errorf("bare index string names the index, got %q", names["lookup"])
	}
	if names["order_id"] != "t_order_id_idx" {
		t.Errorf("default index name = %q, want t_order_id_idx", names["order_id"])
	}
}

func TestArrayTypeDefaultsToGIN(t *testing.T) {
	source := `
d:
  index: explicit
  tables:
    t:
      columns:
        - tags:
            type: "VARCHAR(10)[]"
            index:
              name: t_tags
`
	domain := compile(t, source, "d")
	idx := domain.IndexDDL()
	if len(idx) != 1 {
		t.Fatalf("expected one index, got %d", len(idx))
	}
	if got := idx[0].SQL; got != "CREATE INDEX t_tags ON t USING GIN (tags);" {
		t.Errorf("array index mismatch: %q", got)
	}
}

func TestConcurrentIndexes(t *testing.T) {
	s, err := spec.Parse([]byte(strings.Replace(indexSpec, "%s", "explicit", 1)))
	if err != nil {
		t.Fatalf("Failed to parse specification: %v", err)
	}
	domain, err := New(s, "d")
	if err != nil {
		t.Fatalf("Failed to construct domain: %v", err)
	}
	domain.ConcurrentIndexes = true
	if err := domain.Init(); err != nil {
		t.Fatalf("Failed to compile domain: %v", err)
	}
	for _, idx := range domain.IndexDDL() {
		if !strings.HasPrefix(idx.SQL, "CREATE INDEX CONCURRENTLY ") {
			t.Errorf("missing CONCURRENTLY: %q", idx.SQL)
		}
	}
}

func TestInjectedIndexMethodRegistry(t *testing.T) {
	domain := compileWithPolicy(t, "selected")
	domain.DefaultIndexMethod = func(column string) (string, bool) {
		return "HASH", column == "payload"
	}
	if err := domain.Init(); err != nil {
		t.Fatalf("Failed to recompile domain: %v", err)
	}
	want := []string{"payload", "tags", "lookup"}
	if diff := cmp.Diff(want, indexedColumns(domain)); diff != "" {
		t.Errorf("injected registry should drive selection (-want +got):\n%s", diff)
	}
}
