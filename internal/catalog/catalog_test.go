package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pgdomain/pgdomain/internal/spec"
	"gopkg.in/yaml.v3"
)

const sampleReadme = `# Enrollments extract

Monthly enrollment snapshots pulled from the state files.
One row per beneficiary and month.

## Columns

- BENE_ID: unique beneficiary identifier
- Year: calendar year of the snapshot

## Provenance

Raw files arrive quarterly.
`

func sampleTable() *spec.Table {
	return &spec.Table{
		Name: "enrollments",
		Columns: []spec.Column{
			{Name: "bene_id", Type: "VARCHAR"},
			{Name: "year", Type: "INT"},
			{Name: "admission_date", Type: "DATE"},
			{Name: "notes"},
		},
	}
}

func TestBuildWithReadme(t *testing.T) {
	headers := []string{"BENE_ID", "Year", "Admission Date", "notes"}
	m := Build("medicaid", sampleTable(), headers, sampleReadme)

	if len(m.Databases) != 1 || m.Databases[0].Name != "medicaid" {
		t.Fatalf("unexpected database layout: %+v", m.Databases)
	}
	doc := m.Databases[0].Tables[0]
	if doc.Name != "enrollments" {
		t.Errorf("table name = %q", doc.Name)
	}
	wantDesc := "Monthly enrollment snapshots pulled from the state files. One row per beneficiary and month."
	if doc.Description != wantDesc {
		t.Errorf("table description = %q, want %q", doc.Description, wantDesc)
	}

	want := []ColumnDoc{
		{Name: "bene_id", Type: "VARCHAR", Description: "unique beneficiary identifier"},
		{Name: "year", Type: "INT", Description: "calendar year of the snapshot"},
		{Name: "admission_date", Type: "DATE", Description: "'Admission Date'"},
		{Name: "notes", Type: "VARCHAR"},
	}
	if diff := cmp.Diff(want, doc.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWithoutReadme(t *testing.T) {
	m := Build("medicaid", sampleTable(), nil, "")
	doc := m.Databases[0].Tables[0]
	if doc.Description != "" {
		t.Errorf("expected no table description, got %q", doc.Description)
	}
	// No headers: the column name itself is the header, so no fallback
	// description either.
	for _, c := range doc.Columns {
		if c.Description != "" {
			t.Errorf("column %s: unexpected description %q", c.Name, c.Description)
		}
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	m := Build("medicaid", sampleTable(), nil, sampleReadme)

	path, err := m.Write(dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != "enrollments.yml" {
		t.Errorf("manifest path = %q, want enrollments.yml", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}
	var got Manifest
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to parse manifest: %v", err)
	}
	if diff := cmp.Diff(m, &got); diff != "" {
		t.Errorf("manifest round trip mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(data), "database_name: medicaid") {
		t.Errorf("manifest missing database name:\n%s", data)
	}
}

func TestParseReadmeProseStopsAtSections(t *testing.T) {
	desc, columns := parseReadme(sampleReadme)
	if strings.Contains(desc, "Raw files") {
		t.Errorf("prose leaked from a later section: %q", desc)
	}
	if len(columns) != 2 {
		t.Errorf("expected 2 column descriptions, got %d", len(columns))
	}
}
