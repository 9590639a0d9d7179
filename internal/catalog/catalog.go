// Package catalog emits data-catalog manifests: a YAML description of a
// table's columns and types, enriched with free-text descriptions from an
// accompanying README.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgdomain/pgdomain/internal/spec"
	"gopkg.in/yaml.v3"
)

// Manifest is the emitted document shape.
type Manifest struct {
	Databases []Database `yaml:"databases"`
}

type Database struct {
	Name   string     `yaml:"database_name"`
	Tables []TableDoc `yaml:"tables"`
}

type TableDoc struct {
	Name        string      `yaml:"table_name"`
	Description string      `yaml:"description,omitempty"`
	Columns     []ColumnDoc `yaml:"columns"`
}

type ColumnDoc struct {
	Name        string `yaml:"column_name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// Build assembles a manifest for one table. readme may be empty; when given,
// its leading prose becomes the table description and its "## Columns"
// section supplies per-column descriptions, keyed by the raw header names.
// headers is index-aligned with the table's columns; a header differing from
// the final column name is recorded as the description when the README gives
// none.
func Build(database string, table *spec.Table, headers []string, readme string) *Manifest {
	doc := TableDoc{Name: table.Name}
	descriptions := map[string]string{}
	if readme != "" {
		doc.Description, descriptions = parseReadme(readme)
	}
	for i, c := range table.Columns {
		header := c.Name
		if i < len(headers) {
			header = headers[i]
		}
		desc := descriptions[header]
		if desc == "" && header != c.Name {
			desc = fmt.Sprintf("'%s'", header)
		}
		sqlType := c.Type
		if sqlType == "" {
			sqlType = "VARCHAR"
		}
		doc.Columns = append(doc.Columns, ColumnDoc{Name: c.Name, Type: sqlType, Description: desc})
	}
	return &Manifest{
		Databases: []Database{{Name: database, Tables: []TableDoc{doc}}},
	}
}

// Write emits the manifest as <table>.yml under dir.
func (m *Manifest) Write(dir string) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(dir, m.Databases[0].Tables[0].Name+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// parseReadme extracts the description (prose before the first heading) and
// the column descriptions from a "## Columns" section, where each list item
// has the form "- name: description".
func parseReadme(readme string) (string, map[string]string) {
	var prose []string
	columns := map[string]string{}
	inColumns := false
	headings := 0
	for _, line := range strings.Split(readme, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			inColumns = strings.EqualFold(heading, "columns")
			headings++
		case inColumns && strings.HasPrefix(trimmed, "- "):
			name, desc, ok := strings.Cut(trimmed[2:], ":")
			if ok {
				columns[strings.TrimSpace(name)] = strings.TrimSpace(desc)
			}
		case headings <= 1 && !inColumns && trimmed != "":
			// Prose under the title, before any further section.
			prose = append(prose, trimmed)
		}
	}
	return strings.Join(prose, " "), columns
}
