package pgdomain

import (
	"context"
	"strings"
)

// CompileToSQL is a convenience function to compile one domain of a
// specification file into a single SQL script.
func CompileToSQL(specPath, domain string) (string, error) {
	d, err := CompileDomain(specPath, domain)
	if err != nil {
		return "", err
	}
	statements := d.Statements()
	script := make([]string, len(statements))
	for i, s := range statements {
		script[i] = s.SQL
	}
	return strings.Join(script, "\n"), nil
}

// CreateDomain is a convenience function to compile a domain and create all
// of its tables in one operation.
func CreateDomain(ctx context.Context, dbConfig DatabaseConfig, specPath, domain string) error {
	client := NewClient(dbConfig)
	return client.Create(ctx, specPath, domain, CreateOptions{})
}

// CreateTables is like CreateDomain but restricted to the named tables.
func CreateTables(ctx context.Context, dbConfig DatabaseConfig, specPath, domain string, tables []string) error {
	client := NewClient(dbConfig)
	return client.Create(ctx, specPath, domain, CreateOptions{Tables: tables})
}

// DropTable is a convenience function to drop a table and its dependents.
func DropTable(ctx context.Context, dbConfig DatabaseConfig, specPath, domain, table string) ([]string, error) {
	client := NewClient(dbConfig)
	return client.Drop(ctx, specPath, domain, table)
}
