// Package pgdomain provides a programmatic API for domain schema management:
// compile a declarative table tree into DDL, create it in a database, and drop
// tables together with everything depending on them.
package pgdomain

import (
	"context"
	"database/sql"

	"github.com/pgdomain/pgdomain/cmd/util"
	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/executor"
	"github.com/pgdomain/pgdomain/internal/spec"
)

// DatabaseConfig holds connection details for a PostgreSQL database.
type DatabaseConfig struct {
	Host     string // Database server host
	Port     int    // Database server port
	Database string // Database name
	User     string // Database user
	Password string // Database password (optional, falls back to PGPASSWORD)
	SSLMode  string // SSL mode (optional)
}

// CreateOptions configures how domain creation is performed.
type CreateOptions struct {
	// Tables restricts creation to the named tables and their dependent
	// statements. Empty means the whole domain.
	Tables []string
	// ApplicationName is reported to the server (default: "pgdomain").
	ApplicationName string
}

// Client provides the main interface for pgdomain operations against one
// database.
type Client struct {
	db         DatabaseConfig
	defaultApp string
}

// NewClient creates a new pgdomain client with default database configuration.
func NewClient(dbConfig DatabaseConfig) *Client {
	return &Client{
		db:         dbConfig,
		defaultApp: "pgdomain",
	}
}

// CompileDomain parses a specification file and compiles one of its domains.
// The returned Domain exposes the ordered DDL and index statements.
func CompileDomain(specPath, domain string) (*compiler.Domain, error) {
	s, err := spec.Load(specPath)
	if err != nil {
		return nil, err
	}
	d, err := compiler.New(s, domain)
	if err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Create compiles a domain and executes its DDL in the client's database as a
// single script.
func (c *Client) Create(ctx context.Context, specPath, domain string, opts CreateOptions) error {
	d, err := CompileDomain(specPath, domain)
	if err != nil {
		return err
	}
	app := opts.ApplicationName
	if app == "" {
		app = c.defaultApp
	}
	conn, err := c.connect(app)
	if err != nil {
		return err
	}
	defer conn.Close()
	return executor.New(conn).Create(ctx, d, opts.Tables)
}

// Drop removes a table and everything depending on it from the client's
// database. Returns the fully qualified names dropped, in order.
func (c *Client) Drop(ctx context.Context, specPath, domain, table string) ([]string, error) {
	d, err := CompileDomain(specPath, domain)
	if err != nil {
		return nil, err
	}
	conn, err := c.connect(c.defaultApp)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return executor.New(conn).Drop(ctx, d, table)
}

func (c *Client) connect(app string) (*sql.DB, error) {
	return util.Connect(&util.ConnectionConfig{
		Host:            c.db.Host,
		Port:            c.db.Port,
		Database:        c.db.Database,
		User:            c.db.User,
		Password:        c.db.Password,
		SSLMode:         c.db.SSLMode,
		ApplicationName: app,
	})
}
