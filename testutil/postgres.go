// Package testutil provides shared test utilities for pgdomain
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// postgresVersion returns the PostgreSQL version to use for testing. It reads
// the PGDOMAIN_POSTGRES_VERSION environment variable, defaulting to "17".
func postgresVersion() string {
	if version := os.Getenv("PGDOMAIN_POSTGRES_VERSION"); version != "" {
		return version
	}
	return "17"
}

// ContainerInfo holds PostgreSQL container connection details
type ContainerInfo struct {
	Container testcontainers.Container
	DSN       string
	Conn      *sql.DB
}

// SetupPostgresContainer starts a PostgreSQL test container and opens a
// connection to it.
func SetupPostgresContainer(ctx context.Context, t *testing.T) *ContainerInfo {
	container, err := postgres.Run(ctx,
		"postgres:"+postgresVersion()+"-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	return &ContainerInfo{Container: container, DSN: dsn, Conn: conn}
}

// Terminate cleans up the container and connection
func (ci *ContainerInfo) Terminate(ctx context.Context, t *testing.T) {
	ci.Conn.Close()
	if err := ci.Container.Terminate(ctx); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}
