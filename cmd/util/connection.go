package util

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgdomain/pgdomain/internal/logger"
)

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
}

// Connect establishes a database connection using the provided configuration.
// An empty password falls back to the PGPASSWORD environment variable.
func Connect(config *ConnectionConfig) (*sql.DB, error) {
	log := logger.Get()

	if config.Password == "" {
		config.Password = os.Getenv("PGPASSWORD")
	}

	log.Debug("Attempting database connection",
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
		"user", config.User,
		"sslmode", config.SSLMode,
		"application_name", config.ApplicationName,
	)

	conn, err := sql.Open("pgx", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug("Database connection established successfully")
	return conn, nil
}

// dsn constructs a PostgreSQL connection string
func (c *ConnectionConfig) dsn() string {
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("dbname=%s", c.Database),
		fmt.Sprintf("user=%s", c.User),
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	if c.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", c.SSLMode))
	}
	if c.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", c.ApplicationName))
	}
	return strings.Join(parts, " ")
}
