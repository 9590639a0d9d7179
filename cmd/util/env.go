package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// PreRunEWithEnvVars creates a PreRunE function that fills connection flags
// from the conventional PG* environment variables when the flags were not
// explicitly set, then validates that the required values are present.
func PreRunEWithEnvVars(dbPtr, userPtr, hostPtr *string, portPtr *int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if v := os.Getenv("PGDATABASE"); v != "" && !cmd.Flags().Changed("db") {
			*dbPtr = v
		}
		if v := os.Getenv("PGUSER"); v != "" && !cmd.Flags().Changed("user") {
			*userPtr = v
		}
		if v := os.Getenv("PGHOST"); v != "" && !cmd.Flags().Changed("host") {
			*hostPtr = v
		}
		if v := GetEnvIntWithDefault("PGPORT", 0); v != 0 && !cmd.Flags().Changed("port") {
			*portPtr = v
		}

		if *dbPtr == "" {
			return fmt.Errorf("database name is required (use --db flag or PGDATABASE environment variable)")
		}
		if *userPtr == "" {
			return fmt.Errorf("database user is required (use --user flag or PGUSER environment variable)")
		}
		return nil
	}
}
