package drop

import (
	"context"
	"fmt"

	"github.com/pgdomain/pgdomain/cmd/util"
	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/executor"
	"github.com/pgdomain/pgdomain/internal/spec"
	"github.com/spf13/cobra"
)

var (
	host       string
	port       int
	db         string
	user       string
	password   string
	appName    string
	specFile   string
	domainName string
	table      string
	dryRun     bool
)

var DropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop a table and everything that depends on it",
	Long:  "Drop a table from a domain along with its dependency closure: child tables recursively and the spillover table, each with CASCADE.",
	RunE:  runDrop,
}

func init() {
	DropCmd.Flags().StringVar(&host, "host", "localhost", "Database server host")
	DropCmd.Flags().IntVar(&port, "port", 5432, "Database server port")
	DropCmd.Flags().StringVar(&db, "db", "", "Database name (required)")
	DropCmd.Flags().StringVar(&user, "user", "", "Database user name (required)")
	DropCmd.Flags().StringVar(&password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	DropCmd.Flags().StringVar(&appName, "application-name", "pgdomain", "Application name for database connection")
	DropCmd.Flags().StringVar(&specFile, "spec", "", "Path to the domain specification file (required)")
	DropCmd.Flags().StringVar(&domainName, "domain", "", "Domain owning the table (required)")
	DropCmd.Flags().StringVar(&table, "table", "", "Table to drop (required)")
	DropCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the dependency closure without dropping anything")
	DropCmd.MarkFlagRequired("spec")
	DropCmd.MarkFlagRequired("domain")
	DropCmd.MarkFlagRequired("table")
	DropCmd.PreRunE = util.PreRunEWithEnvVars(&db, &user, &host, &port)
}

func runDrop(cmd *cobra.Command, args []string) error {
	s, err := spec.Load(specFile)
	if err != nil {
		return err
	}
	domain, err := compiler.New(s, domainName)
	if err != nil {
		return err
	}

	if dryRun {
		dependent, err := domain.FindDependent(table)
		if err != nil {
			return err
		}
		for _, t := range dependent {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	}

	conn, err := util.Connect(&util.ConnectionConfig{
		Host:            host,
		Port:            port,
		Database:        db,
		User:            user,
		Password:        password,
		SSLMode:         "prefer",
		ApplicationName: appName,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	dropped, err := executor.New(conn).Drop(context.Background(), domain, table)
	if err != nil {
		return err
	}
	for _, t := range dropped {
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s\n", t)
	}
	return nil
}
