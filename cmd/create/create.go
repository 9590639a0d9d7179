package create

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
	tables     []string
	dryRun     bool
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the domain's schema and tables in a database",
	Long:  "Compile a domain and execute its DDL against a database in one transactional unit. With --tables, only the statements targeting the named tables run.",
	RunE:  runCreate,
}

func init() {
	CreateCmd.Flags().StringVar(&host, "host", "localhost", "Database server host")
	CreateCmd.Flags().IntVar(&port, "port", 5432, "Database server port")
	CreateCmd.Flags().StringVar(&db, "db", "", "Database name (required)")
	CreateCmd.Flags().StringVar(&user, "user", "", "Database user name (required)")
	CreateCmd.Flags().StringVar(&password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	CreateCmd.Flags().StringVar(&appName, "application-name", "pgdomain", "Application name for database connection")
	CreateCmd.Flags().StringVar(&specFile, "spec", "", "Path to the domain specification file (required)")
	CreateCmd.Flags().StringVar(&domainName, "domain", "", "Domain to create (required)")
	CreateCmd.Flags().StringSliceVar(&tables, "tables", nil, "Only execute statements targeting these tables")
	CreateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements without executing them")
	CreateCmd.MarkFlagRequired("spec")
	CreateCmd.MarkFlagRequired("domain")
	CreateCmd.PreRunE = util.PreRunEWithEnvVars(&db, &user, &host, &port)
}

func runCreate(cmd *cobra.Command, args []string) error {
	domain, err := compileDomain()
	if err != nil {
		return err
	}

	if dryRun {
		statements := domain.Statements()
		for _, s := range statements {
			if len(tables) > 0 && !s.Matches(tables) {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.SQL)
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

	return executor.New(conn).Create(context.Background(), domain, tables)
}

func compileDomain() (*compiler.Domain, error) {
	s, err := spec.Load(specFile)
	if err != nil {
		return nil, err
	}
	domain, err := compiler.New(s, domainName)
	if err != nil {
		return nil, err
	}
	if err := domain.Init(); err != nil {
		return nil, err
	}
	return domain, nil
}
