package cmd

import (
	"fmt"
	"os"

	"github.com/pgdomain/pgdomain/cmd/analyze"
	"github.com/pgdomain/pgdomain/cmd/compile"
	"github.com/pgdomain/pgdomain/cmd/create"
	"github.com/pgdomain/pgdomain/cmd/drop"
	"github.com/pgdomain/pgdomain/internal/logger"
	"github.com/pgdomain/pgdomain/internal/version"
	"github.com/spf13/cobra"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgdomain",
	Short: "Domain specification to PostgreSQL DDL compiler",
	Long: fmt.Sprintf(`pgdomain compiles a declarative domain specification, a tree of related
tables, into PostgreSQL DDL and applies it: schemas, tables, keys, indexes
and validation triggers.

Version: %s@%s %s %s

Commands:
  compile  Generate DDL for a domain
  create   Create the domain's schema and tables in a database
  drop     Drop a table and everything that depends on it
  analyze  Propose a domain specification from a sample data file

Use "pgdomain [command] --help" for more information about a command.`,
		version.App(), version.GitCommit, version.Platform(), version.BuildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(Debug)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(compile.CompileCmd)
	RootCmd.AddCommand(create.CreateCmd)
	RootCmd.AddCommand(drop.DropCmd)
	RootCmd.AddCommand(analyze.AnalyzeCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
