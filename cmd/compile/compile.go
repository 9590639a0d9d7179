package compile

import (
	"fmt"
	"os"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pgdomain/pgdomain/internal/compiler"
	"github.com/pgdomain/pgdomain/internal/spec"
	"github.com/pgdomain/pgdomain/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	specFile   string
	domainName string
	outFile    string
	validate   bool
)

var CompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Generate DDL for a domain",
	Long:  "Compile a domain specification into PostgreSQL DDL without touching a database. Compiles every domain in the file unless one is selected with --domain.",
	RunE:  runCompile,
}

func init() {
	CompileCmd.Flags().StringVar(&specFile, "spec", "", "Path to the domain specification file (required)")
	CompileCmd.Flags().StringVar(&domainName, "domain", "", "Compile only the named domain")
	CompileCmd.Flags().StringVar(&outFile, "file", "", "Output file path (default: stdout)")
	CompileCmd.Flags().BoolVar(&validate, "validate", false, "Parse every generated statement with the PostgreSQL parser")
	CompileCmd.MarkFlagRequired("spec")
}

func runCompile(cmd *cobra.Command, args []string) error {
	s, err := spec.Load(specFile)
	if err != nil {
		return err
	}

	domains := s.Domains
	if domainName != "" {
		d := s.Domain(domainName)
		if d == nil {
			return fmt.Errorf("domain %s is not declared in %s", domainName, specFile)
		}
		domains = []*spec.DomainSpec{d}
	}

	// Domains compile independently; outputs keep declaration order.
	outputs := make([]string, len(domains))
	var g errgroup.Group
	for i, ds := range domains {
		g.Go(func() error {
			domain, err := compiler.New(s, ds.Name)
			if err != nil {
				return err
			}
			if err := domain.Init(); err != nil {
				return err
			}
			if validate {
				if err := validateStatements(domain); err != nil {
					return err
				}
			}
			outputs[i] = render(domain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ddl := strings.Join(outputs, "\n")
	if outFile == "" {
		fmt.Fprint(cmd.OutOrStdout(), ddl)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(ddl), 0o644); err != nil {
		return fmt.Errorf("failed to write DDL: %w", err)
	}
	return nil
}

func validateStatements(domain *compiler.Domain) error {
	for _, s := range domain.Statements() {
		if _, err := pg_query.Parse(s.SQL); err != nil {
			return fmt.Errorf("domain %s: generated statement failed to parse: %w\n%s", domain.Name, err, s.SQL)
		}
	}
	return nil
}

func render(domain *compiler.Domain) string {
	var out strings.Builder
	out.WriteString("--\n")
	fmt.Fprintf(&out, "-- DDL for domain %s\n", domain.Name)
	fmt.Fprintf(&out, "-- Generated by pgdomain version %s\n", version.App())
	out.WriteString("--\n")
	for _, s := range domain.Statements() {
		out.WriteString("\n")
		out.WriteString(s.SQL)
		out.WriteString("\n")
	}
	return out.String()
}
