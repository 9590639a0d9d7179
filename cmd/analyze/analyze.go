package analyze

import (
	"fmt"
	"os"

	"github.com/pgdomain/pgdomain/internal/catalog"
	"github.com/pgdomain/pgdomain/internal/inspect"
	"github.com/pgdomain/pgdomain/internal/spec"
	"github.com/spf13/cobra"
)

var (
	source     string
	domainName string
	schemaName string
	policy     string
	rows       int
	columns    []string
	outFile    string
	readmeFile string
	outDir     string
)

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Propose a domain specification from a sample data file",
	Long:  "Analyze a delimited sample file (plain or gzip), infer column types, and emit a domain specification ready for compile. Optionally emit a data-catalog manifest describing the table.",
	RunE:  runAnalyze,
}

func init() {
	AnalyzeCmd.Flags().StringVarP(&source, "source", "s", "", "Path to the sample file (required)")
	AnalyzeCmd.Flags().StringVar(&domainName, "domain", "", "Domain name (default: derived from the file name)")
	AnalyzeCmd.Flags().StringVar(&schemaName, "schema", "", "Schema for the proposed domain")
	AnalyzeCmd.Flags().StringVar(&policy, "index", "", "Index policy for the proposed domain (explicit, selected, all)")
	AnalyzeCmd.Flags().IntVar(&rows, "rows", inspect.DefaultSampleRows, "Number of rows to sample")
	AnalyzeCmd.Flags().StringArrayVarP(&columns, "column", "c", nil, "Additional columns as name:TYPE")
	AnalyzeCmd.Flags().StringVar(&outFile, "file", "", "Output specification path (default: stdout)")
	AnalyzeCmd.Flags().StringVar(&readmeFile, "readme", "", "Markdown file with table and column descriptions")
	AnalyzeCmd.Flags().StringVar(&outDir, "outdir", "", "Directory to write a data-catalog manifest into")
	AnalyzeCmd.MarkFlagRequired("source")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	result, err := inspect.File(source, rows)
	if err != nil {
		return err
	}
	for _, raw := range columns {
		column, err := inspect.ParseOverride(raw)
		if err != nil {
			return err
		}
		result.Table.Columns = append(result.Table.Columns, column)
		result.Headers = append(result.Headers, column.Name)
	}

	indexPolicy, err := spec.ParseIndexPolicy(policy)
	if err != nil {
		return err
	}
	if domainName == "" {
		domainName = result.Table.Name
	}
	domain := &spec.DomainSpec{
		Name:        domainName,
		Schema:      schemaName,
		IndexPolicy: indexPolicy,
		Tables:      []*spec.Table{result.Table},
	}

	data, err := spec.Marshal(domain)
	if err != nil {
		return fmt.Errorf("failed to marshal specification: %w", err)
	}
	if outFile == "" {
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	} else if err := os.WriteFile(outFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write specification: %w", err)
	}

	if outDir == "" {
		return nil
	}
	readme := ""
	if readmeFile != "" {
		content, err := os.ReadFile(readmeFile)
		if err != nil {
			return fmt.Errorf("failed to read readme: %w", err)
		}
		readme = string(content)
	}
	manifest := catalog.Build(domainName, result.Table, result.Headers, readme)
	path, err := manifest.Write(outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote data-catalog manifest %s\n", path)
	return nil
}
