package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlsentry/sqlsentry/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Assess the production risk of migration files",
	Long: `Analyze a migration file or directory of migrations and report risk
findings, a safer execution plan, and applicable enhancements.

With a database connection configured, table statistics escalate findings
that depend on table size.`,
	Example: `  # Analyze one migration
  sqlsentry analyze migrations/20240115_add_users.sql

  # Analyze a directory against the staging environment
  sqlsentry analyze migrations/ --env staging

  # Machine-readable output
  sqlsentry analyze migrations/ --format json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

var (
	analyzeFormat  string
	analyzeVerbose bool
	analyzeFailOn  string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format: text or json")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Include step SQL in text output")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "", "Exit non-zero when any migration reaches this risk level (MEDIUM, HIGH, or CRITICAL)")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	env := resolveEnvironment()

	path := env.MigrationsDir
	if len(args) > 0 {
		path = args[0]
	}

	files := loadMigrations(path, env.Dialect)
	eng := buildEngine(env)
	results := eng.EnhanceAll(files)

	renderer := report.NewRenderer(os.Stdout, report.Format(analyzeFormat), analyzeVerbose)
	if err := renderer.RenderAll(results); err != nil {
		log.Fatalf("Failed to render results: %v", err)
	}

	if analyzeFailOn != "" && anyAtOrAbove(results, analyzeFailOn) {
		os.Exit(2)
	}
}
