package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlsentry/sqlsentry/internal/review"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [file]",
	Short: "Generate a safer rewrite of a migration",
	Long: `Enhance a migration into a safer multi-step plan with pre-flight checks,
validation queries, and a rollback strategy.

By default the enhanced SQL script is printed. With --interactive, the
applicable enhancement modules are offered for selection and applied to the
migration content instead.`,
	Example: `  # Print the safer multi-step script
  sqlsentry enhance migrations/20240115_add_users.sql

  # Apply specific enhancement modules
  sqlsentry enhance migrations/20240115_add_users.sql --apply lock-timeout,transaction-wrapper

  # Choose enhancements interactively
  sqlsentry enhance migrations/20240115_add_users.sql --interactive

  # Emit the full strategy as JSON
  sqlsentry enhance migrations/20240115_add_users.sql --plan-json plan.json`,
	Args: cobra.ExactArgs(1),
	Run:  runEnhance,
}

var (
	enhanceApply       []string
	enhanceInteractive bool
	enhanceOutput      string
	enhancePlanJSON    string
)

func init() {
	rootCmd.AddCommand(enhanceCmd)
	enhanceCmd.Flags().StringSliceVar(&enhanceApply, "apply", nil, "Enhancement module IDs to apply to the migration content")
	enhanceCmd.Flags().BoolVarP(&enhanceInteractive, "interactive", "i", false, "Select enhancement modules interactively")
	enhanceCmd.Flags().StringVarP(&enhanceOutput, "output", "o", "", "Write the result to a file instead of stdout")
	enhanceCmd.Flags().StringVar(&enhancePlanJSON, "plan-json", "", "Write the full strategy as JSON to a file")
}

func runEnhance(cmd *cobra.Command, args []string) {
	env := resolveEnvironment()
	files := loadMigrations(args[0], env.Dialect)
	file := files[0]

	eng := buildEngine(env)
	result := eng.Enhance(file)

	if enhancePlanJSON != "" {
		data, err := json.MarshalIndent(result.Strategy, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode strategy: %v", err)
		}
		if err := os.WriteFile(enhancePlanJSON, append(data, '\n'), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", enhancePlanJSON, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote strategy to %s\n", enhancePlanJSON)
	}

	var output string
	switch {
	case enhanceInteractive:
		outcome, err := review.Run(eng, result)
		if err != nil {
			log.Fatalf("Interactive review failed: %v", err)
		}
		if !outcome.Accepted {
			fmt.Fprintln(os.Stderr, "Aborted, no changes made.")
			return
		}
		for _, w := range outcome.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		output = outcome.Content

	case len(enhanceApply) > 0:
		content, applied, warnings := eng.Apply(file, enhanceApply)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		fmt.Fprintf(os.Stderr, "Applied %d enhancement(s)\n", len(applied))
		output = content

	default:
		output = result.Strategy.EnhancedSQL()
	}

	if enhanceOutput != "" {
		if err := os.WriteFile(enhanceOutput, []byte(output), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", enhanceOutput, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote enhanced migration to %s\n", enhanceOutput)
		return
	}
	fmt.Println(output)
}
