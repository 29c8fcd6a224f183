package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlsentry/sqlsentry/internal/strategy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate sqlsentry artifacts",
}

var validatePlanCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Validate a strategy JSON file against the plan schema",
	Example: `  # Validate a plan produced by enhance --plan-json
  sqlsentry validate plan plan.json`,
	Args: cobra.ExactArgs(1),
	Run:  runValidatePlan,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(validatePlanCmd)
}

func runValidatePlan(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Failed to read %s: %v", args[0], err)
	}
	if err := strategy.ValidatePlanJSON(data); err != nil {
		log.Fatalf("Plan validation failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Plan is valid: %s\n", args[0])
}
