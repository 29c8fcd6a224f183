package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sqlsentry",
	Short: "sqlsentry analyzes schema migrations for production risk.",
	Long: `sqlsentry analyzes schema migrations for production risk and generates
safer multi-step execution strategies with rollback plans.`,
}

var (
	flagEnv     string
	flagDialect string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Named environment from sqlsentry.toml")
	rootCmd.PersistentFlags().StringVar(&flagDialect, "dialect", "", "SQL dialect: postgresql, mysql, or sqlite (overrides config)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
