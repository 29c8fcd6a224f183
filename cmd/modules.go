package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sqlsentry/sqlsentry/internal/engine"
	"github.com/sqlsentry/sqlsentry/internal/modules"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the available enhancement modules",
	Run:   runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) {
	registry := engine.NewRegistry(modules.Defaults()...)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tPRIORITY\tCONFIRM\tDESCRIPTION")
	for _, m := range registry.All() {
		meta := m.Metadata()
		confirm := ""
		if meta.RequiresConfirmation {
			confirm = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", meta.ID, meta.Category, meta.Priority, confirm, meta.Description)
	}
	_ = w.Flush()
}
