package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sqlsentry version",
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(buildVersion())
}

// buildVersion assembles a version string from the module version and any
// VCS stamps the build carried. Outside a module build it reports "dev".
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	parts := []string{info.Main.Version}
	if parts[0] == "(devel)" || parts[0] == "" {
		parts[0] = "dev"
	}

	var revision, built string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		case "vcs.time":
			built = s.Value
		}
	}

	if revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		if dirty {
			revision += "-dirty"
		}
		parts = append(parts, "("+revision+")")
	}
	if built != "" {
		parts = append(parts, "built", built)
	}
	return strings.Join(parts, " ")
}
