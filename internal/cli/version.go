package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lila %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}
}

// VersionString is the version reported to MCP clients.
func VersionString() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
