// Package cli holds the lila command tree.
package cli

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.toml"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lila",
		Short: "Relationship intelligence graph over MCP",
		Long: "Lila keeps personas and their relationships in a graph and serves " +
			"bounded relationship updates, compatibility analysis and assessment prompts over MCP.",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", defaultConfigPath, "path to the TOML config file")
	root.PersistentFlags().String("store", "", "store backend: neo4j or memory (overrides config)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
