package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itz4blitz/mcpcheck/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcpcheck %s (commit: %s, mcp: %s)\n", version, commit, protocol.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
