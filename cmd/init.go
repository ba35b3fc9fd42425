package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itz4blitz/mcpcheck/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Writes a config file with the default launch settings (java binary,
jar path, heap bounds, settle interval) so they can be edited in one place
instead of being passed as flags on every run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigFilePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
