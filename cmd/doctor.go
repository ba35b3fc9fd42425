package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/itz4blitz/mcpcheck/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a conformance run can work on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		allOK := true

		// 1. Config file
		cfg := config.Default()
		cfgPath, err := config.ConfigFilePath()
		if err != nil {
			fmt.Printf("Config:  FAIL (cannot determine path: %v)\n", err)
			allOK = false
		} else if _, statErr := os.Stat(cfgPath); statErr != nil {
			fmt.Printf("Config:  WARN (no file at %s, using defaults)\n", cfgPath)
		} else {
			cfg, err = config.Load(cfgPath)
			if err != nil {
				fmt.Printf("Config:  FAIL (%v)\n", err)
				allOK = false
				cfg = config.Default()
			} else {
				fmt.Printf("Config:  OK (%s)\n", cfgPath)
			}
		}

		// 2. Java binary
		if javaPath, err := exec.LookPath(cfg.JavaBin); err != nil {
			fmt.Printf("Java:    FAIL (%q not found in PATH)\n", cfg.JavaBin)
			allOK = false
		} else {
			fmt.Printf("Java:    OK (%s)\n", javaPath)
		}

		// 3. Server jar
		if info, err := os.Stat(cfg.JarPath); err != nil {
			fmt.Printf("Jar:     FAIL (not found at %s, run `mvn clean package` first)\n", cfg.JarPath)
			allOK = false
		} else {
			fmt.Printf("Jar:     OK (%s, %d bytes)\n", cfg.JarPath, info.Size())
		}

		// 4. Intervals parse
		if _, err := cfg.SettleInterval(); err != nil {
			fmt.Printf("Settle:  FAIL (%v)\n", err)
			allOK = false
		}
		if _, err := cfg.StopTimeout(); err != nil {
			fmt.Printf("Stop:    FAIL (%v)\n", err)
			allOK = false
		}

		// 5. Log directory
		if logDir, err := config.LogDir(); err != nil {
			fmt.Printf("Logs:    WARN (cannot determine log dir: %v)\n", err)
		} else {
			fmt.Printf("Logs:    OK (%s)\n", logDir)
		}

		if !allOK {
			return fmt.Errorf("some checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
