package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itz4blitz/mcpcheck/internal/client"
	"github.com/itz4blitz/mcpcheck/internal/config"
	"github.com/itz4blitz/mcpcheck/internal/harness"
	"github.com/itz4blitz/mcpcheck/internal/logging"
	"github.com/itz4blitz/mcpcheck/internal/server"
)

var (
	flagConfig   string
	flagJar      string
	flagJava     string
	flagSettle   string
	flagLogLevel string
	flagLogFile  string
)

var rootCmd = &cobra.Command{
	Use:   "mcpcheck",
	Short: "Conformance checker for the JMX MCP server",
	Long: `mcpcheck launches the JMX MCP server as a subprocess speaking MCP over
stdio and drives it through the initialization handshake, tool discovery,
resource discovery, and a sample tool invocation. Steps run in order and
the run stops at the first failure.

Exits 0 only if every step passed.`,
	SilenceUsage: true,
	RunE:         runChecks,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (default: ~/.config/mcpcheck/config.json if present)")
	rootCmd.Flags().StringVar(&flagJar, "jar", "", "Path to the server jar (overrides config)")
	rootCmd.Flags().StringVar(&flagJava, "java", "", "Java binary to launch the server with (overrides config)")
	rootCmd.Flags().StringVar(&flagSettle, "settle", "", "Startup grace period before the first exchange, e.g. 3s (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Also write JSON logs to this file")
}

// loadConfig resolves the effective config: explicit --config, then the
// default config file if one exists, then built-in defaults, with flag
// overrides applied last.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config

	switch {
	case flagConfig != "":
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
	default:
		cfg = config.Default()
		if path, err := config.ConfigFilePath(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err = config.Load(path)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if cmd.Flags().Changed("jar") {
		cfg.JarPath = flagJar
	}
	if cmd.Flags().Changed("java") {
		cfg.JavaBin = flagJava
	}
	if cmd.Flags().Changed("settle") {
		cfg.Settle = flagSettle
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

func runChecks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, logCleanup, err := logging.Setup(flagLogFile, level)
	if err != nil {
		return err
	}
	defer logCleanup()

	// An interrupt cancels the context, which unblocks any pending read;
	// the deferred Stop then reaps the child on this path too.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	defer srv.Stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	c := client.New(srv.Transport(), logger)
	runner := harness.NewRunner(c, logger)
	result := runner.Run(ctx)

	for _, step := range result.Steps {
		if step.Passed() {
			fmt.Printf("PASS  %s\n", step.Name)
		} else {
			fmt.Printf("FAIL  %s (%v)\n", step.Name, step.Err)
		}
	}
	fmt.Printf("%d/%d steps passed\n", result.Passed, result.Total)

	if result.Interrupted {
		return fmt.Errorf("run interrupted")
	}
	if !result.AllPassed() {
		return fmt.Errorf("conformance check failed")
	}
	return nil
}
