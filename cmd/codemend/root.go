package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemend/codemend/pkg/config"
	"github.com/codemend/codemend/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "codemend",
	SilenceUsage: true,
	Short:        "Automatic multi-stage linting issue fixer",
	Long: `codemend diagnoses linting issues and fixes them automatically.

codemend runs the whole repair pipeline:
- Diagnoses files with the configured linter
- Applies known fixes predictively without any AI involvement
- Clusters the remaining issues into focused fix units
- Dispatches each cluster to an AI oracle in an isolated git worktree
- Merges the parallel fixes back into a single canonical file
- Iterates until the files converge or progress stops`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .codemend.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
}

// loadConfig reads configuration and applies command line overrides.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, nil, err
	}

	if logLevel, _ := rootCmd.PersistentFlags().GetString("log-level"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile, _ := rootCmd.PersistentFlags().GetString("log-file"); logFile != "" {
		cfg.Logging.File = logFile
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.ToLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to initialize logger: %v\n", err)
		log = logger.NewDefault()
	}
	return cfg, log, nil
}
