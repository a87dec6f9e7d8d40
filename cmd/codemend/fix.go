package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemend/codemend/pkg/oracle"
	"github.com/codemend/codemend/pkg/workflow"
)

var fixCmd = &cobra.Command{
	Use:   "fix <file>...",
	Short: "Diagnose and fix linting issues in the given files",
	Long: `Fix runs the full pipeline over the given files: diagnose, apply
predictive fixes, dispatch the rest to the oracle in parallel worktrees,
merge the results, and iterate until the files are clean.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	fixCmd.Flags().String("strategy", "", "clustering strategy (proximity, similarity, hybrid)")
	fixCmd.Flags().String("merge-strategy", "", "merge strategy (oracle, sequential, octopus)")
	fixCmd.Flags().Int("max-iterations", 0, "maximum fix iterations")
}

func runFix(cmd *cobra.Command, args []string) error {
	// A fix spawned by our own oracle subprocess must not recurse.
	if oracle.InProgress() {
		fmt.Println("fix already in progress, skipping")
		return nil
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		cfg.Clustering.Strategy = strategy
	}
	if strategy, _ := cmd.Flags().GetString("merge-strategy"); strategy != "" {
		cfg.Merge.Strategy = strategy
	}
	if max, _ := cmd.Flags().GetInt("max-iterations"); max > 0 {
		cfg.Iterations.Max = max
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, log, root)
	if err != nil {
		return err
	}
	defer p.close()

	if !p.oracle.Available(cmd.Context()) {
		log.Warn("oracle unavailable, only predictive fixes will apply")
	}

	report, err := p.controller.Run(cmd.Context(), args)
	if report != nil {
		fmt.Println(report.Render())
	}
	if err != nil {
		return err
	}

	// Returning an error lets deferred cleanup run and still exits
	// non-zero through Execute.
	if report.State != workflow.StateConverged {
		return fmt.Errorf("run %s with %d issues remaining", report.State, report.FinalIssues)
	}
	return nil
}
