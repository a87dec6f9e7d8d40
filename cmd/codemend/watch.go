package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codemend/codemend/pkg/oracle"
	"github.com/codemend/codemend/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Watch directories and fix files as they change",
	Long: `Watch monitors the given directories (default: current directory) for
changes to matching files and runs the fix pipeline over each batch of
changed files after a debounce interval.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Int("debounce-ms", 0, "debounce interval in milliseconds")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if oracle.InProgress() {
		fmt.Println("fix already in progress, skipping")
		return nil
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if ms, _ := cmd.Flags().GetInt("debounce-ms"); ms > 0 {
		cfg.Watch.DebounceMS = ms
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := filepath.Abs(".")
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

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{root}
	}

	run := func(ctx context.Context, files []string) error {
		// The controller works with repo-relative paths.
		rel := make([]string, 0, len(files))
		for _, f := range files {
			r, err := filepath.Rel(root, f)
			if err != nil {
				log.Warn("skipping file outside repository: %s", f)
				continue
			}
			rel = append(rel, r)
		}
		if len(rel) == 0 {
			return nil
		}
		report, err := p.controller.Run(ctx, rel)
		if report != nil {
			fmt.Println(report.Render())
		}
		return err
	}

	w := watch.New(cfg.Debounce(), cfg.Watch.Patterns, run, nil, log)
	return w.Watch(cmd.Context(), dirs)
}
