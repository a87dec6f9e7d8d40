// Package watch re-runs the fix pipeline when watched source files change.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/logger"
)

// RunFunc processes a batch of changed files.
type RunFunc func(ctx context.Context, files []string) error

// Watcher debounces filesystem events into batched pipeline runs.
type Watcher struct {
	debounce time.Duration
	patterns []string
	run      RunFunc
	clk      clock.Clock
	log      *logger.Logger
}

// New builds a watcher. patterns are file basename globs, for example
// "*.py".
func New(debounce time.Duration, patterns []string, run RunFunc, clk clock.Clock, log *logger.Logger) *Watcher {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Watcher{
		debounce: debounce,
		patterns: patterns,
		run:      run,
		clk:      clk,
		log:      log.WithPrefix("watch"),
	}
}

// Watch blocks, dispatching a run for each debounced batch of changes,
// until the context is canceled. Run failures are logged and watching
// continues.
func (w *Watcher) Watch(ctx context.Context, dirs []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return err
		}
	}
	w.log.Info("watching %d directories", len(dirs))

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !w.shouldHandle(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			flush = w.clk.After(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)

		case <-flush:
			files := make([]string, 0, len(pending))
			for file := range pending {
				files = append(files, file)
			}
			sort.Strings(files)
			pending = make(map[string]struct{})
			flush = nil

			w.log.Info("changes detected in %d files", len(files))
			if err := w.run(ctx, files); err != nil {
				w.log.Error("run failed: %v", err)
			}
		}
	}
}

// shouldHandle filters events down to watched source files, skipping
// anything inside the worktree pool.
func (w *Watcher) shouldHandle(name string) bool {
	if strings.Contains(name, ".codemend") {
		return false
	}

	base := filepath.Base(name)
	for _, pattern := range w.patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
