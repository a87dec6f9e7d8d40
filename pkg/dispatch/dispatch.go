// Package dispatch fans issue clusters out to oracle workers, one isolated
// workspace per cluster, and collects the resulting fix attempts.
package dispatch

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/cluster"
	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
	"github.com/codemend/codemend/pkg/oracle"
)

// Oracle repairs the issues described by prompt, editing files under dir.
type Oracle interface {
	FixCluster(ctx context.Context, dir string, prompt string) error
}

// Workspace is the slice of workspace.Workspace the dispatcher needs.
type Workspace interface {
	Dir() string
	ReadFile(rel string) (string, error)
	WriteFile(rel string, content string) error
	Dispose()
}

// WorkspaceProvider hands out isolated workspaces keyed by cluster
// fingerprint.
type WorkspaceProvider interface {
	Acquire(ctx context.Context, fingerprint string) (Workspace, error)
}

// Status classifies the outcome of one cluster's fix attempt.
type Status int

const (
	// StatusFixed means every issue in the cluster is gone.
	StatusFixed Status = iota
	// StatusPartial means some but not all issues remain.
	StatusPartial
	// StatusFailed means the oracle could not produce a fix.
	StatusFailed
	// StatusTimedOut means the oracle ran out of time on every attempt.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusFixed:
		return "fixed"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Task is one cluster to fix, together with the file content the workspace
// should start from. Content already carries any predictive fixes.
type Task struct {
	Cluster cluster.Cluster
	Content string
}

// Attempt records the outcome of one task. A failed attempt never aborts
// its siblings; the error travels here instead.
type Attempt struct {
	Cluster cluster.Cluster
	Status  Status

	// Patch is the full content of the cluster's file as the workspace
	// left it. Empty unless the attempt produced a fix.
	Patch string

	// Remaining holds the cluster issues still present after the fix,
	// when a verifier is configured.
	Remaining []diagnostics.Issue

	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Config bounds the dispatcher.
type Config struct {
	// MaxWorkers caps concurrently running oracle invocations.
	MaxWorkers int64

	// MaxFixAttempts caps oracle retries per cluster.
	MaxFixAttempts int
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{MaxWorkers: 10, MaxFixAttempts: 3}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return errors.ConfigurationError("maxWorkers must be at least 1")
	}
	if c.MaxFixAttempts < 1 {
		return errors.ConfigurationError("maxFixAttempts must be at least 1")
	}
	return nil
}

// Dispatcher runs fix tasks concurrently. Worker and workspace limits are
// independent; a task may hold a workspace while waiting for a worker slot.
type Dispatcher struct {
	oracle     Oracle
	workspaces WorkspaceProvider

	// verifier re-diagnoses the fixed file to classify the attempt.
	// Optional; without it an oracle success counts as fixed.
	verifier diagnostics.Provider

	config  Config
	workers *semaphore.Weighted
	clk     clock.Clock
	log     *logger.Logger
}

// NewDispatcher wires a dispatcher. verifier may be nil.
func NewDispatcher(o Oracle, wp WorkspaceProvider, verifier diagnostics.Provider, config Config, clk clock.Clock, log *logger.Logger) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Dispatcher{
		oracle:     o,
		workspaces: wp,
		verifier:   verifier,
		config:     config,
		workers:    semaphore.NewWeighted(config.MaxWorkers),
		clk:        clk,
		log:        log.WithPrefix("dispatch"),
	}, nil
}

// DispatchAll runs every task and returns one attempt per task, in task
// order. The only error it returns is context cancellation; per-task
// failures are recorded in the attempts.
func (d *Dispatcher) DispatchAll(ctx context.Context, tasks []Task) ([]Attempt, error) {
	attempts := make([]Attempt, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := d.workers.Acquire(gctx, 1); err != nil {
				return err
			}
			defer d.workers.Release(1)

			attempts[i] = d.Dispatch(gctx, task)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// Dispatch runs a single task to completion and always disposes its
// workspace.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) Attempt {
	attempt := Attempt{Cluster: task.Cluster}
	start := d.clk.Now()
	defer func() { attempt.Elapsed = d.clk.Since(start) }()

	ws, err := d.workspaces.Acquire(ctx, task.Cluster.Fingerprint)
	if err != nil {
		attempt.Status = StatusFailed
		attempt.Err = errors.WorkspaceError("acquire", err)
		return attempt
	}
	defer ws.Dispose()

	if err := ws.WriteFile(task.Cluster.File, task.Content); err != nil {
		attempt.Status = StatusFailed
		attempt.Err = errors.WorkspaceError("seed file", err)
		return attempt
	}

	prompt := oracle.FixPrompt(
		task.Cluster.File,
		task.Cluster.Issues,
		oracle.ContextExcerpt(task.Content, task.Cluster.Issues),
	)

	retryConfig := errors.DefaultRetryConfig()
	retryConfig.MaxAttempts = d.config.MaxFixAttempts

	var lastErr error
	err = errors.RetryWithClock(ctx, d.clk, retryConfig, func() error {
		attempt.Attempts++
		lastErr = d.oracle.FixCluster(ctx, ws.Dir(), prompt)
		return lastErr
	}, errors.OracleShouldRetry)

	if err != nil {
		attempt.Err = err
		if errors.IsType(lastErr, errors.ErrorTypeOracleTimeout) {
			attempt.Status = StatusTimedOut
		} else {
			attempt.Status = StatusFailed
		}
		d.log.Warn("cluster %s on %s failed after %d attempts: %v",
			task.Cluster.Fingerprint, task.Cluster.File, attempt.Attempts, err)
		return attempt
	}

	patch, err := ws.ReadFile(task.Cluster.File)
	if err != nil {
		attempt.Status = StatusFailed
		attempt.Err = errors.WorkspaceError("read fixed file", err)
		return attempt
	}
	attempt.Patch = patch

	d.classify(ctx, ws, &attempt)
	d.log.Info("cluster %s on %s: %s", task.Cluster.Fingerprint, task.Cluster.File, attempt.Status)
	return attempt
}

// classify re-diagnoses the fixed file when a verifier is present and
// records which cluster issues survived.
func (d *Dispatcher) classify(ctx context.Context, ws Workspace, attempt *Attempt) {
	attempt.Status = StatusFixed
	if d.verifier == nil {
		return
	}

	after, err := d.verifier.Diagnose(ctx, filepath.Join(ws.Dir(), attempt.Cluster.File))
	if err != nil {
		// Verification is advisory; an unavailable checker keeps the
		// oracle's word.
		d.log.Warn("verification skipped for %s: %v", attempt.Cluster.File, err)
		return
	}

	// The worktree path differs from the repository-relative one, so
	// issues are matched by line and code only.
	type key struct {
		line int
		code string
	}
	wanted := make(map[key]struct{}, len(attempt.Cluster.Issues))
	for _, issue := range attempt.Cluster.Issues {
		wanted[key{issue.Line, issue.Code}] = struct{}{}
	}
	for _, issue := range after {
		if _, ok := wanted[key{issue.Line, issue.Code}]; ok {
			attempt.Remaining = append(attempt.Remaining, issue)
		}
	}
	if len(attempt.Remaining) == len(attempt.Cluster.Issues) {
		attempt.Status = StatusFailed
	} else if len(attempt.Remaining) > 0 {
		attempt.Status = StatusPartial
	}
}
