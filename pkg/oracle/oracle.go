// Package oracle drives the claude CLI in non-interactive mode to repair
// issue clusters that predictive rules cannot handle, and to merge
// divergent fixed versions of a file.
package oracle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
)

// EnvRunToken marks oracle subprocesses so a hook-triggered re-entry of the
// fixer can recognize itself and bail out.
const EnvRunToken = "CODEMEND_FIX_IN_PROGRESS"

const (
	// DefaultCommand is the CLI binary the oracle shells out to.
	DefaultCommand = "claude"

	// DefaultTimeout bounds a single oracle invocation.
	DefaultTimeout = 600 * time.Second

	// probeTimeout bounds the availability check.
	probeTimeout = 5 * time.Second
)

// Config holds oracle invocation settings.
type Config struct {
	// Command is the CLI binary name or path. Empty means DefaultCommand.
	Command string

	// Timeout bounds one invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client invokes the oracle CLI. One client serves a whole run; every
// subprocess it spawns carries the run token.
type Client struct {
	command  string
	timeout  time.Duration
	runToken string
	clk      clock.Clock
	log      *logger.Logger
}

// NewClient builds a client that tags subprocesses with runToken.
func NewClient(config Config, runToken string, clk clock.Clock, log *logger.Logger) *Client {
	if config.Command == "" {
		config.Command = DefaultCommand
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Client{
		command:  config.Command,
		timeout:  config.Timeout,
		runToken: runToken,
		clk:      clk,
		log:      log.WithPrefix("oracle"),
	}
}

// InProgress reports whether this process was itself spawned by an oracle
// invocation. A run started from a hook must stop here instead of recursing.
func InProgress() bool {
	return os.Getenv(EnvRunToken) != ""
}

// Available probes the CLI with a version check. A run without an oracle
// still performs predictive fixes, so this is advisory, not fatal.
func (c *Client) Available(ctx context.Context) bool {
	probeCtx, cancel := clock.WithTimeout(ctx, c.clk, probeTimeout)
	defer cancel()

	// #nosec G204 - command comes from validated configuration
	cmd := exec.CommandContext(probeCtx, c.command, "--version")
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		c.log.Warn("%s --version failed: %v", c.command, err)
		return false
	}
	return true
}

// FixCluster asks the oracle to repair the issues described by prompt,
// editing files in place inside dir.
func (c *Client) FixCluster(ctx context.Context, dir string, prompt string) error {
	return c.run(ctx, dir, prompt, "Read,Edit,MultiEdit", "fix cluster")
}

// MergeVersions asks the oracle to reconcile conflicting fixed versions,
// writing the merged file inside dir.
func (c *Client) MergeVersions(ctx context.Context, dir string, prompt string) error {
	return c.run(ctx, dir, prompt, "Read,Write", "merge versions")
}

func (c *Client) run(ctx context.Context, dir, prompt, allowedTools, operation string) error {
	runCtx, cancel := clock.WithTimeout(ctx, c.clk, c.timeout)
	defer cancel()

	// #nosec G204 - command comes from validated configuration
	cmd := exec.CommandContext(runCtx, c.command,
		"-p", prompt,
		"--dangerously-skip-permissions",
		"--allowedTools", allowedTools,
		"--output-format", "text",
	)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", EnvRunToken, c.runToken))
	// Unblocks CombinedOutput after a kill even when a grandchild still
	// holds the output pipe.
	cmd.WaitDelay = time.Second

	start := c.clk.Now()
	output, err := cmd.CombinedOutput()
	elapsed := c.clk.Since(start)

	if err != nil {
		if context.Cause(runCtx) == context.DeadlineExceeded {
			c.log.Warn("%s timed out after %s", operation, c.timeout)
			return errors.OracleTimeoutError(operation, context.Cause(runCtx))
		}
		return errors.NewError(errors.ErrorTypeOracle).
			WithMessagef("oracle failed to %s", operation).
			WithCause(err).
			WithContext("output", strings.TrimSpace(string(output))).
			WithContext("dir", dir).
			WithRecoverable(true).
			Build()
	}

	c.log.Debug("%s completed in %s", operation, elapsed)
	return nil
}
