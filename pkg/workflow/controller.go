// Package workflow runs the fix loop: diagnose, predict, cluster, dispatch,
// merge, and iterate until the files converge or progress stops.
package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/cluster"
	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/dispatch"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
	"github.com/codemend/codemend/pkg/merge"
	"github.com/codemend/codemend/pkg/predict"
)

// State is the terminal state of a run.
type State int

const (
	// StateConverged means a diagnosis pass found no issues.
	StateConverged State = iota
	// StateExhausted means the iteration limit was hit with issues left.
	StateExhausted
	// StateStalled means an iteration applied no fixes and failed to
	// reduce the issue count.
	StateStalled
	// StateAborted means the run stopped early, usually on cancellation;
	// the report still reflects everything merged before the stop.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	case StateStalled:
		return "stalled"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IterationRecord summarizes one pass of the loop.
type IterationRecord struct {
	Index        int
	IssuesBefore int
	IssuesAfter  int
	Clusters     int
	Elapsed      time.Duration
}

// Report is the outcome of a whole run.
type Report struct {
	State         State
	Iterations    []IterationRecord
	InitialIssues int
	FinalIssues   int

	// Fixed lists, per file, the initially diagnosed issues that are gone
	// in the latest diagnosis. Remaining holds what is still open.
	Fixed     map[string][]diagnostics.Issue
	Remaining map[string][]diagnostics.Issue

	Files   []string
	Elapsed time.Duration
}

// Store reads and writes the canonical files the run operates on.
type Store interface {
	Read(file string) (string, error)
	Write(file string, content string) error
}

// OSStore is the file store over a repository root.
type OSStore struct {
	Root string
}

func (s OSStore) Read(file string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, file))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s OSStore) Write(file string, content string) error {
	return os.WriteFile(filepath.Join(s.Root, file), []byte(content), 0600)
}

// Clusterer splits a file's issues into fix units.
type Clusterer interface {
	Split(file string, issues []diagnostics.Issue) []cluster.Cluster
}

// Fixer applies predictive patches before any oracle involvement.
type Fixer interface {
	Apply(content string, issues []diagnostics.Issue) predict.Result
}

// Dispatcher fans clusters out to fix workers.
type Dispatcher interface {
	DispatchAll(ctx context.Context, tasks []dispatch.Task) ([]dispatch.Attempt, error)
}

// Merger reconciles fixed versions into one file.
type Merger interface {
	MergeFile(ctx context.Context, file string, base string, versions []merge.Version) (merge.Result, error)
}

// Notifier announces run completion. Optional.
type Notifier interface {
	Notify(title, message string) error
}

// Params wires a controller.
type Params struct {
	Provider   diagnostics.Provider
	Clusterer  Clusterer
	Fixer      Fixer
	Dispatcher Dispatcher
	Merger     Merger
	Store      Store
	Notifier   Notifier

	// MaxIterations caps full passes over the files. Zero means the
	// default of three.
	MaxIterations int

	Clock  clock.Clock
	Logger *logger.Logger
}

// Controller owns one run of the fix loop.
type Controller struct {
	provider   diagnostics.Provider
	clusterer  Clusterer
	fixer      Fixer
	dispatcher Dispatcher
	merger     Merger
	store      Store
	notifier   Notifier

	maxIterations int
	clk           clock.Clock
	log           *logger.Logger
}

// NewController validates params and builds a controller.
func NewController(p Params) (*Controller, error) {
	switch {
	case p.Provider == nil:
		return nil, errors.ConfigurationError("workflow requires a diagnostics provider")
	case p.Clusterer == nil:
		return nil, errors.ConfigurationError("workflow requires a clusterer")
	case p.Fixer == nil:
		return nil, errors.ConfigurationError("workflow requires a fixer")
	case p.Dispatcher == nil:
		return nil, errors.ConfigurationError("workflow requires a dispatcher")
	case p.Merger == nil:
		return nil, errors.ConfigurationError("workflow requires a merger")
	case p.Store == nil:
		return nil, errors.ConfigurationError("workflow requires a file store")
	}

	if p.MaxIterations <= 0 {
		p.MaxIterations = 3
	}
	if p.Clock == nil {
		p.Clock = clock.NewRealClock()
	}
	if p.Logger == nil {
		p.Logger = logger.NewDefault()
	}

	return &Controller{
		provider:      p.Provider,
		clusterer:     p.Clusterer,
		fixer:         p.Fixer,
		dispatcher:    p.Dispatcher,
		merger:        p.Merger,
		store:         p.Store,
		notifier:      p.Notifier,
		maxIterations: p.MaxIterations,
		clk:           p.Clock,
		log:           p.Logger.WithPrefix("workflow"),
	}, nil
}

// Run drives the loop over files until convergence, a stall, or the
// iteration limit. Per-cluster failures never abort the run; context
// cancellation and file store errors do, and then the returned report still
// carries everything merged up to that point under StateAborted.
func (c *Controller) Run(ctx context.Context, files []string) (*Report, error) {
	report := &Report{Files: files}
	runStart := c.clk.Now()
	defer func() {
		report.Elapsed = c.clk.Since(runStart)
		c.notify(report)
	}()

	var initial map[string][]diagnostics.Issue
	previous := -1
	lastFixes := 0

	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		issuesByFile, total, err := c.diagnoseAll(ctx, files)
		if err != nil {
			report.State = StateAborted
			return report, err
		}
		c.closeRecord(report, total)

		if iteration == 1 {
			report.InitialIssues = total
			initial = issuesByFile
		}
		report.Remaining = issuesByFile
		report.FinalIssues = total
		report.Fixed = fixedIssues(initial, issuesByFile)

		if total == 0 {
			report.State = StateConverged
			c.log.Info("converged after %d iterations", iteration-1)
			return report, nil
		}

		// A pass that applied fixes may legitimately surface more issues
		// than it removed, so only a fruitless pass counts as a stall.
		if previous >= 0 && total >= previous && lastFixes == 0 {
			report.State = StateStalled
			c.log.Warn("no progress: %d issues before, %d now", previous, total)
			return report, nil
		}
		previous = total

		c.log.Info("iteration %d: %d issues across %d files", iteration, total, len(issuesByFile))

		record := IterationRecord{Index: iteration, IssuesBefore: total, IssuesAfter: -1}
		iterStart := c.clk.Now()

		var clusters, fixes atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		for file, issues := range issuesByFile {
			if len(issues) == 0 {
				continue
			}
			file, issues := file, issues
			g.Go(func() error {
				n, f, err := c.processFile(gctx, file, issues)
				clusters.Add(int64(n))
				fixes.Add(int64(f))
				return err
			})
		}
		if err := g.Wait(); err != nil {
			report.State = StateAborted
			return report, err
		}
		lastFixes = int(fixes.Load())

		record.Clusters = int(clusters.Load())
		record.Elapsed = c.clk.Since(iterStart)
		report.Iterations = append(report.Iterations, record)
	}

	// One more diagnosis to settle the final counts.
	issuesByFile, total, err := c.diagnoseAll(ctx, files)
	if err != nil {
		report.State = StateAborted
		return report, err
	}
	c.closeRecord(report, total)
	report.Remaining = issuesByFile
	report.FinalIssues = total
	report.Fixed = fixedIssues(initial, issuesByFile)

	if total == 0 {
		report.State = StateConverged
	} else {
		report.State = StateExhausted
		c.log.Warn("iteration limit reached with %d issues remaining", total)
	}
	return report, nil
}

// diagnoseAll collects normalized issues per file. A provider that reports
// itself unavailable contributes zero issues instead of failing the run.
func (c *Controller) diagnoseAll(ctx context.Context, files []string) (map[string][]diagnostics.Issue, int, error) {
	byFile := make(map[string][]diagnostics.Issue, len(files))
	total := 0

	ordered := make([]string, len(files))
	copy(ordered, files)
	sort.Strings(ordered)

	for _, file := range ordered {
		issues, err := c.provider.Diagnose(ctx, file)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeDiagnosis) {
				c.log.Warn("diagnosis unavailable for %s, assuming clean: %v", file, err)
				byFile[file] = nil
				continue
			}
			return nil, 0, err
		}
		normalized := diagnostics.Normalize(issues)
		byFile[file] = normalized
		total += len(normalized)
	}
	return byFile, total, nil
}

// processFile runs predict, cluster, dispatch, and merge for one file and
// writes the result back. Returns the number of clusters dispatched and the
// number of fix applications (predictive fixes plus attempts that produced
// a usable version), which feeds the stall rule.
func (c *Controller) processFile(ctx context.Context, file string, issues []diagnostics.Issue) (int, int, error) {
	content, err := c.store.Read(file)
	if err != nil {
		return 0, 0, err
	}

	predicted := c.fixer.Apply(content, issues)
	fixes := len(predicted.Fixed)
	if fixes > 0 {
		c.log.Info("%s: %d issues fixed predictively", file, fixes)
	}

	if len(predicted.Remaining) == 0 {
		if predicted.Content != content {
			return 0, fixes, c.store.Write(file, predicted.Content)
		}
		return 0, fixes, nil
	}

	clusters := c.clusterer.Split(file, predicted.Remaining)
	tasks := make([]dispatch.Task, len(clusters))
	for i, cl := range clusters {
		tasks[i] = dispatch.Task{Cluster: cl, Content: predicted.Content}
	}

	attempts, err := c.dispatcher.DispatchAll(ctx, tasks)
	if err != nil {
		return len(clusters), fixes, err
	}

	versions := make([]merge.Version, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.Patch == "" {
			continue
		}
		if attempt.Status != dispatch.StatusFixed && attempt.Status != dispatch.StatusPartial {
			continue
		}
		versions = append(versions, merge.Version{
			Content:   attempt.Patch,
			Issues:    attempt.Cluster.Issues,
			SpanStart: attempt.Cluster.StartLine,
		})
	}
	fixes += len(versions)

	result, err := c.merger.MergeFile(ctx, file, predicted.Content, versions)
	if err != nil {
		return len(clusters), fixes, err
	}
	if len(result.Unresolved) > 0 {
		c.log.Warn("%s: %d fixed versions left unresolved", file, len(result.Unresolved))
	}

	if result.Content != content {
		return len(clusters), fixes, c.store.Write(file, result.Content)
	}
	return len(clusters), fixes, nil
}

// fixedIssues lists, per file, the initially diagnosed issues absent from
// the latest diagnosis.
func fixedIssues(initial, current map[string][]diagnostics.Issue) map[string][]diagnostics.Issue {
	fixed := make(map[string][]diagnostics.Issue, len(initial))
	for file, issues := range initial {
		still := diagnostics.Identities(current[file])
		for _, issue := range issues {
			if _, open := still[issue.Identity()]; !open {
				fixed[file] = append(fixed[file], issue)
			}
		}
	}
	return fixed
}

// closeRecord fills the previous iteration's after-count once the next
// diagnosis is in.
func (c *Controller) closeRecord(report *Report, total int) {
	if n := len(report.Iterations); n > 0 && report.Iterations[n-1].IssuesAfter < 0 {
		report.Iterations[n-1].IssuesAfter = total
	}
}

func (c *Controller) notify(report *Report) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify("codemend", summaryLine(report)); err != nil {
		c.log.Debug("notification failed: %v", err)
	}
}
