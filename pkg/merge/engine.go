// Package merge reconciles the fixed file versions produced by parallel
// oracle attempts into a single canonical result per file.
package merge

import (
	"context"
	"sort"
	"sync"

	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/logger"
)

// Version is one fixed variant of a file awaiting reconciliation.
type Version struct {
	// Content is the full fixed file.
	Content string

	// Issues are the diagnostics this version addressed.
	Issues []diagnostics.Issue

	// SpanStart is the first line the originating cluster covered. It
	// fixes the application order under the sequential strategy.
	SpanStart int
}

// OracleMerger reconciles versions the deterministic strategies cannot.
type OracleMerger interface {
	MergeFile(ctx context.Context, file string, base string, versions []Version) (string, error)
}

// Result describes the outcome of merging one file.
type Result struct {
	// Content is the merged file.
	Content string

	// Merged counts the versions whose fixes made it in.
	Merged int

	// Unresolved holds versions whose fixes were dropped because they
	// conflicted and no oracle could reconcile them.
	Unresolved []Version

	// UsedOracle reports whether the oracle produced Content.
	UsedOracle bool
}

// Engine merges per-file. Merges for the same file are serialized; the
// canonical tree only ever sees whole merge results.
type Engine struct {
	strategy Strategy
	oracle   OracleMerger
	log      *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds an engine. oracle may be nil; conflicts are then
// reported unresolved instead of escalated.
func NewEngine(strategy Strategy, oracle OracleMerger, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{
		strategy: strategy,
		oracle:   oracle,
		log:      log.WithPrefix("merge"),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) fileLock(file string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[file]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[file] = lock
	}
	return lock
}

// MergeFile reconciles versions of file against base. With zero versions
// the base comes back unchanged; with one, that version wins outright.
func (e *Engine) MergeFile(ctx context.Context, file string, base string, versions []Version) (Result, error) {
	lock := e.fileLock(file)
	lock.Lock()
	defer lock.Unlock()

	switch len(versions) {
	case 0:
		return Result{Content: base}, nil
	case 1:
		return Result{Content: versions[0].Content, Merged: 1}, nil
	}

	if e.strategy == StrategyOracle {
		return e.escalate(ctx, file, base, Result{Content: base}, versions, versions)
	}

	var accepted, conflicting []version
	if e.strategy == StrategySequential {
		accepted, conflicting = e.planSequential(base, versions)
	} else {
		accepted, conflicting = e.planOctopus(base, versions)
	}

	result := Result{Merged: len(accepted)}
	var hunks []hunk
	for _, v := range accepted {
		hunks = append(hunks, v.hunks...)
	}
	result.Content = applyHunks(base, hunks)

	if len(conflicting) == 0 {
		return result, nil
	}

	e.log.Info("%s: %d of %d versions conflict under %s", file, len(conflicting), len(versions), e.strategy)
	dropped := make([]Version, 0, len(conflicting))
	for _, v := range conflicting {
		dropped = append(dropped, v.Version)
	}
	return e.escalate(ctx, file, base, result, versions, dropped)
}

// version pairs a Version with its computed hunks.
type version struct {
	Version
	hunks []hunk
}

// planSequential orders versions by span start and accepts each one whose
// hunks avoid every previously accepted hunk.
func (e *Engine) planSequential(base string, versions []Version) (accepted, conflicting []version) {
	ordered := make([]version, 0, len(versions))
	for _, v := range versions {
		ordered = append(ordered, version{Version: v, hunks: computeHunks(base, v.Content)})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SpanStart < ordered[j].SpanStart
	})

	var taken []hunk
	for _, v := range ordered {
		if anyOverlap(v.hunks, taken) {
			conflicting = append(conflicting, v)
			continue
		}
		taken = append(taken, v.hunks...)
		accepted = append(accepted, v)
	}
	return accepted, conflicting
}

// planOctopus accepts versions only when no two of them overlap anywhere;
// every version touching an overlap is rejected, mirroring a failed
// multi-branch git merge.
func (e *Engine) planOctopus(base string, versions []Version) (accepted, conflicting []version) {
	all := make([]version, 0, len(versions))
	for _, v := range versions {
		all = append(all, version{Version: v, hunks: computeHunks(base, v.Content)})
	}

	bad := make([]bool, len(all))
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if anyOverlap(all[i].hunks, all[j].hunks) {
				bad[i] = true
				bad[j] = true
			}
		}
	}

	for i, v := range all {
		if bad[i] {
			conflicting = append(conflicting, v)
		} else {
			accepted = append(accepted, v)
		}
	}
	return accepted, conflicting
}

func anyOverlap(a, b []hunk) bool {
	for _, ha := range a {
		for _, hb := range b {
			if overlaps(ha, hb) {
				return true
			}
		}
	}
	return false
}

// escalate asks the oracle to reconcile all versions at once. When no
// oracle is wired or it fails, the deterministic partial result stands and
// the versions it could not place are reported unresolved.
func (e *Engine) escalate(ctx context.Context, file, base string, partial Result, all, dropped []Version) (Result, error) {
	if e.oracle == nil {
		partial.Unresolved = dropped
		return partial, nil
	}

	content, err := e.oracle.MergeFile(ctx, file, base, all)
	if err != nil {
		e.log.Warn("oracle merge failed for %s: %v", file, err)
		partial.Unresolved = dropped
		return partial, nil
	}

	return Result{Content: content, Merged: len(all), UsedOracle: true}, nil
}
