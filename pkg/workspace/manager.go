// Package workspace manages the pool of detached git worktrees used to
// isolate concurrent fix attempts from the working tree and each other.
package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
)

const worktreesDir = ".codemend/worktrees"

// Manager creates and disposes workspaces for a single repository. The
// number of live worktrees never exceeds the configured limit; Acquire
// blocks until a slot frees up.
type Manager struct {
	root          string
	worktreesPath string
	repo          *git.Repository
	sem           *semaphore.Weighted
	clk           clock.Clock
	log           *logger.Logger

	mu     sync.Mutex
	active map[string]*Workspace
}

// NewManager opens the repository at root and prepares a workspace pool of
// the given size.
func NewManager(root string, maxWorktrees int64, clk clock.Clock, log *logger.Logger) (*Manager, error) {
	if maxWorktrees < 1 {
		return nil, errors.ConfigurationError("maxWorktrees must be at least 1")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("failed to open repository").
			WithCause(err).
			WithContext("path", root).
			Build()
	}

	return &Manager{
		root:          root,
		worktreesPath: filepath.Join(root, worktreesDir),
		repo:          repo,
		sem:           semaphore.NewWeighted(maxWorktrees),
		clk:           clk,
		log:           log.WithPrefix("workspace"),
		active:        make(map[string]*Workspace),
	}, nil
}

// Head returns the commit hash the repository currently points at.
func (m *Manager) Head() (string, error) {
	ref, err := m.repo.Head()
	if err != nil {
		return "", errors.GitError("resolve HEAD", err)
	}
	return ref.Hash().String(), nil
}

// Acquire blocks until a worktree slot is free, then checks out a detached
// worktree at the current HEAD. The caller owns the returned workspace and
// must Dispose it.
func (m *Manager) Acquire(ctx context.Context, fingerprint string) (*Workspace, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	ws, err := m.create(fingerprint)
	if err != nil {
		m.sem.Release(1)
		return nil, err
	}

	m.mu.Lock()
	m.active[ws.ID] = ws
	m.mu.Unlock()

	m.log.Debug("acquired workspace %s at %s", ws.ID, ws.BaseRevision[:8])
	return ws, nil
}

func (m *Manager) create(fingerprint string) (*Workspace, error) {
	base, err := m.Head()
	if err != nil {
		return nil, err
	}

	id := workspaceID(fingerprint)
	path := filepath.Join(m.worktreesPath, id)

	if err := os.MkdirAll(m.worktreesPath, 0750); err != nil {
		return nil, errors.NewError(errors.ErrorTypeFileSystem).
			WithMessage("failed to create worktrees directory").
			WithCause(err).
			WithContext("path", m.worktreesPath).
			Build()
	}

	// Detached checkout so no branch name can collide across attempts.
	// #nosec G204 - git worktree command with generated path and resolved revision
	cmd := exec.Command("git", "worktree", "add", "--detach", path, base)
	cmd.Dir = m.root
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("failed to create git worktree").
			WithCause(err).
			WithContext("command", cmd.String()).
			WithContext("output", string(output)).
			WithContext("path", path).
			Build()
	}

	return &Workspace{
		ID:           id,
		Path:         path,
		Fingerprint:  fingerprint,
		BaseRevision: base,
		CreatedAt:    m.clk.Now(),
		manager:      m,
	}, nil
}

func (m *Manager) dispose(ws *Workspace) {
	// #nosec G204 - git worktree command with manager-generated path
	cmd := exec.Command("git", "worktree", "remove", "--force", ws.Path)
	cmd.Dir = m.root
	if output, err := cmd.CombinedOutput(); err != nil {
		m.log.Warn("worktree remove failed for %s: %v (%s)", ws.ID, err, strings.TrimSpace(string(output)))
		if err := os.RemoveAll(ws.Path); err != nil {
			m.log.Warn("failed to delete workspace directory %s: %v", ws.Path, err)
		}
		prune := exec.Command("git", "worktree", "prune")
		prune.Dir = m.root
		if err := prune.Run(); err != nil {
			m.log.Warn("worktree prune failed: %v", err)
		}
	}

	m.mu.Lock()
	delete(m.active, ws.ID)
	m.mu.Unlock()

	m.sem.Release(1)
	m.log.Debug("disposed workspace %s", ws.ID)
}

// DisposeAll tears down every workspace still alive, in no particular
// order. Used on shutdown and after a run completes.
func (m *Manager) DisposeAll() {
	m.mu.Lock()
	remaining := make([]*Workspace, 0, len(m.active))
	for _, ws := range m.active {
		remaining = append(remaining, ws)
	}
	m.mu.Unlock()

	for _, ws := range remaining {
		ws.Dispose()
	}
}

// ActiveCount reports how many workspaces are currently checked out.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func workspaceID(fingerprint string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("fix-%s-%s", fingerprint, suffix)
}
