package workspace

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Workspace is a detached git worktree holding an isolated copy of the
// repository for one fix attempt.
type Workspace struct {
	// ID is the worktree directory name, unique per acquisition.
	ID string

	// Path is the absolute worktree location on disk.
	Path string

	// Fingerprint identifies the cluster this workspace was acquired for.
	Fingerprint string

	// BaseRevision is the commit the worktree was checked out at.
	BaseRevision string

	CreatedAt time.Time

	manager     *Manager
	disposeOnce sync.Once
}

// Dir returns the worktree location, satisfying the dispatcher's
// workspace contract.
func (w *Workspace) Dir() string {
	return w.Path
}

// FilePath resolves a repository-relative path inside the worktree.
func (w *Workspace) FilePath(rel string) string {
	return filepath.Join(w.Path, rel)
}

// ReadFile reads a repository-relative file from the worktree.
func (w *Workspace) ReadFile(rel string) (string, error) {
	data, err := os.ReadFile(w.FilePath(rel))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes a repository-relative file inside the worktree.
func (w *Workspace) WriteFile(rel string, content string) error {
	path := w.FilePath(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// Dispose removes the worktree and releases its slot. Safe to call more
// than once; cleanup problems are logged, never fatal.
func (w *Workspace) Dispose() {
	w.disposeOnce.Do(func() {
		w.manager.dispose(w)
	})
}
