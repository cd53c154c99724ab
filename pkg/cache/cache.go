// Package cache manages the on-disk state of backport-tags: the cached list of
// repository names, one bare partial clone per repository, and a scratch
// directory per run. Everything here can be deleted at any time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/vcs"
)

// ErrClone wraps every failure to create the local clone.
var ErrClone = errors.New("clone failed")

// Manager owns the cache root.
type Manager struct {
	fs     afero.Fs
	root   string
	vcs    vcs.Client
	logger logr.Logger
}

type Option func(*Manager)

func WithLogger(l logr.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func New(fs afero.Fs, root string, vc vcs.Client, opts ...Option) *Manager {
	m := &Manager{fs: fs, root: root, vcs: vc, logger: logr.Discard()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// RepoListPath is the flat "owner/repo" list for owner.
func (m *Manager) RepoListPath(owner string) string {
	return filepath.Join(m.root, "repos-"+owner+".txt")
}

// ClonePath is where the bare clone of repo lives.
func (m *Manager) ClonePath(repo forge.Repo) string {
	return filepath.Join(m.root, "clones", repo.Owner, repo.Name+".git")
}

// Repos returns the cached repository names of owner, calling fetch and
// rewriting the cache when refresh is set or nothing usable is cached.
func (m *Manager) Repos(ctx context.Context, owner string, refresh bool, fetch func(context.Context) ([]string, error)) ([]string, error) {
	path := m.RepoListPath(owner)
	if !refresh {
		names, err := m.readLines(path)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			m.logger.V(1).Info("Using cached repository list.", "path", path, "count", len(names))
			return names, nil
		}
	}

	m.logger.Info("Fetching repository list.", "owner", owner)
	names, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.writeLines(path, names); err != nil {
		return nil, err
	}
	return names, nil
}

// HasClone reports whether a usable bare clone exists for repo.
func (m *Manager) HasClone(repo forge.Repo) bool {
	ok, _ := afero.Exists(m.fs, filepath.Join(m.ClonePath(repo), "HEAD"))
	return ok
}

// EnsureClone makes sure a bare partial clone of repo exists and that its
// tags are fresh, and returns its path. When a clone already exists and
// recreate is non-nil, recreate decides whether to delete it first; a nil
// recreate always reuses the clone.
func (m *Manager) EnsureClone(ctx context.Context, repo forge.Repo, url string, recreate func(path string) (bool, error)) (string, error) {
	path := m.ClonePath(repo)

	if m.HasClone(repo) && recreate != nil {
		ok, err := recreate(path)
		if err != nil {
			return "", err
		}
		if ok {
			m.logger.Info("Removing existing clone.", "path", path)
			if err := m.fs.RemoveAll(path); err != nil {
				return "", fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}

	if !m.HasClone(repo) {
		// A directory without HEAD is left over from an interrupted clone.
		if err := m.fs.RemoveAll(path); err != nil {
			return "", fmt.Errorf("remove %s: %w", path, err)
		}
		if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("mkdir: %w", err)
		}
		m.logger.Info("Cloning repository.", "repo", repo.Slug(), "path", path)
		if err := m.vcs.Clone(ctx, url, path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrClone, err)
		}
	} else {
		m.logger.Info("Reusing existing clone.", "path", path)
	}

	m.logger.Info("Fetching tags.", "repo", repo.Slug())
	if err := m.vcs.FetchTags(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Scratch is a per-run working directory under the cache root.
type Scratch struct {
	fs  afero.Fs
	Dir string
}

// NewScratch creates a fresh run directory. Call Cleanup on every exit path.
func (m *Manager) NewScratch() (*Scratch, error) {
	if err := m.fs.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	dir, err := afero.TempDir(m.fs, m.root, "run-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{fs: m.fs, Dir: dir}, nil
}

// WriteTags stores the final tag union and returns the file path.
func (s *Scratch) WriteTags(tags []string) (string, error) {
	path := filepath.Join(s.Dir, "tags.txt")
	if err := afero.WriteFile(s.fs, path, []byte(joinLines(tags)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Cleanup removes the scratch directory. Safe on a nil Scratch.
func (s *Scratch) Cleanup() error {
	if s == nil {
		return nil
	}
	return s.fs.RemoveAll(s.Dir)
}

func (m *Manager) readLines(path string) ([]string, error) {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (m *Manager) writeLines(path string, lines []string) error {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := afero.WriteFile(m.fs, path, []byte(joinLines(lines)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
