package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/backport-tags/pkg/shell"
)

// Git implements Client by running the git binary.
type Git struct {
	runner shell.Runner
}

var _ Client = &Git{}

func NewGit(runner shell.Runner) *Git {
	return &Git{runner: runner}
}

func (g *Git) Clone(ctx context.Context, url, dir string) error {
	if _, err := g.runner.Output(ctx, "git", "clone", "--bare", "--filter=blob:none", "--quiet", url, dir); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

func (g *Git) FetchTags(ctx context.Context, dir string) error {
	_, err := g.git(ctx, dir,
		"fetch", "--quiet", "--prune", "--prune-tags", "--tags", "--force",
		"origin", "+refs/heads/*:refs/heads/*",
	)
	if err != nil {
		return fmt.Errorf("fetch tags: %w", err)
	}
	return nil
}

func (g *Git) ListTags(ctx context.Context, dir string) ([]Tag, error) {
	out, err := g.git(ctx, dir,
		"for-each-ref", "refs/tags",
		"--format=%(refname:short)%09%(*objectname)%09%(objectname)",
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return parseTagRefs(out), nil
}

func (g *Git) TagsContaining(ctx context.Context, dir, commit string) ([]string, error) {
	// tag --contains fails outright on an unknown object; such a commit is
	// simply not part of any fetched tag.
	if _, err := g.git(ctx, dir, "cat-file", "-e", commit+"^{commit}"); err != nil {
		if shell.ExitCode(err) > 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("look up %s: %w", commit, err)
	}

	out, err := g.git(ctx, dir, "tag", "--contains", commit)
	if err != nil {
		return nil, fmt.Errorf("tags containing %s: %w", commit, err)
	}
	return splitLines(out), nil
}

func (g *Git) git(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := g.runner.Output(ctx, "git", append([]string{"-C", dir}, args...)...)
	return string(out), err
}

// parseTagRefs reads "name<TAB>peeled<TAB>object" lines. Lightweight tags have
// no peeled object, so the object itself is the commit.
func parseTagRefs(raw string) []Tag {
	var tags []Tag
	for _, line := range splitLines(raw) {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			continue
		}
		commit := fields[1]
		if commit == "" {
			commit = fields[2]
		}
		tags = append(tags, Tag{Name: fields[0], Commit: commit})
	}
	return tags
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
