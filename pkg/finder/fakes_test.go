package finder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/vcs"
)

type fakeForge struct {
	loggedIn  bool
	loginErr  error
	logins    int
	repos     []string
	prs       map[int]*forge.PullRequest
	prErrs    map[int]error
	backports []int
	markers   []string
	calls     []string
}

func (f *fakeForge) AuthStatus(context.Context) error {
	f.calls = append(f.calls, "auth")
	if !f.loggedIn {
		return fmt.Errorf("%w: not logged in", forge.ErrNotAuthenticated)
	}
	return nil
}

func (f *fakeForge) Login(context.Context) error {
	f.calls = append(f.calls, "login")
	f.logins++
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeForge) ListRepos(_ context.Context, owner string, limit int) ([]string, error) {
	f.calls = append(f.calls, fmt.Sprintf("list %s %d", owner, limit))
	return f.repos, nil
}

func (f *fakeForge) CloneURL(_ context.Context, repo forge.Repo, t forge.Transport) (string, error) {
	f.calls = append(f.calls, "clone-url")
	return fmt.Sprintf("%s://github.com/%s.git", t, repo.Slug()), nil
}

func (f *fakeForge) PullRequest(_ context.Context, _ forge.Repo, n int) (*forge.PullRequest, error) {
	f.calls = append(f.calls, fmt.Sprintf("pr %d", n))
	if err := f.prErrs[n]; err != nil {
		return nil, err
	}
	pr, ok := f.prs[n]
	if !ok {
		return nil, fmt.Errorf("PR #%d: %w", n, forge.ErrNotFound)
	}
	return pr, nil
}

func (f *fakeForge) SearchBackports(_ context.Context, _ forge.Repo, n int, marker string) ([]int, error) {
	f.calls = append(f.calls, fmt.Sprintf("search %d", n))
	f.markers = append(f.markers, marker)
	return f.backports, nil
}

// fakeVCS keeps clones as directories with a HEAD file in an afero.Fs and
// answers containment from a fixed table.
type fakeVCS struct {
	fs       afero.Fs
	tags     []vcs.Tag
	contains map[string][]string
	clones   int
	fetches  int
	queries  []string
}

func (v *fakeVCS) Clone(_ context.Context, _ string, dir string) error {
	v.clones++
	return afero.WriteFile(v.fs, filepath.Join(dir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644)
}

func (v *fakeVCS) FetchTags(context.Context, string) error {
	v.fetches++
	return nil
}

func (v *fakeVCS) ListTags(context.Context, string) ([]vcs.Tag, error) {
	return v.tags, nil
}

func (v *fakeVCS) TagsContaining(_ context.Context, _ string, commit string) ([]string, error) {
	if v.fetches == 0 {
		return nil, fmt.Errorf("tags queried before fetch")
	}
	v.queries = append(v.queries, commit)
	return v.contains[commit], nil
}

type fakePrompter struct {
	confirms  []bool
	inputs    []string
	questions []string
}

func (p *fakePrompter) Confirm(_ context.Context, q string, _ bool) (bool, error) {
	p.questions = append(p.questions, q)
	if len(p.confirms) == 0 {
		return false, fmt.Errorf("unexpected confirmation %q", q)
	}
	a := p.confirms[0]
	p.confirms = p.confirms[1:]
	return a, nil
}

func (p *fakePrompter) Input(_ context.Context, title string, validate func(string) error) (string, error) {
	p.questions = append(p.questions, title)
	if len(p.inputs) == 0 {
		return "", fmt.Errorf("unexpected input %q", title)
	}
	a := p.inputs[0]
	p.inputs = p.inputs[1:]
	if validate != nil {
		if err := validate(a); err != nil {
			return "", err
		}
	}
	return a, nil
}

type fakeSelector struct {
	pick  string
	items []string
}

func (s *fakeSelector) Name() string { return "fake" }

func (s *fakeSelector) Select(_ context.Context, _ string, items []string) (string, error) {
	s.items = items
	return s.pick, nil
}
