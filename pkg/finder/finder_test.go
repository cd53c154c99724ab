package finder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/backport-tags/pkg/cache"
	"github.com/backport-tags/pkg/config"
	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/shell/shelltest"
	"github.com/backport-tags/pkg/tagset"
	"github.com/backport-tags/pkg/vcs"
)

var repo = forge.Repo{Owner: "kubevirt", Name: "kubevirt"}

type harness struct {
	cfg      *config.Config
	fs       afero.Fs
	forge    *fakeForge
	vcs      *fakeVCS
	cache    *cache.Manager
	prompt   *fakePrompter
	selector *fakeSelector
	runner   *shelltest.Runner
}

func newHarness() *harness {
	cfg := config.Default()
	cfg.Repo = "kubevirt"
	cfg.PR = "42"
	cfg.Yes = true
	cfg.CacheDir = "/cache"

	fs := afero.NewMemMapFs()
	fv := &fakeVCS{
		fs: fs,
		tags: []vcs.Tag{
			{Name: "v1.1.0", Commit: "c0"},
			{Name: "v1.2.0", Commit: "c1"},
			{Name: "v1.2.1", Commit: "c2"},
			{Name: "v1.3.0", Commit: "c3"},
		},
		contains: map[string][]string{
			"abc123": {"v1.3.0", "v1.2.0"},
			"def456": {"v1.2.1"},
			"fed789": {"v1.2.1", "v1.3.0"},
		},
	}
	return &harness{
		cfg: cfg,
		fs:  fs,
		forge: &fakeForge{
			loggedIn: true,
			prs: map[int]*forge.PullRequest{
				42: {Number: 42, Title: "Fix the thing", MergeCommit: "abc123"},
			},
			prErrs: map[int]error{},
		},
		vcs:      fv,
		cache:    cache.New(fs, "/cache", fv),
		prompt:   &fakePrompter{},
		selector: &fakeSelector{},
		runner:   shelltest.New("gh", "git"),
	}
}

func (h *harness) finder(opts ...Option) *Finder {
	base := []Option{
		WithRunner(h.runner),
		WithForge(h.forge),
		WithVCS(h.vcs),
		WithCache(h.cache),
		WithPrompter(h.prompt),
		WithSelector(h.selector),
	}
	return New(h.cfg, append(base, opts...)...)
}

func TestRun_MainAndBackports(t *testing.T) {
	h := newHarness()
	h.forge.backports = []int{57, 58, 59}
	h.forge.prs[57] = &forge.PullRequest{Number: 57, Title: "[release-1.2] Fix the thing", MergeCommit: "def456"}
	h.forge.prs[58] = &forge.PullRequest{Number: 58, Title: "[release-1.1] Fix the thing"}
	h.forge.prErrs[59] = errors.New("gh: HTTP 502")

	scratch, err := h.cache.NewScratch()
	require.NoError(t, err)
	defer scratch.Cleanup()

	res, err := h.finder(WithScratch(scratch)).Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(res.Tags, []string{"v1.2.0", "v1.2.1", "v1.3.0"}); diff != "" {
		t.Errorf("Tags = (-got +want)\n%s", diff)
	}
	wantCommits := []Commit{
		{PR: 42, SHA: "abc123", Tags: []string{"v1.2.0", "v1.3.0"}},
		{PR: 57, SHA: "def456", Backport: true, Tags: []string{"v1.2.1"}},
	}
	if diff := cmp.Diff(res.Commits, wantCommits); diff != "" {
		t.Errorf("Commits = (-got +want)\n%s", diff)
	}
	if len(res.Skipped) != 2 || res.Skipped[0].PR != 58 || res.Skipped[1].PR != 59 {
		t.Errorf("Skipped = %+v, want 58 and 59", res.Skipped)
	}
	if diff := cmp.Diff(h.forge.markers, []string{"auto-generated from #42"}); diff != "" {
		t.Errorf("search markers = (-got +want)\n%s", diff)
	}

	data, err := afero.ReadFile(h.fs, res.TagsFile)
	require.NoError(t, err)
	if string(data) != "v1.2.0\nv1.2.1\nv1.3.0\n" {
		t.Errorf("scratch tags = %q", data)
	}
}

func TestRun_NoBackportsUsesMainCommitOnly(t *testing.T) {
	h := newHarness()

	res, err := h.finder().Run(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(res.Tags, []string{"v1.2.0", "v1.3.0"}); diff != "" {
		t.Errorf("Tags = (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(h.vcs.queries, []string{"abc123"}); diff != "" {
		t.Errorf("containment queries = (-got +want)\n%s", diff)
	}
}

func TestRun_ResultIsSubsetOfRepositoryTags(t *testing.T) {
	h := newHarness()
	h.forge.backports = []int{57, 60}
	h.forge.prs[57] = &forge.PullRequest{Number: 57, Title: "bp", MergeCommit: "def456"}
	h.forge.prs[60] = &forge.PullRequest{Number: 60, Title: "bp", MergeCommit: "fed789"}

	res, err := h.finder().Run(context.Background())
	require.NoError(t, err)

	known := map[string]bool{}
	for _, tag := range h.vcs.tags {
		known[tag.Name] = true
	}
	for _, c := range res.Commits {
		for _, tag := range c.Tags {
			if !known[tag] {
				t.Errorf("commit %s reports unknown tag %q", c.SHA, tag)
			}
		}
	}
	if diff := cmp.Diff(res.Tags, []string{"v1.2.0", "v1.2.1", "v1.3.0"}); diff != "" {
		t.Errorf("Tags = (-got +want)\n%s", diff)
	}
}

func TestRun_SemverOrder(t *testing.T) {
	h := newHarness()
	h.cfg.Sort = tagset.Semver
	h.vcs.contains["abc123"] = []string{"v1.10.0", "v1.9.0"}

	res, err := h.finder().Run(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(res.Tags, []string{"v1.9.0", "v1.10.0"}); diff != "" {
		t.Errorf("Tags = (-got +want)\n%s", diff)
	}
}

func TestRun_UnmergedMainPRAbortsBeforeClone(t *testing.T) {
	h := newHarness()
	h.forge.prs[42] = &forge.PullRequest{Number: 42, Title: "Still open"}

	_, err := h.finder().Run(context.Background())
	if !errors.Is(err, ErrNotMerged) {
		t.Fatalf("Run() error = %v, want ErrNotMerged", err)
	}
	if h.vcs.clones != 0 || h.vcs.fetches != 0 || len(h.vcs.queries) != 0 {
		t.Errorf("git touched: clones=%d fetches=%d queries=%v", h.vcs.clones, h.vcs.fetches, h.vcs.queries)
	}
	if ok, _ := afero.Exists(h.fs, "/cache/clones"); ok {
		t.Errorf("clone cache touched for an unmerged PR")
	}
	for _, c := range h.forge.calls {
		if c == "clone-url" {
			t.Errorf("clone URL requested for an unmerged PR")
		}
	}
}

func TestRun_PRNotFound(t *testing.T) {
	h := newHarness()
	h.cfg.PR = "404"

	_, err := h.finder().Run(context.Background())
	if !errors.Is(err, forge.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestRun_ExistingCloneReusedWithYes(t *testing.T) {
	h := newHarness()
	require.NoError(t, afero.WriteFile(h.fs, h.cache.ClonePath(repo)+"/HEAD", []byte("x"), 0o644))

	_, err := h.finder().Run(context.Background())
	require.NoError(t, err)
	if h.vcs.clones != 0 {
		t.Errorf("clones = %d, want the existing clone reused", h.vcs.clones)
	}
	if h.vcs.fetches != 1 {
		t.Errorf("fetches = %d, want tags refreshed once", h.vcs.fetches)
	}
	if len(h.prompt.questions) != 0 {
		t.Errorf("prompted with --yes: %v", h.prompt.questions)
	}
}

func TestRun_Interactive(t *testing.T) {
	h := newHarness()
	h.cfg.Yes = false
	h.cfg.Repo = ""
	h.cfg.PR = ""
	h.forge.repos = []string{"kubevirt/cdi", "kubevirt/kubevirt"}
	h.selector.pick = "kubevirt/kubevirt"
	h.prompt.inputs = []string{"42"}
	// Confirm the PR, then keep the existing clone.
	h.prompt.confirms = []bool{true, false}
	require.NoError(t, afero.WriteFile(h.fs, h.cache.ClonePath(repo)+"/HEAD", []byte("x"), 0o644))

	res, err := h.finder().Run(context.Background())
	require.NoError(t, err)
	if res.Repo != repo || res.PR != 42 {
		t.Errorf("resolved %s#%d", res.Repo, res.PR)
	}
	if diff := cmp.Diff(h.selector.items, h.forge.repos); diff != "" {
		t.Errorf("selector items = (-got +want)\n%s", diff)
	}
	if len(h.prompt.questions) != 3 {
		t.Errorf("questions = %q, want PR input, PR confirmation and clone reuse", h.prompt.questions)
	}
	if h.vcs.clones != 0 || h.vcs.fetches != 1 {
		t.Errorf("clones=%d fetches=%d", h.vcs.clones, h.vcs.fetches)
	}
	if ok, _ := afero.Exists(h.fs, h.cache.RepoListPath("kubevirt")); !ok {
		t.Errorf("repository list not cached")
	}
}

func TestRun_InteractiveInvalidPR(t *testing.T) {
	h := newHarness()
	h.cfg.Yes = false
	h.cfg.PR = ""
	h.prompt.inputs = []string{"forty-two"}

	_, err := h.finder().Run(context.Background())
	if !errors.Is(err, forge.ErrInvalidPR) {
		t.Fatalf("Run() error = %v, want ErrInvalidPR", err)
	}
}

func TestRun_DeclinedConfirmation(t *testing.T) {
	h := newHarness()
	h.cfg.Yes = false
	h.prompt.confirms = []bool{false}

	_, err := h.finder().Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
}

func TestRun_MissingRequiredInputWithYes(t *testing.T) {
	h := newHarness()
	h.cfg.Repo = ""

	_, err := h.finder().Run(context.Background())
	if !errors.Is(err, config.ErrInputRequired) {
		t.Fatalf("Run() error = %v, want ErrInputRequired", err)
	}
}

func TestPreflight(t *testing.T) {
	h := newHarness()
	h.runner = shelltest.New("git", "gum")

	err := h.finder().Preflight()
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("Preflight() error = %v, want ErrMissingDependency", err)
	}

	h.runner = shelltest.New("git", "gh")
	require.NoError(t, h.finder().Preflight())
}

func TestRun_Auth(t *testing.T) {
	t.Run("non-interactive fails", func(t *testing.T) {
		h := newHarness()
		h.forge.loggedIn = false

		_, err := h.finder().Run(context.Background())
		if !errors.Is(err, forge.ErrNotAuthenticated) {
			t.Fatalf("Run() error = %v, want ErrNotAuthenticated", err)
		}
		if h.forge.logins != 0 {
			t.Errorf("login attempted with --yes")
		}
	})

	t.Run("interactive login", func(t *testing.T) {
		h := newHarness()
		h.cfg.Yes = false
		h.forge.loggedIn = false
		// Log in, confirm the PR.
		h.prompt.confirms = []bool{true, true}

		_, err := h.finder().Run(context.Background())
		require.NoError(t, err)
		if h.forge.logins != 1 {
			t.Errorf("logins = %d, want 1", h.forge.logins)
		}
	})

	t.Run("login declined", func(t *testing.T) {
		h := newHarness()
		h.cfg.Yes = false
		h.forge.loggedIn = false
		h.prompt.confirms = []bool{false}

		_, err := h.finder().Run(context.Background())
		if !errors.Is(err, forge.ErrNotAuthenticated) {
			t.Fatalf("Run() error = %v, want ErrNotAuthenticated", err)
		}
	})
}

func TestRun_CommitInNoTagHasEmptyTagList(t *testing.T) {
	h := newHarness()
	h.forge.backports = []int{61}
	h.forge.prs[61] = &forge.PullRequest{Number: 61, Title: "bp", MergeCommit: "unreleased"}

	res, err := h.finder().Run(context.Background())
	require.NoError(t, err)
	if len(res.Commits) != 2 {
		t.Fatalf("Commits = %+v", res.Commits)
	}
	if diff := cmp.Diff(res.Commits[1].Tags, []string{}); diff != "" {
		t.Errorf("Tags = (-got +want)\n%s", diff)
	}
}
