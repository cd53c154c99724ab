// Package finder answers "which released tags contain this PR or one of its
// backports".
package finder

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/backport-tags/pkg/cache"
	"github.com/backport-tags/pkg/config"
	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/prompt"
	"github.com/backport-tags/pkg/selector"
	"github.com/backport-tags/pkg/shell"
	"github.com/backport-tags/pkg/tagset"
	"github.com/backport-tags/pkg/vcs"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrNotMerged         = errors.New("no merge commit")
	ErrAborted           = errors.New("aborted")
)

// RequiredTools must be on PATH.
var RequiredTools = []string{"gh", "git"}

// Commit is one merge commit of interest and the tags that contain it.
type Commit struct {
	PR       int      `json:"pr"`
	SHA      string   `json:"sha"`
	Backport bool     `json:"backport"`
	Tags     []string `json:"tags"`
}

// Skipped records a backport PR left out of the answer.
type Skipped struct {
	PR     int    `json:"pr"`
	Reason string `json:"reason"`
}

type Result struct {
	Repo    forge.Repo `json:"-"`
	PR      int        `json:"pr"`
	Title   string     `json:"title"`
	Commits []Commit   `json:"commits"`
	Skipped []Skipped  `json:"skipped,omitempty"`
	// Tags is the sorted, duplicate-free union of every commit's tags.
	Tags []string `json:"tags"`
	// TagsFile is the scratch copy of Tags, if one was written.
	TagsFile string `json:"-"`
}

type Finder struct {
	config   *config.Config
	runner   shell.Runner
	forge    forge.Client
	vcs      vcs.Client
	cache    *cache.Manager
	selector selector.Selector
	prompt   prompt.Prompter
	scratch  *cache.Scratch
	logger   logr.Logger
}

type Option func(*Finder)

func WithRunner(r shell.Runner) Option        { return func(f *Finder) { f.runner = r } }
func WithForge(c forge.Client) Option         { return func(f *Finder) { f.forge = c } }
func WithVCS(c vcs.Client) Option             { return func(f *Finder) { f.vcs = c } }
func WithCache(m *cache.Manager) Option       { return func(f *Finder) { f.cache = m } }
func WithSelector(s selector.Selector) Option { return func(f *Finder) { f.selector = s } }
func WithPrompter(p prompt.Prompter) Option   { return func(f *Finder) { f.prompt = p } }
func WithScratch(s *cache.Scratch) Option     { return func(f *Finder) { f.scratch = s } }
func WithLogger(l logr.Logger) Option         { return func(f *Finder) { f.logger = l } }

func New(cfg *config.Config, opts ...Option) *Finder {
	f := &Finder{config: cfg, logger: logr.Discard()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Preflight fails when a required tool is missing.
func (f *Finder) Preflight() error {
	var missing []string
	for _, tool := range RequiredTools {
		if _, err := f.runner.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v not found in PATH", ErrMissingDependency, missing)
	}
	return nil
}

// Run resolves the inputs and computes the tags containing the PR.
func (f *Finder) Run(ctx context.Context) (*Result, error) {
	if err := f.Preflight(); err != nil {
		return nil, err
	}
	if err := f.ensureAuth(ctx); err != nil {
		return nil, err
	}

	repo, err := f.resolveRepo(ctx)
	if err != nil {
		return nil, err
	}
	number, err := f.resolvePR(ctx)
	if err != nil {
		return nil, err
	}
	log := f.logger.WithValues("repo", repo.Slug(), "pr", number)

	pr, err := f.forge.PullRequest(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	log.Info("Found pull request.", "title", pr.Title)
	if !f.config.Yes {
		ok, err := f.prompt.Confirm(ctx, fmt.Sprintf("Use %s#%d %q?", repo.Slug(), number, pr.Title), true)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w by user", ErrAborted)
		}
	}
	if !pr.Merged() {
		return nil, fmt.Errorf("%w: PR #%d in %s is not merged", ErrNotMerged, number, repo)
	}

	res := &Result{
		Repo:    repo,
		PR:      number,
		Title:   pr.Title,
		Commits: []Commit{{PR: number, SHA: pr.MergeCommit}},
	}

	backports, err := f.forge.SearchBackports(ctx, repo, number, f.config.Marker(number))
	if err != nil {
		return nil, err
	}
	if len(backports) == 0 {
		log.Info("No backport PRs found.")
	}
	for _, n := range backports {
		bp, err := f.forge.PullRequest(ctx, repo, n)
		switch {
		case err != nil:
			log.V(1).Info("Skipping backport.", "backport", n, "error", err.Error())
			res.Skipped = append(res.Skipped, Skipped{PR: n, Reason: err.Error()})
		case !bp.Merged():
			log.V(1).Info("Skipping unmerged backport.", "backport", n)
			res.Skipped = append(res.Skipped, Skipped{PR: n, Reason: "not merged"})
		default:
			log.Info("Found backport.", "backport", n, "commit", bp.MergeCommit)
			res.Commits = append(res.Commits, Commit{PR: n, SHA: bp.MergeCommit, Backport: true})
		}
	}

	dir, err := f.ensureClone(ctx, repo)
	if err != nil {
		return nil, err
	}

	all, err := f.vcs.ListTags(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		log.Info("Repository has no tags.")
	}

	lists := make([][]string, 0, len(res.Commits))
	for i := range res.Commits {
		c := &res.Commits[i]
		tags, err := f.vcs.TagsContaining(ctx, dir, c.SHA)
		if err != nil {
			return nil, err
		}
		c.Tags = tagset.Union(tags)
		lists = append(lists, c.Tags)
	}
	res.Tags = tagset.Union(lists...)
	tagset.Sort(res.Tags, f.config.Sort)

	if f.scratch != nil {
		if res.TagsFile, err = f.scratch.WriteTags(res.Tags); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *Finder) ensureAuth(ctx context.Context) error {
	err := f.forge.AuthStatus(ctx)
	if err == nil || !errors.Is(err, forge.ErrNotAuthenticated) || f.config.Yes {
		return err
	}

	ok, perr := f.prompt.Confirm(ctx, "gh is not logged in. Run `gh auth login` now?", true)
	if perr != nil {
		return perr
	}
	if !ok {
		return err
	}
	if err := f.forge.Login(ctx); err != nil {
		return err
	}
	return f.forge.AuthStatus(ctx)
}

func (f *Finder) resolveRepo(ctx context.Context) (forge.Repo, error) {
	if f.config.Repo != "" {
		return forge.Repo{Owner: f.config.Owner, Name: f.config.Repo}, nil
	}
	if f.config.Yes {
		return forge.Repo{}, fmt.Errorf("%w: --repo", config.ErrInputRequired)
	}

	owner := f.config.Owner
	names, err := f.cache.Repos(ctx, owner, f.config.Refresh, func(ctx context.Context) ([]string, error) {
		return f.forge.ListRepos(ctx, owner, f.config.RepoLimit)
	})
	if err != nil {
		return forge.Repo{}, err
	}
	choice, err := f.selector.Select(ctx, "Repository", names)
	if err != nil {
		return forge.Repo{}, err
	}
	return forge.ParseRepo(choice)
}

func (f *Finder) resolvePR(ctx context.Context) (int, error) {
	if f.config.PR != "" {
		return forge.ParsePRNumber(f.config.PR)
	}
	if f.config.Yes {
		return 0, fmt.Errorf("%w: --pr", config.ErrInputRequired)
	}

	answer, err := f.prompt.Input(ctx, "PR number", func(s string) error {
		_, err := forge.ParsePRNumber(s)
		return err
	})
	if err != nil {
		return 0, err
	}
	return forge.ParsePRNumber(answer)
}

func (f *Finder) ensureClone(ctx context.Context, repo forge.Repo) (string, error) {
	url, err := f.forge.CloneURL(ctx, repo, f.config.Transport)
	if err != nil {
		return "", err
	}

	var recreate func(string) (bool, error)
	if !f.config.Yes {
		recreate = func(path string) (bool, error) {
			return f.prompt.Confirm(ctx, fmt.Sprintf("A clone already exists at %s. Delete it and clone again?", path), false)
		}
	}
	return f.cache.EnsureClone(ctx, repo, url, recreate)
}
