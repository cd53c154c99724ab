package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/backport-tags/pkg/shell"
)

// GH implements Client on top of the gh CLI. REST payloads from `gh api` are
// decoded into go-github types.
type GH struct {
	runner shell.Runner
}

var _ Client = &GH{}

func NewGH(runner shell.Runner) *GH {
	return &GH{runner: runner}
}

func (g *GH) AuthStatus(ctx context.Context) error {
	if _, err := g.runner.Output(ctx, "gh", "auth", "status"); err != nil {
		if shell.ExitCode(err) > 0 {
			return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return fmt.Errorf("gh auth status: %w", err)
	}
	return nil
}

func (g *GH) Login(ctx context.Context) error {
	if err := g.runner.Attach(ctx, "gh", "auth", "login"); err != nil {
		return fmt.Errorf("gh auth login: %w", err)
	}
	return nil
}

// ghRepo mirrors the field we read from `gh repo list --json`.
type ghRepo struct {
	NameWithOwner string `json:"nameWithOwner"`
}

func (g *GH) ListRepos(ctx context.Context, owner string, limit int) ([]string, error) {
	out, err := g.runner.Output(ctx,
		"gh", "repo", "list", owner,
		"--limit", strconv.Itoa(limit),
		"--json", "nameWithOwner",
	)
	if err != nil {
		return nil, fmt.Errorf("list repos for %s: %w", owner, err)
	}

	var repos []ghRepo
	if err := json.Unmarshal(out, &repos); err != nil {
		return nil, fmt.Errorf("decode repo list for %s: %w", owner, err)
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		if r.NameWithOwner != "" {
			names = append(names, r.NameWithOwner)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (g *GH) CloneURL(ctx context.Context, repo Repo, transport Transport) (string, error) {
	var r github.Repository
	if err := g.api(ctx, &r, "repos/"+repo.Slug()); err != nil {
		return "", fmt.Errorf("get repo %s: %w", repo, err)
	}

	url := r.GetSSHURL()
	if transport == HTTPS {
		url = r.GetCloneURL()
	}
	if url == "" {
		return "", fmt.Errorf("get repo %s: no %s clone URL", repo, transport)
	}
	return url, nil
}

func (g *GH) PullRequest(ctx context.Context, repo Repo, number int) (*PullRequest, error) {
	var pr github.PullRequest
	if err := g.api(ctx, &pr, fmt.Sprintf("repos/%s/pulls/%d", repo.Slug(), number)); err != nil {
		return nil, fmt.Errorf("get PR #%d in %s: %w", number, repo, err)
	}
	if pr.GetTitle() == "" {
		return nil, fmt.Errorf("get PR #%d in %s: %w", number, repo, ErrNotFound)
	}

	out := &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
	}
	if out.Number == 0 {
		out.Number = number
	}
	// merge_commit_sha is a test merge until the PR is actually merged.
	if pr.GetMerged() {
		out.MergeCommit = pr.GetMergeCommitSHA()
	}
	return out, nil
}

func (g *GH) SearchBackports(ctx context.Context, repo Repo, number int, marker string) ([]int, error) {
	query := fmt.Sprintf("repo:%s is:pr in:body %q", repo.Slug(), strings.ReplaceAll(marker, `"`, ""))

	var result github.IssuesSearchResult
	if err := g.api(ctx, &result, "-X", "GET", "search/issues", "-f", "q="+query, "-f", "per_page=100"); err != nil {
		return nil, fmt.Errorf("search backports of #%d in %s: %w", number, repo, err)
	}

	seen := make(map[int]bool)
	var numbers []int
	for _, issue := range result.Issues {
		n := issue.GetNumber()
		if n == number || seen[n] || !issue.IsPullRequest() {
			continue
		}
		// Search is tokenised; require the literal marker in the body.
		if !ContainsMarker(issue.GetBody(), marker) {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// api runs `gh api <args...>` and decodes the JSON response into v.
func (g *GH) api(ctx context.Context, v any, args ...string) error {
	out, err := g.runner.Output(ctx, "gh", append([]string{"api"}, args...)...)
	if err != nil {
		if strings.Contains(err.Error(), "HTTP 404") {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("decode gh api response: %w", err)
	}
	return nil
}

// ContainsMarker reports whether body contains marker as a literal. When the
// marker ends in a digit the match must not continue with another digit, so
// "#42" does not match "#421".
func ContainsMarker(body, marker string) bool {
	if marker == "" {
		return false
	}
	endsInDigit := isDigit(marker[len(marker)-1])
	for i := 0; i <= len(body)-len(marker); {
		idx := strings.Index(body[i:], marker)
		if idx < 0 {
			return false
		}
		end := i + idx + len(marker)
		if !endsInDigit || end == len(body) || !isDigit(body[end]) {
			return true
		}
		i += idx + 1
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
