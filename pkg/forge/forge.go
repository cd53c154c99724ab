// Package forge wraps the GitHub operations backport-tags needs. Every call
// goes through an authenticated gh CLI.
package forge

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("gh is not authenticated")
)

// PullRequest is the part of a PR the tool cares about.
type PullRequest struct {
	Number int
	Title  string
	// MergeCommit is empty when the PR has not been merged.
	MergeCommit string
}

// Merged reports whether the PR has a merge commit.
func (p *PullRequest) Merged() bool {
	return p.MergeCommit != ""
}

// Client is the GitHub query layer.
type Client interface {
	// AuthStatus returns nil when logged in, ErrNotAuthenticated otherwise.
	AuthStatus(ctx context.Context) error

	// Login runs the interactive login flow.
	Login(ctx context.Context) error

	// ListRepos returns "owner/name" for up to limit repositories of owner.
	ListRepos(ctx context.Context, owner string, limit int) ([]string, error)

	// CloneURL returns the SSH or HTTPS clone URL of repo.
	CloneURL(ctx context.Context, repo Repo, transport Transport) (string, error)

	// PullRequest fetches number, title and merge commit. A missing PR
	// returns ErrNotFound.
	PullRequest(ctx context.Context, repo Repo, number int) (*PullRequest, error)

	// SearchBackports returns the numbers of PRs in repo whose body carries
	// marker, excluding number itself.
	SearchBackports(ctx context.Context, repo Repo, number int, marker string) ([]int, error)
}
