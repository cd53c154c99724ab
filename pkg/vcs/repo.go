package vcs

import "context"

type Tag struct {
	Name   string
	Commit string
}

// Client is the version-control plumbing the tool needs. Every method takes
// the path of a bare clone.
type Client interface {
	// Clone creates a bare, blob-filtered clone of url at dir.
	Clone(ctx context.Context, url, dir string) error

	// FetchTags refreshes branches and tags, pruning ones deleted upstream.
	FetchTags(ctx context.Context, dir string) error

	// ListTags returns every tag with the commit it points to.
	ListTags(ctx context.Context, dir string) ([]Tag, error)

	// TagsContaining returns the names of tags whose history includes commit.
	// A commit unknown to the clone is contained in no tag.
	TagsContaining(ctx context.Context, dir, commit string) ([]string, error)
}
