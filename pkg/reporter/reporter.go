package reporter

import (
	"context"
	"io"

	"github.com/backport-tags/pkg/finder"
	"github.com/backport-tags/pkg/shell"
)

type Reporter interface {
	Report(ctx context.Context, w io.Writer, res *finder.Result) error
}

// Options tune the bullets reporter. Runner is only used for `gum format`.
type Options struct {
	Runner shell.Runner
	Color  bool
}

func New(format string, opts Options) Reporter {
	switch format {
	case "json":
		return &JSONReporter{}
	case "table":
		return &TableReporter{}
	default:
		return NewBullets(opts)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
