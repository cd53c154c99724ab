package reporter

import (
	"context"
	"encoding/json"
	"io"

	"github.com/backport-tags/pkg/finder"
)

type JSONReporter struct{}

func (r *JSONReporter) Report(_ context.Context, w io.Writer, res *finder.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	type output struct {
		Repo    string           `json:"repo"`
		PR      int              `json:"pr"`
		Title   string           `json:"title"`
		Commits []finder.Commit  `json:"commits"`
		Skipped []finder.Skipped `json:"skipped,omitempty"`
		Count   int              `json:"count"`
		Tags    []string         `json:"tags"`
	}

	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return enc.Encode(output{
		Repo:    res.Repo.Slug(),
		PR:      res.PR,
		Title:   res.Title,
		Commits: res.Commits,
		Skipped: res.Skipped,
		Count:   len(tags),
		Tags:    tags,
	})
}
