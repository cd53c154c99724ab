package reporter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/backport-tags/pkg/finder"
	"github.com/backport-tags/pkg/ui"
)

type TableReporter struct{}

func (r *TableReporter) Report(_ context.Context, w io.Writer, res *finder.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PR\tKIND\tCOMMIT\tTAGS")
	fmt.Fprintln(tw, "--\t----\t------\t----")

	for _, c := range res.Commits {
		kind := "main"
		if c.Backport {
			kind = "backport"
		}
		tags := strings.Join(c.Tags, ", ")
		if tags == "" {
			tags = "(none)"
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\n", c.PR, kind, shortSHA(c.SHA), tags)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(tw, "#%d\tskipped\t-\t%s\n", s.PR, s.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(res.Tags) == 0 {
		_, err := fmt.Fprintln(w, ui.RenderWarn(noTagsMessage(res)))
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", ui.RenderHeader("All tags:"), strings.Join(res.Tags, " "))
	return err
}
