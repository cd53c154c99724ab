package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/backport-tags/pkg/finder"
	"github.com/backport-tags/pkg/shell"
	"github.com/backport-tags/pkg/ui"
)

// BulletsReporter prints one tag per line. With gum on PATH and colour
// enabled the list goes through `gum format`.
type BulletsReporter struct {
	runner shell.Runner
	gum    bool
}

func NewBullets(opts Options) *BulletsReporter {
	r := &BulletsReporter{runner: opts.Runner}
	if opts.Runner != nil && opts.Color {
		if _, err := opts.Runner.LookPath("gum"); err == nil {
			r.gum = true
		}
	}
	return r
}

func (r *BulletsReporter) Report(ctx context.Context, w io.Writer, res *finder.Result) error {
	if len(res.Tags) == 0 {
		_, err := fmt.Fprintln(w, ui.RenderWarn(noTagsMessage(res)))
		return err
	}

	if r.gum {
		md, err := renderMarkdown(res)
		if err != nil {
			return err
		}
		out, err := r.runner.Pipe(ctx, strings.NewReader(md), "gum", "format")
		if err == nil {
			_, err = w.Write(out)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Fall through to the plain list.
	}

	var b bytes.Buffer
	fmt.Fprintln(&b, ui.RenderHeader(fmt.Sprintf("Tags containing %s#%d:", res.Repo.Slug(), res.PR)))
	for _, tag := range res.Tags {
		fmt.Fprintf(&b, "%s %s\n", ui.RenderMuted(ui.Bullet), tag)
	}
	_, err := w.Write(b.Bytes())
	return err
}
