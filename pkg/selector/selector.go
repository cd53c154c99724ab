// Package selector picks one line out of a list of candidates, preferring an
// external fuzzy picker when one is installed.
package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/backport-tags/pkg/shell"
)

var (
	// ErrNoSelection means the user cancelled or picked nothing.
	ErrNoSelection = errors.New("nothing selected")
	// ErrInvalidSelection means the menu answer was not a listed number.
	ErrInvalidSelection = errors.New("invalid selection")
)

// Selector returns the chosen item.
type Selector interface {
	Name() string
	Select(ctx context.Context, prompt string, items []string) (string, error)
}

// Detect returns gum when installed, else fzf, else a numbered menu on in/out.
func Detect(runner shell.Runner, in io.Reader, out io.Writer) Selector {
	if _, err := runner.LookPath("gum"); err == nil {
		return &Gum{runner: runner}
	}
	if _, err := runner.LookPath("fzf"); err == nil {
		return &Fzf{runner: runner}
	}
	return &Menu{In: in, Out: out}
}

// Gum delegates to `gum filter`.
type Gum struct {
	runner shell.Runner
}

func NewGum(runner shell.Runner) *Gum { return &Gum{runner: runner} }

func (g *Gum) Name() string { return "gum" }

func (g *Gum) Select(ctx context.Context, prompt string, items []string) (string, error) {
	return pipeSelect(ctx, g.runner, items, "gum", "filter", "--placeholder", prompt)
}

// Fzf delegates to fzf.
type Fzf struct {
	runner shell.Runner
}

func NewFzf(runner shell.Runner) *Fzf { return &Fzf{runner: runner} }

func (f *Fzf) Name() string { return "fzf" }

func (f *Fzf) Select(ctx context.Context, prompt string, items []string) (string, error) {
	return pipeSelect(ctx, f.runner, items, "fzf", "--height", "40%", "--reverse", "--prompt", prompt+"> ")
}

func pipeSelect(ctx context.Context, runner shell.Runner, items []string, name string, args ...string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoSelection
	}
	out, err := runner.Pipe(ctx, strings.NewReader(strings.Join(items, "\n")+"\n"), name, args...)
	if err != nil {
		// 1: no match, 130: interrupted with Esc/Ctrl-C.
		if code := shell.ExitCode(err); code == 1 || code == 130 {
			return "", ErrNoSelection
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	choice := strings.TrimSpace(string(out))
	if choice == "" {
		return "", ErrNoSelection
	}
	return choice, nil
}

// Menu prints a numbered list and reads the chosen number. There is no retry
// loop: a bad answer is an error.
type Menu struct {
	In  io.Reader
	Out io.Writer
}

func (m *Menu) Name() string { return "menu" }

func (m *Menu) Select(_ context.Context, prompt string, items []string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoSelection
	}
	for i, item := range items {
		fmt.Fprintf(m.Out, "%3d) %s\n", i+1, item)
	}
	fmt.Fprintf(m.Out, "%s [1-%d]: ", prompt, len(items))

	line, err := bufio.NewReader(m.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoSelection
		}
		return "", fmt.Errorf("read selection: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", ErrNoSelection
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(items) {
		return "", fmt.Errorf("%w: %q is not between 1 and %d", ErrInvalidSelection, answer, len(items))
	}
	return items[n-1], nil
}
