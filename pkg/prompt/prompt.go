// Package prompt asks the user yes/no questions and for free-text answers.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks questions.
type Prompter interface {
	Confirm(ctx context.Context, question string, def bool) (bool, error)
	Input(ctx context.Context, title string, validate func(string) error) (string, error)
}

// IsTerminal reports whether every file is attached to a terminal.
func IsTerminal(files ...*os.File) bool {
	for _, f := range files {
		if f == nil || !term.IsTerminal(int(f.Fd())) {
			return false
		}
	}
	return len(files) > 0
}

// New returns a huh-based prompter on a terminal and a line-based one on in
// and out otherwise.
func New(in io.Reader, out io.Writer, terminal, accessible bool) Prompter {
	if terminal {
		return &Form{Accessible: accessible}
	}
	return NewLine(in, out)
}

// Form renders huh forms. In and Out default to the terminal.
type Form struct {
	Accessible bool
	In         io.Reader
	Out        io.Writer
}

func (f *Form) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	v := def
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&v)
	if err := f.run(ctx, field); err != nil {
		return false, err
	}
	return v, nil
}

// Input returns the validation error of the first answer instead of asking
// again.
func (f *Form) Input(ctx context.Context, title string, validate func(string) error) (string, error) {
	var v string
	if err := f.run(ctx, huh.NewInput().Title(title).Value(&v)); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(v)
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (f *Form) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithAccessible(f.Accessible)
	if f.In != nil {
		form = form.WithInput(f.In)
	}
	if f.Out != nil {
		form = form.WithOutput(f.Out)
	}
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrCancelled
		}
		return err
	}
	return nil
}

// Line reads answers one line at a time. Input validation failures are
// returned, not retried.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) Confirm(_ context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(l.out, "%s %s ", question, hint)

	answer, err := l.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (l *Line) Input(_ context.Context, title string, validate func(string) error) (string, error) {
	fmt.Fprintf(l.out, "%s: ", title)

	answer, err := l.readLine()
	if err != nil {
		return "", err
	}
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (l *Line) readLine() (string, error) {
	line, err := l.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
