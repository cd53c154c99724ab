// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/backport-tags/pkg/shell"
)

// Response is what the fake returns for one command line.
type Response struct {
	Out  string
	Err  error
	Func func(stdin string) (string, error)
}

// Runner answers commands from a table keyed by shell.CommandLine.
// Commands missing from the table fail the call.
type Runner struct {
	Responses map[string]Response
	// Binaries lists the names LookPath finds.
	Binaries []string

	Calls  []string
	Stdins []string
}

var _ shell.Runner = &Runner{}

// New returns a Runner that finds the given binaries on PATH.
func New(binaries ...string) *Runner {
	return &Runner{Responses: map[string]Response{}, Binaries: binaries}
}

// On registers the stdout returned for a command line.
func (r *Runner) On(line, out string) *Runner {
	r.Responses[line] = Response{Out: out}
	return r
}

// Fail registers an exit error for a command line.
func (r *Runner) Fail(line string, code int, stderr string) *Runner {
	r.Responses[line] = Response{Err: &shell.ExitError{Command: line, Code: code, Stderr: stderr}}
	return r
}

// Handle registers a callback for a command line.
func (r *Runner) Handle(line string, fn func(stdin string) (string, error)) *Runner {
	r.Responses[line] = Response{Func: fn}
	return r
}

// CalledPrefix reports whether any call starts with prefix.
func (r *Runner) CalledPrefix(prefix string) bool {
	for _, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.run(ctx, "", name, args)
}

func (r *Runner) Pipe(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	in, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, string(in), name, args)
}

func (r *Runner) Attach(ctx context.Context, name string, args ...string) error {
	_, err := r.run(ctx, "", name, args)
	return err
}

func (r *Runner) LookPath(name string) (string, error) {
	for _, b := range r.Binaries {
		if b == name {
			return "/usr/bin/" + name, nil
		}
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func (r *Runner) run(ctx context.Context, stdin, name string, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line := shell.CommandLine(name, args...)
	r.Calls = append(r.Calls, line)
	r.Stdins = append(r.Stdins, stdin)
	resp, ok := r.Responses[line]
	if !ok {
		return nil, fmt.Errorf("shelltest: unexpected command %q", line)
	}
	if resp.Func != nil {
		out, err := resp.Func(stdin)
		return []byte(out), err
	}
	return []byte(resp.Out), resp.Err
}
