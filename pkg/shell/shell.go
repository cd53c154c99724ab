// Package shell runs the external tools backport-tags drives: gh, git and the
// optional gum/fzf helpers.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands.
type Runner interface {
	// Output runs name with args and returns its stdout. On failure the
	// returned error is an *ExitError carrying the trimmed stderr.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Pipe feeds stdin to the command and captures stdout while stderr stays
	// on the terminal. Used by tools that draw their own UI on the tty.
	Pipe(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

	// Attach runs the command with the process's own stdio.
	Attach(ctx context.Context, name string, args ...string) error

	// LookPath reports where name is found on PATH.
	LookPath(name string) (string, error)
}

// ExitError describes a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
}

// ExitCode returns the exit code carried by err, or -1 when err did not come
// from a command exiting.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}

// Exec runs real processes.
type Exec struct {
	// Stdin, Stdout and Stderr default to the process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var _ Runner = Exec{}

func (e Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), wrap(ctx, name, args, err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

func (e Exec) Pipe(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = e.stderr()
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), wrap(ctx, name, args, err, nil)
	}
	return stdout.Bytes(), nil
}

func (e Exec) Attach(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = e.stdin()
	cmd.Stdout = e.stdout()
	cmd.Stderr = e.stderr()
	if err := cmd.Run(); err != nil {
		return wrap(ctx, name, args, err, nil)
	}
	return nil
}

func (e Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (e Exec) stdin() io.Reader {
	if e.Stdin != nil {
		return e.Stdin
	}
	return os.Stdin
}

func (e Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func wrap(ctx context.Context, name string, args []string, err error, stderr []byte) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", CommandLine(name, args...), ctxErr)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{
			Command: CommandLine(name, args...),
			Code:    ee.ExitCode(),
			Stderr:  Trim(stderr),
		}
	}
	return fmt.Errorf("%s: %w", CommandLine(name, args...), err)
}

// CommandLine renders a command for messages and for keying fakes.
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// Trim shortens tool output for error messages.
func Trim(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
