package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/backport-tags/pkg/cache"
	"github.com/backport-tags/pkg/config"
	"github.com/backport-tags/pkg/finder"
	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/prompt"
	"github.com/backport-tags/pkg/reporter"
	"github.com/backport-tags/pkg/selector"
	"github.com/backport-tags/pkg/shell"
	"github.com/backport-tags/pkg/ui"
	"github.com/backport-tags/pkg/vcs"
)

var (
	version = "dev"
	commit  = "none"
)

// usageError marks command line mistakes, which exit 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.As(err, new(usageError)):
		fmt.Fprintf(stderr, "%s %v\n\n%s", ui.RenderFail("Error:"), err, cmd.UsageString())
		return 2
	default:
		fmt.Fprintf(stderr, "%s %v\n", ui.RenderFail(ui.IconFail), err)
		return 1
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backport-tags",
		Short: "List the released tags that contain a merged PR or its backports",
		Long: `Finds the merge commit of a GitHub pull request and of every auto-generated
backport of it, then asks a local bare clone which tags contain any of them.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.String("owner", config.DefaultOwner, "GitHub owner to pick repositories from")
	flags.String("repo", "", "Repository name, or owner/name")
	flags.String("pr", "", "Pull request number")
	config.AddTransportFlags(flags)
	flags.Bool("refresh", false, "Refresh the cached repository list")
	flags.BoolP("yes", "y", false, "Do not prompt; --repo and --pr become required")
	flags.String("output", "bullets", "Output format: bullets | table | json")
	flags.String("sort", "lexical", "Tag order: lexical | semver")
	flags.String("backport-pattern", "", fmt.Sprintf("Text marking a backport PR body, %s is the PR number (default %q)", config.PRPlaceholder, config.DefaultBackportPattern))
	flags.String("cache-dir", "", fmt.Sprintf("Cache root (default $%s or the user cache dir)", config.CacheDirEnv))
	flags.String("config", "", "Path to config file (default "+config.DefaultPath()+")")
	flags.String("log-level", "info", fmt.Sprintf("Log level is one of %v", logrus.AllLevels))
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	if cfg.NoColor {
		ui.DisableColor()
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return usageError{err}
	}
	logger := logrusr.New(log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runner := shell.Exec{}
	vc := vcs.NewGit(runner)
	cm := cache.New(afero.NewOsFs(), cfg.CacheDir, vc, cache.WithLogger(logger))

	scratch, err := cm.NewScratch()
	if err != nil {
		return err
	}
	cleanup := cleanupOnce(scratch, log)
	defer cleanup()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go onInterrupt(sigs, cancel, cleanup, os.Exit)

	sel, prompter := interactive(cmd, runner, bufio.NewReader(os.Stdin), prompt.IsTerminal(os.Stdin, os.Stdout))
	f := finder.New(cfg,
		finder.WithRunner(runner),
		finder.WithForge(forge.NewGH(runner)),
		finder.WithVCS(vc),
		finder.WithCache(cm),
		finder.WithSelector(sel),
		finder.WithPrompter(prompter),
		finder.WithScratch(scratch),
		finder.WithLogger(logger),
	)

	res, err := f.Run(ctx)
	if err != nil {
		return err
	}

	rep := reporter.New(cfg.Output, reporter.Options{Runner: runner, Color: !cfg.NoColor})
	return rep.Report(ctx, cmd.OutOrStdout(), res)
}

// interactive builds the picker and the prompter on one shared reader. Both
// write to stderr so that stdout carries only the report.
func interactive(cmd *cobra.Command, runner shell.Runner, in *bufio.Reader, terminal bool) (selector.Selector, prompt.Prompter) {
	out := cmd.ErrOrStderr()
	return selector.Detect(runner, in, out), prompt.New(in, out, terminal, os.Getenv("ACCESSIBLE") != "")
}

// cleanupOnce removes the scratch directory the first time it is called.
func cleanupOnce(scratch *cache.Scratch, log logrus.FieldLogger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := scratch.Cleanup(); err != nil {
				log.WithError(err).Warn("Could not remove scratch directory.")
			}
		})
	}
}

// onInterrupt waits for a signal, then cancels the run, removes the scratch
// directory and exits 130.
func onInterrupt(sigs <-chan os.Signal, cancel context.CancelFunc, cleanup func(), exit func(int)) {
	<-sigs
	cancel()
	cleanup()
	exit(130)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return config.Default(), nil
	case errors.Is(err, os.ErrNotExist):
		return nil, usageError{fmt.Errorf("config file %s does not exist", path)}
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s could not load config file: %v (using defaults)\n", ui.RenderWarn("warning:"), err)
		return config.Default(), nil
	}
}

func newLogger(cfg *config.Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    cfg.NoColor,
	})
	return log, nil
}
