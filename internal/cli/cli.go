// Package cli is the ggufpub command line: flag and config resolution, the
// cobra command tree and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ggufpub/internal/config"
	"ggufpub/internal/executil"
	"ggufpub/internal/pipeline"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Indirections replaced by tests.
var (
	fnRunner  executil.Runner          = executil.OS{}
	fnInspect pipeline.HeaderInspector = pipeline.InspectHeader

	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Options carries global and per-command flag values.
type Options struct {
	ConfigPath     string
	Profile        string
	LogLevel       string
	LogFormat      string
	MetricsFile    string
	MetricsPushURL string
	MetricsAddr    string

	Yes         bool
	No          bool
	YesEnv      bool // GGUFPUB_YES; --no still wins
	SkipPublish bool
	Jobs        int
	Levels      []string
	Owner       string
	RepoID      string
	OutputDir   string
	WorkDir     string
}

func defaultOptions() *Options {
	return &Options{
		ConfigPath: config.EnvStr(config.EnvConfig, ""),
		Profile:    config.EnvStr(config.EnvProfile, ""),
		LogLevel:   config.EnvStr(config.EnvLogLevel, "info"),
		LogFormat:  config.EnvStr(config.EnvLogFormat, "console"),
		Jobs:       config.EnvInt(config.EnvJobs, 0),
		YesEnv:     config.EnvBool(config.EnvYes, false),
	}
}

// usageError marks errors that should exit with ExitUsage.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func isUsage(err error) bool {
	var u usageError
	if errors.As(err, &u) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") || strings.Contains(msg, "flag needs an argument")
}

// resolveConfig layers profile, config file, environment and flags.
func (o *Options) resolveConfig() (config.Config, error) {
	var file config.Config
	if o.ConfigPath != "" {
		c, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, config.ValidationError{Field: "config", Reason: err.Error()}
		}
		file = c
	}
	flags := config.Config{
		Levels:    o.Levels,
		Owner:     o.Owner,
		RepoID:    o.RepoID,
		OutputDir: o.OutputDir,
		WorkDir:   o.WorkDir,
		Jobs:      o.Jobs,
	}
	return config.Resolve(o.Profile, file, config.FromEnv().Merge(flags))
}

// MainWithArgs runs the CLI with args and returns the process exit code.
func MainWithArgs(args []string) int {
	if len(args) == 0 {
		root := buildRootCmd(defaultOptions())
		root.SetOut(stderr)
		_ = root.Usage()
		return ExitUsage
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := buildRootCmd(defaultOptions())
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if isUsage(err) {
			fmt.Fprintf(stderr, "✗ %v\n", err)
			fmt.Fprintln(stderr, "Run 'ggufpub --help' for usage.")
			return ExitUsage
		}
		if k := pipeline.Kind(err); k != pipeline.KindUnknown {
			fmt.Fprintf(stderr, "✗ %s: %v\n", k, err)
		} else {
			fmt.Fprintf(stderr, "✗ %v\n", err)
		}
		return ExitError
	}
	return ExitOK
}

// Main returns an exit code for use by cmd/ggufpub.
func Main() int { return MainWithArgs(os.Args[1:]) }
