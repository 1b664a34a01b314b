// Package executil runs external tools (the quantizer and the hub CLI) with
// inherited environment and streamed output.
package executil

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

// Cmd describes one external invocation.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Stdout io.Writer         // nil discards
	Stderr io.Writer         // nil discards
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Runner executes commands. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
	CombinedOutput(ctx context.Context, c Cmd) ([]byte, error)
}

// OS runs commands as real child processes.
type OS struct{}

func (OS) Run(ctx context.Context, c Cmd) error {
	cmd := build(ctx, c)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return wrap(c, cmd.Run())
}

func (OS) CombinedOutput(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := build(ctx, c)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), wrap(c, err)
}

func build(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

func wrap(c Cmd, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", c.Path, err)
}

// ExitCode extracts the process exit code from err, or -1 when err did not
// come from a process that ran to completion.
func ExitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// Available reports whether name resolves to an executable via PATH (or is
// itself a path to one).
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
