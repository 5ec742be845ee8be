// SPDX-License-Identifier: MPL-2.0

// Package build runs a niche's post-run build command. The default
// runner interprets the command line in-process with mvdan/sh, so a
// build command behaves the same on every platform without depending on
// a system shell.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// CommandRunner abstracts how a build command line is executed.
	CommandRunner interface {
		Run(ctx context.Context, command, dir string, env map[string]string) error
	}

	// ShellRunner is the default CommandRunner, backed by the mvdan/sh
	// interpreter.
	ShellRunner struct {
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExitError reports a build command that ran but exited non-zero.
	ExitError struct {
		Command string
		Code    int
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("build command %q exited with status %d", e.Command, e.Code)
}

// NewShellRunner returns a runner writing to the given streams, falling
// back to the process streams when nil.
func NewShellRunner(stdout, stderr io.Writer) *ShellRunner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ShellRunner{Stdout: stdout, Stderr: stderr}
}

// Run parses and interprets command in dir. The niche's props are
// appended to the inherited environment so build scripts can read them.
func (r *ShellRunner) Run(ctx context.Context, command, dir string, env map[string]string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "build")
	if err != nil {
		return fmt.Errorf("parse build command: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(environ(env)...)),
		interp.StdIO(nil, r.Stdout, r.Stderr),
	)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Command: command, Code: int(status)}
		}
		return fmt.Errorf("run build command: %w", err)
	}
	return nil
}

// environ merges extra onto the process environment, extra winning on
// key collisions, with deterministic ordering for the interpreter.
func environ(extra map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range extra {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}
