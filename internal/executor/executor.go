// SPDX-License-Identifier: MPL-2.0

// Package executor applies a planned action list to the consumer
// project. Emit actions write whole files under the effective write
// mode; fragment actions splice into existing targets. Every write goes
// through the sink's atomic path so an interrupted run never leaves a
// torn file.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"igor-cli/internal/bolt"
	"igor-cli/internal/interpolate"
	"igor-cli/internal/placeholder"
	"igor-cli/internal/plan"
	"igor-cli/internal/source"
	"igor-cli/pkg/igorfile"
)

type (
	// Executor applies actions to one output sink.
	Executor struct {
		sink *source.OutputSink
	}

	// Report aggregates what one run of Apply did.
	Report struct {
		Written  int
		Spliced  int
		Skipped  int
		Warnings []string
	}
)

// New returns an Executor writing into sink.
func New(sink *source.OutputSink) *Executor {
	return &Executor{sink: sink}
}

// Apply runs the actions in order, stopping between actions when ctx is
// cancelled. The first hard error aborts the run; warnings accumulate in
// the report.
func (e *Executor) Apply(ctx context.Context, actions []plan.Action) (*Report, error) {
	report := &Report{}
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.apply(action, report); err != nil {
			return report, fmt.Errorf("apply %s: %w", action.Describe(), err)
		}
	}
	return report, nil
}

func (e *Executor) apply(action plan.Action, report *Report) error {
	if action.Function == bolt.FunctionFragment {
		return e.splice(action, report)
	}
	return e.emit(action, report)
}

// emit writes the source file to its target under the effective write
// mode. An explicit write-mode in config wins; otherwise example bolts
// only fill gaps and everything else overwrites.
func (e *Executor) emit(action plan.Action, report *Report) error {
	mode := writeMode(action)
	if mode == igorfile.WriteModeIgnore {
		report.Skipped++
		return nil
	}
	if mode == igorfile.WriteModeWriteNew && e.sink.Exists(action.TargetPath) {
		slog.Debug("target exists, keeping it", "target", action.TargetPath, "source", action.SourcePath)
		report.Skipped++
		return nil
	}

	data, err := action.Tree.Read(action.SourcePath)
	if err != nil {
		return err
	}
	if action.Config.EffectiveInterpolate() {
		data = interpolate.ApplyBytes(data, action.Config.Props)
	}

	if err := e.sink.WriteAtomic(action.TargetPath, data, fileMode(action)); err != nil {
		return err
	}
	report.Written++
	return nil
}

// splice reads the target, replaces the fragment's placeholder sites and
// writes the result back. A missing target or a target without a
// matching site is a warning, not an error.
func (e *Executor) splice(action plan.Action, report *Report) error {
	current, err := e.sink.Read(action.TargetPath)
	if err != nil {
		if source.NotExist(err) {
			e.warn(report, "fragment target %s does not exist, skipping %s", action.TargetPath, action.SourcePath)
			return nil
		}
		return err
	}

	body, err := action.Tree.Read(action.SourcePath)
	if err != nil {
		return err
	}
	if action.Config.EffectiveInterpolate() {
		body = interpolate.ApplyBytes(body, action.Config.Props)
	}

	next, count, err := placeholder.Splice(current, action.Placeholder, body)
	if err != nil {
		if errors.Is(err, placeholder.ErrUnbalancedPlaceholder) {
			e.warn(report, "unbalanced placeholder in %s: %v, skipping %s", action.TargetPath, err, action.SourcePath)
			return nil
		}
		return err
	}
	if count == 0 {
		e.warn(report, "no placeholder %q in %s, skipping %s", action.Placeholder, action.TargetPath, action.SourcePath)
		return nil
	}
	if bytes.Equal(current, next) {
		report.Skipped++
		return nil
	}

	if err := e.sink.WriteAtomic(action.TargetPath, next, fileMode(action)); err != nil {
		return err
	}
	report.Spliced += count
	return nil
}

func (e *Executor) warn(report *Report, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn(msg)
	report.Warnings = append(report.Warnings, msg)
}

func writeMode(action plan.Action) igorfile.WriteMode {
	if action.Config.WriteMode != nil {
		return *action.Config.WriteMode
	}
	switch action.Function {
	case bolt.FunctionExample:
		return igorfile.WriteModeWriteNew
	default:
		return igorfile.WriteModeOverwrite
	}
}

func fileMode(action plan.Action) os.FileMode {
	if action.Config.EffectiveExecutable() {
		return 0o755
	}
	return 0o644
}

// Merge folds another report into r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Written += other.Written
	r.Spliced += other.Spliced
	r.Skipped += other.Skipped
	r.Warnings = append(r.Warnings, other.Warnings...)
}
