// SPDX-License-Identifier: MPL-2.0

// Package plan walks a niche's source trees and turns them into an
// ordered list of actions for the executor.
//
// The invar tree is walked before the cumulus tree, config bolts are
// layered onto the niche defaults per directory and per target, ignore
// bolts feed a suppression set, and the surviving actions are sorted so
// a run is deterministic regardless of filesystem enumeration order.
package plan

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"igor-cli/internal/bolt"
	"igor-cli/internal/interpolate"
	"igor-cli/internal/source"
	"igor-cli/pkg/igorfile"
	"igor-cli/pkg/platform"
)

// Rank orders action sources: invar-sourced actions beat cumulus-sourced
// actions for the same target at equal function priority.
type Rank int

const (
	RankInvar Rank = iota
	RankCumulus
)

// String returns the tree name for diagnostics.
func (r Rank) String() string {
	if r == RankInvar {
		return "invar"
	}
	return "cumulus"
}

type (
	// Action is one planned file operation. Fragment actions splice into
	// an existing target; every other function emits the source file.
	Action struct {
		TargetPath  string
		Function    bolt.Function
		Rank        Rank
		SourcePath  string
		Tree        *source.Tree
		Placeholder igorfile.Identifier
		Config      igorfile.InvarConfig
	}

	// Plan is the ordered action list for one niche plus any non-fatal
	// findings collected during the walk.
	Plan struct {
		Actions  []Action
		Warnings []string
	}

	// Input carries everything the walk needs. Either tree may be nil
	// when the niche has no invar directory or opts out of its
	// thundercloud.
	Input struct {
		Invar    *source.Tree
		Cumulus  *source.Tree
		Features igorfile.FeatureSet
		Defaults igorfile.InvarConfig
	}

	// Error wraps a failure with the source path that caused it.
	Error struct {
		Path string
		Err  error
	}

	// dirConfigs is the config layering state for one directory:
	// directory-scoped configs apply to every target in the directory,
	// per-target configs only to their own.
	dirConfigs struct {
		scoped    []igorfile.InvarConfig
		perTarget map[string][]igorfile.InvarConfig
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap exposes the cause for errors.Is() checks against ErrBadName and
// ErrBadConfig.
func (e *Error) Unwrap() error {
	return e.Err
}

// Build walks both trees and returns the sorted, suppression-filtered
// plan. A malformed bolt name or config file anywhere in either tree
// fails the whole niche.
func Build(in Input) (*Plan, error) {
	w := &walker{
		features: in.Features,
		defaults: in.Defaults,
		suppress: map[string]struct{}{},
	}

	if in.Invar != nil {
		if err := w.walkTree(in.Invar, RankInvar); err != nil {
			return nil, err
		}
	}
	if in.Cumulus != nil {
		if err := w.walkTree(in.Cumulus, RankCumulus); err != nil {
			return nil, err
		}
	}

	actions := make([]Action, 0, len(w.actions))
	for _, a := range w.actions {
		if _, gone := w.suppress[a.TargetPath]; gone {
			continue
		}
		actions = append(actions, a)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.TargetPath != b.TargetPath {
			return a.TargetPath < b.TargetPath
		}
		if pa, pb := a.Function.Priority(), b.Function.Priority(); pa != pb {
			return pa < pb
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.SourcePath < b.SourcePath
	})

	return &Plan{Actions: actions, Warnings: w.warnings}, nil
}

type walker struct {
	features igorfile.FeatureSet
	defaults igorfile.InvarConfig
	suppress map[string]struct{}
	actions  []Action
	warnings []string
}

func (w *walker) walkTree(tree *source.Tree, rank Rank) error {
	return w.walkDir(tree, rank, ".")
}

func (w *walker) walkDir(tree *source.Tree, rank Rank, dir string) error {
	entries, err := tree.List(dir)
	if err != nil {
		return &Error{Path: dir, Err: err}
	}

	cfgs, err := w.collectConfigs(tree, dir, entries)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		src := path.Join(dir, entry.Name)
		if entry.IsDir {
			if err := w.walkDir(tree, rank, src); err != nil {
				return err
			}
			continue
		}

		parsed, err := bolt.Parse(entry.Name)
		if err != nil {
			return &Error{Path: src, Err: err}
		}
		if parsed.Function == bolt.FunctionConfig {
			continue
		}
		if !w.features.Active(parsed.Feature) {
			continue
		}

		cfg := cfgs.effective(w.defaults, parsed.TargetName())
		target := w.targetPath(dir, parsed, cfg)

		if parsed.Function == bolt.FunctionIgnore {
			w.suppress[target] = struct{}{}
			continue
		}

		if platform.IsWindowsReservedName(path.Base(target)) {
			w.warnings = append(w.warnings,
				fmt.Sprintf("target %s has a Windows-reserved file name", target))
		}

		w.actions = append(w.actions, Action{
			TargetPath:  target,
			Function:    parsed.Function,
			Rank:        rank,
			SourcePath:  src,
			Tree:        tree,
			Placeholder: parsed.Placeholder,
			Config:      cfg,
		})
	}
	return nil
}

// collectConfigs parses every active config bolt of a directory before
// any of its files are planned, so layering never depends on entry
// order.
func (w *walker) collectConfigs(tree *source.Tree, dir string, entries []source.Entry) (*dirConfigs, error) {
	cfgs := &dirConfigs{perTarget: map[string][]igorfile.InvarConfig{}}
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		parsed, err := bolt.Parse(entry.Name)
		if err != nil {
			return nil, &Error{Path: path.Join(dir, entry.Name), Err: err}
		}
		if parsed.Plain || parsed.Function != bolt.FunctionConfig {
			continue
		}
		if !w.features.Active(parsed.Feature) {
			continue
		}

		src := path.Join(dir, entry.Name)
		data, err := tree.Read(src)
		if err != nil {
			return nil, &Error{Path: src, Err: err}
		}
		cfg, err := igorfile.ParseFileConfigBytes(data, src)
		if err != nil {
			return nil, &Error{Path: src, Err: err}
		}

		if parsed.DirectoryScoped() {
			cfgs.scoped = append(cfgs.scoped, *cfg)
		} else {
			key := parsed.TargetName()
			cfgs.perTarget[key] = append(cfgs.perTarget[key], *cfg)
		}
	}
	return cfgs, nil
}

// effective layers the directory's configs onto the niche defaults for
// one target name. Directory-scoped configs are the weaker per-file
// layer; multiple matches at the same layer merge in source-name order.
func (c *dirConfigs) effective(defaults igorfile.InvarConfig, targetName string) igorfile.InvarConfig {
	cfg := defaults
	for _, sc := range c.scoped {
		cfg = cfg.Merge(sc)
	}
	for _, pc := range c.perTarget[targetName] {
		cfg = cfg.Merge(pc)
	}
	return cfg
}

// targetPath resolves where the action lands. A target template from the
// effective config names the full path relative to the project root;
// otherwise the bolt's decoded name joins its source directory.
func (w *walker) targetPath(dir string, parsed bolt.ParsedName, cfg igorfile.InvarConfig) string {
	if tmpl, ok := cfg.TargetTemplate(); ok {
		if cfg.EffectiveInterpolate() {
			tmpl = interpolate.Apply(tmpl, cfg.Props)
		}
		return path.Clean(tmpl)
	}
	name := parsed.TargetName()
	if cfg.EffectiveInterpolate() {
		name = interpolate.Apply(name, cfg.Props)
	}
	return path.Join(dir, name)
}

// Targets returns the distinct target paths of the plan, in order, for
// cross-niche collision reporting.
func (p *Plan) Targets() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, a := range p.Actions {
		if _, ok := seen[a.TargetPath]; ok {
			continue
		}
		seen[a.TargetPath] = struct{}{}
		out = append(out, a.TargetPath)
	}
	return out
}

// Describe renders one action as a log-friendly line.
func (a Action) Describe() string {
	var sb strings.Builder
	sb.WriteString(string(a.Function))
	sb.WriteString(" ")
	sb.WriteString(a.Rank.String())
	sb.WriteString(":")
	sb.WriteString(a.SourcePath)
	sb.WriteString(" -> ")
	sb.WriteString(a.TargetPath)
	return sb.String()
}

// IsBadName reports whether err stems from a malformed bolt name.
func IsBadName(err error) bool {
	return errors.Is(err, bolt.ErrBadName)
}
