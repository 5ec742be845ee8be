// SPDX-License-Identifier: MPL-2.0

// Package orchestrator ties a run together: it discovers niches, builds
// the psychotropic schedule, plans and executes each niche, runs its
// build command and aggregates everything into a run report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"igor-cli/internal/build"
	"igor-cli/internal/executor"
	"igor-cli/internal/interpolate"
	"igor-cli/internal/plan"
	"igor-cli/internal/psychotropic"
	"igor-cli/internal/source"
	"igor-cli/pkg/igorfile"
)

const (
	// PropProject is the built-in interpolation key naming the absolute
	// project root.
	PropProject = "PROJECT"
	// PropWorkspace is the built-in interpolation key naming the parent
	// of the project root.
	PropWorkspace = "WORKSPACE"
)

type (
	// Orchestrator runs all niches of one consumer project.
	Orchestrator struct {
		root     string
		manifest *igorfile.ProjectManifest
		runner   build.CommandRunner
		poolSize int
	}

	// Option adjusts an Orchestrator.
	Option func(*Orchestrator)

	// Niche is one discovered niche directory with its parsed settings.
	Niche struct {
		Name     igorfile.Identifier
		Dir      string
		Settings *igorfile.NicheSettings

		// ThundercloudDir is the resolved thundercloud root, after
		// interpolating the built-in props.
		ThundercloudDir string
	}

	// NicheReport is the outcome of one niche in a run.
	NicheReport struct {
		Name     igorfile.Identifier
		State    psychotropic.State
		Written  int
		Spliced  int
		Skipped  int
		Warnings []string
		Err      error
	}

	// RunReport aggregates a whole run.
	RunReport struct {
		Niches []NicheReport
	}
)

// WithRunner overrides the build command runner.
func WithRunner(r build.CommandRunner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithPoolSize overrides how many niches run concurrently.
func WithPoolSize(n int) Option {
	return func(o *Orchestrator) { o.poolSize = n }
}

// New returns an orchestrator for the project rooted at root.
func New(root string, manifest *igorfile.ProjectManifest, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		root:     root,
		manifest: manifest,
		runner:   build.NewShellRunner(nil, nil),
		poolSize: psychotropic.DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DiscoverNiches lists the niche directories under the manifest's
// niches directory. A subdirectory without a settings file is skipped
// with a debug log; a settings file that fails to parse fails discovery.
func (o *Orchestrator) DiscoverNiches() ([]Niche, error) {
	nichesDir := filepath.Join(o.root, o.manifest.EffectiveNichesDirectory())
	entries, err := os.ReadDir(nichesDir)
	if err != nil {
		if source.NotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read niches directory %s: %w", nichesDir, err)
	}

	settingsFile := o.manifest.EffectiveSettingsName() + ".toml"
	var niches []Niche
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(nichesDir, entry.Name())
		settingsPath := filepath.Join(dir, settingsFile)
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			if source.NotExist(err) {
				slog.Debug("skipping directory without settings file", "dir", dir)
				continue
			}
			return nil, fmt.Errorf("read %s: %w", settingsPath, err)
		}

		settings, err := igorfile.ParseNicheSettingsBytes(data, settingsPath)
		if err != nil {
			return nil, err
		}

		niche := Niche{
			Name:     igorfile.Identifier(entry.Name()),
			Dir:      dir,
			Settings: settings,
		}
		niche.ThundercloudDir = o.resolveThundercloudDir(niche)
		niches = append(niches, niche)
	}

	sort.Slice(niches, func(i, j int) bool { return niches[i].Name < niches[j].Name })
	return niches, nil
}

// resolveThundercloudDir picks the thundercloud root for a niche. A
// configured directory wins; a git binding resolves to the managed
// working copy under the niche directory. Built-in props interpolate in
// the configured directory.
func (o *Orchestrator) resolveThundercloudDir(n Niche) string {
	props := o.builtinProps()
	if dir := n.Settings.Thundercloud.Directory; dir != "" {
		dir = interpolate.Apply(dir, props)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(o.root, dir)
		}
		return dir
	}
	return filepath.Join(n.Dir, "thundercloud")
}

func (o *Orchestrator) builtinProps() map[string]string {
	return map[string]string{
		PropProject:   o.root,
		PropWorkspace: filepath.Dir(o.root),
	}
}

// Run executes every niche under the psychotropic schedule. The
// returned error is fatal and pre-empts the whole run (bad schedule,
// discovery failure); per-niche failures land in the report instead.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	niches, err := o.DiscoverNiches()
	if err != nil {
		return nil, err
	}

	byName := make(map[igorfile.Identifier]Niche, len(niches))
	for _, n := range niches {
		byName[n.Name] = n
	}

	reports := make(map[igorfile.Identifier]*NicheReport, len(niches))
	var reportsMu sync.Mutex
	claimed := claimedTargets{targets: map[string]igorfile.Identifier{}}

	cues, err := o.cueList(niches, byName, reports, &reportsMu, &claimed)
	if err != nil {
		return nil, err
	}

	schedule, err := psychotropic.New(cues)
	if err != nil {
		return nil, err
	}
	results := schedule.Run(ctx, o.poolSize)

	report := &RunReport{}
	for _, r := range results {
		reportsMu.Lock()
		nr := reports[r.Name]
		reportsMu.Unlock()
		if nr == nil {
			nr = &NicheReport{Name: r.Name}
		}
		nr.State = r.State
		if nr.Err == nil {
			nr.Err = r.Err
		}
		report.Niches = append(report.Niches, *nr)
	}
	return report, nil
}

// cueList builds the schedule input: declared cues first, in manifest
// order, then every undeclared niche in lexicographic order.
func (o *Orchestrator) cueList(
	niches []Niche,
	byName map[igorfile.Identifier]Niche,
	reports map[igorfile.Identifier]*NicheReport,
	reportsMu *sync.Mutex,
	claimed *claimedTargets,
) ([]psychotropic.Cue, error) {
	declared := map[igorfile.Identifier]struct{}{}
	var cues []psychotropic.Cue

	for _, cc := range o.manifest.Psychotropic.Cues {
		declared[cc.Name] = struct{}{}
		niche, ok := byName[cc.Name]
		if !ok {
			if cc.EffectiveUseThundercloud() {
				return nil, fmt.Errorf("psychotropic cue %q has no niche directory", cc.Name)
			}
			// Barrier-only cue: nothing to run, only an ordering point.
			cues = append(cues, psychotropic.Cue{Name: cc.Name, WaitFor: cc.WaitFor})
			continue
		}
		cues = append(cues, o.nicheCue(niche, cc.WaitFor, cc.EffectiveUseThundercloud(), reports, reportsMu, claimed))
	}

	for _, niche := range niches {
		if _, ok := declared[niche.Name]; ok {
			continue
		}
		cues = append(cues, o.nicheCue(niche, nil, true, reports, reportsMu, claimed))
	}
	return cues, nil
}

func (o *Orchestrator) nicheCue(
	niche Niche,
	waitFor []igorfile.Identifier,
	useThundercloud bool,
	reports map[igorfile.Identifier]*NicheReport,
	reportsMu *sync.Mutex,
	claimed *claimedTargets,
) psychotropic.Cue {
	return psychotropic.Cue{
		Name:    niche.Name,
		WaitFor: waitFor,
		Run: func(ctx context.Context, _ []psychotropic.Result) error {
			nr := &NicheReport{Name: niche.Name}
			reportsMu.Lock()
			reports[niche.Name] = nr
			reportsMu.Unlock()
			return o.runNiche(ctx, niche, useThundercloud, nr, claimed)
		},
	}
}

// runNiche plans and executes one niche, then its build command.
func (o *Orchestrator) runNiche(ctx context.Context, niche Niche, useThundercloud bool, nr *NicheReport, claimed *claimedTargets) error {
	input, props, err := o.nicheInput(niche, useThundercloud)
	if err != nil {
		nr.Err = err
		return err
	}

	p, err := plan.Build(*input)
	if err != nil {
		nr.Err = err
		return err
	}
	nr.Warnings = append(nr.Warnings, p.Warnings...)
	nr.Warnings = append(nr.Warnings, claimed.claim(niche.Name, p.Targets())...)

	sink := source.NewOSOutputSink(o.root)
	report, err := executor.New(sink).Apply(ctx, p.Actions)
	if report != nil {
		nr.Written = report.Written
		nr.Spliced = report.Spliced
		nr.Skipped = report.Skipped
		nr.Warnings = append(nr.Warnings, report.Warnings...)
	}
	if err != nil {
		nr.Err = err
		return err
	}

	if cmd := niche.Settings.Settings.Build; cmd != "" {
		if err := o.runner.Run(ctx, cmd, o.root, props); err != nil {
			nr.Err = err
			return err
		}
	}

	slog.Info("niche done",
		"niche", string(niche.Name),
		"written", nr.Written,
		"spliced", nr.Spliced,
		"skipped", nr.Skipped,
		"warnings", len(nr.Warnings))
	return nil
}

// nicheInput resolves the trees and layered defaults for one niche.
func (o *Orchestrator) nicheInput(niche Niche, useThundercloud bool) (*plan.Input, map[string]string, error) {
	defaults := igorfile.InvarConfig{Props: o.builtinProps()}
	defaults = defaults.Merge(o.manifest.InvarDefaults)

	input := &plan.Input{
		Features: niche.Settings.Options.FeatureSet(),
	}

	if useThundercloud {
		tcRoot := niche.ThundercloudDir
		tcConfigPath := filepath.Join(tcRoot, igorfile.ThundercloudConfigFileName)
		data, err := os.ReadFile(tcConfigPath)
		if err != nil {
			if source.NotExist(err) {
				return nil, nil, &igorfile.MissingThundercloudError{
					Niche:     niche.Name,
					Directory: tcRoot,
				}
			}
			return nil, nil, fmt.Errorf("read %s: %w", tcConfigPath, err)
		}
		tcConfig, err := igorfile.ParseThundercloudConfigBytes(data, tcConfigPath)
		if err != nil {
			return nil, nil, err
		}
		defaults = defaults.Merge(tcConfig.InvarDefaults)

		cumulusDir := filepath.Join(tcRoot, igorfile.CumulusDirectory)
		if info, err := os.Stat(cumulusDir); err == nil && info.IsDir() {
			input.Cumulus = source.NewOSTree(cumulusDir)
		}
	}

	defaults = defaults.Merge(niche.Settings.InvarDefaults)

	invarDir := filepath.Join(niche.Dir, igorfile.InvarDirectory)
	if info, err := os.Stat(invarDir); err == nil && info.IsDir() {
		input.Invar = source.NewOSTree(invarDir)
	}

	input.Defaults = defaults
	return input, defaults.Props, nil
}

// claimedTargets tracks which niche first planned each target path, so
// a second niche aiming at the same file gets a warning.
type claimedTargets struct {
	mu      sync.Mutex
	targets map[string]igorfile.Identifier
}

func (c *claimedTargets) claim(niche igorfile.Identifier, targets []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var warnings []string
	for _, t := range targets {
		if owner, ok := c.targets[t]; ok && owner != niche {
			warnings = append(warnings, fmt.Sprintf("target %s is also written by niche %s", t, owner))
			continue
		}
		c.targets[t] = niche
	}
	return warnings
}

// ExitCode maps the report to the process exit code: cancellation
// dominates, then any failed niche, then success.
func (r *RunReport) ExitCode() int {
	code := 0
	for _, n := range r.Niches {
		switch n.State {
		case psychotropic.StateCancelled:
			return 3
		case psychotropic.StateFailed:
			code = 2
		}
	}
	return code
}

// Failed returns the reports of niches that ended in the failed state;
// cancelled niches are not included.
func (r *RunReport) Failed() []NicheReport {
	var out []NicheReport
	for _, n := range r.Niches {
		if n.State == psychotropic.StateFailed {
			out = append(out, n)
		}
	}
	return out
}

// IsFatal reports whether err should abort before any niche runs, which
// the CLI maps to exit code 1.
func IsFatal(err error) bool {
	return errors.Is(err, psychotropic.ErrCycleOrForwardRef) ||
		errors.Is(err, psychotropic.ErrDuplicateCue) ||
		errors.Is(err, igorfile.ErrBadConfig)
}
