// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"igor-cli/internal/bolt"
	"igor-cli/internal/source"
	"igor-cli/pkg/igorfile"
)

func fixtureTree(t *testing.T, files map[string]string) *source.Tree {
	t.Helper()
	fsys := memfs.New()
	for p, content := range files {
		if err := util.WriteFile(fsys, p, []byte(content), 0o644); err != nil {
			t.Fatalf("fixture write %s: %v", p, err)
		}
	}
	return source.NewTree(fsys)
}

func TestBuildPlainAndGatedFiles(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"README.md":            "# demo\n",
		"main+option-niche.rs": "fn main() {}\n",
		"main+option-other.rs": "fn other() {}\n",
	})

	p, err := Build(Input{
		Cumulus:  cumulus,
		Features: igorfile.NewFeatureSet([]igorfile.Identifier{"niche"}, nil),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(p.Actions) != 2 {
		t.Fatalf("got %d actions, want 2: %+v", len(p.Actions), p.Actions)
	}
	if p.Actions[0].TargetPath != "README.md" {
		t.Errorf("first target = %q, want README.md", p.Actions[0].TargetPath)
	}
	if p.Actions[1].TargetPath != "main.rs" || p.Actions[1].SourcePath != "main+option-niche.rs" {
		t.Errorf("gated action = %+v", p.Actions[1])
	}
}

func TestBuildInvarBeforeCumulus(t *testing.T) {
	t.Parallel()

	invar := fixtureTree(t, map[string]string{"conf.toml": "from = \"invar\"\n"})
	cumulus := fixtureTree(t, map[string]string{"conf.toml": "from = \"cumulus\"\n"})

	p, err := Build(Input{Invar: invar, Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(p.Actions))
	}
	if p.Actions[0].Rank != RankInvar || p.Actions[1].Rank != RankCumulus {
		t.Errorf("rank order wrong: %v then %v", p.Actions[0].Rank, p.Actions[1].Rank)
	}
}

func TestBuildFunctionPriorityOrder(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"Cargo+fragment-tokio-build_deps.toml": "tokio = \"1\"\n",
		"Cargo.toml":                           "[package]\n",
		"Cargo+overwrite-tokio.toml":           "[package]\nname = \"t\"\n",
	})

	p, err := Build(Input{
		Cumulus:  cumulus,
		Features: igorfile.NewFeatureSet([]igorfile.Identifier{"tokio"}, nil),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var funcs []bolt.Function
	for _, a := range p.Actions {
		if a.TargetPath == "Cargo.toml" {
			funcs = append(funcs, a.Function)
		}
	}
	want := []bolt.Function{bolt.FunctionOption, bolt.FunctionOverwrite, bolt.FunctionFragment}
	if len(funcs) != len(want) {
		t.Fatalf("got %d Cargo.toml actions, want %d", len(funcs), len(want))
	}
	for i := range want {
		if funcs[i] != want[i] {
			t.Errorf("funcs[%d] = %v, want %v", i, funcs[i], want[i])
		}
	}
}

func TestBuildIgnoreSuppressesAcrossTrees(t *testing.T) {
	t.Parallel()

	invar := fixtureTree(t, map[string]string{"main+ignore-niche.rs": ""})
	cumulus := fixtureTree(t, map[string]string{
		"main.rs":  "fn main() {}\n",
		"other.rs": "fn other() {}\n",
	})

	p, err := Build(Input{
		Invar:    invar,
		Cumulus:  cumulus,
		Features: igorfile.NewFeatureSet([]igorfile.Identifier{"niche"}, nil),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 || p.Actions[0].TargetPath != "other.rs" {
		t.Errorf("suppression failed: %+v", p.Actions)
	}
}

func TestBuildIgnoreInactiveFeatureKeepsTarget(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"main+ignore-niche.rs": "",
		"main.rs":              "fn main() {}\n",
	})

	p, err := Build(Input{Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 || p.Actions[0].TargetPath != "main.rs" {
		t.Errorf("inactive ignore suppressed anyway: %+v", p.Actions)
	}
}

func TestBuildPerTargetConfigLayering(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"app.ini":                  "key = value\n",
		"app+config-prod.ini.toml": "write-mode = \"write-new\"\nexecutable = true\n",
	})

	interp := false
	p, err := Build(Input{
		Cumulus:  cumulus,
		Features: igorfile.NewFeatureSet([]igorfile.Identifier{"prod"}, nil),
		Defaults: igorfile.InvarConfig{Interpolate: &interp},
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 {
		t.Fatalf("got %d actions, want 1: %+v", len(p.Actions), p.Actions)
	}

	cfg := p.Actions[0].Config
	if cfg.EffectiveWriteMode() != igorfile.WriteModeWriteNew {
		t.Errorf("write mode = %v, want write-new", cfg.EffectiveWriteMode())
	}
	if !cfg.EffectiveExecutable() {
		t.Error("executable flag not layered in")
	}
	if cfg.EffectiveInterpolate() {
		t.Error("defaults layer lost during merge")
	}
}

func TestBuildConfigFeatureGating(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"app.ini":                  "key = value\n",
		"app+config-prod.ini.toml": "write-mode = \"write-new\"\n",
	})

	p, err := Build(Input{Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(p.Actions))
	}
	if p.Actions[0].Config.EffectiveWriteMode() != igorfile.WriteModeOverwrite {
		t.Error("inactive config applied anyway")
	}
}

func TestBuildDirectoryScopedConfig(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"scripts/run.sh":                "#!/bin/sh\n",
		"scripts/stop.sh":               "#!/bin/sh\n",
		"scripts/dot_+config-@.toml":    "executable = true\n",
		"scripts/stop+config-@.sh.toml": "executable = false\n",
		"other.txt":                     "plain\n",
	})

	p, err := Build(Input{Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	byTarget := map[string]Action{}
	for _, a := range p.Actions {
		byTarget[a.TargetPath] = a
	}
	if !byTarget["scripts/run.sh"].Config.EffectiveExecutable() {
		t.Error("directory-scoped config missed run.sh")
	}
	if byTarget["scripts/stop.sh"].Config.EffectiveExecutable() {
		t.Error("per-target config did not override the directory layer")
	}
	if byTarget["other.txt"].Config.EffectiveExecutable() {
		t.Error("directory-scoped config leaked outside its directory")
	}
}

func TestBuildTargetTemplate(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"tpl/app.conf":               "k = v\n",
		"tpl/app+config-@.conf.toml": "target = \"{{HOME}}/app.conf\"\nprops = { HOME = \"home/igor\" }\n",
	})

	p, err := Build(Input{Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 {
		t.Fatalf("got %d actions, want 1: %+v", len(p.Actions), p.Actions)
	}
	if p.Actions[0].TargetPath != "home/igor/app.conf" {
		t.Errorf("target = %q, want home/igor/app.conf", p.Actions[0].TargetPath)
	}
}

func TestBuildBadNameFailsNiche(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"main+option-9lives.rs": "",
	})

	_, err := Build(Input{Cumulus: cumulus})
	if err == nil {
		t.Fatal("Build() accepted a malformed bolt name")
	}
	if !errors.Is(err, bolt.ErrBadName) {
		t.Errorf("error does not wrap ErrBadName: %v", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Path != "main+option-9lives.rs" {
		t.Errorf("error lost its source path: %v", err)
	}
}

func TestBuildBadConfigFailsNiche(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"app+config-@.toml": "write-mode = \"sideways\"\n",
		"app":               "x\n",
	})

	_, err := Build(Input{Cumulus: cumulus})
	if err == nil {
		t.Fatal("Build() accepted a malformed config bolt")
	}
	if !errors.Is(err, igorfile.ErrBadConfig) {
		t.Errorf("error does not wrap ErrBadConfig: %v", err)
	}
}

func TestBuildFragmentCarriesPlaceholder(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"Cargo+fragment-tokio.toml": "tokio = \"1\"\n",
	})

	p, err := Build(Input{
		Cumulus:  cumulus,
		Features: igorfile.NewFeatureSet([]igorfile.Identifier{"tokio"}, nil),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(p.Actions))
	}
	a := p.Actions[0]
	if a.Function != bolt.FunctionFragment || a.Placeholder != "tokio" || a.TargetPath != "Cargo.toml" {
		t.Errorf("fragment action = %+v", a)
	}
}

func TestBuildWarnsOnWindowsReservedTarget(t *testing.T) {
	t.Parallel()

	cumulus := fixtureTree(t, map[string]string{
		"logs/con.txt": "serial console notes\n",
		"main.rs":      "fn main() {}\n",
	})

	p, err := Build(Input{Cumulus: cumulus})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(p.Actions) != 2 {
		t.Fatalf("got %d actions, want 2: %+v", len(p.Actions), p.Actions)
	}
	if len(p.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(p.Warnings), p.Warnings)
	}
	if !strings.Contains(p.Warnings[0], "logs/con.txt") ||
		!strings.Contains(p.Warnings[0], "Windows-reserved") {
		t.Errorf("warning = %q", p.Warnings[0])
	}
}

func TestTargets(t *testing.T) {
	t.Parallel()

	p := &Plan{Actions: []Action{
		{TargetPath: "a"}, {TargetPath: "b"}, {TargetPath: "a"},
	}}
	got := p.Targets()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Targets() = %v", got)
	}
}
