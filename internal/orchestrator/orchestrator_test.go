// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"igor-cli/internal/psychotropic"
	"igor-cli/pkg/igorfile"
)

// recordingRunner records build commands in invocation order.
type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	env      []map[string]string
}

func (r *recordingRunner) Run(_ context.Context, command, _ string, env map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	r.env = append(r.env, env)
	return nil
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", p, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root
}

func settingsTOML(extra string) string {
	return "[thundercloud]\ndirectory = \"{{PROJECT}}/clouds/demo\"\n" + extra
}

const demoCloudTOML = "[niche]\nname = \"demo\"\n"

func TestRunOptionGeneration(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(
			"[options]\nselected = [\"bash_config\"]\n"),
		"clouds/demo/thundercloud.toml":                  demoCloudTOML,
		"clouds/demo/cumulus/dot_bashrc+option-bash_config": "export PS1='igor'\n",
	})

	o := New(root, igorfile.DefaultManifest(), WithRunner(&recordingRunner{}))
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d, report %+v", report.ExitCode(), report)
	}

	data, err := os.ReadFile(filepath.Join(root, ".bashrc"))
	if err != nil {
		t.Fatalf("target not written: %v", err)
	}
	if string(data) != "export PS1='igor'\n" {
		t.Errorf(".bashrc = %q", data)
	}
}

func TestRunFeatureGateOff(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(
			"[options]\nselected = []\n"),
		"clouds/demo/thundercloud.toml":                  demoCloudTOML,
		"clouds/demo/cumulus/dot_bashrc+option-bash_config": "export PS1='igor'\n",
	})

	o := New(root, igorfile.DefaultManifest(), WithRunner(&recordingRunner{}))
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d", report.ExitCode())
	}
	if _, err := os.Stat(filepath.Join(root, ".bashrc")); !errors.Is(err, os.ErrNotExist) {
		t.Error("gated-off file was created anyway")
	}
}

func TestRunInvarIgnoreSuppressesThundercloudFile(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(
			"[options]\nselected = [\"niche\"]\n"),
		"yeth-marthter/demo/invar/main+ignore-niche.rs": "",
		"clouds/demo/thundercloud.toml":                 demoCloudTOML,
		"clouds/demo/cumulus/main+option-niche.rs":      "fn main() {}\n",
	})

	o := New(root, igorfile.DefaultManifest(), WithRunner(&recordingRunner{}))
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d", report.ExitCode())
	}
	if _, err := os.Stat(filepath.Join(root, "main.rs")); !errors.Is(err, os.ErrNotExist) {
		t.Error("ignored target was written anyway")
	}
}

func TestRunFragmentIntoExistingTarget(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(
			"[options]\nselected = [\"tokio\"]\n"),
		"clouds/demo/thundercloud.toml": demoCloudTOML,
		"clouds/demo/cumulus/Cargo+fragment-tokio-build_deps.toml": "tokio = \"1\"\n",
		"Cargo.toml": "[dependencies]\n==== PLACEHOLDER build_deps ====\n",
	})

	o := New(root, igorfile.DefaultManifest(), WithRunner(&recordingRunner{}))
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d, report %+v", report.ExitCode(), report)
	}

	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	want := "[dependencies]\n==== BEGIN build_deps ====\ntokio = \"1\"\n==== END build_deps ====\n"
	if string(data) != want {
		t.Errorf("Cargo.toml =\n%s\nwant\n%s", data, want)
	}
}

func TestRunMissingThundercloudFailsNiche(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": "[thundercloud]\ndirectory = \"{{PROJECT}}/nowhere\"\n",
	})

	o := New(root, igorfile.DefaultManifest(), WithRunner(&recordingRunner{}))
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v (niche failures belong in the report)", err)
	}
	if report.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", report.ExitCode())
	}

	failed := report.Failed()
	if len(failed) != 1 {
		t.Fatalf("Failed() = %+v, want one entry", failed)
	}
	if !errors.Is(failed[0].Err, igorfile.ErrMissingThundercloud) {
		t.Errorf("niche error = %v, want MissingThundercloud", failed[0].Err)
	}
}

func TestRunPsychotropicOrdering(t *testing.T) {
	t.Parallel()

	files := map[string]string{}
	for _, name := range []string{"alpha", "beta"} {
		files["yeth-marthter/"+name+"/igor-thettingth.toml"] =
			"[thundercloud]\ndirectory = \"{{PROJECT}}/clouds/" + name + "\"\n" +
				"[settings]\nbuild = \"build-" + name + "\"\n"
		files["clouds/"+name+"/thundercloud.toml"] = "[niche]\nname = \"" + name + "\"\n"
		files["clouds/"+name+"/cumulus/"+name+".txt"] = name + "\n"
	}
	root := writeProject(t, files)

	manifest := igorfile.DefaultManifest()
	manifest.Psychotropic = igorfile.PsychotropicConfig{Cues: []igorfile.CueConfig{
		{Name: "beta"},
		{Name: "alpha", WaitFor: []igorfile.Identifier{"beta"}},
	}}

	runner := &recordingRunner{}
	report, err := New(root, manifest, WithRunner(runner)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d, report %+v", report.ExitCode(), report)
	}

	if len(runner.commands) != 2 || runner.commands[0] != "build-beta" || runner.commands[1] != "build-alpha" {
		t.Errorf("build order = %v, want beta before alpha", runner.commands)
	}
}

func TestRunForwardReferenceIsFatal(t *testing.T) {
	t.Parallel()

	files := map[string]string{}
	for _, name := range []string{"alpha", "beta"} {
		files["yeth-marthter/"+name+"/igor-thettingth.toml"] =
			"[thundercloud]\ndirectory = \"{{PROJECT}}/clouds/" + name + "\"\n"
		files["clouds/"+name+"/thundercloud.toml"] = "[niche]\nname = \"" + name + "\"\n"
		files["clouds/"+name+"/cumulus/"+name+".txt"] = name + "\n"
	}
	root := writeProject(t, files)

	manifest := igorfile.DefaultManifest()
	manifest.Psychotropic = igorfile.PsychotropicConfig{Cues: []igorfile.CueConfig{
		{Name: "beta", WaitFor: []igorfile.Identifier{"alpha"}},
		{Name: "alpha"},
	}}

	_, err := New(root, manifest, WithRunner(&recordingRunner{})).Run(context.Background())
	if err == nil {
		t.Fatal("Run() accepted a forward reference")
	}
	if !errors.Is(err, psychotropic.ErrCycleOrForwardRef) {
		t.Errorf("error does not wrap ErrCycleOrForwardRef: %v", err)
	}
	if !IsFatal(err) {
		t.Error("forward reference should be fatal")
	}

	for _, name := range []string{"alpha.txt", "beta.txt"} {
		if _, err := os.Stat(filepath.Join(root, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("niche ran despite fatal schedule error: %s exists", name)
		}
	}
}

func TestRunCrossNicheTargetWarning(t *testing.T) {
	t.Parallel()

	files := map[string]string{}
	for _, name := range []string{"alpha", "beta"} {
		files["yeth-marthter/"+name+"/igor-thettingth.toml"] =
			"[thundercloud]\ndirectory = \"{{PROJECT}}/clouds/" + name + "\"\n"
		files["clouds/"+name+"/thundercloud.toml"] = "[niche]\nname = \"" + name + "\"\n"
		files["clouds/"+name+"/cumulus/shared.txt"] = name + "\n"
	}
	root := writeProject(t, files)

	manifest := igorfile.DefaultManifest()
	manifest.Psychotropic = igorfile.PsychotropicConfig{Cues: []igorfile.CueConfig{
		{Name: "alpha"},
		{Name: "beta", WaitFor: []igorfile.Identifier{"alpha"}},
	}}

	report, err := New(root, manifest, WithRunner(&recordingRunner{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("shared target should warn, not fail: %+v", report)
	}

	var warned bool
	for _, n := range report.Niches {
		for _, w := range n.Warnings {
			if strings.Contains(w, "shared.txt") {
				warned = true
			}
		}
	}
	if !warned {
		t.Error("no warning about the shared target")
	}
}

func TestRunBarrierCue(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(""),
		"clouds/demo/thundercloud.toml":           demoCloudTOML,
		"clouds/demo/cumulus/file.txt":            "x\n",
	})

	off := false
	manifest := igorfile.DefaultManifest()
	manifest.Psychotropic = igorfile.PsychotropicConfig{Cues: []igorfile.CueConfig{
		{Name: "gate", UseThundercloud: &off},
		{Name: "demo", WaitFor: []igorfile.Identifier{"gate"}},
	}}

	report, err := New(root, manifest, WithRunner(&recordingRunner{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Errorf("exit code = %d, report %+v", report.ExitCode(), report)
	}
	if _, err := os.Stat(filepath.Join(root, "file.txt")); err != nil {
		t.Errorf("niche behind barrier did not run: %v", err)
	}
}

func TestRunBuildEnvCarriesProps(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(
			"[settings]\nbuild = \"make\"\n[invar-defaults.props]\nuser = \"igor\"\n"),
		"clouds/demo/thundercloud.toml": demoCloudTOML,
		"clouds/demo/cumulus/file.txt":  "x\n",
	})

	runner := &recordingRunner{}
	report, err := New(root, igorfile.DefaultManifest(), WithRunner(runner)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.ExitCode() != 0 {
		t.Fatalf("exit code = %d, report %+v", report.ExitCode(), report)
	}

	if len(runner.env) != 1 {
		t.Fatalf("build ran %d times, want 1", len(runner.env))
	}
	env := runner.env[0]
	if env["user"] != "igor" {
		t.Errorf("props not in build env: %v", env)
	}
	if env[PropProject] != root {
		t.Errorf("built-in %s missing: %v", PropProject, env)
	}
}

func TestDiscoverNichesSkipsPlainDirs(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"yeth-marthter/demo/igor-thettingth.toml": settingsTOML(""),
		"yeth-marthter/notes/readme.txt":          "not a niche\n",
		"clouds/demo/thundercloud.toml":           demoCloudTOML,
	})

	o := New(root, igorfile.DefaultManifest())
	niches, err := o.DiscoverNiches()
	if err != nil {
		t.Fatalf("DiscoverNiches() error: %v", err)
	}
	if len(niches) != 1 || niches[0].Name != "demo" {
		t.Errorf("niches = %+v, want only demo", niches)
	}
}

func TestDiscoverNichesNoDirectory(t *testing.T) {
	t.Parallel()

	o := New(t.TempDir(), igorfile.DefaultManifest())
	niches, err := o.DiscoverNiches()
	if err != nil {
		t.Fatalf("DiscoverNiches() error: %v", err)
	}
	if len(niches) != 0 {
		t.Errorf("niches = %+v, want none", niches)
	}
}
