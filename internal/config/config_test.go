// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want override %q", got, dir)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte("no_such_field: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("load should reject a field the schema does not define")
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"non-positive pool size", "pool_size: 0\n"},
		{"negative debounce", "watch: {debounce_ms: -10}\n"},
		{"unknown color scheme", "ui: {color_scheme: \"sepia\"}\n"},
		{"non-string prop", "props: {HOME: 42}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
				t.Fatalf("load should reject %q", tt.content)
			}
		})
	}
}

func TestLoadRejectsInvalidCUESyntax(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte("pool_size: {{{\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
		t.Fatal("load should reject invalid CUE syntax")
	}
}

func TestLoadProps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "props: {\"EDITOR\": \"vi\", \"PAGER\": \"less\"}\n"
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Props["EDITOR"] != "vi" || cfg.Props["PAGER"] != "less" {
		t.Errorf("Props = %v", cfg.Props)
	}
	if resolved != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", resolved)
	}
}

func TestLoadWatchIgnore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "watch: {ignore: [\"**/dist/**\", \"**/*.log\"]}\n"
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(cfg.Watch.Ignore) != 2 || cfg.Watch.Ignore[0] != "**/dist/**" {
		t.Errorf("Watch.Ignore = %v", cfg.Watch.Ignore)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PoolSize = 3
	cfg.UI.Verbose = true
	cfg.Props = map[string]string{"HOME_ALT": "/srv/home"}
	cfg.Watch.Ignore = []string{"**/tmp/**"}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if got.PoolSize != 3 {
		t.Errorf("PoolSize = %d, want 3", got.PoolSize)
	}
	if !got.UI.Verbose {
		t.Error("Verbose should round-trip as true")
	}
	if got.Props["HOME_ALT"] != "/srv/home" {
		t.Errorf("Props = %v", got.Props)
	}
	if len(got.Watch.Ignore) != 1 || got.Watch.Ignore[0] != "**/tmp/**" {
		t.Errorf("Watch.Ignore = %v", got.Watch.Ignore)
	}
}

func TestGenerateCUEDeterministicProps(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Props = map[string]string{"B": "2", "A": "1", "C": "3"}

	out := GenerateCUE(cfg)
	a := strings.Index(out, `"A"`)
	b := strings.Index(out, `"B"`)
	c := strings.Index(out, `"C"`)
	if a < 0 || b < 0 || c < 0 || !(a < b && b < c) {
		t.Errorf("props not emitted in sorted order:\n%s", out)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}

	path := filepath.Join(dir, "config.cue")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// A second call must not clobber user edits.
	if err := os.WriteFile(path, []byte("pool_size: 7\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "pool_size: 7") {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestSaveWritesFile(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	cfg := DefaultConfig()
	cfg.PoolSize = 4
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got.PoolSize != 4 {
		t.Errorf("PoolSize = %d, want 4", got.PoolSize)
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.cue")
	if fileExists(path) {
		t.Error("fileExists() true for a missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !fileExists(path) {
		t.Error("fileExists() false for an existing file")
	}
	if fileExists(dir) {
		t.Error("fileExists() true for a directory")
	}
}
