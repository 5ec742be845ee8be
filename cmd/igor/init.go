// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"igor-cli/pkg/igorfile"

	"github.com/spf13/cobra"
)

var (
	initForce bool
	initNiche string

	// initCmd scaffolds a project manifest and an example niche
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Scaffold a project manifest in the current directory",
		Long: `Scaffold a project manifest in the current directory.

This command creates a starter manifest plus an example niche directory
with a settings file and an empty invar tree, to help you get started
quickly.`,
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing manifest")
	initCmd.Flags().StringVar(&initNiche, "niche", "example", "name of the example niche to scaffold")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveProjectRoot()
	if err != nil {
		return err
	}

	if ok, errs := igorfile.Identifier(initNiche).IsValid(); !ok {
		return fmt.Errorf("invalid niche name %q: %v", initNiche, errs[0])
	}

	manifestPath := filepath.Join(root, igorfile.ManifestFileName)
	if _, err := os.Stat(manifestPath); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", igorfile.ManifestFileName)
	}

	if err := os.WriteFile(manifestPath, []byte(manifestTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	nicheDir := filepath.Join(root, igorfile.DefaultNichesDirectory, initNiche)
	if err := os.MkdirAll(filepath.Join(nicheDir, igorfile.InvarDirectory), 0o755); err != nil {
		return fmt.Errorf("failed to create niche directory: %w", err)
	}

	settingsPath := filepath.Join(nicheDir, igorfile.DefaultSettingsName+".toml")
	if !initForce {
		if _, err := os.Stat(settingsPath); err == nil {
			return fmt.Errorf("file '%s' already exists. Use --force to overwrite", settingsPath)
		}
	}
	if err := os.WriteFile(settingsPath, []byte(nicheSettingsTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write niche settings: %w", err)
	}

	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), manifestPath)
	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), settingsPath)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Println("  1. Point the niche's [thundercloud] table at a thundercloud")
	fmt.Println("  2. Add invar overrides under the niche's invar/ directory")
	fmt.Println("  3. Run 'igor run' to generate files")

	return nil
}

// manifestTemplate is the starter project manifest written by 'igor init'.
const manifestTemplate = `# igor project manifest.

# Directory holding one subdirectory per niche.
# niches-directory = "` + igorfile.DefaultNichesDirectory + `"

# Props available to every niche, overridable per thundercloud and niche.
[invar-defaults.props]
# GREETING = "hello"

# Concurrent schedule. Niches not listed here are scheduled after the
# declared cues, in name order, and do not wait for them. wait-for may
# only reference cues declared earlier.
# [[psychotropic.cues]]
# name = "base"
#
# [[psychotropic.cues]]
# name = "app"
# wait-for = ["base"]
`

// nicheSettingsTemplate is the starter niche settings file.
const nicheSettingsTemplate = `# Niche settings.

[thundercloud]
# Local thundercloud root; {{PROJECT}} and {{WORKSPACE}} interpolate.
# directory = "{{WORKSPACE}}/thunderclouds/base"

# Or bind to a git remote with a managed working copy:
# [thundercloud.git]
# remote = "https://example.com/thundercloud.git"
# revision = "main"
# on-incoming = "warn"

[options]
# selected = ["extra_feature"]
# deselected = []

[settings]
# watch = true
# build = "make generate-check"

[invar-defaults.props]
# GREETING = "hello from this niche"
`
