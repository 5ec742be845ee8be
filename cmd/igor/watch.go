// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igor-cli/internal/orchestrator"
	"igor-cli/internal/watch"
	"igor-cli/pkg/igorfile"

	"github.com/spf13/cobra"
)

// watchCmd re-generates on thundercloud and invar changes.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-generate when thundercloud or invar files change",
	Long: `Watch the thundercloud and invar trees of all watch-enabled niches
and re-run generation when files change.

A niche opts into watch mode with 'watch = true' in the [settings] table
of its settings file. Events are debounced; the debounce window and extra
ignore patterns come from the user configuration.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, manifest, err := loadProject()
	if err != nil {
		return err
	}

	orch := orchestrator.New(root, manifest, orchestrator.WithPoolSize(userConfig.PoolSize))
	niches, err := orch.DiscoverNiches()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	roots := watchRoots(niches)
	if len(roots) == 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf(
			"no niches have watch enabled; set 'watch = true' in the [settings] table of a niche's settings file")}
	}

	// Generate once before watching so the project starts in sync.
	fmt.Printf("%s Watch mode: initial generation\n", VerboseStyle.Render("→"))
	if report, runErr := executeRun(cmd.Context(), root, manifest); runErr != nil {
		fmt.Fprintf(os.Stderr, "%s Initial generation failed: %v\n", WarningStyle.Render("!"), runErr)
	} else {
		printRunReport(report)
	}

	fmt.Printf("\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseStyle.Render("→"))

	cfg := watch.Config{
		Roots:    roots,
		Ignore:   userConfig.Watch.Ignore,
		Debounce: time.Duration(userConfig.Watch.DebounceMs) * time.Millisecond,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Printf("%s Detected %d change(s). Re-generating...\n", VerboseStyle.Render("→"), len(changed))
			if report, runErr := executeRun(ctx, root, manifest); runErr != nil {
				fmt.Fprintf(os.Stderr, "%s Generation failed: %v\n", WarningStyle.Render("!"), runErr)
			} else {
				printRunReport(report)
			}
			fmt.Printf("\n%s Watching for changes...\n\n", VerboseStyle.Render("→"))
			return nil
		},
		Stderr: os.Stderr,
	}

	w, err := watch.New(cfg)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("failed to start watcher: %w", err)}
	}
	return w.Run(cmd.Context())
}

// watchRoots collects the existing thundercloud and invar directories of
// every watch-enabled niche.
func watchRoots(niches []orchestrator.Niche) []string {
	var roots []string
	for _, n := range niches {
		if !n.Settings.Settings.Watch {
			continue
		}
		for _, dir := range []string{n.ThundercloudDir, filepath.Join(n.Dir, igorfile.InvarDirectory)} {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				roots = append(roots, dir)
			}
		}
	}
	return roots
}
