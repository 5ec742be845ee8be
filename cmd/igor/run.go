// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"igor-cli/internal/issue"
	"igor-cli/internal/orchestrator"
	"igor-cli/internal/plan"
	"igor-cli/internal/psychotropic"
	"igor-cli/pkg/igorfile"

	"github.com/spf13/cobra"
)

// runCmd generates files for all niches once.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate files for all niches",
	Long: `Generate files for all niches of the current project.

Each niche is planned from its thundercloud and invar trees, its actions
are applied to the project, and its build command (if any) runs after a
successful generation. Niches run concurrently under the psychotropic
schedule declared in the manifest.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	root, manifest, err := loadProject()
	if err != nil {
		return err
	}

	report, err := executeRun(cmd.Context(), root, manifest)
	if err != nil {
		return err
	}

	printRunReport(report)

	if code := report.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: fmt.Errorf("run finished with %d failed niche(s)", len(report.Failed()))}
	}
	return nil
}

// executeRun runs the orchestrator once. Errors returned here are fatal
// and pre-empt the whole run; they map to exit code 1.
func executeRun(ctx context.Context, root string, manifest *igorfile.ProjectManifest) (*orchestrator.RunReport, error) {
	orch := orchestrator.New(root, manifest, orchestrator.WithPoolSize(userConfig.PoolSize))

	report, err := orch.Run(ctx)
	if err != nil {
		renderRunError(err)
		return nil, &ExitError{Code: 1, Err: err}
	}
	return report, nil
}

// renderRunError prints issue guidance matching a fatal run error. Fatal
// bad-config errors come from niche settings parsing during discovery;
// per-niche errors are rendered from the run report instead.
func renderRunError(err error) {
	switch {
	case errors.Is(err, psychotropic.ErrCycleOrForwardRef):
		renderIssue(issue.CycleOrForwardRefId)
	case errors.Is(err, psychotropic.ErrDuplicateCue):
		renderIssue(issue.DuplicateCueId)
	case errors.Is(err, igorfile.ErrBadConfig):
		renderIssue(issue.NicheSettingsParseErrorId)
	case os.IsPermission(err):
		renderIssue(issue.PermissionDeniedId)
	}
}

// failureIssue maps a niche failure to the issue worth rendering for it.
func failureIssue(err error) (issue.Id, bool) {
	switch {
	case errors.Is(err, igorfile.ErrMissingThundercloud):
		return issue.MissingThundercloudId, true
	case plan.IsBadName(err):
		return issue.BadBoltNameId, true
	case errors.Is(err, igorfile.ErrBadConfig):
		return issue.BadInvarConfigId, true
	case os.IsPermission(err):
		return issue.PermissionDeniedId, true
	}
	return 0, false
}

// printRunReport writes the per-niche summary to stdout.
func printRunReport(report *orchestrator.RunReport) {
	if len(report.Niches) == 0 {
		fmt.Println(SubtitleStyle.Render("No niches found."))
		renderIssue(issue.NoNichesFoundId)
		return
	}

	var issues []issue.Id
	seen := map[issue.Id]struct{}{}

	for _, n := range report.Niches {
		switch n.State {
		case psychotropic.StateCompleted:
			fmt.Printf("%s %s  %s\n",
				SuccessStyle.Render("✓"),
				NicheStyle.Render(string(n.Name)),
				SubtitleStyle.Render(fmt.Sprintf("written %d, spliced %d, skipped %d", n.Written, n.Spliced, n.Skipped)))
		case psychotropic.StateCancelled:
			fmt.Printf("%s %s  %s\n",
				WarningStyle.Render("−"),
				NicheStyle.Render(string(n.Name)),
				SubtitleStyle.Render("cancelled"))
		default:
			fmt.Printf("%s %s  %s\n",
				ErrorStyle.Render("✗"),
				NicheStyle.Render(string(n.Name)),
				ErrorStyle.Render(errorSummary(n.Err)))
			if id, ok := failureIssue(n.Err); ok {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					issues = append(issues, id)
				}
			}
		}

		for _, w := range n.Warnings {
			fmt.Printf("  %s %s\n", WarningStyle.Render("!"), w)
		}
	}

	for _, id := range issues {
		renderIssue(id)
	}
}

func errorSummary(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}
