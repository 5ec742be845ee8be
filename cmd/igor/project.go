// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"igor-cli/internal/issue"
	"igor-cli/pkg/igorfile"
)

// resolveProjectRoot returns the absolute consumer project root: the
// --project-root flag when set, the working directory otherwise.
func resolveProjectRoot() (string, error) {
	root := projectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root %s: %w", root, err)
	}
	return abs, nil
}

// loadProject resolves the project root and loads its manifest. A missing
// or unparsable manifest is a fatal configuration error: the matching
// issue is rendered to stderr and the returned error carries exit code 1.
func loadProject() (string, *igorfile.ProjectManifest, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return "", nil, &ExitError{Code: 1, Err: err}
	}

	manifestPath := filepath.Join(root, igorfile.ManifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			renderIssue(issue.ManifestNotFoundId)
			return "", nil, &ExitError{Code: 1, Err: issue.NewErrorContext().
				WithOperation("load manifest").
				WithResource(manifestPath).
				WithSuggestion("Run 'igor init' to scaffold a project manifest").
				Wrap(err).
				BuildError()}
		}
		return "", nil, &ExitError{Code: 1, Err: fmt.Errorf("read %s: %w", manifestPath, err)}
	}

	manifest, err := igorfile.ParseManifestBytes(data, manifestPath)
	if err != nil {
		renderIssue(issue.ManifestParseErrorId)
		return "", nil, &ExitError{Code: 1, Err: err}
	}

	if nichesDir != "" {
		manifest.NichesDirectory = nichesDir
	}

	// User-level props are the weakest project layer: the manifest's own
	// invar defaults win on conflict.
	if len(userConfig.Props) > 0 {
		base := igorfile.InvarConfig{Props: userConfig.Props}
		manifest.InvarDefaults = base.Merge(manifest.InvarDefaults)
	}

	return root, manifest, nil
}

// renderIssue prints the rendered markdown guidance for an issue id.
// Rendering failures fall back to silence; the error itself still reaches
// the user through the returned ExitError.
func renderIssue(id issue.Id) {
	rendered, err := issue.Get(id).Render(string(userConfig.UI.ColorScheme))
	if err != nil {
		return
	}
	fmt.Fprint(os.Stderr, rendered)
}
