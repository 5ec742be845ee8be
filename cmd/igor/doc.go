// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for igor.
//
// This package implements the Cobra command hierarchy for the igor CLI:
// the root command, the run and watch commands that drive the
// orchestrator, project scaffolding, and configuration management.
package cmd
