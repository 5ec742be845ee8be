// SPDX-License-Identifier: MPL-2.0

// igor assembles files for a consumer project from thundercloud
// templates and per-niche invar overrides.
package main

import cmd "igor-cli/cmd/igor"

func main() {
	cmd.Execute()
}
