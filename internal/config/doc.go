// SPDX-License-Identifier: MPL-2.0

// Package config handles user-level configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/igor/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/igor/config.cue on macOS, %APPDATA%\igor\config.cue
// on Windows). Project-level behavior is configured in CargoCult.toml and is out of scope
// here; this package covers the preferences that follow the user across projects:
// scheduler pool size, global props, UI settings, and watch mode tuning.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
