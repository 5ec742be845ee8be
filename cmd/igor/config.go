// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"igor-cli/internal/config"
	"igor-cli/internal/issue"

	"github.com/spf13/cobra"
)

// configCmd is the `igor config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage igor configuration",
	Long: `Manage igor configuration.

Configuration is stored in:
  - Linux: ~/.config/igor/config.cue
  - macOS: ~/Library/Application Support/igor/config.cue
  - Windows: %APPDATA%\igor\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadUserConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

// loadUserConfig loads configuration honoring the --config flag.
func loadUserConfig(ctx context.Context) (*config.Config, error) {
	opts := config.LoadOptions{}
	if cfgFile != "" {
		opts.ConfigFilePath = cfgFile
	}
	return config.NewProvider().Load(ctx, opts)
}

func showConfig(ctx context.Context) error {
	cfg, err := loadUserConfig(ctx)
	if err != nil {
		renderIssue(issue.ConfigLoadFailedId)
		return err
	}

	keyStyle := NicheStyle
	valueStyle := SuccessStyle

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	cfgDir, dirErr := config.ConfigDir()
	cfgPath := ""
	if dirErr == nil {
		cfgPath = filepath.Join(cfgDir, "config.cue")
	}
	if cfgPath != "" && fileExistsCheck(cfgPath) {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", keyStyle.Render("pool_size"), valueStyle.Render(strconv.Itoa(cfg.PoolSize)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("props"))
	if len(cfg.Props) == 0 {
		fmt.Printf("  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		keys := make([]string, 0, len(cfg.Props))
		for k := range cfg.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", valueStyle.Render(k), valueStyle.Render(cfg.Props[k]))
		}
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("watch"))
	fmt.Printf("  debounce_ms: %s\n", valueStyle.Render(strconv.Itoa(cfg.Watch.DebounceMs)))
	if len(cfg.Watch.Ignore) == 0 {
		fmt.Printf("  ignore: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Printf("  ignore:\n")
		for _, pat := range cfg.Watch.Ignore {
			fmt.Printf("    - %s\n", valueStyle.Render(pat))
		}
	}

	return nil
}

func initConfig() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), filepath.Join(cfgDir, "config.cue"))
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, "config.cue"))
	return nil
}

func setConfigValue(ctx context.Context, key, value string) error {
	cfg, err := loadUserConfig(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "pool_size":
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n <= 0 {
			return fmt.Errorf("invalid pool_size: must be a positive integer")
		}
		cfg.PoolSize = n

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	case "ui.color_scheme":
		scheme := config.ColorScheme(value)
		if ok, errs := scheme.IsValid(); !ok {
			return errs[0]
		}
		cfg.UI.ColorScheme = scheme

	case "watch.debounce_ms":
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n < 0 {
			return fmt.Errorf("invalid watch.debounce_ms: must be a non-negative integer")
		}
		cfg.Watch.DebounceMs = n

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: pool_size, ui.verbose, ui.color_scheme, watch.debounce_ms", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
