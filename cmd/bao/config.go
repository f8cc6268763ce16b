// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/onyxware/bao/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `bao config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bao configuration",
		Long: `Manage bao configuration.

Configuration is stored in:
  - Linux: ~/.config/bao/config.toml
  - macOS: ~/Library/Application Support/bao/config.toml
  - Windows: %APPDATA%\bao\config.toml

Environment variables prefixed with BAO_ override file values, for example
BAO_REMOTE_REPOSITORY=owner/buns. GITHUB_TOKEN is used when no token is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadWithPath(cmd.Context(), config.LoadOptions{ConfigFilePath: app.configFile})
			if err != nil {
				return app.fail(err, "load configuration", app.configFile)
			}

			source := SubtitleStyle.Render("(using defaults)")
			if loaded.Path != "" {
				source = loaded.Path
			}
			fmt.Fprintf(app.stdout, "%s: %s\n\n", CmdStyle.Render("Config file"), source)
			fmt.Fprint(app.stdout, config.GenerateTOML(loaded.Config))
			if loaded.Remote.Token != "" {
				fmt.Fprintf(app.stdout, "\n%s\n", SubtitleStyle.Render("# remote token is set"))
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return app.fail(err, "create configuration", "")
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	return cfgCmd
}
