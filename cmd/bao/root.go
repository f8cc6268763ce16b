// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bao",
		Short: "Bake Python scripts into buns and keep them in a bakery",
		Long: TitleStyle.Render("bao") + SubtitleStyle.Render(" - Bake Python scripts into buns and keep them in a bakery") + `

A bun is a zip archive of a script (plus any helper modules) together with a
TOML manifest built from the script's module header. A bakery is a directory
of buns indexed by BAKERY.toml. bao never runs the scripts it packages.

` + SubtitleStyle.Render("Examples:") + `
  bao bake hello.py                     Bake a single script
  bao bake helloworld/                  Bake a directory around helloworld.py
  bao bakery init --nickname testing    Create a bakery in the current directory
  bao bakery add *.zip helloworld/      Add buns, baking directories first
  bao bakery list --remote owner/buns   List a published bakery`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.bindOutput(cmd)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (default is $HOME/.config/bao/config.toml)")

	rootCmd.AddCommand(newBakeCommand(app))
	rootCmd.AddCommand(newBakeryCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp()
	// fang overrides rootCmd.Version, so the version goes through fang.WithVersion
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}
