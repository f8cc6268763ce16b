// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/onyxware/bao/internal/settings"
	"github.com/onyxware/bao/pkg/bakery"
	"github.com/onyxware/bao/pkg/bun"
	"github.com/onyxware/bao/pkg/oven"
	"github.com/onyxware/bao/pkg/remote"

	"github.com/spf13/cobra"
)

func newBakeryCommand(app *App) *cobra.Command {
	bakeryCmd := &cobra.Command{
		Use:   "bakery",
		Short: "Manage a bakery of buns",
		Long: `Manage a bakery of buns.

A bakery is a directory whose BAKERY.toml index records one manifest per bun.
Archives live in the bakery directory next to the index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	bakeryCmd.AddCommand(newBakeryInitCommand(app))
	bakeryCmd.AddCommand(newBakeryAddCommand(app))
	bakeryCmd.AddCommand(newBakeryListCommand(app))
	bakeryCmd.AddCommand(newBakerySyncCommand(app))

	return bakeryCmd
}

func newBakeryInitCommand(app *App) *cobra.Command {
	var nickname string

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty bakery",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.loadConfig(cmd.Context()); err != nil {
				return err
			}
			root := rootArg(args)

			idx, err := bakery.Init(root, nickname)
			if err != nil {
				return app.fail(err, "initialize bakery", root)
			}
			fmt.Fprintf(app.stdout, "%s Created bakery %s at %s\n",
				SuccessStyle.Render("✓"), TitleStyle.Render(idx.Nickname()), bakery.IndexPath(root))
			return nil
		},
	}

	initCmd.Flags().StringVarP(&nickname, "nickname", "n", "", "bakery nickname (default: directory name)")

	return initCmd
}

func newBakeryAddCommand(app *App) *cobra.Command {
	var root string

	addCmd := &cobra.Command{
		Use:   "add <paths...>",
		Short: "Add buns to a bakery",
		Long: `Add buns to a bakery.

Each path may be a bun archive or manifest, or a script or directory that is
baked first. A bun already in the index is replaced by the newer record. Inputs
that are not consistent buns are reported and skipped; the rest are added.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			logger := app.logger()

			res, err := bakery.AddPaths(cmd.Context(), root, args,
				bakery.WithLogger(logger),
				bakery.WithBakeOptions(oven.WithExclude(cfg.Bake.Exclude...), oven.WithLogger(logger)),
			)
			if err != nil {
				return app.fail(err, "add buns", root)
			}

			for _, name := range res.Added {
				fmt.Fprintf(app.stdout, "%s added %s\n", SuccessStyle.Render("+"), TitleStyle.Render(name))
			}
			for _, name := range res.Updated {
				fmt.Fprintf(app.stdout, "%s updated %s\n", SuccessStyle.Render("~"), TitleStyle.Render(name))
			}
			for _, name := range res.Downgraded {
				fmt.Fprintf(app.stderr, "%s %s now has an older version than before\n", WarningStyle.Render("!"), name)
			}
			for _, name := range res.Unchanged {
				fmt.Fprintf(app.stdout, "%s unchanged %s\n", SubtitleStyle.Render("="), name)
			}
			for _, rej := range res.Rejected {
				fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("✗"), rej.Error())
			}

			if len(res.Rejected) > 0 {
				err := fmt.Errorf("%d of %d inputs rejected", len(res.Rejected), len(args))
				report(app.stderr, explain(res.Rejected[0], "add buns", root), app.verbose, app.colorScheme)
				return &ExitError{Code: exitRejected, Err: err}
			}
			return nil
		},
	}

	addCmd.Flags().StringVarP(&root, "bakery", "b", ".", "bakery directory")

	return addCmd
}

func newBakeryListCommand(app *App) *cobra.Command {
	var repo string

	listCmd := &cobra.Command{
		Use:   "list [path]",
		Short: "List the buns in a bakery",
		Long: `List the buns in a bakery.

The local index is used when the directory has one. Otherwise the buns are
listed from the remote repository given with --remote or configured as
remote.repository.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			root := rootArg(args)
			if repo == "" {
				repo = cfg.Remote.Repository
			}

			idx, err := bakery.Open(cmd.Context(), root, app.remoteFallback(cfg, repo))
			if err != nil {
				return app.fail(err, "list bakery", sourceOf(root, repo))
			}

			renderIndex(app, idx)
			return nil
		},
	}

	listCmd.Flags().StringVarP(&repo, "remote", "r", "", "owner/name[/path] listed when there is no local index")

	return listCmd
}

func newBakerySyncCommand(app *App) *cobra.Command {
	var repo string

	syncCmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Record bakery versions in the platform settings",
		Long: `Record bakery versions in the platform settings.

Every bun's version overwrites the version recorded in the settings file
(settings.path). Packages the bakery does not know about are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			root := rootArg(args)

			idx, err := bakery.Open(cmd.Context(), root, app.remoteFallback(cfg, repo))
			if err != nil {
				return app.fail(err, "sync bakery", sourceOf(root, repo))
			}

			store := settings.NewFileStore(cfg.Settings.Path)
			changed, err := bakery.Reconcile(cmd.Context(), idx, store)
			if err != nil {
				return app.fail(err, "sync bakery", store.Path())
			}

			if len(changed) == 0 {
				fmt.Fprintf(app.stdout, "%s %s is up to date\n", SuccessStyle.Render("✓"), store.Path())
				return nil
			}
			for _, name := range changed {
				m, _ := idx.Lookup(name)
				fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("~"), TitleStyle.Render(name), CmdStyle.Render(m.Version.String()))
			}
			fmt.Fprintf(app.stdout, "%s Updated %d package(s) in %s\n", SuccessStyle.Render("✓"), len(changed), store.Path())
			return nil
		},
	}

	syncCmd.Flags().StringVarP(&repo, "remote", "r", "", "owner/name[/path] synced when there is no local index")

	return syncCmd
}

func renderIndex(app *App, idx bakery.PackageIndex) {
	manifests := idx.List()
	fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render(idx.Nickname()), SubtitleStyle.Render(fmt.Sprintf("(%d buns)", len(manifests))))
	for _, m := range manifests {
		fmt.Fprintln(app.stdout, formatManifestRow(m))
	}

	listing, ok := idx.(*remote.Listing)
	if !ok {
		return
	}
	if listing.Partial() {
		fmt.Fprintf(app.stderr, "%s listing is incomplete: %v\n", WarningStyle.Render("!"), listing.Err())
	}
	if app.verbose {
		for _, s := range listing.Skipped() {
			fmt.Fprintf(app.stderr, "%s skipped %s: %s\n", WarningStyle.Render("-"), s.Name, s.Reason)
		}
	}
}

func formatManifestRow(m bun.Manifest) string {
	return nameColumnStyle.Render(m.Name.String()) + versionColumnStyle.Render(m.Version.String()) + SubtitleStyle.Render(m.Description)
}

func rootArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func sourceOf(root, repo string) string {
	if repo == "" {
		return filepath.Clean(root)
	}
	return filepath.Clean(root) + " (remote " + repo + ")"
}
