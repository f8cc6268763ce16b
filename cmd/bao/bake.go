// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/onyxware/bao/pkg/oven"

	"github.com/spf13/cobra"
)

func newBakeCommand(app *App) *cobra.Command {
	var (
		outputDir string
		excludes  []string
	)

	bakeCmd := &cobra.Command{
		Use:   "bake <path>",
		Short: "Bake a script or directory into a bun",
		Long: `Bake a script or directory into a bun.

<path> is either a single Python script or a directory holding a script with
the directory's name (helloworld/helloworld.py). The bun is written next to
<path> as <name>.zip and <name>.toml unless --output-dir is given. The source
is never modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			opts := []oven.Option{
				oven.WithExclude(append(cfg.Bake.Exclude, excludes...)...),
				oven.WithLogger(app.logger()),
			}
			if outputDir != "" {
				opts = append(opts, oven.WithOutputDir(outputDir))
			}

			b, err := oven.Bake(args[0], opts...)
			if err != nil {
				return app.fail(err, "bake bun", args[0])
			}

			fmt.Fprintf(app.stdout, "%s Baked %s %s\n",
				SuccessStyle.Render("✓"), TitleStyle.Render(b.Name.String()), CmdStyle.Render(b.Manifest.Version.String()))
			fmt.Fprintf(app.stdout, "  %s\n  %s\n", b.ArchivePath, b.ManifestPath)
			return nil
		},
	}

	bakeCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for the baked files (default: next to <path>)")
	bakeCmd.Flags().StringSliceVar(&excludes, "exclude", nil, "additional base-name patterns to leave out of directory buns")

	return bakeCmd
}
