// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/onyxware/bao/internal/config"
	"github.com/onyxware/bao/pkg/bakery"
	"github.com/onyxware/bao/pkg/remote"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// App carries the dependencies shared by every command.
type App struct {
	// Config loads the user configuration.
	Config config.Provider
	// HTTPClient is used for remote listings; nil means the remote default.
	HTTPClient *http.Client

	stdout io.Writer
	stderr io.Writer

	verbose     bool
	configFile  string
	colorScheme config.ColorScheme
}

// NewApp returns an App wired to the process streams and the file-backed
// configuration provider.
func NewApp() *App {
	return &App{
		Config: config.NewProvider(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// bindOutput routes output through the command's writers, which tests
// replace with buffers.
func (a *App) bindOutput(cmd *cobra.Command) {
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
}

// loadConfig loads the configuration, lets ui.verbose enable verbose output
// when --verbose was not given and picks up ui.color_scheme for guidance.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configFile})
	if err != nil {
		return nil, err
	}
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	a.colorScheme = cfg.UI.ColorScheme
	return cfg, nil
}

// logger returns the diagnostic logger handed to the core packages.
func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: "bao",
		Level:  level,
	})
}

// remoteClient builds a client for the configured contents API.
func (a *App) remoteClient(cfg *config.Config) *remote.Client {
	opts := []remote.ClientOption{
		remote.WithBaseURL(cfg.Remote.BaseURL),
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithMaxPages(cfg.Remote.MaxPages),
		remote.WithUserAgent("bao/" + Version),
		remote.WithLogger(a.logger()),
	}
	if cfg.Remote.Token != "" {
		opts = append(opts, remote.WithToken(cfg.Remote.Token))
	}
	if a.HTTPClient != nil {
		opts = append(opts, remote.WithHTTPClient(a.HTTPClient))
	}
	return remote.NewClient(opts...)
}

// remoteFallback lists repo when the bakery has no local index. An empty
// repo means there is nothing to fall back to.
func (a *App) remoteFallback(cfg *config.Config, repo string) bakery.FallbackFunc {
	if repo == "" {
		return nil
	}
	return func(ctx context.Context) (bakery.PackageIndex, error) {
		listing, err := a.remoteClient(cfg).List(ctx, repo)
		if err != nil {
			return nil, err
		}
		return listing, nil
	}
}
