// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultRemoteBaseURL is the GitHub REST API root.
	DefaultRemoteBaseURL = "https://api.github.com"
	// DefaultRemoteTimeout bounds each remote request.
	DefaultRemoteTimeout = 15 * time.Second
	// DefaultRemoteMaxPages bounds remote pagination.
	DefaultRemoteMaxPages = 10
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme selects the palette used for rendered output.
	ColorScheme string

	// Config holds the application configuration.
	Config struct {
		Remote   RemoteConfig   `json:"remote" mapstructure:"remote"`
		Bake     BakeConfig     `json:"bake" mapstructure:"bake"`
		UI       UIConfig       `json:"ui" mapstructure:"ui"`
		Settings SettingsConfig `json:"settings" mapstructure:"settings"`
	}

	// RemoteConfig configures the remote bakery listing.
	RemoteConfig struct {
		// Repository is the default owner/name[/path] listed when no local index exists.
		Repository string `json:"repository" mapstructure:"repository"`
		// BaseURL is the contents API root.
		BaseURL string `json:"base_url" mapstructure:"base_url"`
		// Token authenticates API requests. Never printed.
		Token string `json:"-" mapstructure:"token"`
		// Timeout bounds each request.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// MaxPages bounds pagination.
		MaxPages int `json:"max_pages" mapstructure:"max_pages"`
	}

	// BakeConfig configures bun baking.
	BakeConfig struct {
		// Exclude lists base-name glob patterns skipped when baking a directory.
		Exclude []string `json:"exclude" mapstructure:"exclude"`
	}

	// UIConfig configures output.
	UIConfig struct {
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	// SettingsConfig locates the platform settings file used by 'bao bakery sync'.
	SettingsConfig struct {
		// Path of the settings file; defaults to settings.toml in the config directory.
		Path string `json:"path" mapstructure:"path"`
	}

	// InvalidConfigError is returned when a loaded Config fails validation.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:  DefaultRemoteBaseURL,
			Timeout:  DefaultRemoteTimeout,
			MaxPages: DefaultRemoteMaxPages,
		},
		Bake: BakeConfig{
			Exclude: []string{"__pycache__", "*.pyc", ".*"},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

func (c ColorScheme) String() string { return string(c) }

// Validate returns an error if the color scheme is not recognized.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: auto, dark, light)", ErrInvalidColorScheme, string(c))
	}
}

// Validate checks the constraints the schema cannot see after defaults and
// environment overrides have been applied.
func (c *Config) Validate() error {
	var errs []error
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must be positive, got %s", c.Remote.Timeout))
	}
	if c.Remote.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("remote.max_pages must be at least 1, got %d", c.Remote.MaxPages))
	}
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		errs = append(errs, errors.New("remote.base_url must not be empty"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
