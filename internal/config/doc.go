// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML as the file format.
//
// Configuration is loaded from ~/.config/bao/config.toml (or XDG equivalent on Linux,
// ~/Library/Application Support/bao/config.toml on macOS, %APPDATA%\bao\config.toml
// on Windows). Environment variables prefixed with BAO_ override file values, and
// GITHUB_TOKEN is used as the remote token when none is configured.
//
// Configuration files are validated against an embedded CUE schema (config_schema.cue)
// before they reach Viper, so unknown keys and mistyped values are reported with their path.
package config
