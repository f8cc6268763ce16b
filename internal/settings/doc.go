// SPDX-License-Identifier: MPL-2.0

// Package settings implements the host platform's package settings file,
// which records the version of every package the platform knows about.
//
// The file is TOML and holds one [[packages]] table per package. Other
// sections written by the platform are preserved across updates, although
// their keys come back lowercased because viper treats keys case-insensitively.
// Package names live in values, not keys, so their case is kept.
package settings
