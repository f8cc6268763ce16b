// SPDX-License-Identifier: MPL-2.0

// Package bun defines the bao package model.
//
// A bun is a single Python script packaged as a zip archive ("<name>.zip") together
// with a TOML manifest ("<name>.toml") that describes it. Both files always live in
// the same directory and share the same base name; a manifest without its archive,
// or an archive without its manifest, is an inconsistent bun.
//
// The archive contains the entrypoint script "<name>.py" at its root plus any
// supporting modules that sat next to the entrypoint when the bun was baked.
// Baking lives in package oven; bakery indexes live in package bakery.
package bun
