// SPDX-License-Identifier: MPL-2.0

// Package oven bakes Python scripts into buns.
//
// Bake accepts either a single script ("hello.py") or a directory whose
// entrypoint shares its name ("helloworld/helloworld.py"). It extracts the
// script's header metadata without executing it, then writes "<name>.zip" and
// "<name>.toml" next to the input. Archives are deterministic: baking unchanged
// inputs twice produces byte-identical files.
package oven
