// SPDX-License-Identifier: MPL-2.0

// Package bakery maintains a bakery: a directory of bun archives indexed by a
// single BAKERY.toml file.
//
// The index is loaded, modified and saved as an explicit value. Writers that go
// through AddPaths hold an exclusive advisory lock on the bakery for the whole
// load-modify-save cycle, and every save replaces the index file atomically.
//
// Callers that only need to read a package listing use Open, which returns the
// local index when one exists and otherwise defers to a fallback such as a
// remote repository listing. Both satisfy PackageIndex.
package bakery
