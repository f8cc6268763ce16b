// SPDX-License-Identifier: MPL-2.0

// Package buntest provides test helpers for writing Python scripts with bun
// metadata headers to disk.
//
// This package is separate from testutil because it depends on pkg/bun, and
// testutil must stay importable from every package's tests.
//
// # Usage
//
//	import "github.com/onyxware/bao/internal/testutil/buntest"
//
//	src := buntest.NewScript(buntest.WithVersion("2.0.0"))
//	path := buntest.WriteScript(t, dir, "helloworld", src)
package buntest
