// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// File helpers (MustMkdirAll, MustWriteFile, MustReadFile, AssertNotExist) fail
// the test on error. SetHomeDir and IsolateUserEnv keep tests away from the
// real user configuration and the BAO_* environment.
package testutil
