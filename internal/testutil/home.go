// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strings"
	"testing"
)

// SetHomeDir points the platform home variable (USERPROFILE on Windows, HOME
// elsewhere) at dir for the rest of the test.
func SetHomeDir(t *testing.T, dir string) {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		t.Setenv("USERPROFILE", dir)
	default:
		t.Setenv("HOME", dir)
	}
}

// IsolateUserEnv gives the test a private home and config directory and
// clears BAO_* overrides and GITHUB_TOKEN, so user configuration on the
// machine running the tests cannot leak in. It returns the directory that
// stands in for the platform config root (XDG_CONFIG_HOME or APPDATA).
func IsolateUserEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	SetHomeDir(t, home)

	configRoot := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configRoot)
	t.Setenv("APPDATA", configRoot)
	t.Setenv("GITHUB_TOKEN", "")

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "BAO_") {
			t.Setenv(name, "")
		}
	}
	return configRoot
}
