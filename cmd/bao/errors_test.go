// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/onyxware/bao/internal/config"
	"github.com/onyxware/bao/internal/issue"
	"github.com/onyxware/bao/pkg/bakery"
	"github.com/onyxware/bao/pkg/oven"
	"github.com/onyxware/bao/pkg/pymeta"
	"github.com/onyxware/bao/pkg/remote"
)

func TestExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"no entrypoint", &oven.BuildError{Kind: oven.KindNoEntrypoint, Path: "x"}, issue.NoEntrypointId},
		{"invalid name", &oven.BuildError{Kind: oven.KindInvalidName, Path: "x"}, issue.NoEntrypointId},
		{"extraction", &oven.BuildError{Kind: oven.KindExtraction, Err: &pymeta.ExtractionError{}}, issue.MetadataExtractionFailedId},
		{"permission", &oven.BuildError{Kind: oven.KindIO, Err: fs.ErrPermission}, issue.PermissionDeniedId},
		{"exists", &bakery.AlreadyExistsError{Path: "BAKERY.toml"}, issue.BakeryAlreadyExistsId},
		{"not found", fmt.Errorf("%w: BAKERY.toml", bakery.ErrNotFound), issue.BakeryNotFoundId},
		{"inconsistent", &bakery.ConsistencyError{Name: "x", Cause: errors.New("no archive")}, issue.InconsistentBunId},
		{"rate limited", &remote.RemoteUnavailableError{URL: "u", Err: &remote.RateLimitError{Limit: 60}}, issue.RemoteUnavailableId},
		{"remote", &remote.RemoteUnavailableError{URL: "u", StatusCode: 502}, issue.RemoteUnavailableId},
		{"bad repository", fmt.Errorf("%w: %q", remote.ErrInvalidRepository, "x"), issue.RemoteUnavailableId},
		{"other", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := explain(tt.err, "do thing", "here")
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("explain() = %T, want *issue.ActionableError", err)
			}
			if ae.Issue != tt.want {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("explain() should keep the cause")
			}
		})
	}
}

func TestExplain_PassesThrough(t *testing.T) {
	t.Parallel()

	if explain(nil, "x", "y") != nil {
		t.Error("explain(nil) should be nil")
	}
	ae := &issue.ActionableError{Operation: "load configuration"}
	if got := explain(ae, "x", "y"); got != ae {
		t.Errorf("explain() should return actionable errors unchanged, got %v", got)
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	err := explain(fmt.Errorf("%w: BAKERY.toml", bakery.ErrNotFound), "add buns", "./bakery")

	var quiet bytes.Buffer
	report(&quiet, err, false, config.ColorSchemeAuto)
	if quiet.Len() != 0 {
		t.Errorf("non-verbose report should be silent, got %q", quiet.String())
	}

	var loud bytes.Buffer
	report(&loud, err, true, config.ColorSchemeDark)
	if !strings.Contains(loud.String(), "Error chain:") || !strings.Contains(loud.String(), "bao bakery init") {
		t.Errorf("verbose report = %q", loud.String())
	}
}

func TestReport_UsesColorScheme(t *testing.T) {
	t.Parallel()

	err := explain(fmt.Errorf("%w: BAKERY.toml", bakery.ErrNotFound), "add buns", "./bakery")
	want, renderErr := issue.Get(issue.BakeryNotFoundId).Render("light")
	if renderErr != nil {
		t.Fatalf("Render(light) failed: %v", renderErr)
	}

	var out bytes.Buffer
	report(&out, err, true, config.ColorSchemeLight)
	if !strings.Contains(out.String(), want) {
		t.Errorf("report() did not render the light style guidance:\n%s", out.String())
	}
}

func TestGlamourStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme config.ColorScheme
		want   string
	}{
		{config.ColorSchemeAuto, "auto"},
		{config.ColorSchemeDark, "dark"},
		{config.ColorSchemeLight, "light"},
		{"", "auto"},
	}
	for _, tt := range tests {
		if got := glamourStyle(tt.scheme); got != tt.want {
			t.Errorf("glamourStyle(%q) = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}
