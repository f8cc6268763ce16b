// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/onyxware/bao/internal/config"
	"github.com/onyxware/bao/internal/issue"
	"github.com/onyxware/bao/pkg/bakery"
	"github.com/onyxware/bao/pkg/oven"
	"github.com/onyxware/bao/pkg/pymeta"
	"github.com/onyxware/bao/pkg/remote"
)

// explain wraps err in an ActionableError describing operation on resource,
// with suggestions and catalog guidance chosen from the error's type.
func explain(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)

	var (
		buildErr     *oven.BuildError
		extractErr   *pymeta.ExtractionError
		existsErr    *bakery.AlreadyExistsError
		rateLimitErr *remote.RateLimitError
	)
	switch {
	case errors.As(err, &extractErr):
		ctx.WithIssue(issue.MetadataExtractionFailedId)
		if missing := extractErr.MissingFields(); len(missing) > 0 {
			ctx.WithSuggestion("Assign string literals to " + strings.Join(missing, ", "))
		}
	case errors.As(err, &buildErr) && (buildErr.Kind == oven.KindNoEntrypoint || buildErr.Kind == oven.KindInvalidName):
		ctx.WithIssue(issue.NoEntrypointId).
			WithSuggestion("Name the entrypoint after its directory, e.g. helloworld/helloworld.py")
	case errors.Is(err, fs.ErrPermission):
		ctx.WithIssue(issue.PermissionDeniedId)
	case errors.As(err, &existsErr):
		ctx.WithIssue(issue.BakeryAlreadyExistsId).
			WithSuggestion("Use 'bao bakery add' to add buns to it")
	case errors.Is(err, bakery.ErrNotFound):
		ctx.WithIssue(issue.BakeryNotFoundId).
			WithSuggestion("Run 'bao bakery init' to create one")
	case errors.Is(err, bakery.ErrInconsistentBun):
		ctx.WithIssue(issue.InconsistentBunId).
			WithSuggestion("Re-bake the bun from its source")
	case errors.As(err, &rateLimitErr):
		ctx.WithIssue(issue.RemoteUnavailableId).
			WithSuggestion("Set GITHUB_TOKEN to raise the API rate limit")
	case errors.Is(err, remote.ErrRemoteUnavailable), errors.Is(err, remote.ErrInvalidRepository):
		ctx.WithIssue(issue.RemoteUnavailableId).
			WithSuggestion("Check the repository identifier and your network connection")
	}

	return ctx.BuildError()
}

// report writes the detailed form of err to w when verbose is set: the
// error chain and the catalog entry, if any, rendered for scheme.
func report(w io.Writer, err error, verbose bool, scheme config.ColorScheme) {
	if !verbose || err == nil {
		return
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(true))
	iss := issue.Get(ae.Issue)
	if iss == nil {
		return
	}
	if rendered, renderErr := iss.Render(glamourStyle(scheme)); renderErr == nil {
		fmt.Fprint(w, rendered)
	}
}

// glamourStyle maps ui.color_scheme to a glamour standard style. Anything
// unset falls back to glamour's terminal detection.
func glamourStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// fail explains err, reports it and hands it back for cobra.
func (a *App) fail(err error, operation, resource string) error {
	err = explain(err, operation, resource)
	report(a.stderr, err, a.verbose, a.colorScheme)
	return err
}
