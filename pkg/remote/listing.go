// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"errors"
	"slices"
	"strings"

	"github.com/onyxware/bao/pkg/bun"
)

type (
	// Listing is the read-only result of Client.List. It satisfies
	// bakery.PackageIndex.
	Listing struct {
		repo    string
		entries map[bun.Name]bun.Metadata
		skipped []Skipped
		errs    []error

		candidates map[bun.Name]candidate
	}

	// Skipped records a remote entry left out of a Listing.
	Skipped struct {
		Name   string
		Reason string
	}
)

func newListing(repo string) *Listing {
	return &Listing{
		repo:       repo,
		entries:    make(map[bun.Name]bun.Metadata),
		candidates: make(map[bun.Name]candidate),
	}
}

// Nickname returns the repository identifier the listing was built from.
func (l *Listing) Nickname() string { return l.repo }

// List returns the listed manifests sorted by name.
func (l *Listing) List() []bun.Manifest {
	out := make([]bun.Manifest, 0, len(l.entries))
	for name, meta := range l.entries {
		out = append(out, bun.NewManifest(name, meta))
	}
	slices.SortFunc(out, func(a, b bun.Manifest) int { return strings.Compare(string(a.Name), string(b.Name)) })
	return out
}

// Lookup returns the manifest for name.
func (l *Listing) Lookup(name string) (bun.Manifest, bool) {
	meta, ok := l.entries[bun.Name(name)]
	if !ok {
		return bun.Manifest{}, false
	}
	return bun.NewManifest(bun.Name(name), meta), true
}

// Skipped returns the entries left out of the listing, sorted by name.
func (l *Listing) Skipped() []Skipped {
	out := slices.Clone(l.skipped)
	slices.SortStableFunc(out, func(a, b Skipped) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Partial reports whether remote failures may have hidden entries.
func (l *Listing) Partial() bool { return len(l.errs) > 0 }

// Err returns the remote failures met while listing, joined, or nil.
// Every joined error is a *RemoteUnavailableError.
func (l *Listing) Err() error { return errors.Join(l.errs...) }

func (l *Listing) skip(name bun.Name, reason string) {
	l.skipped = append(l.skipped, Skipped{Name: string(name), Reason: reason})
}

func (l *Listing) fail(err error) {
	l.errs = append(l.errs, err)
}
