// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"context"
	"fmt"

	"github.com/onyxware/bao/pkg/bun"
)

// PackageIndex is a read-only view of the packages available from a bakery,
// whether backed by a local index file or a remote repository.
type PackageIndex interface {
	// Nickname returns the human-readable name of the bakery.
	Nickname() string
	// List returns every package manifest, sorted by name.
	List() []bun.Manifest
	// Lookup returns the manifest for name.
	Lookup(name string) (bun.Manifest, bool)
}

// FallbackFunc produces a PackageIndex when the bakery has no local index.
type FallbackFunc func(ctx context.Context) (PackageIndex, error)

// Open returns the local index of the bakery at root if its index file exists,
// and otherwise the index produced by fallback. A nil fallback turns a missing
// index into an ErrNotFound error.
func Open(ctx context.Context, root string, fallback FallbackFunc) (PackageIndex, error) {
	if Exists(root) {
		idx, err := Load(root)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, IndexPath(root))
	}
	return fallback(ctx)
}
