// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// ExternalStore is the host platform's record of installed packages, keyed by
// package name with the version as value.
type ExternalStore interface {
	ExternalPackages(ctx context.Context) (map[string]string, error)
	SetExternalPackages(ctx context.Context, packages map[string]string) error
}

// Reconcile pushes the versions in idx to store. The bakery is the last
// writer: every indexed package overwrites the store's version, while
// packages only the store knows about are kept. It returns the sorted names
// whose stored version changed; the store is written only when something did.
func Reconcile(ctx context.Context, idx PackageIndex, store ExternalStore) ([]string, error) {
	current, err := store.ExternalPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read external packages: %w", err)
	}

	merged := maps.Clone(current)
	if merged == nil {
		merged = make(map[string]string)
	}
	var changed []string
	for _, m := range idx.List() {
		name, version := string(m.Name), string(m.Version)
		if prev, ok := merged[name]; ok && prev == version {
			continue
		}
		merged[name] = version
		changed = append(changed, name)
	}
	if len(changed) == 0 {
		return nil, nil
	}

	if err := store.SetExternalPackages(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to update external packages: %w", err)
	}
	slices.Sort(changed)
	return changed, nil
}
