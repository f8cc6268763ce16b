// SPDX-License-Identifier: MPL-2.0

package bun

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInconsistent is wrapped by every error Validate returns.
var ErrInconsistent = errors.New("inconsistent bun")

// Bun is a baked package: an archive plus its co-located manifest.
type Bun struct {
	Name         Name
	ArchivePath  string
	ManifestPath string
	Manifest     Manifest
}

// PairPaths returns the archive and manifest paths for the bun whose archive or
// manifest lives at path. Any extension is replaced.
func PairPaths(path string) (archivePath, manifestPath string) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ArchiveExt, base + ManifestExt
}

// Open loads the bun whose archive or manifest is at path. The manifest must
// exist and parse; the archive is checked by Validate.
func Open(path string) (*Bun, error) {
	archivePath, manifestPath := PairPaths(path)
	name := Name(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	return &Bun{
		Name:         name,
		ArchivePath:  archivePath,
		ManifestPath: manifestPath,
		Manifest:     m,
	}, nil
}

// Validate reports an inconsistent bun. Archive and manifest must sit side by
// side under the bun's name, the manifest must describe this bun, and the
// archive must exist and hold the entrypoint script.
func (b *Bun) Validate() error {
	if err := b.Name.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	if filepath.Dir(b.ArchivePath) != filepath.Dir(b.ManifestPath) {
		return fmt.Errorf("%w: archive %s and manifest %s are not in the same directory",
			ErrInconsistent, b.ArchivePath, b.ManifestPath)
	}
	if filepath.Base(b.ArchivePath) != b.Name.ArchiveFile() {
		return fmt.Errorf("%w: archive %s does not match bun name %q", ErrInconsistent, b.ArchivePath, b.Name)
	}
	if filepath.Base(b.ManifestPath) != b.Name.ManifestFile() {
		return fmt.Errorf("%w: manifest %s does not match bun name %q", ErrInconsistent, b.ManifestPath, b.Name)
	}
	if b.Manifest.Name != b.Name {
		return fmt.Errorf("%w: manifest names %q but archive is %q", ErrInconsistent, b.Manifest.Name, b.Name)
	}
	if err := b.Manifest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	if _, err := os.Stat(b.ManifestPath); err != nil {
		return fmt.Errorf("%w: manifest missing: %w", ErrInconsistent, err)
	}
	info, err := os.Stat(b.ArchivePath)
	if err != nil {
		return fmt.Errorf("%w: archive missing: %w", ErrInconsistent, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: archive %s is not a regular file", ErrInconsistent, b.ArchivePath)
	}
	contents, err := ReadArchive(b.ArchivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	if !contents.Contains(b.Name.EntrypointFile()) {
		return fmt.Errorf("%w: archive %s has no entrypoint %s", ErrInconsistent, b.ArchivePath, b.Name.EntrypointFile())
	}
	return nil
}
