// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

const (
	// FileName is the default settings file name inside the config directory.
	FileName = "settings.toml"

	packagesKey = "packages"
)

type (
	// FileStore reads and writes the package list of a settings file.
	// It satisfies bakery.ExternalStore.
	FileStore struct {
		path string
	}

	packageEntry struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
	}
)

// NewFileStore returns a store backed by the settings file at path.
// The file does not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file path.
func (s *FileStore) Path() string { return s.path }

// ExternalPackages returns the recorded package versions keyed by name.
// A missing settings file yields an empty map.
func (s *FileStore) ExternalPackages(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := s.load()
	if err != nil {
		return nil, err
	}

	var entries []packageEntry
	if err := v.UnmarshalKey(packagesKey, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode packages in %s: %w", s.path, err)
	}
	packages := make(map[string]string, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		packages[e.Name] = e.Version
	}
	return packages, nil
}

// SetExternalPackages replaces the recorded package list. The rest of the
// settings file is kept and the file is replaced atomically.
func (s *FileStore) SetExternalPackages(ctx context.Context, packages map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := s.load()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	slices.Sort(names)
	entries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		entries = append(entries, map[string]any{"name": name, "version": packages[name]})
	}
	v.Set(packagesKey, entries)

	return s.write(v)
}

func (s *FileStore) load() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", s.path, err)
	}
	return v, nil
}

// write saves v next to the target and renames it into place.
func (s *FileStore) write(v *viper.Viper) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := v.WriteConfigAs(tmpPath); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename settings file: %w", err)
	}
	return nil
}
