// SPDX-License-Identifier: MPL-2.0

package bun

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ArchiveExt is the file extension of a bun archive.
	ArchiveExt = ".zip"
	// ManifestExt is the file extension of a bun manifest.
	ManifestExt = ".toml"
	// EntrypointExt is the file extension of a bun entrypoint script.
	EntrypointExt = ".py"
)

// ErrMalformedManifest is returned when a manifest cannot be decoded.
var ErrMalformedManifest = errors.New("malformed manifest")

// Manifest is the declarative description of a single bun. It is stored next
// to the archive as "<name>.toml" and as a table in a bakery index.
//
// Example:
//
//	name = "helloworld"
//	version = "0.1.0"
//	description = "Hello"
//	author = "A"
//	copyright = "2024 A"
//	license = "MIT"
type Manifest struct {
	Name Name `toml:"name"`
	Metadata
}

// NewManifest builds a manifest for the named bun.
func NewManifest(name Name, meta Metadata) Manifest {
	return Manifest{Name: name, Metadata: meta}
}

// Validate checks the name and every metadata field.
func (m Manifest) Validate() error {
	if err := m.Name.Validate(); err != nil {
		return err
	}
	return m.Metadata.Validate()
}

// Marshal encodes the manifest as TOML. The output is byte-stable for equal manifests.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest %s: %w", m.Name, err)
	}
	return data, nil
}

// ParseManifest decodes and validates a TOML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads and parses the manifest file at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
