// SPDX-License-Identifier: MPL-2.0

package buntest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onyxware/bao/pkg/bun"
)

type (
	// ScriptOption configures a generated script.
	ScriptOption func(*script)

	script struct {
		fields  []field
		trailer string
	}

	field struct {
		identifier string
		value      string
		literal    bool
	}
)

// DefaultMetadata is the metadata carried by NewScript without options.
var DefaultMetadata = bun.Metadata{
	Description: "Hello",
	Author:      "A",
	Copyright:   "2024 A",
	License:     "MIT",
	Version:     "0.1.0",
}

// NewScript renders a Python script whose header assigns the bun metadata.
// By default the script carries DefaultMetadata and prints a greeting.
//
// Usage:
//
//	src := buntest.NewScript()
//	src := buntest.NewScript(buntest.WithVersion("1.0.0"), buntest.Without("__license__"))
func NewScript(opts ...ScriptOption) string {
	s := &script{
		fields: []field{
			{identifier: "__doc__", value: DefaultMetadata.Description, literal: true},
			{identifier: "__author__", value: DefaultMetadata.Author, literal: true},
			{identifier: "__copyright__", value: DefaultMetadata.Copyright, literal: true},
			{identifier: "__license__", value: string(DefaultMetadata.License), literal: true},
			{identifier: "__version__", value: string(DefaultMetadata.Version), literal: true},
		},
		trailer: `print("hello world")`,
	}
	for _, opt := range opts {
		opt(s)
	}

	var b strings.Builder
	for _, f := range s.fields {
		if f.literal {
			fmt.Fprintf(&b, "%s = %q\n", f.identifier, f.value)
		} else {
			fmt.Fprintf(&b, "%s = %s\n", f.identifier, f.value)
		}
	}
	b.WriteString("\n")
	b.WriteString(s.trailer)
	b.WriteString("\n")
	return b.String()
}

// --- Script Options ---

// WithVersion sets the __version__ literal.
func WithVersion(version string) ScriptOption {
	return WithField("__version__", version)
}

// WithDescription sets the __doc__ literal.
func WithDescription(description string) ScriptOption {
	return WithField("__doc__", description)
}

// WithField sets identifier to a string literal, adding it when absent.
func WithField(identifier, value string) ScriptOption {
	return func(s *script) {
		s.set(field{identifier: identifier, value: value, literal: true})
	}
}

// WithExpression assigns identifier a raw Python expression instead of a literal.
func WithExpression(identifier, expr string) ScriptOption {
	return func(s *script) {
		s.set(field{identifier: identifier, value: expr})
	}
}

// Without drops the assignment of identifier.
func Without(identifier string) ScriptOption {
	return func(s *script) {
		kept := s.fields[:0]
		for _, f := range s.fields {
			if f.identifier != identifier {
				kept = append(kept, f)
			}
		}
		s.fields = kept
	}
}

// WithBody replaces the statements following the header.
func WithBody(body string) ScriptOption {
	return func(s *script) {
		s.trailer = body
	}
}

func (s *script) set(f field) {
	for i := range s.fields {
		if s.fields[i].identifier == f.identifier {
			s.fields[i] = f
			return
		}
	}
	s.fields = append(s.fields, f)
}

// WriteScript writes src to dir/<name>.py and returns its path.
// The test fails immediately if the write fails.
func WriteScript(t testing.TB, dir, name, src string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	path := filepath.Join(dir, name+bun.EntrypointExt)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write script %s: %v", path, err)
	}
	return path
}
