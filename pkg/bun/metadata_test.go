// SPDX-License-Identifier: MPL-2.0

package bun

import (
	"errors"
	"testing"
)

func validMetadata() Metadata {
	return Metadata{
		Version:     "0.1.0",
		Description: "Hello",
		Author:      "A",
		Copyright:   "2024 A",
		License:     "MIT",
	}
}

func TestName_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  Name
		valid bool
	}{
		{"helloworld", true},
		{"hello_world", true},
		{"_private", true},
		{"Tool2", true},
		{"", false},
		{"hello-world", false},
		{"2fast", false},
		{"hello.world", false},
		{"héllo", false},
	}

	for _, tt := range tests {
		err := tt.name.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("Name(%q).Validate() = %v, want valid=%v", tt.name, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("Name(%q).Validate() should wrap ErrInvalidName", tt.name)
		}
	}
}

func TestName_Files(t *testing.T) {
	t.Parallel()

	n := Name("helloworld")
	if n.ArchiveFile() != "helloworld.zip" || n.ManifestFile() != "helloworld.toml" || n.EntrypointFile() != "helloworld.py" {
		t.Errorf("unexpected file names %s %s %s", n.ArchiveFile(), n.ManifestFile(), n.EntrypointFile())
	}
}

func TestVersion_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version Version
		valid   bool
	}{
		{"0.1.0", true},
		{"1.2.3", true},
		{"v1.2.3", true},
		{"1.0.0-alpha.1", true},
		{"1.0.0+build.5", true},
		{"1", false},
		{"1.2", false},
		{"1.2.3.4", false},
		{"latest", false},
		{"01.2.3", false},
		{"", false},
	}

	for _, tt := range tests {
		err := tt.version.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("Version(%q).Validate() = %v, want valid=%v", tt.version, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("Version(%q).Validate() should wrap ErrInvalidVersion", tt.version)
		}
	}
}

func TestVersion_Compare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b Version
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "v1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-rc.1", "1.0.0", -1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%q.Compare(%q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLicense(t *testing.T) {
	t.Parallel()

	tests := []struct {
		license License
		valid   bool
		spdx    bool
	}{
		{"MIT", true, true},
		{"Apache-2.0 OR MIT", true, true},
		{"GPL-3.0-or-later", true, true},
		{"Proprietary, ask first", true, false},
		{"   ", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		err := tt.license.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("License(%q).Validate() = %v, want valid=%v", tt.license, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidLicense) {
			t.Errorf("License(%q).Validate() should wrap ErrInvalidLicense", tt.license)
		}
		if got := tt.license.IsSPDX(); got != tt.spdx {
			t.Errorf("License(%q).IsSPDX() = %v, want %v", tt.license, got, tt.spdx)
		}
	}
}

func TestMetadata_Validate(t *testing.T) {
	t.Parallel()

	if err := validMetadata().Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}

	withOptional := validMetadata()
	withOptional.Maintainer = "B"
	withOptional.Email = "b@example.com"
	if err := withOptional.Validate(); err != nil {
		t.Errorf("optional fields should be accepted: %v", err)
	}

	empty := Metadata{}
	err := empty.Validate()
	if !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("Validate() = %v, want ErrInvalidMetadata", err)
	}
	var ime *InvalidMetadataError
	if !errors.As(err, &ime) {
		t.Fatalf("Validate() should return *InvalidMetadataError, got %T", err)
	}
	// description, author, copyright, license, version
	if len(ime.FieldErrors) != 5 {
		t.Errorf("expected 5 field errors, got %d: %v", len(ime.FieldErrors), ime.FieldErrors)
	}

	badVersion := validMetadata()
	badVersion.Version = "1.2"
	err = badVersion.Validate()
	if !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("Validate() = %v, want ErrInvalidMetadata", err)
	}
	if !errors.As(err, &ime) || len(ime.FieldErrors) != 1 || !errors.Is(ime.FieldErrors[0], ErrInvalidVersion) {
		t.Errorf("expected a single version error, got %v", err)
	}
}
