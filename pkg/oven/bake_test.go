// SPDX-License-Identifier: MPL-2.0

package oven

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/onyxware/bao/internal/testutil"
	"github.com/onyxware/bao/internal/testutil/buntest"
	"github.com/onyxware/bao/pkg/bun"
	"github.com/onyxware/bao/pkg/pymeta"
)

func TestBake_SingleScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := buntest.NewScript()
	script := buntest.WriteScript(t, dir, "helloworld", src)

	b, err := Bake(script)
	if err != nil {
		t.Fatalf("Bake() failed: %v", err)
	}

	if b.Name != "helloworld" {
		t.Errorf("Name = %q, want %q", b.Name, "helloworld")
	}
	if want := filepath.Join(dir, "helloworld.zip"); b.ArchivePath != want {
		t.Errorf("ArchivePath = %q, want %q", b.ArchivePath, want)
	}
	if want := filepath.Join(dir, "helloworld.toml"); b.ManifestPath != want {
		t.Errorf("ManifestPath = %q, want %q", b.ManifestPath, want)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() on baked bun failed: %v", err)
	}

	info, err := bun.ReadArchive(b.ArchivePath)
	if err != nil {
		t.Fatalf("ReadArchive() failed: %v", err)
	}
	if !slices.Equal(info.Entries, []string{"helloworld.py"}) {
		t.Errorf("archive entries = %v, want [helloworld.py]", info.Entries)
	}
	embedded, err := bun.ParseManifest([]byte(info.Comment))
	if err != nil {
		t.Fatalf("archive comment is not a manifest: %v", err)
	}
	if embedded != b.Manifest {
		t.Errorf("embedded manifest = %+v, want %+v", embedded, b.Manifest)
	}

	if got := testutil.MustReadFile(t, script); string(got) != src {
		t.Error("source script was modified by Bake()")
	}
}

func TestBake_ManifestMatchesExtractedMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := buntest.NewScript(
		buntest.WithVersion("2.1.0-rc.1"),
		buntest.WithField("__maintainer__", "B"),
		buntest.WithDescription("Multi\nline"),
	)
	script := buntest.WriteScript(t, dir, "tool", src)

	b, err := Bake(script)
	if err != nil {
		t.Fatalf("Bake() failed: %v", err)
	}

	want, err := pymeta.Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	loaded, err := bun.LoadManifest(b.ManifestPath)
	if err != nil {
		t.Fatalf("LoadManifest() failed: %v", err)
	}
	if loaded.Name != "tool" {
		t.Errorf("manifest name = %q, want %q", loaded.Name, "tool")
	}
	if loaded.Metadata != want {
		t.Errorf("manifest metadata = %+v, want %+v", loaded.Metadata, want)
	}
}

func TestBake_Directory(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "helloworld")
	buntest.WriteScript(t, root, "helloworld", buntest.NewScript())
	testutil.MustWriteFile(t, filepath.Join(root, "lib", "util.py"), []byte("X = 1\n"))
	testutil.MustWriteFile(t, filepath.Join(root, "data.txt"), []byte("payload"))
	testutil.MustWriteFile(t, filepath.Join(root, "__pycache__", "util.cpython-312.pyc"), []byte{0})
	testutil.MustWriteFile(t, filepath.Join(root, "lib", "stale.pyc"), []byte{0})
	testutil.MustWriteFile(t, filepath.Join(root, ".git", "HEAD"), []byte("ref"))

	b, err := Bake(root, WithExclude("__pycache__", "*.pyc", ".*"))
	if err != nil {
		t.Fatalf("Bake() failed: %v", err)
	}
	if filepath.Dir(b.ArchivePath) != parent {
		t.Errorf("archive written to %s, want %s", filepath.Dir(b.ArchivePath), parent)
	}

	info, err := bun.ReadArchive(b.ArchivePath)
	if err != nil {
		t.Fatalf("ReadArchive() failed: %v", err)
	}
	want := []string{"data.txt", "helloworld.py", "lib/util.py"}
	if !slices.Equal(info.Entries, want) {
		t.Errorf("archive entries = %v, want %v", info.Entries, want)
	}
}

func TestBake_Deterministic(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "helloworld")
	script := buntest.WriteScript(t, root, "helloworld", buntest.NewScript())
	testutil.MustWriteFile(t, filepath.Join(root, "b.py"), []byte("B = 2\n"))
	testutil.MustWriteFile(t, filepath.Join(root, "a.py"), []byte("A = 1\n"))

	first, err := Bake(root)
	if err != nil {
		t.Fatalf("first Bake() failed: %v", err)
	}
	archive1 := testutil.MustReadFile(t, first.ArchivePath)
	manifest1 := testutil.MustReadFile(t, first.ManifestPath)

	// Timestamps of the inputs must not leak into the archive.
	later := time.Now().Add(48 * time.Hour)
	if err := os.Chtimes(script, later, later); err != nil {
		t.Fatalf("Chtimes() failed: %v", err)
	}

	second, err := Bake(root)
	if err != nil {
		t.Fatalf("second Bake() failed: %v", err)
	}
	if !bytes.Equal(archive1, testutil.MustReadFile(t, second.ArchivePath)) {
		t.Error("archives from identical inputs differ")
	}
	if !bytes.Equal(manifest1, testutil.MustReadFile(t, second.ManifestPath)) {
		t.Error("manifests from identical inputs differ")
	}
}

func TestBake_NoEntrypoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
		kind  BuildErrorKind
	}{
		{
			name: "directory without matching script",
			setup: func(t *testing.T, dir string) string {
				root := filepath.Join(dir, "helloworld")
				buntest.WriteScript(t, root, "main", buntest.NewScript())
				return root
			},
			kind: KindNoEntrypoint,
		},
		{
			name: "entrypoint is a directory",
			setup: func(t *testing.T, dir string) string {
				root := filepath.Join(dir, "helloworld")
				testutil.MustMkdirAll(t, filepath.Join(root, "helloworld.py"), 0o755)
				return root
			},
			kind: KindNoEntrypoint,
		},
		{
			name: "not a python file",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "helloworld.txt")
				testutil.MustWriteFile(t, path, []byte(buntest.NewScript()))
				return path
			},
			kind: KindNoEntrypoint,
		},
		{
			name: "path does not exist",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "missing.py")
			},
			kind: KindNoEntrypoint,
		},
		{
			name: "name is not an identifier",
			setup: func(t *testing.T, dir string) string {
				return buntest.WriteScript(t, dir, "hello-world", buntest.NewScript())
			},
			kind: KindInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := tt.setup(t, dir)

			_, err := Bake(path)
			if !errors.Is(err, ErrBuild) {
				t.Fatalf("Bake() error = %v, want ErrBuild", err)
			}
			var buildErr *BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("Bake() error is not a *BuildError: %T", err)
			}
			if buildErr.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", buildErr.Kind, tt.kind)
			}
			assertNoOutputs(t, dir)
		})
	}
}

func TestBake_ExtractionFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := buntest.WriteScript(t, dir, "helloworld", buntest.NewScript(
		buntest.Without("__license__"),
		buntest.WithExpression("__author__", `"A" + "B"`),
	))

	_, err := Bake(script)
	var buildErr *BuildError
	if !errors.As(err, &buildErr) || buildErr.Kind != KindExtraction {
		t.Fatalf("Bake() error = %v, want extraction BuildError", err)
	}
	var extractErr *pymeta.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Bake() error does not carry *pymeta.ExtractionError: %v", err)
	}
	if got, want := extractErr.MissingFields(), []string{"__author__", "__license__"}; !slices.Equal(got, want) {
		t.Errorf("MissingFields() = %v, want %v", got, want)
	}
	assertNoOutputs(t, dir)
}

func TestBake_MemMapFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/helloworld/helloworld.py", []byte(buntest.NewScript()), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := afero.WriteFile(fs, "/src/helloworld/util.py", []byte("pass\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	b, err := Bake("/src/helloworld", WithFs(fs), WithOutputDir("/out"))
	if err != nil {
		t.Fatalf("Bake() failed: %v", err)
	}
	if b.ArchivePath != "/out/helloworld.zip" || b.ManifestPath != "/out/helloworld.toml" {
		t.Errorf("outputs = %s, %s; want /out/helloworld.{zip,toml}", b.ArchivePath, b.ManifestPath)
	}

	data, err := afero.ReadFile(fs, b.ManifestPath)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	m, err := bun.ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}
	if m.Metadata != buntest.DefaultMetadata {
		t.Errorf("manifest metadata = %+v, want %+v", m.Metadata, buntest.DefaultMetadata)
	}

	entries, err := afero.ReadDir(fs, "/out")
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("output dir holds %v, want only the archive and manifest", names)
	}
}

func TestBake_ReadOnlyOutputDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/helloworld.py", []byte(buntest.NewScript()), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	_, err := Bake("/src/helloworld.py", WithFs(afero.NewReadOnlyFs(fs)))
	var buildErr *BuildError
	if !errors.As(err, &buildErr) || buildErr.Kind != KindIO {
		t.Fatalf("Bake() error = %v, want io BuildError", err)
	}
	for _, p := range []string{"/src/helloworld.zip", "/src/helloworld.toml"} {
		if ok, _ := afero.Exists(fs, p); ok {
			t.Errorf("%s exists after failed bake", p)
		}
	}
}

func assertNoOutputs(t *testing.T, dir string) {
	t.Helper()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch filepath.Ext(path) {
		case bun.ArchiveExt, bun.ManifestExt, ".tmp":
			t.Errorf("unexpected output %s after failed bake", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", dir, err)
	}
}

func TestBake_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "helloworld")
	buntest.WriteScript(t, root, "helloworld", buntest.NewScript())
	t.Chdir(root)

	b, err := Bake(".")
	if err != nil {
		t.Fatalf("Bake(.) failed: %v", err)
	}
	if b.Name != "helloworld" {
		t.Errorf("Name = %q, want %q", b.Name, "helloworld")
	}
	for _, name := range []string{"helloworld.zip", "helloworld.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written next to the directory: %v", name, err)
		}
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

// renameFailFs fails every rename onto target.
type renameFailFs struct {
	afero.Fs
	target string
}

func (fs *renameFailFs) Rename(oldname, newname string) error {
	if newname == fs.target {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return fs.Fs.Rename(oldname, newname)
}

func TestBake_FailedRebakeKeepsPreviousPair(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/helloworld.py", []byte(buntest.NewScript()), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := Bake("/src/helloworld.py", WithFs(fs)); err != nil {
		t.Fatalf("first Bake() failed: %v", err)
	}
	readAll := func(path string) []byte {
		t.Helper()
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", path, err)
		}
		return data
	}
	archive, manifest := readAll("/src/helloworld.zip"), readAll("/src/helloworld.toml")

	if err := afero.WriteFile(fs, "/src/helloworld.py", []byte(buntest.NewScript(buntest.WithVersion("0.2.0"))), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	_, err := Bake("/src/helloworld.py", WithFs(&renameFailFs{Fs: fs, target: "/src/helloworld.toml"}))
	var buildErr *BuildError
	if !errors.As(err, &buildErr) || buildErr.Kind != KindIO {
		t.Fatalf("Bake() error = %v, want io BuildError", err)
	}

	if got := readAll("/src/helloworld.zip"); !bytes.Equal(got, archive) {
		t.Error("previous archive was not restored")
	}
	if got := readAll("/src/helloworld.toml"); !bytes.Equal(got, manifest) {
		t.Error("previous manifest changed")
	}
	entries, err := afero.ReadDir(fs, "/src")
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(entries) != 3 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("/src holds %v, want the script and the previous pair", names)
	}
}
