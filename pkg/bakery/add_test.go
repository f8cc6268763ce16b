// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/onyxware/bao/internal/testutil"
	"github.com/onyxware/bao/internal/testutil/buntest"
	"github.com/onyxware/bao/pkg/oven"
	"github.com/onyxware/bao/pkg/pymeta"
)

func newBakery(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if _, err := Init(root, "testing"); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return root
}

func TestAddPaths_BakedPair(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()
	b := bakeFixture(t, work, "helloworld")

	res, err := AddPaths(context.Background(), root, []string{b.ArchivePath, b.ManifestPath})
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if !slices.Equal(res.Added, []string{"helloworld"}) || len(res.Rejected) != 0 {
		t.Fatalf("AddPaths() = %+v, want helloworld added once", res)
	}

	testutil.AssertNotExist(t, b.ManifestPath)
	if _, err := os.Stat(b.ArchivePath); err != nil {
		t.Errorf("archive removed from working directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "helloworld.zip")); err != nil {
		t.Errorf("archive not placed in bakery: %v", err)
	}

	idx, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got, ok := idx.Lookup("helloworld")
	if !ok {
		t.Fatal("helloworld missing from index")
	}
	if got.Metadata != buntest.DefaultMetadata {
		t.Errorf("indexed metadata = %+v, want %+v", got.Metadata, buntest.DefaultMetadata)
	}
	if idx.Nickname() != "testing" {
		t.Errorf("Nickname() = %q, want testing", idx.Nickname())
	}
}

func TestAddPaths_BakedInsideBakery(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	b := bakeFixture(t, root, "helloworld")

	res, err := AddPaths(context.Background(), root, []string{b.ManifestPath})
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if res.Accepted() != 1 {
		t.Fatalf("AddPaths() = %+v, want one accepted bun", res)
	}
	testutil.AssertNotExist(t, b.ManifestPath)
	if _, err := os.Stat(b.ArchivePath); err != nil {
		t.Errorf("archive removed: %v", err)
	}
}

func TestAddPaths_Idempotent(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()

	b := bakeFixture(t, work, "helloworld")
	if _, err := AddPaths(context.Background(), root, []string{b.ArchivePath}); err != nil {
		t.Fatalf("first AddPaths() failed: %v", err)
	}
	first := testutil.MustReadFile(t, IndexPath(root))

	b = bakeFixture(t, work, "helloworld")
	res, err := AddPaths(context.Background(), root, []string{b.ArchivePath})
	if err != nil {
		t.Fatalf("second AddPaths() failed: %v", err)
	}
	if !slices.Equal(res.Unchanged, []string{"helloworld"}) {
		t.Errorf("second AddPaths() = %+v, want helloworld unchanged", res)
	}
	if second := testutil.MustReadFile(t, IndexPath(root)); !bytes.Equal(first, second) {
		t.Errorf("index changed on re-add:\n%s\n---\n%s", first, second)
	}
	testutil.AssertNotExist(t, b.ManifestPath)
}

func TestAddPaths_LastWriteWins(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()

	var last AddResult
	for _, version := range []string{"2.0.0", "1.0.0"} {
		b := bakeFixture(t, work, "x", buntest.WithVersion(version))
		res, err := AddPaths(context.Background(), root, []string{b.ArchivePath})
		if err != nil {
			t.Fatalf("AddPaths(%s) failed: %v", version, err)
		}
		last = res
	}

	idx, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
	if got, _ := idx.Lookup("x"); got.Version != "1.0.0" {
		t.Errorf("x version = %q, want 1.0.0", got.Version)
	}
	if !slices.Equal(last.Updated, []string{"x"}) || !slices.Equal(last.Downgraded, []string{"x"}) {
		t.Errorf("second add: Updated = %v, Downgraded = %v", last.Updated, last.Downgraded)
	}
}

func TestAddPaths_ImplicitBake(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()

	unbakedDir := filepath.Join(work, "helloworld")
	buntest.WriteScript(t, unbakedDir, "helloworld", buntest.NewScript())
	testutil.MustWriteFile(t, filepath.Join(unbakedDir, "__pycache__", "x.pyc"), []byte{0})

	unbakedScript := buntest.WriteScript(t, work, "single", buntest.NewScript(buntest.WithVersion("0.2.0")))

	broken := filepath.Join(work, "broken")
	buntest.WriteScript(t, broken, "broken", buntest.NewScript(buntest.Without("__author__")))

	res, err := AddPaths(context.Background(), root, []string{unbakedDir, broken, unbakedScript},
		WithBakeOptions(oven.WithExclude("__pycache__")))
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if want := []string{"helloworld", "single"}; !slices.Equal(res.Added, want) {
		t.Errorf("Added = %v, want %v", res.Added, want)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Name != "broken" {
		t.Fatalf("Rejected = %v, want only broken", res.Rejected)
	}
	var extractErr *pymeta.ExtractionError
	if !errors.As(res.Rejected[0], &extractErr) || !slices.Equal(extractErr.MissingFields(), []string{"__author__"}) {
		t.Errorf("broken rejection = %v, want missing __author__", res.Rejected[0])
	}

	// Implicit bakes leave the archive next to the source and consume the manifest.
	if _, err := os.Stat(filepath.Join(work, "helloworld.zip")); err != nil {
		t.Errorf("baked archive missing from working directory: %v", err)
	}
	testutil.AssertNotExist(t, filepath.Join(work, "helloworld.toml"))
	testutil.AssertNotExist(t, filepath.Join(work, "broken.zip"))
}

func TestAddPaths_DeduplicatesInputs(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()
	dir := filepath.Join(work, "helloworld")
	buntest.WriteScript(t, dir, "helloworld", buntest.NewScript())
	b, err := oven.Bake(dir)
	if err != nil {
		t.Fatalf("Bake() failed: %v", err)
	}

	res, err := AddPaths(context.Background(), root, []string{dir, b.ArchivePath, b.ManifestPath})
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if res.Accepted() != 1 || len(res.Rejected) != 0 {
		t.Errorf("AddPaths() = %+v, want a single accepted bun", res)
	}
}

func TestAddPaths_UnsupportedAndMissingInputs(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	work := t.TempDir()
	readme := filepath.Join(work, "README.md")
	testutil.MustWriteFile(t, readme, []byte("# hi"))
	before := testutil.MustReadFile(t, IndexPath(root))

	res, err := AddPaths(context.Background(), root, []string{readme, filepath.Join(work, "nope.zip")})
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if len(res.Rejected) != 2 || res.Accepted() != 0 {
		t.Errorf("AddPaths() = %+v, want two rejections", res)
	}
	if after := testutil.MustReadFile(t, IndexPath(root)); !bytes.Equal(before, after) {
		t.Error("index rewritten although nothing was accepted")
	}
}

func TestAddPaths_SkipsBakeryFiles(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	b := bakeFixture(t, root, "helloworld")
	lock := filepath.Join(root, LockFileName)
	testutil.MustWriteFile(t, lock, nil)

	res, err := AddPaths(context.Background(), root, []string{IndexPath(root), lock, b.ArchivePath})
	if err != nil {
		t.Fatalf("AddPaths() failed: %v", err)
	}
	if len(res.Rejected) != 0 {
		t.Errorf("Rejected = %v, want none", res.Rejected)
	}
	if !slices.Equal(res.Added, []string{"helloworld"}) {
		t.Errorf("Added = %v, want [helloworld]", res.Added)
	}
}

func TestAddPaths_RequiresIndex(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	b := bakeFixture(t, work, "helloworld")

	_, err := AddPaths(context.Background(), t.TempDir(), []string{b.ArchivePath})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AddPaths() error = %v, want ErrNotFound", err)
	}
	if _, statErr := os.Stat(b.ManifestPath); statErr != nil {
		t.Errorf("manifest consumed although the add failed: %v", statErr)
	}
}

func TestAddPaths_Canceled(t *testing.T) {
	t.Parallel()

	root := newBakery(t)
	b := bakeFixture(t, t.TempDir(), "helloworld")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AddPaths(ctx, root, []string{b.ArchivePath}); !errors.Is(err, context.Canceled) {
		t.Errorf("AddPaths() error = %v, want context.Canceled", err)
	}
}
