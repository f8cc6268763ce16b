// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/onyxware/bao/internal/testutil"
	"github.com/onyxware/bao/internal/testutil/buntest"
	"github.com/onyxware/bao/pkg/bun"
	"github.com/onyxware/bao/pkg/oven"
)

// bakeFixture writes a script named name into dir and bakes it there.
func bakeFixture(t *testing.T, dir, name string, opts ...buntest.ScriptOption) *bun.Bun {
	t.Helper()
	script := buntest.WriteScript(t, dir, name, buntest.NewScript(opts...))
	b, err := oven.Bake(script)
	if err != nil {
		t.Fatalf("Bake(%s) failed: %v", script, err)
	}
	return b
}

func TestInit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	idx, err := Init(root, "testing")
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if idx.Nickname() != "testing" || idx.Len() != 0 {
		t.Errorf("Init() = nickname %q with %d entries, want testing with 0", idx.Nickname(), idx.Len())
	}

	data := testutil.MustReadFile(t, IndexPath(root))
	if strings.TrimSpace(string(data)) != `nickname = 'testing'` && strings.TrimSpace(string(data)) != `nickname = "testing"` {
		t.Errorf("index file = %q, want only the nickname", data)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Nickname() != "testing" || loaded.Len() != 0 {
		t.Errorf("Load() = nickname %q with %d entries", loaded.Nickname(), loaded.Len())
	}
}

func TestInit_AlreadyExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := Init(root, "testing"); err != nil {
		t.Fatalf("first Init() failed: %v", err)
	}
	before := testutil.MustReadFile(t, IndexPath(root))

	_, err := Init(root, "other")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Init() error = %v, want ErrAlreadyExists", err)
	}
	var existsErr *AlreadyExistsError
	if !errors.As(err, &existsErr) || existsErr.Path != IndexPath(root) {
		t.Errorf("second Init() error = %#v, want *AlreadyExistsError for %s", err, IndexPath(root))
	}
	if after := testutil.MustReadFile(t, IndexPath(root)); !bytes.Equal(before, after) {
		t.Errorf("index changed by failed Init(): %q -> %q", before, after)
	}
}

func TestInit_DefaultNickname(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "pantry")
	idx, err := Init(root, "  ")
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if idx.Nickname() != "pantry" {
		t.Errorf("Nickname() = %q, want %q", idx.Nickname(), "pantry")
	}
}

func TestLoad_AbsentIndexIsEmpty(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	idx, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
	if Exists(root) {
		t.Error("Exists() = true for a directory without an index")
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"not toml", "nickname = \n"},
		{"invalid version", "nickname = 'x'\n[packages.a]\nversion = '1.0'\ndescription = 'd'\nauthor = 'a'\ncopyright = 'c'\nlicense = 'MIT'\n"},
		{"invalid name", "nickname = 'x'\n[packages.'a-b']\nversion = '1.0.0'\ndescription = 'd'\nauthor = 'a'\ncopyright = 'c'\nlicense = 'MIT'\n"},
		{"missing field", "nickname = 'x'\n[packages.a]\nversion = '1.0.0'\n"},
		{"name differs from key", "nickname = 'x'\n[packages.a]\nname = 'b'\nversion = '1.0.0'\ndescription = 'd'\nauthor = 'a'\ncopyright = 'c'\nlicense = 'MIT'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			testutil.MustWriteFile(t, IndexPath(root), []byte(tt.content))
			if _, err := Load(root); !errors.Is(err, ErrMalformedIndex) {
				t.Errorf("Load() error = %v, want ErrMalformedIndex", err)
			}
		})
	}
}

func TestIndex_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	idx := NewIndex(root, "testing")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		idx.Upsert(bun.NewManifest(bun.Name(name), buntest.DefaultMetadata))
	}
	if err := idx.Save(root); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	testutil.AssertNotExist(t, IndexPath(root)+".tmp")

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	var names []string
	for _, m := range loaded.List() {
		names = append(names, string(m.Name))
		if m.Metadata != buntest.DefaultMetadata {
			t.Errorf("entry %s metadata = %+v", m.Name, m.Metadata)
		}
	}
	if want := []string{"alpha", "mid", "zeta"}; !slices.Equal(names, want) {
		t.Errorf("List() names = %v, want %v", names, want)
	}

	first := testutil.MustReadFile(t, IndexPath(root))
	if err := loaded.Save(root); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}
	if second := testutil.MustReadFile(t, IndexPath(root)); !bytes.Equal(first, second) {
		t.Errorf("re-saving an unchanged index changed the file:\n%s\n---\n%s", first, second)
	}
}

func TestIndex_SaveWritesEntryNames(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	idx := NewIndex(root, "testing")
	idx.Upsert(bun.NewManifest("helloworld", buntest.DefaultMetadata))
	if err := idx.Save(root); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	var raw struct {
		Packages map[string]map[string]any `toml:"packages"`
	}
	if err := toml.Unmarshal(testutil.MustReadFile(t, IndexPath(root)), &raw); err != nil {
		t.Fatalf("decoding saved index: %v", err)
	}
	if got := raw.Packages["helloworld"]["name"]; got != "helloworld" {
		t.Errorf("packages.helloworld.name = %v, want %q", got, "helloworld")
	}
	if got := raw.Packages["helloworld"]["version"]; got != "0.1.0" {
		t.Errorf("packages.helloworld.version = %v, want %q", got, "0.1.0")
	}
}

func TestLoad_EntryWithoutNameUsesKey(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	content := "nickname = 'x'\n[packages.a]\nversion = '1.0.0'\ndescription = 'd'\nauthor = 'a'\ncopyright = 'c'\nlicense = 'MIT'\n"
	testutil.MustWriteFile(t, IndexPath(root), []byte(content))

	idx, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if m, ok := idx.Lookup("a"); !ok || m.Name != "a" {
		t.Errorf("Lookup(a) = %+v, %v", m, ok)
	}
}

func TestIndex_Upsert(t *testing.T) {
	t.Parallel()

	idx := NewIndex(t.TempDir(), "")
	v1 := bun.NewManifest("x", buntest.DefaultMetadata)
	v2 := v1
	v2.Version = "2.0.0"

	steps := []struct {
		manifest bun.Manifest
		want     UpsertOutcome
	}{
		{v1, OutcomeAdded},
		{v1, OutcomeUnchanged},
		{v2, OutcomeUpdated},
	}
	for i, step := range steps {
		if got := idx.Upsert(step.manifest); got != step.want {
			t.Errorf("step %d: Upsert() = %v, want %v", i, got, step.want)
		}
	}
	got, ok := idx.Lookup("x")
	if !ok || got.Version != "2.0.0" || idx.Len() != 1 {
		t.Errorf("Lookup(x) = %+v, %v with %d entries; want single 2.0.0 entry", got, ok, idx.Len())
	}
}

func TestIndex_Add_Rejections(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	root := t.TempDir()

	good := bakeFixture(t, work, "good")

	renamed := bakeFixture(t, work, "renamed")
	renamed.Manifest.Name = "other"

	noArchive := bakeFixture(t, work, "noarchive")
	if err := os.Remove(noArchive.ArchivePath); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	split := bakeFixture(t, work, "split")
	movedDir := filepath.Join(work, "elsewhere")
	testutil.MustMkdirAll(t, movedDir, 0o755)
	movedManifest := filepath.Join(movedDir, filepath.Base(split.ManifestPath))
	if err := os.Rename(split.ManifestPath, movedManifest); err != nil {
		t.Fatalf("Rename() failed: %v", err)
	}
	split.ManifestPath = movedManifest

	idx := NewIndex(root, "")
	res := idx.Add(root, []*bun.Bun{renamed, noArchive, good, split})

	if !slices.Equal(res.Added, []string{"good"}) {
		t.Errorf("Added = %v, want [good]", res.Added)
	}
	var rejected []string
	for _, r := range res.Rejected {
		if !errors.Is(r, ErrInconsistentBun) || !errors.Is(r, bun.ErrInconsistent) {
			t.Errorf("rejection %v does not wrap the consistency sentinels", r)
		}
		rejected = append(rejected, r.Name)
	}
	if want := []string{"renamed", "noarchive", "split"}; !slices.Equal(rejected, want) {
		t.Errorf("Rejected = %v, want %v", rejected, want)
	}
	if _, err := os.Stat(filepath.Join(root, "good.zip")); err != nil {
		t.Errorf("archive not copied into bakery: %v", err)
	}
	if _, err := os.Stat(good.ArchivePath); err != nil {
		t.Errorf("original archive removed: %v", err)
	}
	if !slices.Equal(res.Consumed, []string{good.ManifestPath}) {
		t.Errorf("Consumed = %v, want [%s]", res.Consumed, good.ManifestPath)
	}
}
