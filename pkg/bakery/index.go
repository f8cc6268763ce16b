// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/onyxware/bao/pkg/bun"
)

const (
	// IndexFileName is the name of the index file at the bakery root.
	IndexFileName = "BAKERY.toml"
	// LockFileName is the advisory lock file taken by writers.
	LockFileName = ".BAKERY.lock"
)

type (
	// Index is the in-memory bakery index: a nickname plus one manifest record
	// per bun name.
	Index struct {
		nickname string
		entries  map[bun.Name]bun.Metadata
	}

	// AddResult reports the outcome of Add. Names appear in input order.
	AddResult struct {
		Added     []string
		Updated   []string
		Unchanged []string
		Rejected  []*ConsistencyError
		// Downgraded lists updated names whose new version sorts before the
		// one it replaced. The newer record still wins.
		Downgraded []string
		// Consumed lists the standalone manifest files made redundant by the
		// index. They are removed by RemoveConsumed once the index is saved.
		Consumed []string
	}

	// indexFile is the on-disk shape of BAKERY.toml. Each package table is a
	// full manifest, name included, keyed by that same name.
	indexFile struct {
		Nickname string                  `toml:"nickname"`
		Packages map[string]bun.Manifest `toml:"packages,omitempty"`
	}
)

// IndexPath returns the path of the index file for the bakery at root.
func IndexPath(root string) string {
	return filepath.Join(root, IndexFileName)
}

// Exists reports whether the bakery at root has an index file.
func Exists(root string) bool {
	info, err := os.Stat(IndexPath(root))
	return err == nil && info.Mode().IsRegular()
}

// NewIndex returns an empty index. A blank nickname defaults to the base
// name of root.
func NewIndex(root, nickname string) *Index {
	if strings.TrimSpace(nickname) == "" {
		nickname = defaultNickname(root)
	}
	return &Index{
		nickname: nickname,
		entries:  make(map[bun.Name]bun.Metadata),
	}
}

// Load reads the bakery index at root. An absent index file yields an empty
// index; use Exists to tell the two apart.
func Load(root string) (*Index, error) {
	data, err := os.ReadFile(IndexPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIndex(root, ""), nil
		}
		return nil, fmt.Errorf("failed to read bakery index: %w", err)
	}
	return parseIndex(root, data)
}

func parseIndex(root string, data []byte) (*Index, error) {
	var f indexFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}
	idx := NewIndex(root, f.Nickname)
	for key, m := range f.Packages {
		switch m.Name {
		case "":
			m.Name = bun.Name(key)
		case bun.Name(key):
		default:
			return nil, fmt.Errorf("%w: entry %q is named %q", ErrMalformedIndex, key, m.Name)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrMalformedIndex, key, err)
		}
		idx.entries[m.Name] = m.Metadata
	}
	return idx, nil
}

// Init creates an empty index at root. It never overwrites an existing index:
// if one is present it returns *AlreadyExistsError and leaves the file as is.
func Init(root, nickname string) (*Index, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bakery directory: %w", err)
	}
	idx := NewIndex(root, nickname)
	data, err := idx.marshal()
	if err != nil {
		return nil, err
	}

	path := IndexPath(root)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &AlreadyExistsError{Path: path}
		}
		return nil, fmt.Errorf("failed to create bakery index: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path) // Best-effort cleanup of a half-written index
		return nil, fmt.Errorf("failed to write bakery index: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path) // Best-effort cleanup of a half-written index
		return nil, fmt.Errorf("failed to write bakery index: %w", err)
	}
	return idx, nil
}

// Save writes the index to root, replacing any existing index atomically.
func (idx *Index) Save(root string) error {
	data, err := idx.marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write atomically using temp file + rename
	path := IndexPath(root)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bakery index: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename bakery index: %w", err)
	}

	return nil
}

func (idx *Index) marshal() ([]byte, error) {
	f := indexFile{
		Nickname: idx.nickname,
		Packages: make(map[string]bun.Manifest, len(idx.entries)),
	}
	for name, meta := range idx.entries {
		f.Packages[string(name)] = bun.NewManifest(name, meta)
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bakery index: %w", err)
	}
	return data, nil
}

// Nickname returns the bakery's human-readable name.
func (idx *Index) Nickname() string { return idx.nickname }

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// List returns every entry as a manifest, sorted by name.
func (idx *Index) List() []bun.Manifest {
	out := make([]bun.Manifest, 0, len(idx.entries))
	for name, meta := range idx.entries {
		out = append(out, bun.NewManifest(name, meta))
	}
	slices.SortFunc(out, func(a, b bun.Manifest) int { return strings.Compare(string(a.Name), string(b.Name)) })
	return out
}

// Lookup returns the entry for name.
func (idx *Index) Lookup(name string) (bun.Manifest, bool) {
	meta, ok := idx.entries[bun.Name(name)]
	if !ok {
		return bun.Manifest{}, false
	}
	return bun.NewManifest(bun.Name(name), meta), true
}

// Upsert records m, replacing any entry with the same name. It reports
// whether the entry was added, updated or left unchanged.
func (idx *Index) Upsert(m bun.Manifest) UpsertOutcome {
	prev, ok := idx.entries[m.Name]
	idx.entries[m.Name] = m.Metadata
	switch {
	case !ok:
		return OutcomeAdded
	case prev == m.Metadata:
		return OutcomeUnchanged
	default:
		return OutcomeUpdated
	}
}

// UpsertOutcome is the effect of an Upsert on the index.
type UpsertOutcome int

const (
	// OutcomeAdded means the name was not in the index before.
	OutcomeAdded UpsertOutcome = iota
	// OutcomeUpdated means an entry with different metadata was replaced.
	OutcomeUpdated
	// OutcomeUnchanged means an identical entry was already present.
	OutcomeUnchanged
)

// Add validates each bun and upserts it into the index. The archive of an
// accepted bun is copied into root when it lives elsewhere; the original stays
// where it is. Rejected buns are reported and do not stop the batch.
//
// Add does not save the index. Once the index is saved, call
// AddResult.RemoveConsumed to delete the standalone manifests.
func (idx *Index) Add(root string, buns []*bun.Bun) AddResult {
	var res AddResult
	for _, b := range buns {
		if err := b.Validate(); err != nil {
			res.Rejected = append(res.Rejected, &ConsistencyError{Name: string(b.Name), Path: b.ArchivePath, Cause: err})
			continue
		}
		if err := placeArchive(root, b); err != nil {
			res.Rejected = append(res.Rejected, &ConsistencyError{Name: string(b.Name), Path: b.ArchivePath, Cause: err})
			continue
		}

		prev, had := idx.entries[b.Name]
		switch idx.Upsert(b.Manifest) {
		case OutcomeAdded:
			res.Added = append(res.Added, string(b.Name))
		case OutcomeUpdated:
			res.Updated = append(res.Updated, string(b.Name))
			if had && b.Manifest.Version.Compare(prev.Version) < 0 {
				res.Downgraded = append(res.Downgraded, string(b.Name))
			}
		case OutcomeUnchanged:
			res.Unchanged = append(res.Unchanged, string(b.Name))
		}
		res.Consumed = append(res.Consumed, b.ManifestPath)
	}
	return res
}

// Accepted returns the number of buns that made it into the index.
func (r *AddResult) Accepted() int {
	return len(r.Added) + len(r.Updated) + len(r.Unchanged)
}

// RemoveConsumed deletes the standalone manifests recorded by Add. Missing
// files are ignored.
func (r *AddResult) RemoveConsumed() error {
	var errs []error
	for _, path := range r.Consumed {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove manifest %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// placeArchive makes sure the bakery holds a copy of the bun's archive.
func placeArchive(root string, b *bun.Bun) error {
	dest := filepath.Join(root, b.Name.ArchiveFile())
	if samePath(b.ArchivePath, dest) {
		return nil
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create bakery directory: %w", err)
	}
	return copyFile(b.ArchivePath, dest)
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // Best-effort cleanup of temp file
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to place archive: %w", err)
	}
	return nil
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ai, bi)
}

func defaultNickname(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Base(root)
}
