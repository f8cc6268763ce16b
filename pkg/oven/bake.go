// SPDX-License-Identifier: MPL-2.0

package oven

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/onyxware/bao/pkg/bun"
	"github.com/onyxware/bao/pkg/pymeta"
)

type (
	// Option configures a bake.
	Option func(*options)

	options struct {
		fs        afero.Fs
		exclude   []string
		outputDir string
		logger    *log.Logger
	}

	// source is a baked input resolved to its entrypoint and archive contents.
	source struct {
		name       bun.Name
		entrypoint []byte
		files      []bun.ArchiveFile
	}
)

// WithFs sets the filesystem the source tree is read from and the outputs are
// written to. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithExclude skips files and directories whose base name matches any of the
// filepath.Match patterns. The entrypoint is never excluded.
func WithExclude(patterns ...string) Option {
	return func(o *options) {
		o.exclude = append(o.exclude, patterns...)
	}
}

// WithOutputDir writes the archive and manifest into dir instead of the
// parent directory of the input.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outputDir = dir
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Bake packages the script or directory at root into a bun. On success the
// archive and manifest exist side by side; on failure neither is left behind.
// The source tree is never modified.
func Bake(root string, opts ...Option) (*bun.Bun, error) {
	o := options{
		fs:     afero.NewOsFs(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&o)
	}

	// "." and ".." name nothing; the bun name comes from the resolved path.
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &BuildError{Kind: KindIO, Path: root, Err: err}
	}
	root = abs
	src, err := o.collect(root)
	if err != nil {
		return nil, err
	}

	meta, err := pymeta.Extract(src.entrypoint)
	if err != nil {
		return nil, &BuildError{Kind: KindExtraction, Path: filepath.Join(root, src.name.EntrypointFile()), Err: err}
	}
	if !meta.License.IsSPDX() {
		o.logger.Warn("license is not an SPDX expression", "name", src.name, "license", meta.License)
	}
	manifest := bun.NewManifest(src.name, meta)
	manifestData, err := manifest.Marshal()
	if err != nil {
		return nil, &BuildError{Kind: KindIO, Path: root, Err: err}
	}

	var archive bytes.Buffer
	if err := bun.WriteArchive(&archive, src.files, string(manifestData)); err != nil {
		return nil, &BuildError{Kind: KindIO, Path: root, Err: err}
	}

	outDir := o.outputDir
	if outDir == "" {
		outDir = filepath.Dir(root)
	}
	b := &bun.Bun{
		Name:         src.name,
		ArchivePath:  filepath.Join(outDir, src.name.ArchiveFile()),
		ManifestPath: filepath.Join(outDir, src.name.ManifestFile()),
		Manifest:     manifest,
	}
	if err := o.writePair(b, archive.Bytes(), manifestData); err != nil {
		return nil, &BuildError{Kind: KindIO, Path: outDir, Err: err}
	}

	o.logger.Debug("baked bun", "name", b.Name, "version", meta.Version, "files", len(src.files), "archive", b.ArchivePath)
	return b, nil
}

// collect resolves the entrypoint and gathers every file that goes into the archive.
func (o *options) collect(root string) (*source, error) {
	info, err := o.fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &BuildError{Kind: KindNoEntrypoint, Path: root, Err: err}
		}
		return nil, &BuildError{Kind: KindIO, Path: root, Err: err}
	}

	if !info.IsDir() {
		if filepath.Ext(root) != bun.EntrypointExt {
			return nil, &BuildError{Kind: KindNoEntrypoint, Path: root,
				Err: fmt.Errorf("entrypoint must be a %s file", bun.EntrypointExt)}
		}
		name := bun.Name(strings.TrimSuffix(filepath.Base(root), bun.EntrypointExt))
		if err := name.Validate(); err != nil {
			return nil, &BuildError{Kind: KindInvalidName, Path: root, Err: err}
		}
		data, err := afero.ReadFile(o.fs, root)
		if err != nil {
			return nil, &BuildError{Kind: KindIO, Path: root, Err: err}
		}
		return &source{
			name:       name,
			entrypoint: data,
			files:      []bun.ArchiveFile{{Path: name.EntrypointFile(), Data: data}},
		}, nil
	}

	name := bun.Name(filepath.Base(root))
	if err := name.Validate(); err != nil {
		return nil, &BuildError{Kind: KindInvalidName, Path: root, Err: err}
	}
	entryPath := filepath.Join(root, name.EntrypointFile())
	entryInfo, err := o.fs.Stat(entryPath)
	if err != nil || !entryInfo.Mode().IsRegular() {
		return nil, &BuildError{Kind: KindNoEntrypoint, Path: root,
			Err: fmt.Errorf("directory %s must contain %s", filepath.Base(root), name.EntrypointFile())}
	}

	src := &source{name: name}
	walkErr := afero.Walk(o.fs, root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != name.EntrypointFile() && o.excluded(fi.Name()) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() {
			return nil
		}
		if !fi.Mode().IsRegular() {
			o.logger.Debug("skipping non-regular file", "path", path)
			return nil
		}
		data, err := afero.ReadFile(o.fs, path)
		if err != nil {
			return err
		}
		if rel == name.EntrypointFile() {
			src.entrypoint = data
		}
		src.files = append(src.files, bun.ArchiveFile{Path: rel, Data: data})
		return nil
	})
	if walkErr != nil {
		return nil, &BuildError{Kind: KindIO, Path: root, Err: walkErr}
	}
	return src, nil
}

func (o *options) excluded(base string) bool {
	for _, pattern := range o.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// writePair writes the archive and manifest through temporary files and
// renames them into place. An archive replaced by a re-bake is kept aside
// until the manifest is placed, so a failure restores the previous pair
// instead of leaving a manifest without its archive.
func (o *options) writePair(b *bun.Bun, archive, manifest []byte) (err error) {
	outDir := filepath.Dir(b.ArchivePath)
	if err := o.fs.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	archiveTmp, err := o.writeTemp(outDir, string(b.Name)+bun.ArchiveExt, archive)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = o.fs.Remove(archiveTmp) // Best-effort cleanup of temp file
		}
	}()
	manifestTmp, err := o.writeTemp(outDir, string(b.Name)+bun.ManifestExt, manifest)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = o.fs.Remove(manifestTmp) // Best-effort cleanup of temp file
		}
	}()

	var previous string
	if ok, _ := afero.Exists(o.fs, b.ArchivePath); ok {
		previous = archiveTmp + ".prev"
		if err := o.fs.Rename(b.ArchivePath, previous); err != nil {
			return fmt.Errorf("moving previous archive aside: %w", err)
		}
	}
	restore := func() {
		if previous != "" {
			_ = o.fs.Rename(previous, b.ArchivePath) // Best-effort restore of the previous archive
			return
		}
		_ = o.fs.Remove(b.ArchivePath) // Never leave an archive without its manifest
	}

	if err := o.fs.Rename(archiveTmp, b.ArchivePath); err != nil {
		restore()
		return fmt.Errorf("placing archive: %w", err)
	}
	if err := o.fs.Rename(manifestTmp, b.ManifestPath); err != nil {
		restore()
		return fmt.Errorf("placing manifest: %w", err)
	}
	if previous != "" {
		_ = o.fs.Remove(previous) // Best-effort cleanup of the replaced archive
	}
	return nil
}

func (o *options) writeTemp(dir, base string, data []byte) (path string, err error) {
	f, err := afero.TempFile(o.fs, dir, "."+base+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path = f.Name()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = o.fs.Remove(path) // Best-effort cleanup of temp file
		}
	}()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("writing %s: %w", base, err)
	}
	return path, nil
}
