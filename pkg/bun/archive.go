// SPDX-License-Identifier: MPL-2.0

package bun

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"
)

// archiveModTime is stamped on every archive entry so that archives built from
// identical inputs are byte-identical.
var archiveModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type (
	// ArchiveFile is a single file to be stored in a bun archive.
	ArchiveFile struct {
		// Path is the slash-separated path inside the archive.
		Path string
		Data []byte
	}

	// ArchiveInfo describes the contents of an existing archive.
	ArchiveInfo struct {
		// Entries lists the file paths stored in the archive, in archive order.
		Entries []string
		// Comment is the archive comment, which holds the bun manifest.
		Comment string
	}
)

// WriteArchive writes files as a deterministic zip archive: entries are sorted by
// path and carry a fixed timestamp and mode. comment is stored as the archive
// comment.
func WriteArchive(w io.Writer, files []ArchiveFile, comment string) error {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b ArchiveFile) int { return strings.Compare(a.Path, b.Path) })

	zw := zip.NewWriter(w)
	for i, f := range sorted {
		if i > 0 && sorted[i-1].Path == f.Path {
			return fmt.Errorf("duplicate archive entry %q", f.Path)
		}
		if err := checkEntryPath(f.Path); err != nil {
			return err
		}
		header := &zip.FileHeader{
			Name:     f.Path,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		}
		header.SetMode(0o644)
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("creating archive entry %s: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("writing archive entry %s: %w", f.Path, err)
		}
	}
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			return fmt.Errorf("setting archive comment: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// ReadArchive opens the zip archive at archivePath and lists its entries.
func ReadArchive(archivePath string) (info *ArchiveInfo, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	info = &ArchiveInfo{Comment: zr.Comment}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		info.Entries = append(info.Entries, f.Name)
	}
	return info, nil
}

// Contains reports whether the archive holds a file at the given slash path.
func (a *ArchiveInfo) Contains(name string) bool {
	return slices.Contains(a.Entries, name)
}

// checkEntryPath rejects entry names that would escape the extraction root.
func checkEntryPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return fmt.Errorf("invalid archive entry path %q", p)
	}
	if cleaned := path.Clean(p); cleaned != p || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("invalid archive entry path %q", p)
	}
	return nil
}
