// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/onyxware/bao/pkg/bun"
	"github.com/onyxware/bao/pkg/oven"
)

const (
	inputBaked inputKind = iota
	inputNeedsBaking
)

type (
	// AddOption configures AddPaths.
	AddOption func(*addOptions)

	addOptions struct {
		bakeOpts []oven.Option
		logger   *log.Logger
	}

	inputKind int

	// input is a path classified up front so the merge step only ever sees
	// baked buns.
	input struct {
		kind inputKind
		path string
	}
)

// WithBakeOptions passes options to the implicit bakes of unbaked inputs.
func WithBakeOptions(opts ...oven.Option) AddOption {
	return func(o *addOptions) {
		o.bakeOpts = append(o.bakeOpts, opts...)
	}
}

// WithLogger sets the logger used for progress output.
func WithLogger(l *log.Logger) AddOption {
	return func(o *addOptions) {
		o.logger = l
	}
}

// AddPaths adds the buns at paths to the bakery at root. Each path may be an
// archive or manifest of a baked bun, a directory next to its baked pair, or
// an unbaked directory or script, which is baked first.
//
// The whole cycle runs under the bakery's write lock. Inputs that cannot be
// baked or fail validation are reported in AddResult.Rejected; the remaining
// inputs are still added. The returned error is non-nil only when the index
// itself could not be loaded or saved.
func AddPaths(ctx context.Context, root string, paths []string, opts ...AddOption) (AddResult, error) {
	o := addOptions{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}

	if !Exists(root) {
		return AddResult{}, fmt.Errorf("%w: %s", ErrNotFound, IndexPath(root))
	}
	lock, err := acquireWriteLock(root)
	if err != nil {
		return AddResult{}, err
	}
	defer lock.Release()

	idx, err := Load(root)
	if err != nil {
		return AddResult{}, err
	}

	inputs, rejected := classify(paths)
	buns := make([]*bun.Bun, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return AddResult{}, fmt.Errorf("add canceled: %w", err)
		}
		b, err := o.resolve(in)
		if err != nil {
			rejected = append(rejected, &ConsistencyError{Name: nameOf(in.path), Path: in.path, Cause: err})
			continue
		}
		buns = append(buns, b)
	}

	res := idx.Add(root, buns)
	res.Rejected = append(rejected, res.Rejected...)
	if res.Accepted() == 0 {
		return res, nil
	}

	if err := idx.Save(root); err != nil {
		return res, err
	}
	if err := res.RemoveConsumed(); err != nil {
		o.logger.Warn("some manifests were not cleaned up", "error", err)
	}
	o.logger.Debug("bakery updated", "root", root,
		"added", len(res.Added), "updated", len(res.Updated), "unchanged", len(res.Unchanged), "rejected", len(res.Rejected))
	return res, nil
}

func (o *addOptions) resolve(in input) (*bun.Bun, error) {
	if in.kind == inputNeedsBaking {
		o.logger.Info("baking", "path", in.path)
		return oven.Bake(in.path, append(o.bakeOpts, oven.WithLogger(o.logger))...)
	}
	return bun.Open(in.path)
}

// classify sorts paths into baked and unbaked inputs. Inputs that resolve to
// the same bun (a directory, its archive and its manifest) are kept once, and
// bakery bookkeeping files are skipped.
func classify(paths []string) ([]input, []*ConsistencyError) {
	var (
		inputs   []input
		rejected []*ConsistencyError
		seen     = make(map[string]bool)
	)
	for _, p := range paths {
		p = filepath.Clean(p)
		if isBakeryFile(p) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			rejected = append(rejected, &ConsistencyError{Name: nameOf(p), Path: p, Cause: err})
			continue
		}

		key := strings.TrimSuffix(p, filepath.Ext(p))
		if info.IsDir() {
			key = p
		}
		if seen[key] {
			continue
		}

		var in input
		switch ext := filepath.Ext(p); {
		case info.IsDir(), ext == bun.EntrypointExt:
			in = input{kind: inputNeedsBaking, path: p}
			if hasBakedPair(key) {
				in = input{kind: inputBaked, path: key + bun.ManifestExt}
			}
		case ext == bun.ArchiveExt, ext == bun.ManifestExt:
			in = input{kind: inputBaked, path: p}
		default:
			rejected = append(rejected, &ConsistencyError{Name: nameOf(p), Path: p,
				Cause: errors.New("not a bun archive, manifest, script or directory")})
			continue
		}
		seen[key] = true
		inputs = append(inputs, in)
	}
	return inputs, rejected
}

// isBakeryFile reports whether path is the index or lock file of a bakery,
// as picked up by "bao bakery add *" run in a bakery root.
func isBakeryFile(path string) bool {
	switch filepath.Base(path) {
	case IndexFileName, LockFileName, IndexFileName + ".tmp":
		return true
	}
	return false
}

func hasBakedPair(base string) bool {
	archivePath, manifestPath := bun.PairPaths(base)
	for _, p := range []string{archivePath, manifestPath} {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return true
}

func nameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
