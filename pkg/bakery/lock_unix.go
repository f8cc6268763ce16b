// SPDX-License-Identifier: MPL-2.0

//go:build unix

package bakery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// writeLock holds an exclusive flock on the bakery's lock file so two writers
// cannot interleave their load-modify-save cycles. The zero-byte lock file is
// harmless if orphaned: the kernel drops the flock when the fd is closed.
type writeLock struct {
	file *os.File
}

// acquireWriteLock opens (or creates) the lock file in root and blocks until
// the exclusive flock is granted.
func acquireWriteLock(root string) (*writeLock, error) {
	lockPath := filepath.Join(root, LockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &writeLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *writeLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		log.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		log.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
