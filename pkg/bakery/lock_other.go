// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package bakery

// writeLock is a no-op where flock is unavailable. Writers still never expose
// a partial index because Save replaces the file by rename.
type writeLock struct{}

func acquireWriteLock(string) (*writeLock, error) {
	return &writeLock{}, nil
}

// Release is a no-op.
func (l *writeLock) Release() {}
