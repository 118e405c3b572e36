// pattern: Imperative Shell

// Package instance makes sure only one scriptify process writes a given
// output file at a time.
package instance

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

const lockSuffix = ".lock"

// ErrBusy is returned when another process holds the output lock.
var ErrBusy = errors.New("another scriptify process is writing this output")

// LockPath returns the lock file path guarding outPath.
func LockPath(outPath string) string {
	return outPath + lockSuffix
}

// Lock acquires an exclusive, non-blocking lock for outPath.
// The caller must call Cleanup with the returned handle.
func Lock(outPath string) (*flock.Flock, error) {
	fl := flock.New(LockPath(outPath))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", outPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", outPath, ErrBusy)
	}
	return fl, nil
}

// Cleanup releases the lock. The lock file stays in place: unlinking it
// would let a process that already opened it lock an orphaned inode while
// another locks a fresh file.
func Cleanup(outPath string, fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

// RemoveStale removes a lock file nobody holds, such as one left behind by
// a finished or crashed process. It reports whether a file was removed, and
// fails with ErrBusy when a live process still holds the lock.
func RemoveStale(outPath string) (bool, error) {
	path := LockPath(outPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	fl, err := Lock(outPath)
	if err != nil {
		return false, err
	}
	defer Cleanup(outPath, fl)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}
