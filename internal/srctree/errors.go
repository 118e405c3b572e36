// pattern: Functional Core

package srctree

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks a failure to open, stat or read a path during the walk.
	ErrIO = errors.New("i/o error")

	// ErrNaming marks a path that has no extractable base name.
	ErrNaming = errors.New("path has no base name")
)

// ioError wraps err so that it matches both ErrIO and the underlying cause.
func ioError(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}
