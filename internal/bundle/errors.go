// pattern: Functional Core

package bundle

import "errors"

var (
	// ErrPathResolution means the crate root does not exist or cannot be reached.
	ErrPathResolution = errors.New("cannot resolve path")

	// ErrNotADirectory means the crate root exists but is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrOutputInSource means the output path lies inside the source
	// directory, where the script would be loaded back into itself.
	ErrOutputInSource = errors.New("output path is inside the source directory")
)
