// pattern: Imperative Shell

package srctree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"scriptify/internal/logging"
)

// Loader reads a directory tree into Nodes.
type Loader struct {
	layout Layout
	logger *logging.ScopedLogger
}

// NewLoader creates a loader for the given layout. A nil logger disables logging.
func NewLoader(layout Layout, logger *logging.ScopedLogger) *Loader {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Loader{layout: layout, logger: logger}
}

// Load reads path with a default-configured Loader.
func Load(path string, layout Layout) (Node, error) {
	return NewLoader(layout, nil).Load(path)
}

// Load reads path recursively. A regular file becomes a *Leaf holding its
// cleaned content; a directory becomes a *Branch whose children follow the
// layout's order. The first failure aborts the walk.
func (ld *Loader) Load(path string) (Node, error) {
	name, err := baseName(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, ioError("stat", path, err)
	}

	switch {
	case info.Mode().IsRegular():
		return ld.loadFile(path, name)
	case info.IsDir():
		return ld.loadDir(path, name)
	default:
		return nil, fmt.Errorf("load %s: %w: unsupported file type %s", path, ErrIO, info.Mode().Type())
	}
}

func (ld *Loader) loadFile(path, name string) (*Leaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, ioError("read", path, err)
	}

	ld.logger.Debug("loaded file", "path", path, "bytes", len(data))
	return &Leaf{FileName: name, Content: ld.layout.Clean(string(data))}, nil
}

func (ld *Loader) loadDir(path, name string) (*Branch, error) {
	entries, err := readDirNames(path)
	if err != nil {
		return nil, err
	}
	if ld.layout.Order == OrderName {
		slices.Sort(entries)
	}

	branch := &Branch{DirName: name, Children: make([]Node, 0, len(entries))}
	for _, entry := range entries {
		child, err := ld.Load(filepath.Join(path, entry))
		if err != nil {
			return nil, err
		}
		branch.Children = append(branch.Children, child)
	}

	ld.logger.Debug("loaded directory", "path", path, "children", len(branch.Children))
	return branch, nil
}

// readDirNames lists a directory in the order the OS returns entries
// (os.ReadDir would sort them).
func readDirNames(path string) ([]string, error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, ioError("read directory", path, err)
	}
	return names, nil
}

// baseName returns the last element of path, or ErrNaming when there is none.
func baseName(path string) (string, error) {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == ".." || strings.ContainsRune(base, filepath.Separator) {
		return "", fmt.Errorf("load %q: %w", path, ErrNaming)
	}
	return base, nil
}
