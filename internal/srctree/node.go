// pattern: Functional Core

// Package srctree loads a crate's source directory into an in-memory tree and
// flattens that tree into a single source text of nested module blocks.
package srctree

// Node is one entry of a loaded source tree. It is implemented only by *Leaf
// and *Branch; walks over a tree switch on those two types.
type Node interface {
	// Name returns the bare file or directory name.
	Name() string
	sealed()
}

// Leaf is a single source file with its normalized content.
type Leaf struct {
	FileName string // Base name including extension (e.g. "foo.rs")
	Content  string // Normalized file text
}

// Branch is a directory. Children keep the order they were loaded in.
type Branch struct {
	DirName  string
	Children []Node
}

// Name returns the file's base name.
func (l *Leaf) Name() string { return l.FileName }

// Name returns the directory's base name.
func (b *Branch) Name() string { return b.DirName }

func (*Leaf) sealed()   {}
func (*Branch) sealed() {}
