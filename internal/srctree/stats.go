// pattern: Functional Core

package srctree

// Stats summarizes a loaded tree.
type Stats struct {
	Files    int
	Dirs     int
	Bytes    int // Total bytes of normalized content
	MaxDepth int // Depth of the deepest node; the root is depth 0
}

// Collect walks the tree and returns its Stats.
func Collect(node Node) Stats {
	var s Stats
	collect(&s, node, 0)
	return s
}

func collect(s *Stats, node Node, depth int) {
	s.MaxDepth = max(s.MaxDepth, depth)
	switch n := node.(type) {
	case *Leaf:
		s.Files++
		s.Bytes += len(n.Content)
	case *Branch:
		s.Dirs++
		for _, child := range n.Children {
			collect(s, child, depth+1)
		}
	}
}
