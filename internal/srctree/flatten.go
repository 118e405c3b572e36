// pattern: Functional Core

package srctree

import (
	"fmt"
	"strings"
)

// Flatten serializes a tree into one source text.
//
//   - The entry file and module-root files are emitted as-is.
//   - Any other file becomes "mod <stem> {\n<content>\n}".
//   - The source directory is emitted as its children, each followed by "\n".
//   - Any other directory becomes "mod <name> {\n" + children + "}\n".
//
// Children are emitted in tree order; Flatten never sorts.
func Flatten(node Node, layout Layout) string {
	var sb strings.Builder
	writeNode(&sb, node, layout)
	return sb.String()
}

func writeNode(sb *strings.Builder, node Node, layout Layout) {
	switch n := node.(type) {
	case *Leaf:
		if layout.inlinedBare(n.FileName) {
			sb.WriteString(n.Content)
			return
		}
		openBlock(sb, layout.Keyword, moduleIdent(n.FileName))
		sb.WriteString(n.Content)
		sb.WriteString("\n}")
	case *Branch:
		wrapped := n.DirName != layout.SourceDir
		if wrapped {
			openBlock(sb, layout.Keyword, n.DirName)
		}
		for _, child := range n.Children {
			writeNode(sb, child, layout)
			sb.WriteByte('\n')
		}
		if wrapped {
			sb.WriteString("}\n")
		}
	default:
		panic(fmt.Sprintf("srctree: unknown node type %T", node))
	}
}

func openBlock(sb *strings.Builder, keyword, name string) {
	sb.WriteString(keyword)
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteString(" {\n")
}
