package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"scriptify/internal/srctree"
)

// RenderSuccess returns the confirmation printed after a script is written,
// naming the commands that make it executable and run it.
func (s *Styles) RenderSuccess(outPath string) string {
	var sb strings.Builder
	sb.WriteString(s.SuccessStyle().Render("Success!"))
	sb.WriteString(" Wrote ")
	sb.WriteString(s.PathStyle().Render(outPath))
	sb.WriteString("\nYou may have to run\n ")
	sb.WriteString(s.CommandStyle().Render("$ chmod +x " + outPath))
	sb.WriteString("\nin order to make the script executable. Then just call\n ")
	sb.WriteString(s.CommandStyle().Render("$ " + runCommand(outPath)))
	sb.WriteString("\nto execute it.\n")
	return sb.String()
}

// runCommand returns how a shell would invoke outPath from the current directory.
func runCommand(outPath string) string {
	if strings.ContainsRune(outPath, '/') {
		return outPath
	}
	return "./" + outPath
}

// RenderError formats an error line for stderr.
func (s *Styles) RenderError(err error) string {
	return s.ErrorStyle().Render("error:") + " " + err.Error()
}

// RenderTree draws the loaded source tree with box-drawing guides. Files
// that are inlined without a module block are marked. Lines wider than
// width are truncated; width <= 0 disables truncation.
func (s *Styles) RenderTree(root srctree.Node, layout srctree.Layout, width int) string {
	var lines []string
	lines = append(lines, s.treeLabel(root, layout))
	if b, ok := root.(*srctree.Branch); ok {
		lines = s.appendChildren(lines, b, layout, "")
	}

	stats := srctree.Collect(root)
	lines = append(lines, "", s.MutedStyle().Render(fmt.Sprintf(
		"%d directories, %d files, %d bytes", stats.Dirs, stats.Files, stats.Bytes)))

	if width > 0 {
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, width, "…")
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func (s *Styles) appendChildren(lines []string, b *srctree.Branch, layout srctree.Layout, indent string) []string {
	for i, child := range b.Children {
		guide, next := "├── ", "│   "
		if i == len(b.Children)-1 {
			guide, next = "└── ", "    "
		}
		lines = append(lines, s.MutedStyle().Render(indent+guide)+s.treeLabel(child, layout))
		if cb, ok := child.(*srctree.Branch); ok {
			lines = s.appendChildren(lines, cb, layout, indent+next)
		}
	}
	return lines
}

func (s *Styles) treeLabel(node srctree.Node, layout srctree.Layout) string {
	switch n := node.(type) {
	case *srctree.Branch:
		return s.DirStyle().Render(n.DirName + "/")
	case *srctree.Leaf:
		if n.FileName == layout.EntryFile || n.FileName == layout.ModuleFile {
			return s.InfoStyle().Render(n.FileName) + s.MutedStyle().Render(" (inlined)")
		}
		return s.InfoStyle().Render(n.FileName)
	default:
		return node.Name()
	}
}

// Plain removes terminal styling from rendered text.
func Plain(s string) string {
	return ansi.Strip(s)
}
