// pattern: Functional Core

package srctree

import (
	"regexp"
	"strings"
)

// Lines splits s into lines. Lines end at "\n" and a trailing "\r" is
// dropped; a final newline does not start an extra empty line.
func Lines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Clean removes bare module declarations ("mod foo;", "pub mod foo;") from
// content using the default keyword. See Layout.Clean.
func Clean(content string) string {
	return cleanWith(defaultDecl, content)
}

// Clean removes every line that only declares a child module. Those modules
// are inlined as blocks, so the declaration would define them twice.
//
// Other lines are kept verbatim and in order and joined by "\n". Trailing
// empty lines are dropped, so the result never ends with a newline and
// cleaning twice gives the same text as cleaning once.
func (l Layout) Clean(content string) string {
	return cleanWith(l.declPattern(), content)
}

func cleanWith(decl *regexp.Regexp, content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if decl.MatchString(strings.TrimSuffix(line, "\r")) {
			continue
		}
		kept = append(kept, line)
	}
	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "\n")
}
