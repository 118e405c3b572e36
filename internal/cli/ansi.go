// pattern: Functional Core
package cli

import (
	"io"

	"scriptify/internal/tui"
)

// StripANSI removes ANSI escape sequences from the given string.
func StripANSI(s string) string {
	return tui.Plain(s)
}

// plainWriter strips terminal styling from everything written through it.
// Used for --no-color.
type plainWriter struct {
	w io.Writer
}

func (p plainWriter) Write(b []byte) (int, error) {
	if _, err := io.WriteString(p.w, StripANSI(string(b))); err != nil {
		return 0, err
	}
	return len(b), nil
}
