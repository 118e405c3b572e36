// pattern: Functional Core

package manifest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Summary is the subset of a Cargo manifest reported to the user.
type Summary struct {
	Name         string
	Version      string
	Edition      string
	Dependencies []string // Sorted names from [dependencies]
}

type cargoManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

// Describe decodes manifest TOML into a Summary.
func Describe(data []byte) (Summary, error) {
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Summary{}, fmt.Errorf("decode manifest: %w", err)
	}
	return Summary{
		Name:         m.Package.Name,
		Version:      m.Package.Version,
		Edition:      m.Package.Edition,
		Dependencies: slices.Sorted(maps.Keys(m.Dependencies)),
	}, nil
}

// String renders the summary as "name version (edition N), deps: a, b".
func (s Summary) String() string {
	var sb strings.Builder
	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	sb.WriteString(name)
	if s.Version != "" {
		sb.WriteString(" " + s.Version)
	}
	if s.Edition != "" {
		sb.WriteString(" (edition " + s.Edition + ")")
	}
	if len(s.Dependencies) == 0 {
		sb.WriteString(", no dependencies")
	} else {
		fmt.Fprintf(&sb, ", deps: %s", strings.Join(s.Dependencies, ", "))
	}
	return sb.String()
}
