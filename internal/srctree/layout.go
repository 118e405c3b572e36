// pattern: Functional Core

package srctree

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Child orderings understood by the loader.
const (
	// OrderFilesystem keeps whatever order the directory listing yields.
	OrderFilesystem = "filesystem"
	// OrderName sorts directory entries by name before recursing.
	OrderName = "name"
)

// Layout names the files and directories that get special treatment while
// loading and flattening a crate.
type Layout struct {
	SourceDir  string // Directory inlined without a module block ("src")
	EntryFile  string // Crate entry point inlined bare ("main.rs")
	ModuleFile string // Directory module root inlined bare ("mod.rs")
	Keyword    string // Module keyword ("mod")
	Manifest   string // Manifest file at the crate root ("Cargo.toml")
	Order      string // OrderFilesystem or OrderName
}

// DefaultLayout returns the conventional Cargo layout.
func DefaultLayout() Layout {
	return Layout{
		SourceDir:  "src",
		EntryFile:  "main.rs",
		ModuleFile: "mod.rs",
		Keyword:    "mod",
		Manifest:   "Cargo.toml",
		Order:      OrderFilesystem,
	}
}

// Validate reports an error for an empty name or an unknown order.
func (l Layout) Validate() error {
	for field, v := range map[string]string{
		"source_dir":  l.SourceDir,
		"entry_file":  l.EntryFile,
		"module_file": l.ModuleFile,
		"keyword":     l.Keyword,
		"manifest":    l.Manifest,
	} {
		if v == "" {
			return fmt.Errorf("layout: %s must not be empty", field)
		}
	}
	switch l.Order {
	case OrderFilesystem, OrderName:
		return nil
	default:
		return fmt.Errorf("layout: unknown order %q (want %q or %q)", l.Order, OrderFilesystem, OrderName)
	}
}

// inlinedBare reports whether a file is emitted without a wrapping block.
func (l Layout) inlinedBare(name string) bool {
	return name == l.EntryFile || name == l.ModuleFile
}

// moduleIdent derives the module name of a file by dropping its extension.
func moduleIdent(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

var defaultDecl = compileDecl("mod")

func compileDecl(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`^(pub )?` + regexp.QuoteMeta(keyword) + ` [A-Za-z_][A-Za-z0-9_]*;$`)
}

// declPattern matches a bare child-module declaration such as "pub mod foo;".
func (l Layout) declPattern() *regexp.Regexp {
	if l.Keyword == "mod" {
		return defaultDecl
	}
	return compileDecl(l.Keyword)
}
