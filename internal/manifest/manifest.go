// pattern: Functional Core

// Package manifest turns a Cargo.toml into the rust-script header that embeds
// it, and summarizes its contents.
package manifest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"scriptify/internal/srctree"
)

// Fixed pieces of the generated header.
const (
	Shebang    = "#!/usr/bin/env nix-shell"
	LinePrefix = "//! "
	FenceOpen  = LinePrefix + "```cargo"
	FenceClose = LinePrefix + "```"
	// Reinvoke is the nix-shell directive block that re-runs the script
	// through rust-script.
	Reinvoke = "/*\n#!nix-shell -i rust-script -p rustc -p rust-script -p cargo\n*/\n"
)

// Header builds the script header around the manifest text. Each manifest
// line is copied verbatim behind LinePrefix.
func Header(manifest string) string {
	var sb strings.Builder
	sb.WriteString(Shebang)
	sb.WriteByte('\n')
	sb.WriteString(FenceOpen)
	sb.WriteByte('\n')
	for _, line := range srctree.Lines(manifest) {
		sb.WriteString(LinePrefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(FenceClose)
	sb.WriteByte('\n')
	sb.WriteString(Reinvoke)
	return sb.String()
}

// Generate reads a manifest from r and returns its header.
func Generate(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w: %w", srctree.ErrIO, err)
	}
	return Header(string(data)), nil
}

// GenerateFile reads the manifest at path and returns its header.
func GenerateFile(path string) (string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return Header(string(data)), nil
}

// ReadFile reads a manifest, reporting failures as srctree.ErrIO.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w: %w", path, srctree.ErrIO, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w: %w", path, srctree.ErrIO, err)
	}
	return data, nil
}
