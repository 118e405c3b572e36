// pattern: Imperative Shell

// Package bundle runs the whole flattening pipeline: it resolves a crate
// root, builds the manifest header, loads and flattens the source tree, and
// writes the resulting script.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scriptify/internal/instance"
	"scriptify/internal/logging"
	"scriptify/internal/manifest"
	"scriptify/internal/srctree"
)

// Options configures a build.
type Options struct {
	RootDir string // Crate root containing the manifest and source dir
	OutPath string // Destination script; only used by Run
	Mode    os.FileMode
	Layout  srctree.Layout
	Logger  *logging.ScopedLogger

	// Progress receives one line per pipeline stage. Nil discards them.
	Progress io.Writer
}

// Result is a fully assembled script held in memory.
type Result struct {
	Root    string           // Canonical crate root
	Header  string           // Manifest header
	Body    string           // Flattened source tree
	Summary manifest.Summary // Zero when the manifest could not be decoded
	Tree    srctree.Node     // Loaded source tree
	Stats   srctree.Stats
}

// Bytes returns the complete script.
func (r *Result) Bytes() []byte {
	return []byte(r.Header + r.Body)
}

// Resolve turns rootDir into an absolute path with symlinks resolved.
func Resolve(rootDir string) (string, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", rootDir, ErrPathResolution, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", rootDir, ErrPathResolution, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", rootDir, ErrPathResolution, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", resolved, ErrNotADirectory)
	}
	return resolved, nil
}

// CheckOutPath fails with ErrOutputInSource when outPath lies inside the
// source directory of the canonical crate root.
func CheckOutPath(root string, layout srctree.Layout, outPath string) error {
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", outPath, ErrPathResolution, err)
	}
	// The output may not exist yet; resolve symlinks through its directory.
	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	abs = filepath.Join(dir, filepath.Base(abs))

	src := filepath.Join(root, layout.SourceDir)
	rel, err := filepath.Rel(src, abs)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("%s: %w", outPath, ErrOutputInSource)
	}
	return nil
}

// Build assembles the script for opts.RootDir in memory.
func Build(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}

	root, err := Resolve(opts.RootDir)
	if err != nil {
		return nil, err
	}
	logger = logger.With("root", root)
	logger.Info("scriptifying crate")
	progress(opts.Progress, "Scriptifying %s/", root)

	manifestData, err := manifest.ReadFile(filepath.Join(root, opts.Layout.Manifest))
	if err != nil {
		return nil, err
	}
	header := manifest.Header(string(manifestData))

	summary, err := manifest.Describe(manifestData)
	if err != nil {
		logger.Warn("manifest is not valid TOML, embedding it verbatim", "error", err)
	} else {
		logger.Info("generated manifest", "package", summary.Name, "dependencies", len(summary.Dependencies))
	}
	progress(opts.Progress, "Generated manifest")

	loader := srctree.NewLoader(opts.Layout, logger)
	tree, err := loader.Load(filepath.Join(root, opts.Layout.SourceDir))
	if err != nil {
		return nil, err
	}

	body := srctree.Flatten(tree, opts.Layout)
	stats := srctree.Collect(tree)
	logger.Info("merged source files", "files", stats.Files, "dirs", stats.Dirs, "bytes", len(body))
	progress(opts.Progress, "Merged source files")

	return &Result{
		Root:    root,
		Header:  header,
		Body:    body,
		Summary: summary,
		Tree:    tree,
		Stats:   stats,
	}, nil
}

func progress(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format+"\n", args...)
	}
}

// Write stores the script at outPath. The content goes to a temporary file
// next to outPath that is renamed into place, so outPath is either the old
// file or the complete new one.
func Write(res *Result, outPath string, mode os.FileMode) (err error) {
	if mode == 0 {
		mode = 0o644
	}
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", outPath, srctree.ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(res.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w: %w", outPath, srctree.ErrIO, err)
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w: %w", outPath, srctree.ErrIO, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w: %w", outPath, srctree.ErrIO, err)
	}
	if err = os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("write %s: %w: %w", outPath, srctree.ErrIO, err)
	}
	return nil
}

// Run builds the script and writes it to opts.OutPath while holding the
// output lock.
func Run(opts Options) (*Result, error) {
	if opts.OutPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	root, err := Resolve(opts.RootDir)
	if err != nil {
		return nil, err
	}
	if err := CheckOutPath(root, opts.Layout, opts.OutPath); err != nil {
		return nil, err
	}

	fl, err := instance.Lock(opts.OutPath)
	if err != nil {
		return nil, err
	}
	defer instance.Cleanup(opts.OutPath, fl)

	res, err := Build(opts)
	if err != nil {
		return nil, err
	}
	if err := Write(res, opts.OutPath, opts.Mode); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Info("wrote script", "out", opts.OutPath, "bytes", len(res.Header)+len(res.Body))
	}
	return res, nil
}
