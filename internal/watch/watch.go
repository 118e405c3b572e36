// pattern: Imperative Shell

// Package watch rebuilds a script whenever the crate it comes from changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"scriptify/internal/logging"
	"scriptify/internal/srctree"
)

// BuildFunc performs one full rebuild.
type BuildFunc func(ctx context.Context) error

// Config configures a Watcher.
type Config struct {
	Root     string         // Canonical crate root
	Layout   srctree.Layout // Locates the manifest and source directory
	Debounce time.Duration  // Quiet period before a rebuild (default 200ms)
	Build    BuildFunc
	Logger   *logging.ScopedLogger
}

// Watcher watches the manifest and every directory of the source tree.
// Each burst of changes triggers one full rebuild; there is no incremental
// state between builds.
type Watcher struct {
	cfg      Config
	manifest string
	srcDir   string
	watcher  *fsnotify.Watcher
	logger   *logging.ScopedLogger
}

// New creates a Watcher. Call Run to start it.
func New(cfg Config) (*Watcher, error) {
	if cfg.Build == nil {
		return nil, fmt.Errorf("watch: Build is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		manifest: filepath.Join(cfg.Root, cfg.Layout.Manifest),
		srcDir:   filepath.Join(cfg.Root, cfg.Layout.SourceDir),
		watcher:  watcher,
		logger:   logger,
	}, nil
}

// Run builds once, then rebuilds after every relevant change until ctx is
// cancelled. Build failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// The root is watched for the manifest; the source tree for everything else.
	if err := w.watcher.Add(w.cfg.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Root, err)
	}
	if err := w.addTree(w.srcDir); err != nil {
		return err
	}

	w.build(ctx, "initial")

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()
	var trigger string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			trigger = event.Name
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			w.build(ctx, trigger)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) build(ctx context.Context, trigger string) {
	start := time.Now()
	if err := w.cfg.Build(ctx); err != nil {
		w.logger.Error("rebuild failed", "trigger", trigger, "error", err)
		return
	}
	w.logger.Info("rebuilt", "trigger", trigger, "duration", time.Since(start).String())
}

// relevant reports whether a change to path can affect the script.
func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	return path == w.manifest ||
		path == w.srcDir ||
		strings.HasPrefix(path, w.srcDir+string(filepath.Separator))
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
