package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"scriptify/internal/logging"
	"scriptify/internal/srctree"
)

func setupCrate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	for path, content := range map[string]string{
		"Cargo.toml":  "[dependencies]\n",
		"src/main.rs": "fn main(){}",
	} {
		if err := os.WriteFile(filepath.Join(root, path), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// startWatcher runs a watcher in the background and returns a channel that
// receives one value per build.
func startWatcher(t *testing.T, root string) <-chan struct{} {
	t.Helper()
	builds := make(chan struct{}, 16)
	w, err := New(Config{
		Root:     root,
		Layout:   srctree.DefaultLayout(),
		Debounce: 20 * time.Millisecond,
		Build: func(context.Context) error {
			builds <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return builds
}

func waitBuild(t *testing.T, builds <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-builds:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s build", what)
	}
}

func TestWatcher_InitialBuildAndRebuildOnChange(t *testing.T) {
	root := setupCrate(t)
	builds := startWatcher(t, root)

	waitBuild(t, builds, "initial")

	if err := os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte("fn main(){ }"), 0644); err != nil {
		t.Fatal(err)
	}
	waitBuild(t, builds, "source change")

	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[dependencies]\nx = \"1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitBuild(t, builds, "manifest change")
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := setupCrate(t)
	builds := startWatcher(t, root)
	waitBuild(t, builds, "initial")

	dir := filepath.Join(root, "src", "net")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	waitBuild(t, builds, "new directory")

	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "tcp.rs"), []byte("pub fn dial(){}"), 0644); err != nil {
		t.Fatal(err)
	}
	waitBuild(t, builds, "file in new directory")
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	root := setupCrate(t)
	builds := startWatcher(t, root)
	waitBuild(t, builds, "initial")

	if err := os.WriteFile(filepath.Join(root, "script.rs"), []byte("output"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-builds:
		t.Fatal("writing outside the source tree should not trigger a build")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_BuildErrorsDoNotStop(t *testing.T) {
	root := setupCrate(t)

	lm := logging.NewTestLogManager(100)
	defer lm.Close()

	var calls atomic.Int32
	w, err := New(Config{
		Root:     root,
		Layout:   srctree.DefaultLayout(),
		Debounce: 20 * time.Millisecond,
		Build: func(context.Context) error {
			calls.Add(1)
			return os.ErrNotExist
		},
		Logger: lm.For("watch"),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte("fn main(){ }"), 0644); err != nil {
		t.Fatal(err)
	}
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls.Load() < 2 {
		t.Fatalf("build called %d times, want at least 2", calls.Load())
	}

	found := false
	for _, msg := range lm.Messages() {
		if msg == "rebuild failed" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'rebuild failed' log entry")
	}
}

func TestNew_RequiresBuild(t *testing.T) {
	if _, err := New(Config{Root: t.TempDir()}); err == nil {
		t.Error("New() without Build should fail")
	}
}

func TestWatcher_MissingSourceDir(t *testing.T) {
	root := t.TempDir()
	w, err := New(Config{
		Root:   root,
		Layout: srctree.DefaultLayout(),
		Build:  func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() should fail when the source directory is missing")
	}
}
