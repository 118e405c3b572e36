package bundle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scriptify/internal/instance"
	"scriptify/internal/logging"
	"scriptify/internal/manifest"
	"scriptify/internal/srctree"
)

func writeCrate(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func nameOrder() srctree.Layout {
	l := srctree.DefaultLayout()
	l.Order = srctree.OrderName
	return l
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_Relative(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "crate"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	got, err := Resolve("crate")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "crate" {
		t.Errorf("Resolve(crate) = %q, want absolute path ending in crate", got)
	}
}

func TestResolve_Missing(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrPathResolution) {
		t.Errorf("Resolve() error = %v, want ErrPathResolution", err)
	}
}

func TestResolve_File(t *testing.T) {
	root := writeCrate(t, map[string]string{"Cargo.toml": ""})
	_, err := Resolve(filepath.Join(root, "Cargo.toml"))
	if !errors.Is(err, ErrNotADirectory) {
		t.Errorf("Resolve() error = %v, want ErrNotADirectory", err)
	}
}

func TestBuild(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "[package]\nname = \"demo\"\n\n[dependencies]\nx = \"1.0\"\n",
		"src/main.rs": "mod foo;\nfn main(){}",
		"src/foo.rs":  "pub fn bar(){}",
	})

	lm := logging.NewTestLogManager(100)
	defer lm.Close()

	res, err := Build(Options{RootDir: root, Layout: nameOrder(), Logger: lm.For("bundle")})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if res.Header != manifest.Header("[package]\nname = \"demo\"\n\n[dependencies]\nx = \"1.0\"\n") {
		t.Errorf("Header = %q", res.Header)
	}
	if res.Body != "mod foo {\npub fn bar(){}\n}\nfn main(){}\n" {
		t.Errorf("Body = %q", res.Body)
	}
	if res.Summary.Name != "demo" {
		t.Errorf("Summary.Name = %q, want demo", res.Summary.Name)
	}
	if res.Stats.Files != 2 || res.Stats.Dirs != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if string(res.Bytes()) != res.Header+res.Body {
		t.Error("Bytes() should be header followed by body")
	}

	messages := strings.Join(lm.Messages(), "|")
	for _, want := range []string{"scriptifying crate", "generated manifest", "merged source files"} {
		if !strings.Contains(messages, want) {
			t.Errorf("missing log message %q in %s", want, messages)
		}
	}
}

func TestBuild_Progress(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "",
		"src/main.rs": "fn main(){}",
	})
	var progress bytes.Buffer
	res, err := Build(Options{RootDir: root, Layout: srctree.DefaultLayout(), Progress: &progress})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := "Scriptifying " + res.Root + "/\nGenerated manifest\nMerged source files\n"
	if progress.String() != want {
		t.Errorf("progress = %q, want %q", progress.String(), want)
	}
}

func TestBuild_InvalidManifestStillEmbedded(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "this is = = not toml",
		"src/main.rs": "fn main(){}",
	})

	lm := logging.NewTestLogManager(100)
	defer lm.Close()

	res, err := Build(Options{RootDir: root, Layout: srctree.DefaultLayout(), Logger: lm.For("bundle")})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(res.Header, "//! this is = = not toml\n") {
		t.Errorf("Header = %q", res.Header)
	}
	if !strings.Contains(strings.Join(lm.Messages(), "|"), "manifest is not valid TOML") {
		t.Error("expected a warning about the manifest")
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{"missing manifest", map[string]string{"src/main.rs": "fn main(){}"}, srctree.ErrIO},
		{"missing src", map[string]string{"Cargo.toml": ""}, srctree.ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeCrate(t, tt.files)
			_, err := Build(Options{RootDir: root, Layout: srctree.DefaultLayout()})
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := Build(Options{RootDir: filepath.Join(t.TempDir(), "nope"), Layout: srctree.DefaultLayout()})
	if !errors.Is(err, ErrPathResolution) {
		t.Errorf("Build() on missing root error = %v, want ErrPathResolution", err)
	}

	_, err = Build(Options{RootDir: t.TempDir(), Layout: srctree.Layout{}})
	if err == nil {
		t.Error("Build() with an empty layout should fail")
	}
}

func TestRun_WritesScript(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "[dependencies]\n",
		"src/main.rs": "fn main(){}",
	})
	out := filepath.Join(t.TempDir(), "script.rs")
	if err := os.WriteFile(out, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(Options{RootDir: root, OutPath: out, Mode: 0o755, Layout: srctree.DefaultLayout()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(res.Bytes()) {
		t.Errorf("written file = %q, want %q", data, res.Bytes())
	}
	if !strings.HasPrefix(string(data), "#!/usr/bin/env nix-shell\n") {
		t.Errorf("script should start with the shebang: %q", data)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Errorf("output dir should only hold the script, got %d entries", len(entries))
	}
}

func TestRun_FailureLeavesDestinationUntouched(t *testing.T) {
	root := writeCrate(t, map[string]string{"Cargo.toml": ""}) // no src/
	out := filepath.Join(t.TempDir(), "script.rs")
	if err := os.WriteFile(out, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(Options{RootDir: root, OutPath: out, Layout: srctree.DefaultLayout()}); err == nil {
		t.Fatal("Run() should fail without a source directory")
	}
	data, _ := os.ReadFile(out)
	if string(data) != "old content" {
		t.Errorf("destination changed to %q", data)
	}
}

func TestRun_LockedOutput(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "",
		"src/main.rs": "fn main(){}",
	})
	out := filepath.Join(t.TempDir(), "script.rs")

	fl, err := instance.Lock(out)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Cleanup(out, fl)

	_, err = Run(Options{RootDir: root, OutPath: out, Layout: srctree.DefaultLayout()})
	if !errors.Is(err, instance.ErrBusy) {
		t.Errorf("Run() error = %v, want ErrBusy", err)
	}
}

func TestCheckOutPath(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "",
		"src/main.rs": "fn main(){}",
	})
	root, err := Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	layout := srctree.DefaultLayout()

	tests := []struct {
		name    string
		out     string
		wantErr bool
	}{
		{"crate root", filepath.Join(root, "script.rs"), false},
		{"outside crate", filepath.Join(t.TempDir(), "script.rs"), false},
		{"sibling named like src", filepath.Join(root, "src2", "script.rs"), false},
		{"directly in src", filepath.Join(root, "src", "script.rs"), true},
		{"nested in src", filepath.Join(root, "src", "bin", "script.rs"), true},
		{"src itself", filepath.Join(root, "src"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOutPath(root, layout, tt.out)
			if tt.wantErr && !errors.Is(err, ErrOutputInSource) {
				t.Errorf("CheckOutPath(%s) error = %v, want ErrOutputInSource", tt.out, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckOutPath(%s) error = %v, want nil", tt.out, err)
			}
		})
	}
}

func TestRun_RejectsOutputInSource(t *testing.T) {
	root := writeCrate(t, map[string]string{
		"Cargo.toml":  "",
		"src/main.rs": "fn main(){}",
	})
	out := filepath.Join(root, "src", "script.rs")

	_, err := Run(Options{RootDir: root, OutPath: out, Layout: srctree.DefaultLayout()})
	if !errors.Is(err, ErrOutputInSource) {
		t.Fatalf("Run() error = %v, want ErrOutputInSource", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no script should be written into the source directory")
	}
	if _, err := os.Stat(instance.LockPath(out)); !os.IsNotExist(err) {
		t.Error("no lock file should be created inside the source directory")
	}
}

func TestRun_RequiresOutPath(t *testing.T) {
	if _, err := Run(Options{RootDir: t.TempDir(), Layout: srctree.DefaultLayout()}); err == nil {
		t.Error("Run() without OutPath should fail")
	}
}
