// pattern: Imperative Shell
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"scriptify/internal/bundle"
	"scriptify/internal/config"
	"scriptify/internal/instance"
	"scriptify/internal/logging"
	"scriptify/internal/manifest"
	"scriptify/internal/srctree"
	"scriptify/internal/tui"
	"scriptify/internal/watch"
)

// Env is what the commands need from the process: configuration, loggers
// and output streams.
type Env struct {
	Config  config.Config
	Logs    logging.LoggerProvider
	Stdout  io.Writer
	Stderr  io.Writer
	NoColor bool

	// Preview shows a script in a pager. Defaults to tui.RunPreview.
	// Overridable for testing.
	Preview func(title, content string, styles *tui.Styles) error

	// Context bounds long-running commands. Defaults to a context that is
	// cancelled on SIGINT or SIGTERM. Overridable for testing.
	Context func() (context.Context, context.CancelFunc)

	styles *tui.Styles
}

func (e *Env) init() {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.NoColor {
		e.Stdout = plainWriter{w: e.Stdout}
		e.Stderr = plainWriter{w: e.Stderr}
	}
	if e.Preview == nil {
		e.Preview = tui.RunPreview
	}
	if e.Context == nil {
		e.Context = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	e.styles = tui.NewStyles(e.Config.Theme)
}

func (e *Env) logger(scope string) *logging.ScopedLogger {
	if e.Logs == nil {
		return logging.NopLogger()
	}
	return e.Logs.For(scope)
}

// layout returns the configured layout, switched to name order when sorted.
func (e *Env) layout(sorted bool) (srctree.Layout, error) {
	l := e.Config.SourceLayout()
	if sorted {
		l.Order = srctree.OrderName
	}
	return l, l.Validate()
}

// BuildApp creates and configures the CLI application with all commands.
func BuildApp(version string, env Env) *App {
	env.init()

	app := NewApp(version)
	app.Stdout = env.Stdout
	app.Stderr = env.Stderr
	app.RenderError = env.styles.RenderError

	app.AddCommand(buildCommand(&env))
	app.AddCommand(manifestCommand(&env))
	app.AddCommand(treeCommand(&env))
	app.AddCommand(previewCommand(&env))
	app.AddCommand(watchCommand(&env))
	app.AddCommand(cleanupCommand(&env))

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: scriptify version",
		Run: func(args []string) error {
			fmt.Fprintln(env.Stdout, version)
			return nil
		},
	})

	return app
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

// requireFlags fails with a UsageError for the first named string flag
// that is empty.
func requireFlags(fs *flag.FlagSet, names ...string) error {
	for _, name := range names {
		if v, err := fs.GetString(name); err != nil || v == "" {
			return usageErrorf("--%s is required", name)
		}
	}
	return nil
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return usageErrorf("unexpected argument %q", args[0])
	}
	return nil
}

func rootFlag(fs *flag.FlagSet) *string {
	return fs.StringP("root-dir", "r", "", "crate root containing the manifest and source directory")
}

func outFlag(fs *flag.FlagSet) *string {
	return fs.StringP("out-path", "o", "", "path of the script to write")
}

func sortFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("sort", false, "order modules by name instead of directory order")
}

func buildCommand(env *Env) *Command {
	fs := newFlagSet("build")
	root := rootFlag(fs)
	out := outFlag(fs)
	sorted := sortFlag(fs)

	return &Command{
		Name:    "build",
		Summary: "Flatten a crate into a single-file script",
		Usage:   "Usage: scriptify build -r <root-dir> -o <out-path> [--sort]",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "root-dir", "out-path"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}
			layout, err := env.layout(*sorted)
			if err != nil {
				return err
			}
			mode, err := env.Config.FileMode()
			if err != nil {
				return err
			}

			_, err = bundle.Run(bundle.Options{
				RootDir:  *root,
				OutPath:  *out,
				Mode:     mode,
				Layout:   layout,
				Logger:   env.logger("build"),
				Progress: env.Stdout,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(env.Stdout, env.styles.RenderSuccess(*out))
			return nil
		},
	}
}

func manifestCommand(env *Env) *Command {
	fs := newFlagSet("manifest")
	root := rootFlag(fs)
	summary := fs.Bool("summary", false, "describe the package instead of printing the header")

	return &Command{
		Name:    "manifest",
		Summary: "Print the script header generated from the manifest",
		Usage:   "Usage: scriptify manifest -r <root-dir> [--summary]",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "root-dir"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}
			resolved, err := bundle.Resolve(*root)
			if err != nil {
				return err
			}
			path := filepath.Join(resolved, env.Config.SourceLayout().Manifest)
			env.logger("manifest").Debug("reading manifest", "path", path)

			if !*summary {
				header, err := manifest.GenerateFile(path)
				if err != nil {
					return err
				}
				fmt.Fprint(env.Stdout, header)
				return nil
			}

			data, err := manifest.ReadFile(path)
			if err != nil {
				return err
			}
			s, err := manifest.Describe(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(env.Stdout, s.String())
			return nil
		},
	}
}

func treeCommand(env *Env) *Command {
	fs := newFlagSet("tree")
	root := rootFlag(fs)
	sorted := sortFlag(fs)
	width := fs.Int("width", 0, "truncate lines to this many columns (0 disables)")

	return &Command{
		Name:    "tree",
		Summary: "Show the source tree as it will be flattened",
		Usage:   "Usage: scriptify tree -r <root-dir> [--sort] [--width N]",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "root-dir"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}
			layout, err := env.layout(*sorted)
			if err != nil {
				return err
			}
			resolved, err := bundle.Resolve(*root)
			if err != nil {
				return err
			}

			loader := srctree.NewLoader(layout, env.logger("tree"))
			tree, err := loader.Load(filepath.Join(resolved, layout.SourceDir))
			if err != nil {
				return err
			}
			fmt.Fprint(env.Stdout, env.styles.RenderTree(tree, layout, *width))
			return nil
		},
	}
}

func previewCommand(env *Env) *Command {
	fs := newFlagSet("preview")
	root := rootFlag(fs)
	sorted := sortFlag(fs)

	return &Command{
		Name:    "preview",
		Summary: "Page through the generated script without writing it",
		Usage:   "Usage: scriptify preview -r <root-dir> [--sort]",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "root-dir"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}
			layout, err := env.layout(*sorted)
			if err != nil {
				return err
			}

			res, err := bundle.Build(bundle.Options{
				RootDir: *root,
				Layout:  layout,
				Logger:  env.logger("preview"),
			})
			if err != nil {
				return err
			}

			name := res.Summary.Name
			if name == "" {
				name = filepath.Base(res.Root)
			}
			title := fmt.Sprintf("%s: %d files, %d bytes", name, res.Stats.Files, len(res.Bytes()))
			return env.Preview(title, string(res.Bytes()), env.styles)
		},
	}
}

func watchCommand(env *Env) *Command {
	fs := newFlagSet("watch")
	root := rootFlag(fs)
	out := outFlag(fs)
	sorted := sortFlag(fs)

	return &Command{
		Name:    "watch",
		Summary: "Rebuild the script whenever the crate changes",
		Usage:   "Usage: scriptify watch -r <root-dir> -o <out-path> [--sort]",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "root-dir", "out-path"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}
			layout, err := env.layout(*sorted)
			if err != nil {
				return err
			}
			mode, err := env.Config.FileMode()
			if err != nil {
				return err
			}
			resolved, err := bundle.Resolve(*root)
			if err != nil {
				return err
			}
			if err := bundle.CheckOutPath(resolved, layout, *out); err != nil {
				return err
			}

			// Held for the whole session so a concurrent build cannot interleave.
			fl, err := instance.Lock(*out)
			if err != nil {
				return err
			}
			defer instance.Cleanup(*out, fl)

			logger := env.logger("watch")
			opts := bundle.Options{
				RootDir:  resolved,
				Mode:     mode,
				Layout:   layout,
				Logger:   logger,
				Progress: env.Stdout,
			}

			w, err := watch.New(watch.Config{
				Root:     resolved,
				Layout:   layout,
				Debounce: env.Config.Watch.Debounce,
				Logger:   logger,
				Build: func(context.Context) error {
					err := rebuild(opts, *out)
					if err != nil {
						fmt.Fprintln(env.Stderr, env.styles.RenderError(err))
						return err
					}
					fmt.Fprint(env.Stdout, env.styles.RenderSuccess(*out))
					return nil
				},
			})
			if err != nil {
				return err
			}

			ctx, cancel := env.Context()
			defer cancel()

			fmt.Fprintf(env.Stdout, "Watching %s/ (Ctrl+C to stop)\n", resolved)
			return w.Run(ctx)
		},
	}
}

func rebuild(opts bundle.Options, out string) error {
	res, err := bundle.Build(opts)
	if err != nil {
		return err
	}
	return bundle.Write(res, out, opts.Mode)
}

func cleanupCommand(env *Env) *Command {
	fs := newFlagSet("cleanup")
	out := outFlag(fs)

	return &Command{
		Name:    "cleanup",
		Summary: "Remove a stale output lock left by a crashed process",
		Usage:   "Usage: scriptify cleanup -o <out-path>",
		Flags:   fs,
		Run: func(args []string) error {
			if err := requireFlags(fs, "out-path"); err != nil {
				return err
			}
			if err := noArgs(args); err != nil {
				return err
			}

			removed, err := instance.RemoveStale(*out)
			if errors.Is(err, instance.ErrBusy) {
				return fmt.Errorf("a scriptify process is still writing %s. Stop it first", *out)
			}
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(env.Stdout, "Removed stale lock %s.\n", instance.LockPath(*out))
			} else {
				fmt.Fprintf(env.Stdout, "No stale lock for %s.\n", *out)
			}
			return nil
		},
	}
}
