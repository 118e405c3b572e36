// pattern: Imperative Shell
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"scriptify/internal/cli"
	"scriptify/internal/config"
	"scriptify/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses the global flags, sets up configuration and logging, and
// dispatches to the command. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scriptify", flag.ContinueOnError)
	// Stop parsing flags after the first non-flag arg (the command),
	// so that command flags are handled by the command.
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	configDir := fs.StringP("config-dir", "c", "", "config directory (default: ~/.config/scriptify)")
	verbose := fs.BoolP("verbose", "v", false, "echo log entries to stderr")
	noColor := fs.Bool("no-color", false, "disable colored output")

	if err := fs.Parse(args); err != nil {
		app := cli.BuildApp(version, cli.Env{Config: config.DefaultConfig(), Stdout: stdout, Stderr: stderr})
		app.GlobalFlags = fs.FlagUsages()
		if errors.Is(err, flag.ErrHelp) {
			app.PrintHelp(stdout)
			return cli.ExitOK
		}
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		app.PrintHelp(stderr)
		return cli.ExitUsage
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	env := cli.Env{
		Config:  cfg,
		Stdout:  stdout,
		Stderr:  stderr,
		NoColor: *noColor || os.Getenv("NO_COLOR") != "",
	}

	logManager, err := logging.NewManager(logging.Config{
		FilePath: filepath.Join(config.DataDir(*configDir), "scriptify.log"),
		Level:    logLevel(cfg.LogLevel, *verbose),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failed to initialize logging: %v\n", err)
	} else {
		env.Logs = logManager
		if *verbose {
			wait := logManager.Echo(stderr)
			defer wait()
		}
		defer func() { _ = logManager.Close() }()
	}

	app := cli.BuildApp(version, env)
	app.GlobalFlags = fs.FlagUsages()

	if env.Logs != nil {
		env.Logs.For("app").Debug("dispatching", "args", fs.Args())
	}
	return app.Execute(fs.Args())
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// logLevel returns the configured level, lowered to debug for --verbose.
func logLevel(configured string, verbose bool) string {
	if verbose {
		return "debug"
	}
	return configured
}
