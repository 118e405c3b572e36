// pattern: Functional Core
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

// Exit codes returned by App.Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Command represents a single CLI command with its metadata and handler.
type Command struct {
	Name    string
	Summary string
	Usage   string

	// Flags, when set, are parsed by the App before Run is called. Run
	// receives the remaining positional arguments.
	Flags *flag.FlagSet

	Run func(args []string) error
}

// UsageError reports a malformed command line. Execute prints the command's
// usage after it and exits with ExitUsage.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// App represents the top-level CLI application.
type App struct {
	commands map[string]*Command
	order    []string
	version  string

	// Stdout and Stderr default to the process streams. Overridable for testing.
	Stdout io.Writer
	Stderr io.Writer

	// RenderError formats a failure for Stderr.
	RenderError func(error) string

	// GlobalFlags is printed under "Options:" in the help text.
	GlobalFlags string
}

// NewApp creates a new CLI application with the given version.
func NewApp(version string) *App {
	return &App{
		commands: make(map[string]*Command),
		version:  version,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		RenderError: func(err error) string {
			return "error: " + err.Error()
		},
	}
}

// AddCommand registers a command. Help lists commands in registration order.
func (a *App) AddCommand(cmd *Command) {
	if _, ok := a.commands[cmd.Name]; !ok {
		a.order = append(a.order, cmd.Name)
	}
	a.commands[cmd.Name] = cmd
}

// Execute dispatches the CLI arguments to the appropriate command and
// returns the process exit code.
func (a *App) Execute(args []string) int {
	if len(args) == 0 {
		a.PrintHelp(a.Stderr)
		return ExitUsage
	}

	cmdName := args[0]
	switch cmdName {
	case "help", "--help", "-h":
		a.PrintHelp(a.Stdout)
		return ExitOK
	}

	cmd, ok := a.commands[cmdName]
	if !ok {
		fmt.Fprintln(a.Stderr, a.RenderError(fmt.Errorf("unknown command %q", cmdName)))
		fmt.Fprintln(a.Stderr)
		a.PrintHelp(a.Stderr)
		return ExitUsage
	}

	rest := args[1:]
	if cmd.Flags != nil {
		if err := cmd.Flags.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				a.printUsage(a.Stdout, cmd)
				return ExitOK
			}
			return a.fail(cmd, &UsageError{Msg: err.Error()})
		}
		rest = cmd.Flags.Args()
	} else {
		for _, arg := range rest {
			if arg == "--help" || arg == "-h" {
				a.printUsage(a.Stdout, cmd)
				return ExitOK
			}
		}
	}

	if err := cmd.Run(rest); err != nil {
		return a.fail(cmd, err)
	}
	return ExitOK
}

func (a *App) fail(cmd *Command, err error) int {
	fmt.Fprintln(a.Stderr, a.RenderError(err))

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(a.Stderr)
		a.printUsage(a.Stderr, cmd)
		return ExitUsage
	}
	return ExitError
}

func (a *App) printUsage(w io.Writer, cmd *Command) {
	fmt.Fprintf(w, "%s\n", cmd.Usage)
	if cmd.Flags != nil && cmd.Flags.HasFlags() {
		fmt.Fprintf(w, "\nFlags:\n%s", cmd.Flags.FlagUsages())
	}
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: scriptify [options] <command> [flags]\n\n")
	fmt.Fprintf(w, "Turns a Cargo crate into a single-file Rust script.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nUse \"scriptify <command> --help\" for command details.\n\n")
	fmt.Fprintf(w, "Options:\n%s", a.GlobalFlags)
}
