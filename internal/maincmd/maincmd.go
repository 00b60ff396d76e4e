// Package maincmd implements the command-line entry point: argument
// validation, the REPL loop, and script execution, wired to the mainer
// flag-parsing and exit-code conventions.
package maincmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/willow/lang/vm"
)

const binName = "willow"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode compiler and virtual machine for the %[1]s scripting language.

With no <path>, starts an interactive REPL that reads and interprets one
line at a time. With a <path>, compiles and runs that script.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --stress-gc               Run a collection before every allocation.
       --log-gc                  Log each collection's start and end.
`, binName)
)

// Cmd is the program's flag-bound configuration and entry point.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	StressGC bool `flag:"stress-gc"`
	LogGC    bool `flag:"log-gc"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return errors.New("usage: willow [path]")
	}
	return nil
}

// Main parses args, validates them, and runs the REPL or a single script.
// Its return value is the process exit code: 64 for bad arguments, 74 for
// an unreadable script, 65 for a compile error, 70 for a runtime error, 0
// on success.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return 64
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	machine := vm.New()
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.StressGC = c.StressGC
	machine.LogGC = c.LogGC

	if len(c.args) == 0 {
		c.repl(machine, stdio)
		return mainer.Success
	}
	return c.runFile(machine, stdio, c.args[0])
}

// repl reads one line at a time from stdio.Stdin and interprets each
// independently against the same persistent VM, so declarations made on one
// line are visible on the next. EOF ends the loop.
func (c *Cmd) repl(machine *vm.VM, stdio mainer.Stdio) {
	scanner := bufio.NewScanner(stdio.Stdin)
	scanner.Buffer(make([]byte, 1024), 1<<20)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			return
		}
		machine.Interpret(scanner.Text())
	}
}

func (c *Cmd) runFile(machine *vm.VM, stdio mainer.Stdio, path string) mainer.ExitCode {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "can't open file '%s': %s\n", path, err)
		return 74
	}

	switch machine.Interpret(string(source)) {
	case vm.InterpretCompileError:
		return 65
	case vm.InterpretRuntimeError:
		return 70
	default:
		return mainer.Success
	}
}
