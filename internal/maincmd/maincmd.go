// Package maincmd implements the CLI driver (§6): a zero-or-one-argument
// REPL/file runner, built on github.com/mna/mainer for process Stdio and a
// signal-cancellable context, the same plumbing the teacher's cmd/nenuphar
// uses. The command surface itself is spec.md §6's, not the teacher's
// multi-subcommand (parse/resolve/tokenize) shape: there is exactly one
// command, so the reflection-based subcommand dispatcher is not carried
// over (see DESIGN.md).
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/loxvm/loxvm/internal/config"
	"github.com/loxvm/loxvm/lang/vm"
)

const binName = "loxvm"

// Exit codes (§6). Success is mainer.Success (0).
const (
	exitUsage   mainer.ExitCode = 64
	exitFile    mainer.ExitCode = 74
	exitCompile mainer.ExitCode = 65
	exitRuntime mainer.ExitCode = 70
)

var usage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

With no <path>, %[1]s reads and interprets one line at a time from stdin
until EOF. With a <path>, it reads and interprets the whole file.

Valid options are:
       -h --help          Show this help and exit.
       -v --version       Print version and exit.
       --config <path>    Load VM tunables from a YAML config file.
       --disassemble      Print bytecode disassembly before running.
       --dump-globals     Print every defined global name after running.
`, binName)

// Cmd is the loxvm command: its flags, its positional arguments, and the
// Main entry point mainer drives.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help         bool   `flag:"h,help"`
	Version      bool   `flag:"v,version"`
	ConfigPath   string `flag:"config"`
	Disassemble  bool   `flag:"disassemble"`
	DumpGlobals  bool   `flag:"dump-globals"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if len(c.args) > 1 {
		return fmt.Errorf("at most one file path expected, got %d", len(c.args))
	}
	return nil
}

// Main parses args and runs the resulting command, returning the process
// exit code (§6).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, usage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, usage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitUsage
	}

	machine := vm.New()
	machine.MaxFrames = cfg.MaxFrames
	machine.MaxStack = cfg.MaxStack
	machine.MaxSteps = cfg.MaxSteps
	machine.Stdout = stdio.Stdout

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	switch len(c.args) {
	case 0:
		return runREPL(ctx, stdio, machine, c.Disassemble, c.DumpGlobals)
	case 1:
		return runFile(stdio, machine, c.args[0], c.Disassemble, c.DumpGlobals)
	default:
		fmt.Fprint(stdio.Stderr, usage)
		return exitUsage
	}
}
