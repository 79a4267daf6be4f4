package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/loxvm/loxvm/lang/vm"
)

// runFile reads path in full and interprets it as one compile unit (§6: 1
// arg → file).
func runFile(stdio mainer.Stdio, machine *vm.VM, path string, disasm, dumpGlobals bool) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitFile
	}
	code := interpret(stdio, machine, string(src), disasm)
	if dumpGlobals {
		fmt.Fprintln(stdio.Stdout, strings.Join(machine.GlobalNames(), "\n"))
	}
	return code
}

// runREPL reads one line at a time from stdin and interprets each as its
// own compile unit, looping until EOF (§6: 0 args → REPL). A single line's
// compile or runtime error is reported but does not end the session,
// matching CppLox's main.cpp (SPEC_FULL.md §4): multi-line constructs typed
// at the prompt fail to parse until the closing `;`/`}` appears on the same
// line, by design.
func runREPL(ctx context.Context, stdio mainer.Stdio, machine *vm.VM, disasm, dumpGlobals bool) mainer.ExitCode {
	in := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")

		select {
		case <-ctx.Done():
			return mainer.Success
		default:
		}

		if !in.Scan() {
			if dumpGlobals {
				fmt.Fprintln(stdio.Stdout, strings.Join(machine.GlobalNames(), "\n"))
			}
			return mainer.Success
		}
		interpret(stdio, machine, in.Text(), disasm)
	}
}

// interpret runs one source unit through machine and reports its result
// (§7): mainer.Success when Interpret returns nil, a compile-error exit on
// *vm.CompileError, a runtime-error exit on *vm.RuntimeError.
func interpret(stdio mainer.Stdio, machine *vm.VM, src string, disasm bool) mainer.ExitCode {
	if disasm {
		out, err := machine.Disassemble(src)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return exitCompile
		}
		fmt.Fprint(stdio.Stdout, out)
	}

	switch err := machine.Interpret(src).(type) {
	case nil:
		return mainer.Success
	case *vm.CompileError:
		fmt.Fprintln(stdio.Stderr, err)
		return exitCompile
	case *vm.RuntimeError:
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntime
	default:
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntime
	}
}
