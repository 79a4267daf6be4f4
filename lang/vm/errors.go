package vm

import (
	"fmt"
	"strings"

	"github.com/loxvm/loxvm/lang/compiler"
)

// CompileError wraps the diagnostics compiler.Compile reported; Interpret
// returns one of these, never a *compiler.CompileError directly, so
// callers can type-switch on the vm package's two error kinds (§7).
type CompileError struct {
	Errs []*compiler.CompileError
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	for i, err := range e.Errs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// RuntimeError is a VM abort: a type mismatch, undefined name, arity
// mismatch, bad call target, non-instance property access, or frame-stack
// overflow (§7). Trace holds one "[line L] in NAME" entry per frame that
// was live when the error was raised, innermost first (§6).
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, t := range e.Trace {
		sb.WriteByte('\n')
		sb.WriteString(t)
	}
	return sb.String()
}

// runtimeError builds a *RuntimeError from the currently live call frames,
// innermost first, using each frame's current line (§5: "the line number
// comes from chunk.lines[ip-1]").
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Function

		line := 0
		if idx := fr.ip - 1; idx >= 0 && idx < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[idx]
		}

		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	return &RuntimeError{Message: msg, Trace: trace}
}
