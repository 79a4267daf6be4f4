package compiler

import "fmt"

// CompileError is one diagnostic produced during a compile (§4.2, §7). A
// single source may report many of these in one pass: the parser
// resynchronizes at statement boundaries after each one instead of
// aborting.
type CompileError struct {
	Line    int
	Where   string // "" | " at end" | " at '<lexeme>'"
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}
