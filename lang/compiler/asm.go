package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/loxvm/loxvm/lang/value"
)

// This file implements a small human-readable/writable textual form of a
// single chunk's bytecode, grounded on the teacher's own Asm/Dasm pair
// (lang/compiler/asm.go) which round-trips a whole compiled Program through
// text for testing the VM without going through parsing. Ours is narrower
// on purpose: it round-trips one Chunk's constant pool (numbers and
// strings only — a function constant has no textual form here, since nested
// closures are exercised directly by compiler/VM tests, not by this format)
// and its code section, to give spec.md §8's testable property ("disassemble
// then reassemble a chunk reproduces identical bytes") something concrete to
// assert against.
//
// Format:
//
//	constants:              # optional
//		number 3.25
//		string "abc"
//	code:                   # required
//		OP_CONSTANT 0
//		OP_ADD
//		OP_RETURN

var asmSections = map[string]bool{
	"constants:": true,
	"code:":      true,
}

// Assemble parses a chunk's textual form, as produced by Dasm, back into a
// *value.Chunk. Jump operands are written verbatim as the 16-bit offset
// that follows the mnemonic; Assemble does not resolve labels.
func Assemble(text string) (*value.Chunk, error) {
	a := &assembler{s: bufio.NewScanner(strings.NewReader(text)), chunk: &value.Chunk{}}
	fields := a.next()
	fields = a.constants(fields)
	fields = a.code(fields)
	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	return a.chunk, a.err
}

type assembler struct {
	s     *bufio.Scanner
	chunk *value.Chunk
	err   error
	line  int
}

func (a *assembler) constants(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		if len(fields) < 2 {
			a.err = fmt.Errorf("invalid constant: expected a kind and a value, got %q", strings.Join(fields, " "))
			return fields
		}
		switch fields[0] {
		case "number":
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("invalid number constant %q: %w", fields[1], err)
				return fields
			}
			a.chunk.Constants = append(a.chunk.Constants, value.Number(f))
		case "string":
			raw := strings.Join(fields[1:], " ")
			s, err := strconv.Unquote(raw)
			if err != nil {
				a.err = fmt.Errorf("invalid string constant %q: %w", raw, err)
				return fields
			}
			a.chunk.Constants = append(a.chunk.Constants, &value.ObjString{Chars: s})
		default:
			a.err = fmt.Errorf("invalid constant kind: %s", fields[0])
			return fields
		}
	}
	return fields
}

func (a *assembler) code(fields []string) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		msg := "expected code section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		op, ok := reverseLookupOpcode[strings.ToUpper(fields[0])]
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields
		}
		a.writeInsn(op, fields[1:])
		if a.err != nil {
			return fields
		}
	}
	return fields
}

func (a *assembler) writeInsn(op Opcode, args []string) {
	line := a.line
	switch opcodeOperands[op] {
	case operandNone:
		a.chunk.Write(byte(op), line)
	case operandByte, operandConst:
		if len(args) != 1 {
			a.err = fmt.Errorf("%s: expected 1 operand, got %d", op, len(args))
			return
		}
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			a.err = fmt.Errorf("%s: invalid operand %q: %w", op, args[0], err)
			return
		}
		a.chunk.Write(byte(op), line)
		a.chunk.Write(byte(n), line)
	case operandJump:
		if len(args) != 1 {
			a.err = fmt.Errorf("%s: expected 1 operand, got %d", op, len(args))
			return
		}
		n, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			a.err = fmt.Errorf("%s: invalid operand %q: %w", op, args[0], err)
			return
		}
		a.chunk.Write(byte(op), line)
		var buf [2]byte
		writeUint16(buf[:], uint16(n))
		a.chunk.Write(buf[0], line)
		a.chunk.Write(buf[1], line)
	case operandVariadic:
		// OP_CLOSURE/OP_INVOKE/OP_SUPER_INVOKE: every argument after the
		// mnemonic is a raw byte, written as given.
		if len(args) == 0 {
			a.err = fmt.Errorf("%s: expected at least 1 operand", op)
			return
		}
		a.chunk.Write(byte(op), line)
		for _, s := range args {
			n, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				a.err = fmt.Errorf("%s: invalid operand %q: %w", op, s, err)
				return
			}
			a.chunk.Write(byte(n), line)
		}
	}
}

// next returns the fields of the next non-empty, non-comment line, tracking
// a synthetic increasing line number (the textual form carries no original
// source positions).
func (a *assembler) next() []string {
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		a.line++
		text := a.s.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) != 0 {
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes chunk's textual form, suitable for Assemble to read back; the
// two are exact inverses of each other (the round-trip spec.md §8 requires),
// which is why Dasm here is deliberately simpler than the human-oriented
// Disassemble in disasm.go (no offsets, no elided line numbers, no resolved jump
// targets).
func Dasm(chunk *value.Chunk) (string, error) {
	var sb strings.Builder
	if len(chunk.Constants) > 0 {
		sb.WriteString("constants:\n")
		for _, c := range chunk.Constants {
			switch v := c.(type) {
			case value.Number:
				fmt.Fprintf(&sb, "\tnumber %s\n", strconv.FormatFloat(float64(v), 'g', -1, 64))
			case *value.ObjString:
				fmt.Fprintf(&sb, "\tstring %s\n", strconv.Quote(v.Chars))
			default:
				return "", fmt.Errorf("constant of type %T has no textual form", c)
			}
		}
	}

	sb.WriteString("code:\n")
	for offset := 0; offset < len(chunk.Code); {
		op := Opcode(chunk.Code[offset])
		switch op {
		case OpClosure, OpInvoke, OpSuperInvoke:
			return "", fmt.Errorf("%s has no textual form in this round-trip format", op)
		}
		switch opcodeOperands[op] {
		case operandNone:
			fmt.Fprintf(&sb, "\t%s\n", op)
			offset++
		case operandByte, operandConst:
			fmt.Fprintf(&sb, "\t%s %d\n", op, chunk.Code[offset+1])
			offset += 2
		case operandJump:
			off := readUint16(chunk.Code[offset+1:])
			fmt.Fprintf(&sb, "\t%s %d\n", op, off)
			offset += 3
		default:
			return "", fmt.Errorf("unknown opcode %d at offset %d", op, offset)
		}
	}
	return sb.String(), nil
}
