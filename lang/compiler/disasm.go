package compiler

import (
	"fmt"
	"strings"

	"github.com/loxvm/loxvm/lang/value"
)

// Disassemble renders every instruction in chunk as human-readable debug
// text labeled with name (a function's name, or "<script>" for the
// top-level chunk). This is the CLI's `-disassemble` diagnostic output,
// modeled on CppLox's debug.cpp (gated behind DEBUG_PRINT_CODE there,
// behind a flag here) — see SPEC_FULL.md §4.
func Disassemble(chunk *value.Chunk, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		line, next := DisassembleInstruction(chunk, offset)
		sb.WriteString(line)
		sb.WriteByte('\n')
		offset = next
	}
	return sb.String()
}

// DisassembleInstruction renders the single instruction at offset, prefixed
// with its offset and source line (blank if it shares the previous
// instruction's line, matching clox's "   | " elision). It returns the
// rendered line and the offset of the following instruction.
func DisassembleInstruction(chunk *value.Chunk, offset int) (string, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(&sb, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])
	switch op {
	case OpClosure:
		return disassembleClosure(chunk, &sb, offset)
	case OpInvoke, OpSuperInvoke:
		return disassembleInvoke(chunk, &sb, op, offset)
	}

	switch opcodeOperands[op] {
	case operandNone:
		sb.WriteString(op.String())
	case operandByte:
		arg := chunk.Code[offset+1]
		fmt.Fprintf(&sb, "%-16s %4d", op, arg)
		return sb.String(), offset + 2
	case operandConst:
		idx := chunk.Code[offset+1]
		fmt.Fprintf(&sb, "%-16s %4d '%s'", op, idx, chunk.Constants[idx])
		return sb.String(), offset + 2
	case operandJump:
		off := readUint16(chunk.Code[offset+1:])
		target := offset + 3 + int(off)
		if op == OpLoop {
			target = offset + 3 - int(off)
		}
		fmt.Fprintf(&sb, "%-16s %4d -> %d", op, off, target)
		return sb.String(), offset + 3
	default:
		fmt.Fprintf(&sb, "unknown opcode %d", op)
	}
	return sb.String(), offset + 1
}

// disassembleClosure renders OP_CLOSURE and its trailing (is-local, index)
// pairs, one per captured upvalue (§4.4.2).
func disassembleClosure(chunk *value.Chunk, sb *strings.Builder, offset int) (string, int) {
	idx := chunk.Code[offset+1]
	fn, _ := chunk.Constants[idx].(*value.ObjFunction)
	fmt.Fprintf(sb, "%-16s %4d '%s'", OpClosure, idx, chunk.Constants[idx])
	next := offset + 2
	if fn == nil {
		return sb.String(), next
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[next]
		index := chunk.Code[next+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(sb, "\n%04d      |                     %s %d", next, kind, index)
		next += 2
	}
	return sb.String(), next
}

// disassembleInvoke renders OP_INVOKE/OP_SUPER_INVOKE's fused (name, argc)
// operand pair.
func disassembleInvoke(chunk *value.Chunk, sb *strings.Builder, op Opcode, offset int) (string, int) {
	nameIdx := chunk.Code[offset+1]
	argc := chunk.Code[offset+2]
	fmt.Fprintf(sb, "%-16s (%d args) %4d '%s'", op, argc, nameIdx, chunk.Constants[nameIdx])
	return sb.String(), offset + 3
}

func readUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func writeUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
