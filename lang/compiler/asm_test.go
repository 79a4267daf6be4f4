package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxvm/loxvm/lang/compiler"
	"github.com/loxvm/loxvm/lang/value"
)

func TestAssembleSimpleChunk(t *testing.T) {
	chunk, err := compiler.Assemble(`
		constants:
			number 1
			number 2
		code:
			OP_CONSTANT 0
			OP_CONSTANT 1
			OP_ADD
			OP_RETURN
	`)
	require.NoError(t, err)
	require.Equal(t, []byte{
		byte(compiler.OpConstant), 0,
		byte(compiler.OpConstant), 1,
		byte(compiler.OpAdd),
		byte(compiler.OpReturn),
	}, chunk.Code)
	require.Equal(t, []value.Value{value.Number(1), value.Number(2)}, chunk.Constants)
}

func TestAssembleRejectsUnknownOpcode(t *testing.T) {
	_, err := compiler.Assemble("code:\n\tOP_NOT_A_REAL_OP\n")
	require.Error(t, err)
}

func TestAssembleRejectsMissingCodeSection(t *testing.T) {
	_, err := compiler.Assemble("constants:\n\tnumber 1\n")
	require.Error(t, err)
}

func TestDasmThenAssembleRoundTripsBytes(t *testing.T) {
	var chunk value.Chunk
	idx, ok := chunk.AddConstant(value.Number(3))
	require.True(t, ok)
	chunk.Write(byte(compiler.OpConstant), 1)
	chunk.Write(byte(idx), 1)

	idx2, ok := chunk.AddConstant(&value.ObjString{Chars: "hi"})
	require.True(t, ok)
	chunk.Write(byte(compiler.OpConstant), 2)
	chunk.Write(byte(idx2), 2)

	jumpOffset := chunk.Write(byte(compiler.OpJumpIfFalse), 3)
	chunk.Write(0, 3)
	chunk.Write(0, 3)
	chunk.Write(byte(compiler.OpPop), 4)
	target := len(chunk.Code) - jumpOffset - 2
	chunk.Code[jumpOffset+1] = byte(target >> 8)
	chunk.Code[jumpOffset+2] = byte(target)
	chunk.Write(byte(compiler.OpReturn), 5)

	text, err := compiler.Dasm(&chunk)
	require.NoError(t, err)

	reassembled, err := compiler.Assemble(text)
	require.NoError(t, err)
	require.Equal(t, chunk.Code, reassembled.Code, "disassemble-then-reassemble must reproduce identical bytes")
	require.Equal(t, chunk.Constants, reassembled.Constants)
}

func TestDasmRejectsClosureConstant(t *testing.T) {
	var chunk value.Chunk
	_, ok := chunk.AddConstant(&value.ObjFunction{})
	require.True(t, ok)
	_, err := compiler.Dasm(&chunk)
	require.Error(t, err, "a function constant has no textual form in this round-trip format")
}
