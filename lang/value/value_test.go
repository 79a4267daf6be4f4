package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxvm/loxvm/lang/value"
)

func TestFalsey(t *testing.T) {
	require.True(t, value.Falsey(value.NilValue))
	require.True(t, value.Falsey(value.False))
	require.False(t, value.Falsey(value.True))
	require.False(t, value.Falsey(value.Number(0)))
	require.False(t, value.Falsey(&value.ObjString{Chars: ""}))
}

func TestNumberString(t *testing.T) {
	require.Equal(t, "3", value.Number(3).String())
	require.Equal(t, "3.25", value.Number(3.25).String())
	require.Equal(t, "0", value.Number(0).String())
}

func TestEqualPrimitives(t *testing.T) {
	require.True(t, value.Equal(value.NilValue, value.NilValue))
	require.True(t, value.Equal(value.True, value.True))
	require.False(t, value.Equal(value.True, value.False))
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.NilValue))
}

func TestEqualStringsByInternedIdentity(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("hi")
	b := in.Intern("h" + "i")
	require.True(t, a == b, "equal content must intern to the same object")
	require.True(t, value.Equal(a, b))
}

func TestEqualObjectIdentityOtherwise(t *testing.T) {
	klass := value.NewClass(&value.ObjString{Chars: "A"})
	other := value.NewClass(&value.ObjString{Chars: "A"})
	require.False(t, value.Equal(klass, other), "distinct instances of equal-named classes are not equal")
	require.True(t, value.Equal(klass, klass))
}

func TestPrintForms(t *testing.T) {
	require.Equal(t, "nil", value.NilValue.String())
	require.Equal(t, "true", value.True.String())
	require.Equal(t, "false", value.False.String())

	fn := &value.ObjFunction{Name: &value.ObjString{Chars: "add"}}
	require.Equal(t, "<fn add>", fn.String())

	script := &value.ObjFunction{}
	require.Equal(t, "<script>", script.String())

	nat := &value.ObjNative{Name: "clock"}
	require.Equal(t, "<native fn>", nat.String())

	klass := value.NewClass(&value.ObjString{Chars: "Duck"})
	require.Equal(t, "Duck", klass.String())

	inst := value.NewInstance(klass)
	require.Equal(t, "Duck instance", inst.String())

	closure := &value.ObjClosure{Function: fn}
	bound := &value.ObjBoundMethod{Receiver: inst, Method: closure}
	require.Equal(t, "<fn add>", bound.String())
}

func TestChunkWriteKeepsCodeAndLinesInLockstep(t *testing.T) {
	var c value.Chunk
	c.Write(0x01, 1)
	c.Write(0x02, 1)
	c.Write(0x03, 2)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, c.Code)
	require.Equal(t, []int{1, 1, 2}, c.Lines)
	require.Len(t, c.Code, len(c.Lines))
}

func TestChunkAddConstantRespectsLimit(t *testing.T) {
	var c value.Chunk
	for i := 0; i < value.MaxConstants; i++ {
		_, ok := c.AddConstant(value.Number(float64(i)))
		require.True(t, ok)
	}
	_, ok := c.AddConstant(value.Number(999))
	require.False(t, ok, "the 257th constant must be rejected")
}
