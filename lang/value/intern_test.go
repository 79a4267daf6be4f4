package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxvm/loxvm/lang/value"
)

func TestInternerReturnsSameObjectForEqualContent(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("abc")
	b := in.Intern("abc")
	require.Same(t, a, b)
}

func TestInternerDistinguishesDifferentContent(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("abc")
	b := in.Intern("abd")
	require.NotSame(t, a, b)
}

func TestInternerConcat(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("a")
	b := in.Intern("b")
	c := in.Intern("ab")
	require.Same(t, c, in.Concat(a, b))
}
