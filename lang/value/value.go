// Package value defines the tagged Value union and heap object family that
// the compiler's constant pools and the VM's stack hold, along with the
// Chunk type a compiled function's bytecode lives in.
//
// Chunk lives here rather than in lang/compiler because an ObjFunction's own
// Chunk holds a constant pool of Values, and that pool may itself contain
// other ObjFunction constants (a nested function literal is just another
// constant of its enclosing chunk): Chunk and Value are mutually dependent,
// so whichever package "wins" must own both to avoid an import cycle between
// lang/value and lang/compiler. lang/compiler depends on lang/value, not the
// other way around, mirroring the teacher's layering where lang/machine
// depends on lang/compiler.
package value

import "strconv"

// Value is implemented by every value the VM can push onto its stack or
// store in a chunk's constant pool.
type Value interface {
	// String returns the value's canonical printed form (§6: the form the
	// `print` statement and Obj.String() report).
	String() string

	// Type returns a short name for the value's kind, used in error messages.
	Type() string
}

// Nil is the value of the literal `nil`.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the single Nil value; nil carries no state so one instance
// suffices.
var NilValue = Nil{}

// Bool is the value of the literals `true` and `false`.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

const (
	True  Bool = true
	False Bool = false
)

// Number is the value of a numeric literal or arithmetic result. Lox has a
// single numeric type, a float64, matching clox's `double`.
type Number float64

func (n Number) Type() string { return "number" }

// String formats n as a general floating-point literal without trailing
// zeros, printing integral values without a decimal point (§6).
func (n Number) String() string {
	f := float64(n)
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Falsey reports whether v is one of the two falsey values, nil or false.
// Every other value, including the number 0 and the empty string, is
// truthy (§4.4.2).
func Falsey(v Value) bool {
	switch t := v.(type) {
	case Nil:
		return true
	case Bool:
		return !bool(t)
	default:
		return false
	}
}

// Equal implements Value equality (§3): same-kind comparison by value for
// nil/bool/number, identity for every other object. Strings are interned
// (see Interner), so pointer identity on *ObjString already coincides with
// content equality — no separate string case is needed here.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	default:
		return a == b
	}
}
