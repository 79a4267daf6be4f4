package value

import "github.com/dolthub/swiss"

// Interner is the string-interning table (§3 "uniqueness invariant", §9
// "String interning"): at most one ObjString per distinct byte sequence is
// ever live for the table's lifetime. Grounded on the teacher's own use of
// swiss.Map for its Map value type (lang/machine/map.go) — an interner is
// exactly the long-lived, lookup-heavy, insert-mostly table that data
// structure targets.
//
// One Interner is shared by a single compile-and-run: the compiler interns
// every string literal and identifier name it emits as a constant, and the
// VM interns every string produced at runtime (concatenation results), so
// that `==` on strings can be a pointer comparison everywhere.
type Interner struct {
	table *swiss.Map[string, *ObjString]
}

// NewInterner returns an empty interning table.
func NewInterner() *Interner {
	return &Interner{table: swiss.NewMap[string, *ObjString](64)}
}

// Intern returns the canonical *ObjString for s, allocating and recording
// one if this is the first time s has been seen.
func (in *Interner) Intern(s string) *ObjString {
	if obj, ok := in.table.Get(s); ok {
		return obj
	}
	obj := &ObjString{Chars: s}
	in.table.Put(s, obj)
	return obj
}

// Concat interns the concatenation of a and b without allocating an
// intermediate ObjString when the result was already interned.
func (in *Interner) Concat(a, b *ObjString) *ObjString {
	return in.Intern(a.Chars + b.Chars)
}
