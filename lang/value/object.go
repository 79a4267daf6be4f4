package value

// Obj is implemented by every heap-allocated value: strings, functions,
// natives, upvalue cells, closures, classes, instances, and bound methods
// (§3). It adds nothing to Value; it exists only to close the set of object
// kinds and to let call sites assert "this is a heap object" without
// enumerating every concrete type.
type Obj interface {
	Value
	objMarker()
}

// Chunk is one function's compiled bytecode: a byte array, a parallel array
// of source lines (one entry per byte of Code), and a constant pool. The
// invariant len(Code) == len(Lines) must hold at the end of every compile
// (§3, §8).
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends a single byte attributed to line and returns its offset.
func (c *Chunk) Write(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// MaxConstants is the hard ceiling on a chunk's constant pool: constant
// operands are a single byte wide (§4.3.3).
const MaxConstants = 256

// AddConstant appends v to the pool and returns its index and true, or
// false if the pool is already at MaxConstants.
func (c *Chunk) AddConstant(v Value) (int, bool) {
	if len(c.Constants) >= MaxConstants {
		return 0, false
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, true
}

// FunctionKind distinguishes the four contexts a function body may compile
// in, which affects implicit-return and `this`/`return` legality (§3, §4.3.4,
// §4.3.6).
type FunctionKind uint8

const (
	FuncScript FunctionKind = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

func (k FunctionKind) String() string {
	switch k {
	case FuncScript:
		return "script"
	case FuncFunction:
		return "function"
	case FuncMethod:
		return "method"
	case FuncInitializer:
		return "initializer"
	default:
		return "unknown"
	}
}

// ObjString is an interned, immutable byte sequence. At most one ObjString
// with a given content is ever live at a time (see Interner); equality of
// strings therefore reduces to pointer identity. Globals, fields and methods
// are looked up by the string's Chars.
type ObjString struct {
	Chars string
}

func (s *ObjString) objMarker()    {}
func (s *ObjString) Type() string  { return "string" }
func (s *ObjString) String() string { return s.Chars }

// ObjFunction is the compiled, callable-but-never-called-directly body of a
// `fun` declaration or a class method. The VM always calls through an
// ObjClosure (§3: "every call uses a closure; bare functions are never
// called directly at runtime").
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Kind         FunctionKind
	Chunk        *Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) objMarker()   {}
func (f *ObjFunction) Type() string { return "function" }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// NativeFn is a host-provided callable: it receives exactly the arguments
// the call site passed and returns a single Value, or an error. Natives must
// not recursively call back into the VM (§6).
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a NativeFn so it can live in the constant pool, globals
// table, and on the value stack like any other callable.
type ObjNative struct {
	Name string
	Fn   NativeFn
}

func (n *ObjNative) objMarker()    {}
func (n *ObjNative) Type() string  { return "native" }
func (n *ObjNative) String() string { return "<native fn>" }

// ObjUpvalue is a shareable box around a captured local. While Closed is
// false it is "open": its live value lives in the VM's value stack at index
// Slot, and reads/writes dispatch there. Once Closed it owns Value directly.
// The open→closed transition happens exactly once per cell, when its slot
// is about to be popped off the stack (§3, §4.4.4); the dispatch on
// Closed/Slot lives in lang/vm, which owns the stack this cell may point
// into.
type ObjUpvalue struct {
	Slot   int
	Closed bool
	Value  Value
}

func (u *ObjUpvalue) objMarker()    {}
func (u *ObjUpvalue) Type() string  { return "upvalue" }
func (u *ObjUpvalue) String() string { return "upvalue" }

// ObjClosure pairs a compiled function with the upvalue cells it captured at
// creation time. Its length always equals Function.UpvalueCount.
type ObjClosure struct {
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) objMarker()    {}
func (c *ObjClosure) Type() string  { return "closure" }
func (c *ObjClosure) String() string { return c.Function.String() }

// ObjClass is a class's runtime representation: its name and its method
// table. Method lookup is by exact name; there is no method overloading.
type ObjClass struct {
	Name    *ObjString
	Methods map[string]*ObjClosure
}

// NewClass returns an empty class named name.
func NewClass(name *ObjString) *ObjClass {
	return &ObjClass{Name: name, Methods: make(map[string]*ObjClosure)}
}

func (c *ObjClass) objMarker()    {}
func (c *ObjClass) Type() string  { return "class" }
func (c *ObjClass) String() string { return c.Name.Chars }

// ObjInstance is an instance of a class: a reference to its class and a set
// of dynamically-assigned fields. Fields shadow methods of the same name at
// property-access sites (§4.4.2 get-property, §9 method invoke fusion).
type ObjInstance struct {
	Class  *ObjClass
	Fields map[string]Value
}

// NewInstance returns a field-less instance of class.
func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Class: class, Fields: make(map[string]Value)}
}

func (i *ObjInstance) objMarker()   {}
func (i *ObjInstance) Type() string { return "instance" }
func (i *ObjInstance) String() string {
	return i.Class.Name.Chars + " instance"
}

// ObjBoundMethod pairs a receiver with one of its class's closures, produced
// by a get-property that resolves to a method rather than a field. Calling
// it calls Method with Receiver already installed in slot 0.
type ObjBoundMethod struct {
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) objMarker()    {}
func (b *ObjBoundMethod) Type() string  { return "bound method" }
func (b *ObjBoundMethod) String() string { return b.Method.Function.String() }
