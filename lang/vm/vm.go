// Package vm implements the stack-based virtual machine that interprets the
// bytecode lang/compiler produces (§4.4): a value stack, a call-frame stack,
// an open-upvalue list, a global-name table and an interned-string table,
// driven by a single dispatch loop over one chunk at a time.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/loxvm/loxvm/lang/compiler"
	"github.com/loxvm/loxvm/lang/value"
)

// Default resource ceilings (§4.4.1, §5): a 64-deep call stack and a value
// stack sized for 64 frames of up to 256 locals/temporaries each. Both are
// overridable per VM (internal/config wires these to the running process's
// resolved configuration).
const (
	DefaultMaxFrames = 64
	DefaultMaxStack  = DefaultMaxFrames * 256
)

// callFrame is one entry of the call stack (§3 "Call-frame"): the closure
// being executed, the index of the next instruction to execute in its
// chunk, and the value-stack index corresponding to the callee's slot 0.
type callFrame struct {
	closure *value.ObjClosure
	ip      int
	base    int
}

func (f *callFrame) chunk() *value.Chunk { return f.closure.Function.Chunk }

// VM is one interpreter instance. It is not safe for concurrent use (§5):
// exactly one interpret call executes to completion on the calling
// goroutine at a time.
type VM struct {
	// Stdout is where the `print` statement writes (§6). Defaults to
	// os.Stdout on first use if left nil.
	Stdout io.Writer

	// MaxFrames caps the call-frame stack depth; exceeding it is the
	// "Stack overflow." runtime error (§4.4.3). Zero means DefaultMaxFrames.
	MaxFrames int

	// MaxStack caps the value stack's length: a call made while the stack
	// holds MaxStack or more values is the "Stack overflow." runtime error.
	// Zero means DefaultMaxStack.
	MaxStack int

	// MaxSteps, if positive, bounds the number of bytecode instructions a
	// single Interpret call may execute before it is aborted with a
	// RuntimeError — a non-catchable runaway-script guard (not part of
	// spec.md's invariants; an addition described in SPEC_FULL.md §2). Zero
	// means unlimited.
	MaxSteps int

	interner *value.Interner
	globals  *swiss.Map[string, value.Value]

	// globalNames mirrors the key set of globals. swiss.Map trades iteration
	// for lookup speed, so defined-global names are tracked here too, purely
	// to give GlobalNames a cheap, deterministic listing.
	globalNames map[string]struct{}

	stack        []value.Value
	frames       []callFrame
	openUpvalues []*value.ObjUpvalue

	steps uint64

	initialized bool
}

// New returns a VM ready to Interpret source, with default resource
// ceilings. The native-function registry (§6) is installed on first use, by
// the first Interpret or Disassemble call.
func New() *VM {
	vm := &VM{
		MaxFrames: DefaultMaxFrames,
		MaxStack:  DefaultMaxStack,
	}
	return vm
}

// init performs the one-time setup a Thread-style runtime defers until
// first use (§4.4.1's globals/interner tables live for "the entire
// interpretation", across every REPL line sharing this VM).
func (vm *VM) init() {
	if vm.initialized {
		return
	}
	vm.initialized = true
	if vm.Stdout == nil {
		vm.Stdout = os.Stdout
	}
	if vm.MaxFrames <= 0 {
		vm.MaxFrames = DefaultMaxFrames
	}
	if vm.MaxStack <= 0 {
		vm.MaxStack = DefaultMaxStack
	}
	vm.interner = value.NewInterner()
	vm.globals = swiss.NewMap[string, value.Value](32)
	vm.globalNames = make(map[string]struct{}, 32)
	vm.frames = make([]callFrame, 0, vm.MaxFrames)
	vm.defineNatives()
}

// GlobalNames returns the names of every global currently defined, sorted
// for deterministic output (used by the CLI's `--dump-globals` diagnostic;
// see DESIGN.md).
func (vm *VM) GlobalNames() []string {
	names := maps.Keys(vm.globalNames)
	slices.Sort(names)
	return names
}

// Interpret compiles source and, if compilation succeeds, runs it to
// completion (§4.4.1). The VM's globals and interner persist across
// repeated calls on the same VM (the REPL shares one VM across lines); the
// value stack, call-frame stack and open-upvalue list are reset at the
// start of every call and whenever a call aborts.
//
// The returned error is either nil, a *CompileError, or a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	vm.init()
	vm.reset()
	vm.steps = 0

	fn, errs := compiler.Compile(source, vm.interner)
	if errs != nil {
		return &CompileError{Errs: errs}
	}

	closure := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
	vm.push(closure)
	if err := vm.call(closure, 0); err != nil {
		vm.reset()
		return err
	}
	if err := vm.run(); err != nil {
		vm.reset()
		return err
	}
	return nil
}

// Disassemble compiles source without running it and returns the
// disassembly of its top-level chunk and every nested function's chunk
// (SPEC_FULL.md §4's `-disassemble` diagnostic).
func (vm *VM) Disassemble(source string) (string, error) {
	vm.init()
	fn, errs := compiler.Compile(source, vm.interner)
	if errs != nil {
		return "", &CompileError{Errs: errs}
	}
	return disassembleRecursive(fn), nil
}

func disassembleRecursive(fn *value.ObjFunction) string {
	name := fn.String()
	out := compiler.Disassemble(fn.Chunk, name)
	for _, c := range fn.Chunk.Constants {
		if nested, ok := c.(*value.ObjFunction); ok {
			out += disassembleRecursive(nested)
		}
	}
	return out
}

func (vm *VM) reset() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = vm.openUpvalues[:0]
}

// --- value stack ---

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// --- bytecode reading ---

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.chunk().Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(frame *callFrame) value.Value {
	return frame.chunk().Constants[vm.readByte(frame)]
}

func (vm *VM) readConstantString(frame *callFrame) *value.ObjString {
	return vm.readConstant(frame).(*value.ObjString)
}

// --- dispatch loop (§4.4.1, §4.4.2) ---

func (vm *VM) run() error {
	frame := &vm.frames[len(vm.frames)-1]

loop:
	for {
		if vm.MaxSteps > 0 {
			vm.steps++
			if vm.steps > uint64(vm.MaxSteps) {
				return vm.runtimeError("Execution step budget exceeded.")
			}
		}

		op := compiler.Opcode(vm.readByte(frame))
		switch op {
		case compiler.OpConstant:
			vm.push(vm.readConstant(frame))
		case compiler.OpNil:
			vm.push(value.NilValue)
		case compiler.OpTrue:
			vm.push(value.True)
		case compiler.OpFalse:
			vm.push(value.False)
		case compiler.OpPop:
			vm.pop()

		case compiler.OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.base+slot])
		case compiler.OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.base+slot] = vm.peek(0)

		case compiler.OpGetGlobal:
			name := vm.readConstantString(frame)
			v, ok := vm.globals.Get(name.Chars)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case compiler.OpSetGlobal:
			name := vm.readConstantString(frame)
			if _, ok := vm.globals.Get(name.Chars); !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.globals.Put(name.Chars, vm.peek(0))
		case compiler.OpDefineGlobal:
			name := vm.readConstantString(frame)
			vm.globals.Put(name.Chars, vm.pop())
			vm.globalNames[name.Chars] = struct{}{}

		case compiler.OpGetUpvalue:
			idx := vm.readByte(frame)
			up := frame.closure.Upvalues[idx]
			if up.Closed {
				vm.push(up.Value)
			} else {
				vm.push(vm.stack[up.Slot])
			}
		case compiler.OpSetUpvalue:
			idx := vm.readByte(frame)
			up := frame.closure.Upvalues[idx]
			if up.Closed {
				up.Value = vm.peek(0)
			} else {
				vm.stack[up.Slot] = vm.peek(0)
			}

		case compiler.OpGetProperty:
			name := vm.readConstantString(frame)
			instance, ok := vm.peek(0).(*value.ObjInstance)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			if field, ok := instance.Fields[name.Chars]; ok {
				vm.pop()
				vm.push(field)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}
		case compiler.OpSetProperty:
			name := vm.readConstantString(frame)
			instance, ok := vm.peek(1).(*value.ObjInstance)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			val := vm.pop()
			instance.Fields[name.Chars] = val
			vm.pop()
			vm.push(val)
		case compiler.OpGetSuper:
			name := vm.readConstantString(frame)
			super := vm.pop().(*value.ObjClass)
			if err := vm.bindMethod(super, name); err != nil {
				return err
			}

		case compiler.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case compiler.OpGreater, compiler.OpLess, compiler.OpSubtract, compiler.OpMultiply, compiler.OpDivide:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case compiler.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case compiler.OpNot:
			vm.push(value.Bool(value.Falsey(vm.pop())))
		case compiler.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(-n)

		case compiler.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case compiler.OpJump:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case compiler.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if value.Falsey(vm.peek(0)) {
				frame.ip += int(offset)
			}
		case compiler.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case compiler.OpCall:
			argc := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			frame = &vm.frames[len(vm.frames)-1]

		case compiler.OpInvoke:
			name := vm.readConstantString(frame)
			argc := int(vm.readByte(frame))
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			frame = &vm.frames[len(vm.frames)-1]

		case compiler.OpSuperInvoke:
			name := vm.readConstantString(frame)
			argc := int(vm.readByte(frame))
			super := vm.pop().(*value.ObjClass)
			if err := vm.invokeFromClass(super, name, argc); err != nil {
				return err
			}
			frame = &vm.frames[len(vm.frames)-1]

		case compiler.OpClosure:
			fn := vm.readConstant(frame).(*value.ObjFunction)
			closure := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(closure)
		case compiler.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case compiler.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				break loop
			}
			vm.stack = vm.stack[:frame.base]
			vm.push(result)
			frame = &vm.frames[len(vm.frames)-1]

		case compiler.OpClass:
			name := vm.readConstantString(frame)
			vm.push(value.NewClass(name))
		case compiler.OpInherit:
			super, ok := vm.peek(1).(*value.ObjClass)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			sub := vm.peek(0).(*value.ObjClass)
			for name, m := range super.Methods {
				sub.Methods[name] = m
			}
			vm.pop()
		case compiler.OpMethod:
			name := vm.readConstantString(frame)
			closure := vm.pop().(*value.ObjClosure)
			class := vm.peek(0).(*value.ObjClass)
			class.Methods[name.Chars] = closure

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
	return nil
}
