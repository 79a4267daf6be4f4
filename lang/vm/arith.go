package vm

import (
	"github.com/loxvm/loxvm/lang/compiler"
	"github.com/loxvm/loxvm/lang/value"
)

// binaryNumberOp implements every binary operator that requires both
// operands to be numbers: the two ordering comparisons and three of the four
// arithmetic operators (`+` also accepts two strings, so it is handled
// separately by add) (§4.4.2).
func (vm *VM) binaryNumberOp(op compiler.Opcode) error {
	b, bOk := vm.peek(0).(value.Number)
	a, aOk := vm.peek(1).(value.Number)
	if !aOk || !bOk {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case compiler.OpGreater:
		vm.push(value.Bool(a > b))
	case compiler.OpLess:
		vm.push(value.Bool(a < b))
	case compiler.OpSubtract:
		vm.push(a - b)
	case compiler.OpMultiply:
		vm.push(a * b)
	case compiler.OpDivide:
		// Division by zero yields IEEE infinity, not an error (§7): Go's
		// float64 division already has that behavior.
		vm.push(a / b)
	}
	return nil
}

// add implements `+` (§4.4.2): numeric addition for two numbers, interned
// concatenation for two strings, a type error for anything else.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	if bn, ok := b.(value.Number); ok {
		an, ok := a.(value.Number)
		if !ok {
			return vm.runtimeError("Operands must be two numbers or two strings.")
		}
		vm.pop()
		vm.pop()
		vm.push(an + bn)
		return nil
	}

	if bs, ok := b.(*value.ObjString); ok {
		as, ok := a.(*value.ObjString)
		if !ok {
			return vm.runtimeError("Operands must be two numbers or two strings.")
		}
		vm.pop()
		vm.pop()
		vm.push(vm.interner.Concat(as, bs))
		return nil
	}

	return vm.runtimeError("Operands must be two numbers or two strings.")
}
