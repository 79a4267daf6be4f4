package vm

import "github.com/loxvm/loxvm/lang/value"

// callValue dispatches a call to any of the five callee kinds spec.md
// §4.4.3 allows (closure, native, class, bound method, or an invalid
// target), replacing the callee and its arguments on the stack with the
// call's eventual result — except where the call runs a closure (a closure,
// a bound method, or a class with an init method), which instead pushes a
// new call frame for the dispatch loop to run.
func (vm *VM) callValue(callee value.Value, argc int) error {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.call(c, argc)
	case *value.ObjNative:
		args := vm.stack[len(vm.stack)-argc:]
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err)
		}
		vm.stack = vm.stack[:len(vm.stack)-argc-1]
		vm.push(result)
		return nil
	case *value.ObjClass:
		vm.stack[len(vm.stack)-argc-1] = value.NewInstance(c)
		if init, ok := c.Methods["init"]; ok {
			return vm.call(init, argc)
		}
		if argc != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *value.ObjBoundMethod:
		vm.stack[len(vm.stack)-argc-1] = c.Receiver
		return vm.call(c.Method, argc)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// call pushes a new call frame for closure, bound to the argc arguments
// already sitting on top of the stack (§4.4.3).
func (vm *VM) call(closure *value.ObjClosure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if len(vm.frames) == cap(vm.frames) || len(vm.stack) >= vm.MaxStack {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		base:    len(vm.stack) - argc - 1,
	})
	return nil
}

// invoke fuses a get-property lookup with a call (§4.3.6, §4.4.2, §9): a
// field with the same name as a method shadows it, checked exactly once at
// the call site.
func (vm *VM) invoke(name *value.ObjString, argc int) error {
	receiver := vm.peek(argc)
	instance, ok := receiver.(*value.ObjInstance)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if field, ok := instance.Fields[name.Chars]; ok {
		vm.stack[len(vm.stack)-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argc int) error {
	method, ok := class.Methods[name.Chars]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method, argc)
}

// bindMethod pops the receiver on top of the stack and pushes a bound
// method wrapping one of class's closures, or errors if class has no
// method by that name (§4.4.2 get-property / get-super).
func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods[name.Chars]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	receiver := vm.pop()
	vm.push(&value.ObjBoundMethod{Receiver: receiver, Method: method})
	return nil
}

