package vm

import (
	"fmt"
	"time"

	"github.com/loxvm/loxvm/lang/value"
)

// defineNatives installs the fixed native-function registry (§6): at
// minimum `clock()`, plus `str(value)` (see SPEC_FULL.md §5's entry on the
// registry's extent). Natives must never call back into the
// VM (§6); neither of these does.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", func(_ []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
	vm.defineNative("str", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("str() expects 1 argument, got %d", len(args))
		}
		return vm.interner.Intern(args[0].String()), nil
	})
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	vm.globals.Put(name, &value.ObjNative{Name: name, Fn: fn})
	vm.globalNames[name] = struct{}{}
}
