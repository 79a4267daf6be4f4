package vm

import "github.com/loxvm/loxvm/lang/value"

// captureUpvalue returns the open upvalue cell for the stack slot at
// index, reusing an existing cell if one is already open for that slot
// (§4.4.4). openUpvalues is kept sorted by descending Slot (§3, §9): the
// insertion point is the first cell whose Slot is not greater than slot.
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	i := 0
	for i < len(vm.openUpvalues) && vm.openUpvalues[i].Slot > slot {
		i++
	}
	if i < len(vm.openUpvalues) && vm.openUpvalues[i].Slot == slot {
		return vm.openUpvalues[i]
	}

	up := &value.ObjUpvalue{Slot: slot}
	vm.openUpvalues = append(vm.openUpvalues, nil)
	copy(vm.openUpvalues[i+1:], vm.openUpvalues[i:])
	vm.openUpvalues[i] = up
	return up
}

// closeUpvalues closes every open upvalue whose slot is at or above limit,
// copying the live stack value into the cell before it is popped (§4.4.4).
// Because the list is sorted by descending slot, the cells to close are
// always a prefix of it.
func (vm *VM) closeUpvalues(limit int) {
	for len(vm.openUpvalues) > 0 && vm.openUpvalues[0].Slot >= limit {
		up := vm.openUpvalues[0]
		up.Value = vm.stack[up.Slot]
		up.Closed = true
		vm.openUpvalues = vm.openUpvalues[1:]
	}
}
