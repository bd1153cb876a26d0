package plugin

import (
	"fmt"
	"unicode/utf8"

	"github.com/reglet-dev/dome-sdk/application/capability"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// VM gives a foreign method access to the Wren slot API. It is only valid
// for the duration of the call it was passed to.
//
// Every accessor validates the slot index and, where the host would assert,
// the slot type before forwarding the call.
type VM struct {
	table *capability.Table
	ptr   ports.VMPtr
	frame *frame
}

// Handle is a long-lived reference to a Wren value. The v0 API has no way to
// release handles, so they live as long as the VM.
type Handle struct {
	ptr ports.HandlePtr
}

func (vm *VM) live() error {
	if vm == nil || !vm.frame.live() {
		return errors.ErrStaleContext
	}
	return nil
}

func (vm *VM) checkSlot(op string, slot int) error {
	if err := vm.live(); err != nil {
		return err
	}
	count := vm.table.Wren().GetSlotCount(vm.ptr)
	if slot < 0 || slot >= count {
		return &errors.SlotError{Op: op, Slot: slot, Count: count}
	}
	return nil
}

func (vm *VM) checkType(op string, slot int, want entities.SlotType) error {
	if err := vm.checkSlot(op, slot); err != nil {
		return err
	}
	if got := vm.table.Wren().GetSlotType(vm.ptr, slot); got != want {
		return &errors.SlotError{
			Op:    op,
			Slot:  slot,
			Count: vm.table.Wren().GetSlotCount(vm.ptr),
			Want:  want,
			Got:   got,
		}
	}
	return nil
}

// Context returns the DOME context for the VM, e.g. to log from a foreign
// method. Registration is not possible through it.
func (vm *VM) Context() (*Context, error) {
	if err := vm.live(); err != nil {
		return nil, err
	}
	ctx := vm.table.Dome().GetContext(vm.ptr)
	return newContext(vm.table, ctx, vm.frame, entities.EventCallback, 0), nil
}

// EnsureSlots makes sure there are at least count slots.
func (vm *VM) EnsureSlots(count int) error {
	if err := vm.live(); err != nil {
		return err
	}
	if count < 0 {
		return &errors.SlotError{Op: "EnsureSlots", Slot: count, Reason: "negative slot count"}
	}
	vm.table.Wren().EnsureSlots(vm.ptr, count)
	return nil
}

// SlotCount returns the number of slots available.
func (vm *VM) SlotCount() (int, error) {
	if err := vm.live(); err != nil {
		return 0, err
	}
	return vm.table.Wren().GetSlotCount(vm.ptr), nil
}

// SlotType returns the type of the value in slot.
func (vm *VM) SlotType(slot int) (entities.SlotType, error) {
	if err := vm.checkSlot("SlotType", slot); err != nil {
		return entities.SlotUnknown, err
	}
	return vm.table.Wren().GetSlotType(vm.ptr, slot), nil
}

// SetSlotNull stores null in slot.
func (vm *VM) SetSlotNull(slot int) error {
	if err := vm.checkSlot("SetSlotNull", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotNull(vm.ptr, slot)
	return nil
}

// SetSlotBool stores a Bool in slot.
func (vm *VM) SetSlotBool(slot int, value bool) error {
	if err := vm.checkSlot("SetSlotBool", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotBool(vm.ptr, slot, value)
	return nil
}

// SetSlotDouble stores a Num in slot.
func (vm *VM) SetSlotDouble(slot int, value float64) error {
	if err := vm.checkSlot("SetSlotDouble", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotDouble(vm.ptr, slot, value)
	return nil
}

// SetSlotString stores a String in slot.
func (vm *VM) SetSlotString(slot int, text string) error {
	if err := vm.checkSlot("SetSlotString", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotString(vm.ptr, slot, text)
	return nil
}

// SetSlotBytes stores a byte String in slot. The data may contain NUL bytes.
func (vm *VM) SetSlotBytes(slot int, data []byte) error {
	if err := vm.checkSlot("SetSlotBytes", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotBytes(vm.ptr, slot, data)
	return nil
}

// SetSlotNewList stores a new empty List in slot.
func (vm *VM) SetSlotNewList(slot int) error {
	if err := vm.checkSlot("SetSlotNewList", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotNewList(vm.ptr, slot)
	return nil
}

// SetSlotNewMap stores a new empty Map in slot.
func (vm *VM) SetSlotNewMap(slot int) error {
	if err := vm.checkSlot("SetSlotNewMap", slot); err != nil {
		return err
	}
	vm.table.Wren().SetSlotNewMap(vm.ptr, slot)
	return nil
}

// SetSlotHandle stores the value referenced by h in slot.
func (vm *VM) SetSlotHandle(slot int, h *Handle) error {
	if err := vm.checkSlot("SetSlotHandle", slot); err != nil {
		return err
	}
	if h == nil || h.ptr == nil {
		return &errors.SlotError{Op: "SetSlotHandle", Slot: slot, Reason: "nil handle"}
	}
	vm.table.Wren().SetSlotHandle(vm.ptr, slot, h.ptr)
	return nil
}

// SlotBool returns the Bool in slot.
func (vm *VM) SlotBool(slot int) (bool, error) {
	if err := vm.checkType("SlotBool", slot, entities.SlotBool); err != nil {
		return false, err
	}
	return vm.table.Wren().GetSlotBool(vm.ptr, slot), nil
}

// SlotDouble returns the Num in slot.
func (vm *VM) SlotDouble(slot int) (float64, error) {
	if err := vm.checkType("SlotDouble", slot, entities.SlotNum); err != nil {
		return 0, err
	}
	return vm.table.Wren().GetSlotDouble(vm.ptr, slot), nil
}

// SlotString returns the String in slot. Strings that are not valid UTF-8
// are rejected; use SlotBytes for binary data.
func (vm *VM) SlotString(slot int) (string, error) {
	const op = "SlotString"
	if err := vm.checkType(op, slot, entities.SlotString); err != nil {
		return "", err
	}
	b := vm.table.Wren().GetSlotBytes(vm.ptr, slot)
	if !utf8.Valid(b) {
		return "", &errors.SlotError{Op: op, Slot: slot, Reason: "invalid UTF-8"}
	}
	return string(b), nil
}

// SlotBytes returns the raw bytes of the String in slot.
func (vm *VM) SlotBytes(slot int) ([]byte, error) {
	if err := vm.checkType("SlotBytes", slot, entities.SlotString); err != nil {
		return nil, err
	}
	return vm.table.Wren().GetSlotBytes(vm.ptr, slot), nil
}

// SlotHandle creates a handle to the value in slot.
func (vm *VM) SlotHandle(slot int) (*Handle, error) {
	if err := vm.checkSlot("SlotHandle", slot); err != nil {
		return nil, err
	}
	return &Handle{ptr: vm.table.Wren().GetSlotHandle(vm.ptr, slot)}, nil
}

// ListCount returns the number of elements in the List in slot.
func (vm *VM) ListCount(slot int) (int, error) {
	if err := vm.checkType("ListCount", slot, entities.SlotList); err != nil {
		return 0, err
	}
	return vm.table.Wren().GetListCount(vm.ptr, slot), nil
}

// checkList validates a list access. Negative indices count from the end.
// extra widens the valid range for insertion.
func (vm *VM) checkList(op string, listSlot, index, elementSlot, extra int) error {
	if err := vm.checkType(op, listSlot, entities.SlotList); err != nil {
		return err
	}
	if err := vm.checkSlot(op, elementSlot); err != nil {
		return err
	}
	count := vm.table.Wren().GetListCount(vm.ptr, listSlot) + extra
	if index < -count || index >= count {
		return &errors.SlotError{Op: op, Slot: listSlot, Count: count, Reason: indexReason(index, count-extra)}
	}
	return nil
}

// ListElement copies the element at index of the List in listSlot into elementSlot.
func (vm *VM) ListElement(listSlot, index, elementSlot int) error {
	if err := vm.checkList("ListElement", listSlot, index, elementSlot, 0); err != nil {
		return err
	}
	vm.table.Wren().GetListElement(vm.ptr, listSlot, index, elementSlot)
	return nil
}

// SetListElement replaces the element at index with the value in elementSlot.
func (vm *VM) SetListElement(listSlot, index, elementSlot int) error {
	if err := vm.checkList("SetListElement", listSlot, index, elementSlot, 0); err != nil {
		return err
	}
	vm.table.Wren().SetListElement(vm.ptr, listSlot, index, elementSlot)
	return nil
}

// InsertInList inserts the value in elementSlot at index. index may be one
// past the end; -1 appends.
func (vm *VM) InsertInList(listSlot, index, elementSlot int) error {
	if err := vm.checkList("InsertInList", listSlot, index, elementSlot, 1); err != nil {
		return err
	}
	vm.table.Wren().InsertInList(vm.ptr, listSlot, index, elementSlot)
	return nil
}

// MapCount returns the number of entries in the Map in slot.
func (vm *VM) MapCount(slot int) (int, error) {
	if err := vm.checkType("MapCount", slot, entities.SlotMap); err != nil {
		return 0, err
	}
	return vm.table.Wren().GetMapCount(vm.ptr, slot), nil
}

func (vm *VM) checkMapKey(op string, mapSlot, keySlot int) error {
	if err := vm.checkType(op, mapSlot, entities.SlotMap); err != nil {
		return err
	}
	if err := vm.checkSlot(op, keySlot); err != nil {
		return err
	}
	switch vm.table.Wren().GetSlotType(vm.ptr, keySlot) {
	case entities.SlotList, entities.SlotMap, entities.SlotForeign:
		return &errors.SlotError{Op: op, Slot: keySlot, Reason: "map key is not hashable"}
	}
	return nil
}

// MapContainsKey reports whether the Map in mapSlot has the key in keySlot.
func (vm *VM) MapContainsKey(mapSlot, keySlot int) (bool, error) {
	if err := vm.checkMapKey("MapContainsKey", mapSlot, keySlot); err != nil {
		return false, err
	}
	return vm.table.Wren().GetMapContainsKey(vm.ptr, mapSlot, keySlot), nil
}

// MapValue copies the value for the key in keySlot into valueSlot.
func (vm *VM) MapValue(mapSlot, keySlot, valueSlot int) error {
	if err := vm.checkMapKey("MapValue", mapSlot, keySlot); err != nil {
		return err
	}
	if err := vm.checkSlot("MapValue", valueSlot); err != nil {
		return err
	}
	vm.table.Wren().GetMapValue(vm.ptr, mapSlot, keySlot, valueSlot)
	return nil
}

// SetMapValue stores the value in valueSlot under the key in keySlot.
func (vm *VM) SetMapValue(mapSlot, keySlot, valueSlot int) error {
	if err := vm.checkMapKey("SetMapValue", mapSlot, keySlot); err != nil {
		return err
	}
	if err := vm.checkSlot("SetMapValue", valueSlot); err != nil {
		return err
	}
	vm.table.Wren().SetMapValue(vm.ptr, mapSlot, keySlot, valueSlot)
	return nil
}

// RemoveMapValue removes the key in keySlot and stores the removed value,
// or null, in removedSlot.
func (vm *VM) RemoveMapValue(mapSlot, keySlot, removedSlot int) error {
	if err := vm.checkMapKey("RemoveMapValue", mapSlot, keySlot); err != nil {
		return err
	}
	if err := vm.checkSlot("RemoveMapValue", removedSlot); err != nil {
		return err
	}
	vm.table.Wren().RemoveMapValue(vm.ptr, mapSlot, keySlot, removedSlot)
	return nil
}

// Variable loads the top-level variable name of module into slot.
func (vm *VM) Variable(module, name string, slot int) error {
	if err := vm.checkSlot("Variable", slot); err != nil {
		return err
	}
	vm.table.Wren().GetVariable(vm.ptr, module, name, slot)
	return nil
}

// AbortFiber aborts the current fiber with the value in slot as the error.
func (vm *VM) AbortFiber(slot int) error {
	if err := vm.checkSlot("AbortFiber", slot); err != nil {
		return err
	}
	vm.table.Wren().AbortFiber(vm.ptr, slot)
	return nil
}

// Abort aborts the current fiber with message. It overwrites slot 0.
func (vm *VM) Abort(message string) error {
	if err := vm.EnsureSlots(1); err != nil {
		return err
	}
	vm.table.Wren().SetSlotBytes(vm.ptr, 0, []byte(message))
	vm.table.Wren().AbortFiber(vm.ptr, 0)
	return nil
}

func indexReason(index, count int) string {
	return fmt.Sprintf("index %d out of bounds for list of %d", index, count)
}
