package sdk

import (
	"fmt"
	"math"

	"github.com/reglet-dev/dome-sdk/domain/entities"
)

// GetString reads a String argument.
// Returns the value and true if the slot holds a String, otherwise "" and false.
func GetString(vm *VM, slot int) (string, bool) {
	s, err := vm.SlotString(slot)
	return s, err == nil
}

// GetFloat reads a Num argument.
func GetFloat(vm *VM, slot int) (float64, bool) {
	n, err := vm.SlotDouble(slot)
	return n, err == nil
}

// Bounds of the float64 values that convert to int exactly. maxIntFloat is
// one past the largest int.
const (
	minIntFloat = float64(math.MinInt)
	maxIntFloat = -float64(math.MinInt)
)

// GetInt reads a Num argument that has no fractional part and fits in an int.
func GetInt(vm *VM, slot int) (int, bool) {
	n, err := vm.SlotDouble(slot)
	if err != nil || n != math.Trunc(n) || n < minIntFloat || n >= maxIntFloat {
		return 0, false
	}
	return int(n), true
}

// GetBool reads a Bool argument.
func GetBool(vm *VM, slot int) (bool, bool) {
	b, err := vm.SlotBool(slot)
	return b, err == nil
}

// GetStringSlice reads a List of Strings argument.
func GetStringSlice(vm *VM, slot int) ([]string, bool) {
	v, err := SlotValue(vm, slot)
	if err != nil {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// MustGetString reads a required String argument.
func MustGetString(vm *VM, slot int) (string, error) {
	s, ok := GetString(vm, slot)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string", slot)
	}
	return s, nil
}

// MustGetInt reads a required integer argument.
func MustGetInt(vm *VM, slot int) (int, error) {
	i, ok := GetInt(vm, slot)
	if !ok {
		return 0, fmt.Errorf("argument %d must be an integer", slot)
	}
	return i, nil
}

// MustGetBool reads a required Bool argument.
func MustGetBool(vm *VM, slot int) (bool, error) {
	b, ok := GetBool(vm, slot)
	if !ok {
		return false, fmt.Errorf("argument %d must be a boolean", slot)
	}
	return b, nil
}

// GetStringDefault reads an optional String argument; null or a missing
// slot yields defaultValue.
func GetStringDefault(vm *VM, slot int, defaultValue string) string {
	if s, ok := GetString(vm, slot); ok {
		return s
	}
	return defaultValue
}

// GetIntDefault reads an optional integer argument.
func GetIntDefault(vm *VM, slot int, defaultValue int) int {
	if i, ok := GetInt(vm, slot); ok {
		return i
	}
	return defaultValue
}

// GetBoolDefault reads an optional Bool argument.
func GetBoolDefault(vm *VM, slot int, defaultValue bool) bool {
	if b, ok := GetBool(vm, slot); ok {
		return b
	}
	return defaultValue
}

// SlotValue converts the value in slot to Go: nil, bool, float64, string or
// []any for Lists, recursively. Maps, foreign objects and other objects
// cannot be read this way. Lists are read through scratch slots above the
// current slot count.
func SlotValue(vm *VM, slot int) (any, error) {
	t, err := vm.SlotType(slot)
	if err != nil {
		return nil, err
	}
	switch t {
	case entities.SlotNull:
		return nil, nil
	case entities.SlotBool:
		return vm.SlotBool(slot)
	case entities.SlotNum:
		return vm.SlotDouble(slot)
	case entities.SlotString:
		return vm.SlotString(slot)
	case entities.SlotList:
		return listValue(vm, slot)
	default:
		return nil, fmt.Errorf("slot %d: cannot convert %s to a Go value", slot, t)
	}
}

func listValue(vm *VM, slot int) ([]any, error) {
	n, err := vm.ListCount(slot)
	if err != nil {
		return nil, err
	}
	scratch, err := scratchSlot(vm)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, n)
	for i := range n {
		if err := vm.ListElement(slot, i, scratch); err != nil {
			return nil, err
		}
		v, err := SlotValue(vm, scratch)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SetSlotValue stores a Go value in slot: nil, bool, integer and float
// types, string, []byte, []any and map[string]any, recursively.
func SetSlotValue(vm *VM, slot int, v any) error {
	switch x := v.(type) {
	case nil:
		return vm.SetSlotNull(slot)
	case bool:
		return vm.SetSlotBool(slot, x)
	case int:
		return vm.SetSlotDouble(slot, float64(x))
	case int32:
		return vm.SetSlotDouble(slot, float64(x))
	case int64:
		return vm.SetSlotDouble(slot, float64(x))
	case float32:
		return vm.SetSlotDouble(slot, float64(x))
	case float64:
		return vm.SetSlotDouble(slot, x)
	case string:
		return vm.SetSlotString(slot, x)
	case []byte:
		return vm.SetSlotBytes(slot, x)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return setList(vm, slot, items)
	case []any:
		return setList(vm, slot, x)
	case map[string]any:
		return setMap(vm, slot, x)
	default:
		return fmt.Errorf("slot %d: unsupported Go type %T", slot, v)
	}
}

func setList(vm *VM, slot int, items []any) error {
	if err := vm.SetSlotNewList(slot); err != nil {
		return err
	}
	scratch, err := scratchSlot(vm)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := SetSlotValue(vm, scratch, item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		if err := vm.InsertInList(slot, -1, scratch); err != nil {
			return err
		}
	}
	return nil
}

func setMap(vm *VM, slot int, m map[string]any) error {
	if err := vm.SetSlotNewMap(slot); err != nil {
		return err
	}
	key, err := scratchSlot(vm)
	if err != nil {
		return err
	}
	value, err := scratchSlot(vm)
	if err != nil {
		return err
	}
	for k, v := range m {
		if err := vm.SetSlotString(key, k); err != nil {
			return err
		}
		if err := SetSlotValue(vm, value, v); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		if err := vm.SetMapValue(slot, key, value); err != nil {
			return err
		}
	}
	return nil
}

// scratchSlot grows the slot array by one and returns the new slot.
func scratchSlot(vm *VM) (int, error) {
	n, err := vm.SlotCount()
	if err != nil {
		return 0, err
	}
	if err := vm.EnsureSlots(n + 1); err != nil {
		return 0, err
	}
	return n, nil
}
