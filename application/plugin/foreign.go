package plugin

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/application/capability"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/domain/ports"
	"github.com/reglet-dev/dome-sdk/internal/abi"
)

// ForeignFunc implements a foreign method or class allocator. Arguments are
// in slots 1..n, the receiver (or class, for static methods and allocators)
// is in slot 0, and the return value is written to slot 0. A returned error
// aborts the calling fiber with the error text.
type ForeignFunc func(vm *VM) error

// FinalizeFunc is called with the value stored by NewForeign when the
// object is garbage collected. It must not call back into Wren.
type FinalizeFunc func(value any)

// panicAbortMessage is what the script sees when a callback panics.
const panicAbortMessage = "Plugin panicked. See DOME's log for details."

// foreignMethod adapts fn to the host calling convention. Each invocation
// gets its own VM frame, panics are contained, and errors abort the fiber.
func foreignMethod(table *capability.Table, fn ForeignFunc) ports.ForeignMethodFn {
	return func(ptr ports.VMPtr) {
		f := &frame{}
		vm := &VM{table: table, ptr: ptr, frame: f}
		err := callProtected(func() error { return fn(vm) })
		f.close()
		if err != nil {
			failCallback(table, ptr, err)
		}
	}
}

// callProtected runs fn and converts a panic into *errors.PanicError.
func callProtected(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// failCallback reports a failed callback to the script. Panics are logged to
// the host first and the fiber sees a generic message.
func failCallback(table *capability.Table, ptr ports.VMPtr, err error) {
	msg := err.Error()
	var p *errors.PanicError
	if stdErrors.As(err, &p) {
		logPanic(table, table.Dome().GetContext(ptr), p)
		msg = panicAbortMessage
	}
	w := table.Wren()
	w.EnsureSlots(ptr, 1)
	w.SetSlotString(ptr, 0, msg)
	w.AbortFiber(ptr, 0)
}

func logPanic(table *capability.Table, ctx ports.ContextPtr, p *errors.PanicError) {
	slog.Debug("plugin panic", "panic", p.Value, "stack", string(p.Stack))
	if ctx == nil {
		return
	}
	table.Dome().Log(ctx, escapeLog(fmt.Sprintf("Plugin panicked: %v\n", p.Value)))
}

// finalizer returns the host finalizer for a foreign class. It always
// releases the pinned value, even when fin is nil.
func finalizer(_ *capability.Table, fin FinalizeFunc) ports.FinalizerFn {
	return func(data unsafe.Pointer) {
		h, ok := abi.ReadHeader(data)
		if !ok {
			return
		}
		abi.ClearHeader(data)
		value, ok := abi.Release(h)
		if !ok || fin == nil {
			return
		}
		if err := callProtected(func() error { fin(value); return nil }); err != nil {
			slog.Error("foreign finalizer panicked", "error", err)
		}
	}
}

// NewForeign creates an instance of the foreign class in slot 0 and stores
// value in it. It is meant to be called from a class allocator.
func NewForeign[T any](vm *VM, value *T) error {
	return NewForeignAt(vm, 0, 0, value)
}

// NewForeignAt creates an instance of the foreign class in classSlot, puts it
// in slot and stores value in it.
func NewForeignAt[T any](vm *VM, slot, classSlot int, value *T) error {
	const op = "NewForeign"
	if value == nil {
		return fmt.Errorf("%s: nil value", op)
	}
	if err := vm.checkSlot(op, slot); err != nil {
		return err
	}
	if err := vm.checkSlot(op, classSlot); err != nil {
		return err
	}
	h, err := abi.Pin(value)
	if err != nil {
		return err
	}
	p := vm.table.Wren().SetSlotNewForeign(vm.ptr, slot, classSlot, abi.HeaderSize)
	if p == nil {
		abi.Release(h)
		return &errors.SlotError{Op: op, Slot: classSlot, Reason: "host did not allocate the object"}
	}
	abi.WriteHeader(p, h)
	return nil
}

// Foreign returns the value stored in the foreign object in slot.
func Foreign[T any](vm *VM, slot int) (*T, error) {
	const op = "Foreign"
	if err := vm.checkType(op, slot, entities.SlotForeign); err != nil {
		return nil, err
	}
	p := vm.table.Wren().GetSlotForeign(vm.ptr, slot)
	h, ok := abi.ReadHeader(p)
	if !ok {
		return nil, &errors.SlotError{Op: op, Slot: slot, Reason: "foreign object was not created by this plugin"}
	}
	v, ok := abi.Lookup(h)
	if !ok {
		return nil, &errors.SlotError{Op: op, Slot: slot, Reason: "foreign object was finalized"}
	}
	typed, ok := v.(*T)
	if !ok {
		var zero *T
		return nil, &errors.SlotError{Op: op, Slot: slot, Reason: fmt.Sprintf("holds %T, want %T", v, zero)}
	}
	return typed, nil
}
