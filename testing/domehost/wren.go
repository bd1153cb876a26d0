package domehost

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// Value is a Wren value in the simulated VM: nil, bool, float64, string,
// *List, *Map, *Object or *Class.
type Value = any

// List is a Wren list.
type List struct {
	Elements []Value
}

// NewList creates a list holding values.
func NewList(values ...Value) *List {
	return &List{Elements: append([]Value(nil), values...)}
}

// Map is a Wren map. Keys must be nil, bool, float64, string or *Class.
type Map struct {
	keys    []Value
	entries map[Value]Value
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[Value]Value)}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Get returns the value stored under key.
func (m *Map) Get(key Value) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set stores value under key.
func (m *Map) Set(key, value Value) {
	mustHashable(key)
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = value
}

// Delete removes key and returns the removed value.
func (m *Map) Delete(key Value) (Value, bool) {
	v, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	return append([]Value(nil), m.keys...)
}

func mustHashable(key Value) {
	switch key.(type) {
	case nil, bool, float64, string, *Class:
	default:
		panic(fmt.Sprintf("domehost: %T is not a valid map key", key))
	}
}

// Object is an instance of a foreign class. Its memory belongs to the host.
type Object struct {
	Class     *Class
	data      []byte
	finalized bool
}

// Data returns the object's foreign memory.
func (o *Object) Data() []byte {
	return o.data
}

// Finalized reports whether the host already ran the class finalizer.
func (o *Object) Finalized() bool {
	return o.finalized
}

// Handle is a long-lived reference to a value.
type Handle struct {
	Value Value
}

// FiberError is returned when a foreign method aborts the current fiber.
type FiberError struct {
	Value Value
}

func (e *FiberError) Error() string {
	return fmt.Sprintf("fiber aborted: %v", e.Value)
}

type vmState struct {
	host       *Host
	slots      []Value
	aborted    bool
	abortValue Value
}

func (h *Host) vmPtr() ports.VMPtr {
	return ports.VMPtr(unsafe.Pointer(h.vm))
}

func (h *Host) vmState(vm ports.VMPtr) *vmState {
	if unsafe.Pointer(vm) != unsafe.Pointer(h.vm) {
		panic("domehost: foreign VM pointer")
	}
	return h.vm
}

func (s *vmState) get(slot int) Value {
	if slot < 0 || slot >= len(s.slots) {
		panic(fmt.Sprintf("domehost: slot %d out of range (%d slots)", slot, len(s.slots)))
	}
	return s.slots[slot]
}

func (s *vmState) set(slot int, v Value) {
	s.get(slot)
	s.slots[slot] = v
}

func slotType(v Value) entities.SlotType {
	switch v.(type) {
	case nil:
		return entities.SlotNull
	case bool:
		return entities.SlotBool
	case float64:
		return entities.SlotNum
	case string:
		return entities.SlotString
	case *List:
		return entities.SlotList
	case *Map:
		return entities.SlotMap
	case *Object:
		return entities.SlotForeign
	default:
		return entities.SlotUnknown
	}
}

func listIndex(index, count int) int {
	if index < 0 {
		index += count
	}
	if index < 0 || index >= count {
		panic(fmt.Sprintf("domehost: list index %d out of bounds (%d elements)", index, count))
	}
	return index
}

// invoke runs fn with a fresh slot frame and restores the caller's frame
// afterwards, so foreign methods may be invoked from other callbacks.
func (h *Host) invoke(fn func(ports.VMPtr), slots []Value) (Value, error) {
	s := h.vm
	savedSlots, savedAborted, savedValue := s.slots, s.aborted, s.abortValue
	defer func() {
		s.slots, s.aborted, s.abortValue = savedSlots, savedAborted, savedValue
	}()

	s.slots, s.aborted, s.abortValue = slots, false, nil
	fn(h.vmPtr())

	if s.aborted {
		return nil, &FiberError{Value: s.abortValue}
	}
	if len(s.slots) == 0 {
		return nil, nil
	}
	return s.slots[0], nil
}

func (h *Host) class(module, name string) (*Class, error) {
	m, ok := h.modules[module]
	if !ok {
		return nil, fmt.Errorf("domehost: unknown module %q", module)
	}
	if c, ok := m.classes[name]; ok {
		return c, nil
	}
	if !strings.Contains(m.Source, "class "+name) {
		return nil, fmt.Errorf("domehost: module %q declares no class %q", module, name)
	}
	c := &Class{Module: module, Name: name}
	m.classes[name] = c
	return c, nil
}

func (h *Host) method(module, key string, args []Value) (ports.ForeignMethodFn, error) {
	m, ok := h.modules[module]
	if !ok {
		return nil, fmt.Errorf("domehost: unknown module %q", module)
	}
	fn, ok := m.fns[key]
	if !ok {
		return nil, fmt.Errorf("domehost: no foreign method %q in module %q", key, module)
	}
	arity := 0
	if i := strings.LastIndexByte(key, '('); i >= 0 {
		arity = strings.Count(key[i:], "_")
	}
	if arity != len(args) {
		return nil, fmt.Errorf("domehost: %q takes %d arguments, got %d", key, arity, len(args))
	}
	return fn, nil
}

// New constructs an instance of a foreign class by running its allocator
// with the class in slot 0 and args in the following slots.
func (h *Host) New(module, class string, args ...Value) (*Object, error) {
	c, err := h.class(module, class)
	if err != nil {
		return nil, err
	}
	if !c.Foreign() {
		return nil, fmt.Errorf("domehost: class %q is not foreign", class)
	}
	result, err := h.invoke(c.allocate, append([]Value{c}, args...))
	if err != nil {
		return nil, err
	}
	obj, ok := result.(*Object)
	if !ok {
		return nil, fmt.Errorf("domehost: allocator for %q did not create a foreign object", class)
	}
	return obj, nil
}

// Call invokes an instance method on obj. signature is the Wren signature
// without the class, e.g. "alert(_)".
func (h *Host) Call(obj *Object, signature string, args ...Value) (Value, error) {
	if obj == nil || obj.Class == nil {
		return nil, fmt.Errorf("domehost: call on nil object")
	}
	if obj.finalized {
		return nil, fmt.Errorf("domehost: call on finalized %s", obj.Class.Name)
	}
	fn, err := h.method(obj.Class.Module, obj.Class.Name+"."+signature, args)
	if err != nil {
		return nil, err
	}
	return h.invoke(fn, append([]Value{obj}, args...))
}

// CallStatic invokes a static method with the class in slot 0.
func (h *Host) CallStatic(module, class, signature string, args ...Value) (Value, error) {
	c, err := h.class(module, class)
	if err != nil {
		return nil, err
	}
	fn, err := h.method(module, "static "+class+"."+signature, args)
	if err != nil {
		return nil, err
	}
	return h.invoke(fn, append([]Value{c}, args...))
}

// Release finalizes obj the way the garbage collector would.
func (h *Host) Release(obj *Object) {
	if obj == nil || obj.finalized {
		return
	}
	obj.finalized = true
	for i, o := range h.objects {
		if o == obj {
			h.objects = append(h.objects[:i], h.objects[i+1:]...)
			break
		}
	}
	if obj.Class.finalize != nil {
		obj.Class.finalize(unsafe.Pointer(&obj.data[0]))
	}
}

// Collect finalizes every live foreign object, newest first.
func (h *Host) Collect() {
	for len(h.objects) > 0 {
		h.Release(h.objects[len(h.objects)-1])
	}
}

// LiveObjects returns the number of foreign objects not yet finalized.
func (h *Host) LiveObjects() int {
	return len(h.objects)
}

// wrenAPI implements ports.WrenAPI. Like a debug build of Wren, it panics on
// any access the real VM would assert on.
type wrenAPI struct {
	h *Host
}

var _ ports.WrenAPI = (*wrenAPI)(nil)

func (w *wrenAPI) EnsureSlots(vm ports.VMPtr, count int) {
	s := w.h.vmState(vm)
	for len(s.slots) < count {
		s.slots = append(s.slots, nil)
	}
}

func (w *wrenAPI) SetSlotNull(vm ports.VMPtr, slot int) {
	w.h.vmState(vm).set(slot, nil)
}

func (w *wrenAPI) SetSlotBool(vm ports.VMPtr, slot int, value bool) {
	w.h.vmState(vm).set(slot, value)
}

func (w *wrenAPI) SetSlotDouble(vm ports.VMPtr, slot int, value float64) {
	w.h.vmState(vm).set(slot, value)
}

func (w *wrenAPI) SetSlotString(vm ports.VMPtr, slot int, text string) {
	w.h.vmState(vm).set(slot, text)
}

func (w *wrenAPI) SetSlotBytes(vm ports.VMPtr, slot int, data []byte) {
	w.h.vmState(vm).set(slot, string(data))
}

func (w *wrenAPI) SetSlotNewForeign(vm ports.VMPtr, slot, classSlot int, size int) unsafe.Pointer {
	s := w.h.vmState(vm)
	c, ok := s.get(classSlot).(*Class)
	if !ok || !c.Foreign() {
		panic(fmt.Sprintf("domehost: slot %d does not hold a foreign class", classSlot))
	}
	if size < 1 {
		size = 1
	}
	obj := &Object{Class: c, data: make([]byte, size)}
	s.set(slot, obj)
	w.h.objects = append(w.h.objects, obj)
	return unsafe.Pointer(&obj.data[0])
}

func (w *wrenAPI) SetSlotNewList(vm ports.VMPtr, slot int) {
	w.h.vmState(vm).set(slot, &List{})
}

func (w *wrenAPI) SetSlotNewMap(vm ports.VMPtr, slot int) {
	w.h.vmState(vm).set(slot, NewMap())
}

func (w *wrenAPI) GetUserData(vm ports.VMPtr) ports.ContextPtr {
	w.h.vmState(vm)
	return w.h.ContextPtr()
}

func (w *wrenAPI) GetSlotBool(vm ports.VMPtr, slot int) bool {
	v, ok := w.h.vmState(vm).get(slot).(bool)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a bool", slot))
	}
	return v
}

func (w *wrenAPI) GetSlotDouble(vm ports.VMPtr, slot int) float64 {
	v, ok := w.h.vmState(vm).get(slot).(float64)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a number", slot))
	}
	return v
}

func (w *wrenAPI) GetSlotString(vm ports.VMPtr, slot int) string {
	v, ok := w.h.vmState(vm).get(slot).(string)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a string", slot))
	}
	// The C API hands out a NUL-terminated string.
	if i := strings.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return v
}

func (w *wrenAPI) GetSlotBytes(vm ports.VMPtr, slot int) []byte {
	v, ok := w.h.vmState(vm).get(slot).(string)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a string", slot))
	}
	return []byte(v)
}

func (w *wrenAPI) GetSlotForeign(vm ports.VMPtr, slot int) unsafe.Pointer {
	obj, ok := w.h.vmState(vm).get(slot).(*Object)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a foreign object", slot))
	}
	return unsafe.Pointer(&obj.data[0])
}

func (w *wrenAPI) AbortFiber(vm ports.VMPtr, slot int) {
	s := w.h.vmState(vm)
	s.abortValue = s.get(slot)
	s.aborted = true
}

func (w *wrenAPI) GetSlotCount(vm ports.VMPtr) int {
	return len(w.h.vmState(vm).slots)
}

func (w *wrenAPI) GetSlotType(vm ports.VMPtr, slot int) entities.SlotType {
	return slotType(w.h.vmState(vm).get(slot))
}

func (w *wrenAPI) list(vm ports.VMPtr, slot int) *List {
	l, ok := w.h.vmState(vm).get(slot).(*List)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a list", slot))
	}
	return l
}

func (w *wrenAPI) GetListCount(vm ports.VMPtr, slot int) int {
	return len(w.list(vm, slot).Elements)
}

func (w *wrenAPI) GetListElement(vm ports.VMPtr, listSlot, index, elementSlot int) {
	l := w.list(vm, listSlot)
	w.h.vm.set(elementSlot, l.Elements[listIndex(index, len(l.Elements))])
}

func (w *wrenAPI) SetListElement(vm ports.VMPtr, listSlot, index, elementSlot int) {
	l := w.list(vm, listSlot)
	l.Elements[listIndex(index, len(l.Elements))] = w.h.vm.get(elementSlot)
}

func (w *wrenAPI) InsertInList(vm ports.VMPtr, listSlot, index, elementSlot int) {
	l := w.list(vm, listSlot)
	if index < 0 {
		index += len(l.Elements) + 1
	}
	if index < 0 || index > len(l.Elements) {
		panic(fmt.Sprintf("domehost: insert index %d out of bounds", index))
	}
	v := w.h.vm.get(elementSlot)
	l.Elements = append(l.Elements, nil)
	copy(l.Elements[index+1:], l.Elements[index:])
	l.Elements[index] = v
}

func (w *wrenAPI) mapAt(vm ports.VMPtr, slot int) *Map {
	m, ok := w.h.vmState(vm).get(slot).(*Map)
	if !ok {
		panic(fmt.Sprintf("domehost: slot %d must hold a map", slot))
	}
	return m
}

func (w *wrenAPI) GetMapCount(vm ports.VMPtr, slot int) int {
	return w.mapAt(vm, slot).Len()
}

func (w *wrenAPI) GetMapContainsKey(vm ports.VMPtr, mapSlot, keySlot int) bool {
	m := w.mapAt(vm, mapSlot)
	key := w.h.vm.get(keySlot)
	mustHashable(key)
	_, ok := m.Get(key)
	return ok
}

func (w *wrenAPI) GetMapValue(vm ports.VMPtr, mapSlot, keySlot, valueSlot int) {
	m := w.mapAt(vm, mapSlot)
	key := w.h.vm.get(keySlot)
	mustHashable(key)
	v, _ := m.Get(key)
	w.h.vm.set(valueSlot, v)
}

func (w *wrenAPI) SetMapValue(vm ports.VMPtr, mapSlot, keySlot, valueSlot int) {
	m := w.mapAt(vm, mapSlot)
	m.Set(w.h.vm.get(keySlot), w.h.vm.get(valueSlot))
}

func (w *wrenAPI) RemoveMapValue(vm ports.VMPtr, mapSlot, keySlot, removedValueSlot int) {
	m := w.mapAt(vm, mapSlot)
	key := w.h.vm.get(keySlot)
	mustHashable(key)
	v, _ := m.Delete(key)
	w.h.vm.set(removedValueSlot, v)
}

func (w *wrenAPI) GetVariable(vm ports.VMPtr, module, name string, slot int) {
	s := w.h.vmState(vm)
	if v, ok := w.h.variables[module][name]; ok {
		s.set(slot, v)
		return
	}
	if c, err := w.h.class(module, name); err == nil {
		s.set(slot, c)
		return
	}
	panic(fmt.Sprintf("domehost: module %q has no variable %q", module, name))
}

func (w *wrenAPI) GetSlotHandle(vm ports.VMPtr, slot int) ports.HandlePtr {
	h := &Handle{Value: w.h.vmState(vm).get(slot)}
	w.h.handles = append(w.h.handles, h)
	return ports.HandlePtr(unsafe.Pointer(h))
}

func (w *wrenAPI) SetSlotHandle(vm ports.VMPtr, slot int, handle ports.HandlePtr) {
	h := (*Handle)(unsafe.Pointer(handle))
	w.h.vmState(vm).set(slot, h.Value)
}

// Handles returns the number of handles created by plugins.
func (h *Host) Handles() int {
	return len(h.handles)
}
