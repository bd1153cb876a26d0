package cabi

/*
#include <stdlib.h>
#include "calls.h"
#include "trampolines.h"
*/
import "C"

import (
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// Trampoline counts compiled into trampolines.c.
const (
	MethodSlots    = int(C.DOME_METHOD_SLOTS)
	FinalizerSlots = int(C.DOME_FINALIZER_SLOTS)
)

var (
	methods    = newSlotPool[ports.ForeignMethodFn]("method", MethodSlots)
	finalizers = newSlotPool[ports.FinalizerFn]("finalizer", FinalizerSlots)
)

// activeWren is the Wren group bound by the last init, used to abort the
// fiber when an unbound trampoline is called.
var activeWren atomic.Pointer[wrenAPI]

// Reset unbinds every trampoline. It runs as the load hook of the default
// dispatcher, so only an init the dispatcher accepts clears the pools, and
// not shutdown, because the host may still finalize foreign objects after it.
func Reset() {
	methods.reset()
	finalizers.reset()
}

// Provider adapts the host's getAPI function to ports.APIProvider.
type Provider struct {
	fn C.DOME_getAPIFunction
}

// NewProvider wraps getAPI. A nil getAPI yields a nil provider.
func NewProvider(getAPI unsafe.Pointer) ports.APIProvider {
	if getAPI == nil {
		return nil
	}
	return &Provider{fn: C.DOME_getAPIFunction(getAPI)}
}

// GetAPI returns the requested group, or nil when the host has no such group
// or any of its function pointers is missing.
func (p *Provider) GetAPI(api entities.APIType, version int32) any {
	ptr := C.dome_get_api(p.fn, C.API_TYPE(api), C.int(version))
	if ptr == nil {
		return nil
	}
	switch api {
	case entities.APIDome:
		a := (*C.DOME_API_v0)(ptr)
		if !C.dome_api_complete(a) {
			return nil
		}
		return &domeAPI{api: a}
	case entities.APIWren:
		a := (*C.WREN_API_v0)(ptr)
		if !C.wren_api_complete(a) {
			return nil
		}
		w := &wrenAPI{api: a}
		activeWren.Store(w)
		return w
	case entities.APIAudio:
		a := (*C.AUDIO_API_v0)(ptr)
		if !C.audio_api_complete(a) {
			return nil
		}
		return newAudioAPI(a)
	}
	return nil
}

func ctxPtr(ctx ports.ContextPtr) C.DOME_Context {
	return C.DOME_Context(unsafe.Pointer(ctx))
}

func vmPtr(vm ports.VMPtr) *C.WrenVM {
	return (*C.WrenVM)(unsafe.Pointer(vm))
}

type domeAPI struct {
	api *C.DOME_API_v0
}

func (d *domeAPI) RegisterModule(ctx ports.ContextPtr, name, source string) entities.Result {
	cName, cSource := C.CString(name), C.CString(source)
	defer C.free(unsafe.Pointer(cName))
	defer C.free(unsafe.Pointer(cSource))

	return entities.Result(C.dome_register_module(d.api, ctxPtr(ctx), cName, cSource))
}

func (d *domeAPI) RegisterFn(ctx ports.ContextPtr, module, signature string, fn ports.ForeignMethodFn) entities.Result {
	slot, err := methods.bind(fn)
	if err != nil {
		slog.Error("register foreign method", "module", module, "signature", signature, "error", err)
		return entities.ResultFailure
	}

	cModule, cSig := C.CString(module), C.CString(signature)
	defer C.free(unsafe.Pointer(cModule))
	defer C.free(unsafe.Pointer(cSig))

	res := entities.Result(C.dome_register_fn(d.api, ctxPtr(ctx), cModule, cSig, C.int(slot)))
	if !res.OK() {
		methods.unbind(slot)
	}
	return res
}

func (d *domeAPI) RegisterClass(ctx ports.ContextPtr, module, class string, allocate ports.ForeignMethodFn, finalize ports.FinalizerFn) entities.Result {
	alloc, err := methods.bind(allocate)
	if err != nil {
		slog.Error("register foreign class", "module", module, "class", class, "error", err)
		return entities.ResultFailure
	}
	fin := -1
	if finalize != nil {
		if fin, err = finalizers.bind(finalize); err != nil {
			methods.unbind(alloc)
			slog.Error("register foreign class", "module", module, "class", class, "error", err)
			return entities.ResultFailure
		}
	}

	cModule, cClass := C.CString(module), C.CString(class)
	defer C.free(unsafe.Pointer(cModule))
	defer C.free(unsafe.Pointer(cClass))

	res := entities.Result(C.dome_register_class(d.api, ctxPtr(ctx), cModule, cClass, C.int(alloc), C.int(fin)))
	if !res.OK() {
		methods.unbind(alloc)
		finalizers.unbind(fin)
	}
	return res
}

func (d *domeAPI) LockModule(ctx ports.ContextPtr, name string) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	C.dome_lock_module(d.api, ctxPtr(ctx), cName)
}

func (d *domeAPI) GetContext(vm ports.VMPtr) ports.ContextPtr {
	return ports.ContextPtr(unsafe.Pointer(C.dome_get_context(d.api, vmPtr(vm))))
}

func (d *domeAPI) Log(ctx ports.ContextPtr, text string) {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))
	C.dome_log(d.api, ctxPtr(ctx), cText)
}

type wrenAPI struct {
	api *C.WREN_API_v0
}

func (w *wrenAPI) EnsureSlots(vm ports.VMPtr, count int) {
	C.wren_ensure_slots(w.api, vmPtr(vm), C.int(count))
}

func (w *wrenAPI) SetSlotNull(vm ports.VMPtr, slot int) {
	C.wren_set_slot_null(w.api, vmPtr(vm), C.int(slot))
}

func (w *wrenAPI) SetSlotBool(vm ports.VMPtr, slot int, value bool) {
	C.wren_set_slot_bool(w.api, vmPtr(vm), C.int(slot), C.bool(value))
}

func (w *wrenAPI) SetSlotDouble(vm ports.VMPtr, slot int, value float64) {
	C.wren_set_slot_double(w.api, vmPtr(vm), C.int(slot), C.double(value))
}

// SetSlotString copies text, which may contain NUL bytes, so it goes through
// setSlotBytes rather than the NUL-terminated setSlotString.
func (w *wrenAPI) SetSlotString(vm ports.VMPtr, slot int, text string) {
	w.SetSlotBytes(vm, slot, []byte(text))
}

func (w *wrenAPI) SetSlotBytes(vm ports.VMPtr, slot int, data []byte) {
	var p *C.char
	if len(data) > 0 {
		p = (*C.char)(unsafe.Pointer(unsafe.SliceData(data)))
	}
	C.wren_set_slot_bytes(w.api, vmPtr(vm), C.int(slot), p, C.size_t(len(data)))
}

func (w *wrenAPI) SetSlotNewForeign(vm ports.VMPtr, slot, classSlot int, size int) unsafe.Pointer {
	return C.wren_set_slot_new_foreign(w.api, vmPtr(vm), C.int(slot), C.int(classSlot), C.size_t(size))
}

func (w *wrenAPI) SetSlotNewList(vm ports.VMPtr, slot int) {
	C.wren_set_slot_new_list(w.api, vmPtr(vm), C.int(slot))
}

func (w *wrenAPI) SetSlotNewMap(vm ports.VMPtr, slot int) {
	C.wren_set_slot_new_map(w.api, vmPtr(vm), C.int(slot))
}

func (w *wrenAPI) GetUserData(vm ports.VMPtr) ports.ContextPtr {
	return ports.ContextPtr(unsafe.Pointer(C.wren_get_user_data(w.api, vmPtr(vm))))
}

func (w *wrenAPI) GetSlotBool(vm ports.VMPtr, slot int) bool {
	return bool(C.wren_get_slot_bool(w.api, vmPtr(vm), C.int(slot)))
}

func (w *wrenAPI) GetSlotDouble(vm ports.VMPtr, slot int) float64 {
	return float64(C.wren_get_slot_double(w.api, vmPtr(vm), C.int(slot)))
}

// GetSlotString reads the full byte length so embedded NULs survive.
func (w *wrenAPI) GetSlotString(vm ports.VMPtr, slot int) string {
	return string(w.GetSlotBytes(vm, slot))
}

func (w *wrenAPI) GetSlotBytes(vm ports.VMPtr, slot int) []byte {
	var n C.int
	p := C.wren_get_slot_bytes(w.api, vmPtr(vm), C.int(slot), &n)
	if p == nil || n <= 0 {
		return []byte{}
	}
	return C.GoBytes(unsafe.Pointer(p), n)
}

func (w *wrenAPI) GetSlotForeign(vm ports.VMPtr, slot int) unsafe.Pointer {
	return C.wren_get_slot_foreign(w.api, vmPtr(vm), C.int(slot))
}

func (w *wrenAPI) AbortFiber(vm ports.VMPtr, slot int) {
	C.wren_abort_fiber(w.api, vmPtr(vm), C.int(slot))
}

func (w *wrenAPI) GetSlotCount(vm ports.VMPtr) int {
	return int(C.wren_get_slot_count(w.api, vmPtr(vm)))
}

func (w *wrenAPI) GetSlotType(vm ports.VMPtr, slot int) entities.SlotType {
	return entities.SlotType(C.wren_get_slot_type(w.api, vmPtr(vm), C.int(slot)))
}

func (w *wrenAPI) GetListCount(vm ports.VMPtr, slot int) int {
	return int(C.wren_get_list_count(w.api, vmPtr(vm), C.int(slot)))
}

func (w *wrenAPI) GetListElement(vm ports.VMPtr, listSlot, index, elementSlot int) {
	C.wren_get_list_element(w.api, vmPtr(vm), C.int(listSlot), C.int(index), C.int(elementSlot))
}

func (w *wrenAPI) SetListElement(vm ports.VMPtr, listSlot, index, elementSlot int) {
	C.wren_set_list_element(w.api, vmPtr(vm), C.int(listSlot), C.int(index), C.int(elementSlot))
}

func (w *wrenAPI) InsertInList(vm ports.VMPtr, listSlot, index, elementSlot int) {
	C.wren_insert_in_list(w.api, vmPtr(vm), C.int(listSlot), C.int(index), C.int(elementSlot))
}

func (w *wrenAPI) GetMapCount(vm ports.VMPtr, slot int) int {
	return int(C.wren_get_map_count(w.api, vmPtr(vm), C.int(slot)))
}

func (w *wrenAPI) GetMapContainsKey(vm ports.VMPtr, mapSlot, keySlot int) bool {
	return bool(C.wren_get_map_contains_key(w.api, vmPtr(vm), C.int(mapSlot), C.int(keySlot)))
}

func (w *wrenAPI) GetMapValue(vm ports.VMPtr, mapSlot, keySlot, valueSlot int) {
	C.wren_get_map_value(w.api, vmPtr(vm), C.int(mapSlot), C.int(keySlot), C.int(valueSlot))
}

func (w *wrenAPI) SetMapValue(vm ports.VMPtr, mapSlot, keySlot, valueSlot int) {
	C.wren_set_map_value(w.api, vmPtr(vm), C.int(mapSlot), C.int(keySlot), C.int(valueSlot))
}

func (w *wrenAPI) RemoveMapValue(vm ports.VMPtr, mapSlot, keySlot, removedValueSlot int) {
	C.wren_remove_map_value(w.api, vmPtr(vm), C.int(mapSlot), C.int(keySlot), C.int(removedValueSlot))
}

func (w *wrenAPI) GetVariable(vm ports.VMPtr, module, name string, slot int) {
	cModule, cName := C.CString(module), C.CString(name)
	defer C.free(unsafe.Pointer(cModule))
	defer C.free(unsafe.Pointer(cName))
	C.wren_get_variable(w.api, vmPtr(vm), cModule, cName, C.int(slot))
}

func (w *wrenAPI) GetSlotHandle(vm ports.VMPtr, slot int) ports.HandlePtr {
	return ports.HandlePtr(unsafe.Pointer(C.wren_get_slot_handle(w.api, vmPtr(vm), C.int(slot))))
}

func (w *wrenAPI) SetSlotHandle(vm ports.VMPtr, slot int, handle ports.HandlePtr) {
	C.wren_set_slot_handle(w.api, vmPtr(vm), C.int(slot), (*C.WrenHandle)(unsafe.Pointer(handle)))
}

var (
	_ ports.DomeAPI     = (*domeAPI)(nil)
	_ ports.WrenAPI     = (*wrenAPI)(nil)
	_ ports.APIProvider = (*Provider)(nil)
)
