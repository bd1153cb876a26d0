package ports

import (
	"unsafe"

	"github.com/reglet-dev/dome-sdk/domain/entities"
)

// ContextPtr is the host's opaque per-call context (DOME_Context).
type ContextPtr unsafe.Pointer

// VMPtr is the Wren VM a foreign method runs on (WrenVM*).
type VMPtr unsafe.Pointer

// HandlePtr is a long-lived reference to a Wren value (WrenHandle*).
type HandlePtr unsafe.Pointer

// ForeignMethodFn is the shape of foreign methods and class allocators.
type ForeignMethodFn func(vm VMPtr)

// FinalizerFn is called by the host with the memory of a collected foreign object.
type FinalizerFn func(data unsafe.Pointer)

// ChannelMixFn fills an interleaved stereo buffer. len(buffer) is twice the
// number of requested samples.
type ChannelMixFn func(ref entities.ChannelRef, buffer []float32)

// ChannelCallbackFn is called on the game thread during channel update and finish.
type ChannelCallbackFn func(ref entities.ChannelRef, vm VMPtr)

// ChannelCallbacks groups the callbacks of one audio channel. Mix is required.
type ChannelCallbacks struct {
	Mix    ChannelMixFn
	Update ChannelCallbackFn
	Finish ChannelCallbackFn
}

// APIProvider is the host's getAPI function. It returns nil when the host does
// not support the requested group at the requested version.
type APIProvider interface {
	GetAPI(api entities.APIType, version int32) any
}

// APIProviderFunc adapts a function to APIProvider.
type APIProviderFunc func(api entities.APIType, version int32) any

// GetAPI implements APIProvider.
func (f APIProviderFunc) GetAPI(api entities.APIType, version int32) any {
	return f(api, version)
}

// DomeAPI is DOME API v0.
type DomeAPI interface {
	RegisterModule(ctx ContextPtr, name, source string) entities.Result
	RegisterFn(ctx ContextPtr, module, signature string, fn ForeignMethodFn) entities.Result
	RegisterClass(ctx ContextPtr, module, class string, allocate ForeignMethodFn, finalize FinalizerFn) entities.Result
	LockModule(ctx ContextPtr, name string)
	GetContext(vm VMPtr) ContextPtr
	// Log writes text to the host log. The host treats text as a printf
	// format string.
	Log(ctx ContextPtr, text string)
}

// WrenAPI is the Wren slot API v0. Callers validate slot indices and types
// before calling; implementations do not.
type WrenAPI interface {
	EnsureSlots(vm VMPtr, count int)

	SetSlotNull(vm VMPtr, slot int)
	SetSlotBool(vm VMPtr, slot int, value bool)
	SetSlotDouble(vm VMPtr, slot int, value float64)
	SetSlotString(vm VMPtr, slot int, text string)
	SetSlotBytes(vm VMPtr, slot int, data []byte)
	SetSlotNewForeign(vm VMPtr, slot, classSlot int, size int) unsafe.Pointer
	SetSlotNewList(vm VMPtr, slot int)
	SetSlotNewMap(vm VMPtr, slot int)

	GetUserData(vm VMPtr) ContextPtr
	GetSlotBool(vm VMPtr, slot int) bool
	GetSlotDouble(vm VMPtr, slot int) float64
	GetSlotString(vm VMPtr, slot int) string
	GetSlotBytes(vm VMPtr, slot int) []byte
	GetSlotForeign(vm VMPtr, slot int) unsafe.Pointer

	AbortFiber(vm VMPtr, slot int)
	GetSlotCount(vm VMPtr) int
	GetSlotType(vm VMPtr, slot int) entities.SlotType

	GetListCount(vm VMPtr, slot int) int
	GetListElement(vm VMPtr, listSlot, index, elementSlot int)
	SetListElement(vm VMPtr, listSlot, index, elementSlot int)
	InsertInList(vm VMPtr, listSlot, index, elementSlot int)

	GetMapCount(vm VMPtr, slot int) int
	GetMapContainsKey(vm VMPtr, mapSlot, keySlot int) bool
	GetMapValue(vm VMPtr, mapSlot, keySlot, valueSlot int)
	SetMapValue(vm VMPtr, mapSlot, keySlot, valueSlot int)
	RemoveMapValue(vm VMPtr, mapSlot, keySlot, removedValueSlot int)

	GetVariable(vm VMPtr, module, name string, slot int)
	GetSlotHandle(vm VMPtr, slot int) HandlePtr
	SetSlotHandle(vm VMPtr, slot int, handle HandlePtr)
}

// AudioAPI is DOME audio API v0.
type AudioAPI interface {
	// ChannelCreate registers a channel. userData is returned verbatim by GetData.
	ChannelCreate(ctx ContextPtr, callbacks ChannelCallbacks, userData uintptr) entities.ChannelRef
	GetState(ref entities.ChannelRef) entities.ChannelState
	SetState(ref entities.ChannelRef, state entities.ChannelState)
	Stop(ref entities.ChannelRef)
	GetData(ref entities.ChannelRef) uintptr
}
