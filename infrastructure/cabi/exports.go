package cabi

/*
#include "dome_abi.h"
*/
import "C"

import (
	"log/slog"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// unboundMessage is the fiber error for a trampoline with no Go method.
const unboundMessage = "foreign method is not bound; was the plugin reloaded?"

func init() {
	plugin.Default().SetLoadHook(Reset)
}

func result(r entities.Result) C.DOME_Result {
	return C.DOME_Result(r)
}

func hostContext(ctx C.DOME_Context) ports.ContextPtr {
	return ports.ContextPtr(unsafe.Pointer(ctx))
}

//export PLUGIN_onInit
func PLUGIN_onInit(getAPI C.DOME_getAPIFunction, ctx C.DOME_Context) C.DOME_Result {
	return result(plugin.Default().Init(NewProvider(unsafe.Pointer(getAPI)), hostContext(ctx)))
}

//export PLUGIN_preUpdate
func PLUGIN_preUpdate(ctx C.DOME_Context) C.DOME_Result {
	return result(plugin.Default().Dispatch(entities.EventPreUpdate, hostContext(ctx), 0))
}

//export PLUGIN_postUpdate
func PLUGIN_postUpdate(ctx C.DOME_Context) C.DOME_Result {
	return result(plugin.Default().Dispatch(entities.EventPostUpdate, hostContext(ctx), 0))
}

//export PLUGIN_preDraw
func PLUGIN_preDraw(ctx C.DOME_Context, dt C.double) C.DOME_Result {
	return result(plugin.Default().Dispatch(entities.EventPreDraw, hostContext(ctx), float64(dt)))
}

//export PLUGIN_postDraw
func PLUGIN_postDraw(ctx C.DOME_Context, dt C.double) C.DOME_Result {
	return result(plugin.Default().Dispatch(entities.EventPostDraw, hostContext(ctx), float64(dt)))
}

//export PLUGIN_onShutdown
func PLUGIN_onShutdown(ctx C.DOME_Context) C.DOME_Result {
	return result(plugin.Default().Dispatch(entities.EventShutdown, hostContext(ctx), 0))
}

//export domeForeignMethod
func domeForeignMethod(slot C.int, vm *C.WrenVM) {
	ptr := ports.VMPtr(unsafe.Pointer(vm))
	fn, ok := methods.lookup(int(slot))
	if !ok || fn == nil {
		slog.Error("foreign method called on unbound trampoline", "slot", int(slot))
		if w := activeWren.Load(); w != nil {
			w.EnsureSlots(ptr, 1)
			w.SetSlotString(ptr, 0, unboundMessage)
			w.AbortFiber(ptr, 0)
		}
		return
	}
	fn(ptr)
}

//export domeFinalize
func domeFinalize(slot C.int, data unsafe.Pointer) {
	fn, ok := finalizers.lookup(int(slot))
	if !ok || fn == nil {
		return
	}
	fn(data)
}

//export domeChannelMix
func domeChannelMix(ref C.CHANNEL_REF, buffer *C.float, samples C.size_t) {
	mixChannel(ref, buffer, samples)
}

//export domeChannelUpdate
func domeChannelUpdate(ref C.CHANNEL_REF, vm *C.WrenVM) {
	updateChannel(ref, vm)
}

//export domeChannelFinish
func domeChannelFinish(ref C.CHANNEL_REF, vm *C.WrenVM) {
	finishChannel(ref, vm)
}
