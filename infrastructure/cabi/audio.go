package cabi

/*
#include "calls.h"
*/
import "C"

import (
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
	"github.com/reglet-dev/dome-sdk/internal/abi"
)

// activeAudio is the audio group bound by the last init. The channel
// trampolines have no other way to reach getData.
var activeAudio atomic.Pointer[audioAPI]

// channelEntry is what the host stores as channel user data.
type channelEntry struct {
	callbacks ports.ChannelCallbacks
	userData  uintptr
}

type audioAPI struct {
	api *C.AUDIO_API_v0
}

func newAudioAPI(api *C.AUDIO_API_v0) *audioAPI {
	a := &audioAPI{api: api}
	activeAudio.Store(a)
	return a
}

func toRef(r C.CHANNEL_REF) entities.ChannelRef {
	return entities.ChannelRef{ID: uint64(r.id), Engine: uintptr(unsafe.Pointer(r.engine))}
}

func fromRef(r entities.ChannelRef) C.CHANNEL_REF {
	return C.CHANNEL_REF{
		id:     C.CHANNEL_ID(r.ID),
		engine: (*C.AUDIO_ENGINE)(unsafe.Pointer(r.Engine)),
	}
}

func (a *audioAPI) ChannelCreate(ctx ports.ContextPtr, callbacks ports.ChannelCallbacks, userData uintptr) entities.ChannelRef {
	h, err := abi.Pin(&channelEntry{callbacks: callbacks, userData: userData})
	if err != nil {
		slog.Error("create channel", "error", err)
		return entities.ChannelRef{}
	}
	ref := toRef(C.audio_channel_create(a.api, ctxPtr(ctx), C.uintptr_t(h)))
	if ref.IsZero() {
		abi.Release(h)
	}
	return ref
}

func (a *audioAPI) GetState(ref entities.ChannelRef) entities.ChannelState {
	return entities.ChannelState(C.audio_get_state(a.api, fromRef(ref)))
}

func (a *audioAPI) SetState(ref entities.ChannelRef, state entities.ChannelState) {
	C.audio_set_state(a.api, fromRef(ref), C.CHANNEL_STATE(state))
}

func (a *audioAPI) Stop(ref entities.ChannelRef) {
	C.audio_stop(a.api, fromRef(ref))
}

// GetData returns the user data given to ChannelCreate, or 0 once the
// channel has finished.
func (a *audioAPI) GetData(ref entities.ChannelRef) uintptr {
	if e, _ := a.entry(fromRef(ref)); e != nil {
		return e.userData
	}
	return 0
}

func (a *audioAPI) entry(ref C.CHANNEL_REF) (*channelEntry, uint64) {
	h := uint64(C.audio_get_data(a.api, ref))
	v, ok := abi.Lookup(h)
	if !ok {
		return nil, h
	}
	e, _ := v.(*channelEntry)
	return e, h
}

// channelFor resolves the entry of a channel from inside a trampoline.
func channelFor(ref C.CHANNEL_REF) (*channelEntry, uint64) {
	a := activeAudio.Load()
	if a == nil {
		return nil, 0
	}
	return a.entry(ref)
}

func mixChannel(ref C.CHANNEL_REF, buffer *C.float, samples C.size_t) {
	e, _ := channelFor(ref)
	if buffer == nil || samples == 0 {
		return
	}
	out := unsafe.Slice((*float32)(unsafe.Pointer(buffer)), 2*int(samples))
	if e == nil || e.callbacks.Mix == nil {
		clear(out)
		return
	}
	e.callbacks.Mix(toRef(ref), out)
}

func updateChannel(ref C.CHANNEL_REF, vm *C.WrenVM) {
	if e, _ := channelFor(ref); e != nil && e.callbacks.Update != nil {
		e.callbacks.Update(toRef(ref), ports.VMPtr(unsafe.Pointer(vm)))
	}
}

// finishChannel runs the finish callback and then drops the entry; the
// host discards the channel right after.
func finishChannel(ref C.CHANNEL_REF, vm *C.WrenVM) {
	e, h := channelFor(ref)
	if e == nil {
		return
	}
	defer abi.Release(h)
	if e.callbacks.Finish != nil {
		e.callbacks.Finish(toRef(ref), ports.VMPtr(unsafe.Pointer(vm)))
	}
}

var _ ports.AudioAPI = (*audioAPI)(nil)
