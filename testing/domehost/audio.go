package domehost

import (
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// engineToken stands in for DOME's AUDIO_ENGINE pointer in channel refs.
const engineToken uintptr = 0xD0E

type channel struct {
	ref       entities.ChannelRef
	callbacks ports.ChannelCallbacks
	userData  uintptr
	state     entities.ChannelState
}

// audioAPI implements ports.AudioAPI. Mixing and channel updates only happen
// when the test calls MixAudio and UpdateAudio.
type audioAPI struct {
	h *Host
}

var _ ports.AudioAPI = (*audioAPI)(nil)

func (a *audioAPI) ChannelCreate(ctx ports.ContextPtr, callbacks ports.ChannelCallbacks, userData uintptr) entities.ChannelRef {
	h := a.h
	if !h.ownsContext(ctx) || callbacks.Mix == nil {
		return entities.ChannelRef{}
	}
	h.nextChannel++
	ref := entities.ChannelRef{ID: h.nextChannel, Engine: engineToken}
	h.channels[ref.ID] = &channel{
		ref:       ref,
		callbacks: callbacks,
		userData:  userData,
		state:     entities.ChannelInitialize,
	}
	h.channelOrder = append(h.channelOrder, ref.ID)
	return ref
}

func (a *audioAPI) GetState(ref entities.ChannelRef) entities.ChannelState {
	if ch, ok := a.h.channels[ref.ID]; ok {
		return ch.state
	}
	return entities.ChannelInvalid
}

func (a *audioAPI) SetState(ref entities.ChannelRef, state entities.ChannelState) {
	if ch, ok := a.h.channels[ref.ID]; ok {
		ch.state = state
	}
}

func (a *audioAPI) Stop(ref entities.ChannelRef) {
	if ch, ok := a.h.channels[ref.ID]; ok && ch.state < entities.ChannelStopping {
		ch.state = entities.ChannelStopping
	}
}

func (a *audioAPI) GetData(ref entities.ChannelRef) uintptr {
	if ch, ok := a.h.channels[ref.ID]; ok {
		return ch.userData
	}
	return 0
}

// Channels returns the refs of live channels in creation order.
func (h *Host) Channels() []entities.ChannelRef {
	out := make([]entities.ChannelRef, 0, len(h.channelOrder))
	for _, id := range h.channelOrder {
		out = append(out, h.channels[id].ref)
	}
	return out
}

// MixAudio asks every playing channel for samples and returns the summed
// interleaved stereo buffer.
func (h *Host) MixAudio(samples int) []float32 {
	out := make([]float32, samples*2)
	buf := make([]float32, samples*2)
	for _, id := range h.channelOrder {
		ch := h.channels[id]
		if ch.state != entities.ChannelPlaying {
			continue
		}
		clear(buf)
		ch.callbacks.Mix(ch.ref, buf)
		for i, s := range buf {
			out[i] += s
		}
	}
	return out
}

// UpdateAudio runs the game-thread half of the audio engine: channels asked
// to play start playing, update callbacks run, and stopped channels are
// finished and removed.
func (h *Host) UpdateAudio() error {
	for _, id := range append([]uint64(nil), h.channelOrder...) {
		ch := h.channels[id]
		if ch.state == entities.ChannelToPlay {
			ch.state = entities.ChannelPlaying
		}
		if ch.callbacks.Update != nil {
			if _, err := h.invoke(func(vm ports.VMPtr) { ch.callbacks.Update(ch.ref, vm) }, nil); err != nil {
				return err
			}
		}
		if ch.state == entities.ChannelStopping || ch.state == entities.ChannelStopped {
			ch.state = entities.ChannelStopped
			var err error
			if ch.callbacks.Finish != nil {
				_, err = h.invoke(func(vm ports.VMPtr) { ch.callbacks.Finish(ch.ref, vm) }, nil)
			}
			h.removeChannel(id)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Host) removeChannel(id uint64) {
	delete(h.channels, id)
	for i, cid := range h.channelOrder {
		if cid == id {
			h.channelOrder = append(h.channelOrder[:i], h.channelOrder[i+1:]...)
			return
		}
	}
}
