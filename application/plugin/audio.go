package plugin

import (
	"fmt"
	"log/slog"

	"github.com/reglet-dev/dome-sdk/application/capability"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
	"github.com/reglet-dev/dome-sdk/internal/abi"
)

// ChannelSpec describes an audio channel. Mix runs on the audio thread and
// must not touch Wren; Update and Finish run on the game thread with a VM
// frame of their own.
type ChannelSpec struct {
	// Mix fills an interleaved stereo buffer; len(buffer) is twice the
	// number of requested samples. Required.
	Mix    func(ch *Channel, buffer []float32)
	Update func(ch *Channel, vm *VM) error
	Finish func(ch *Channel, vm *VM) error
	// Data is stored with the channel and returned by Channel.Data.
	Data any
}

// Channel is an audio channel created by the plugin. It stays valid until
// the host calls its finish callback.
type Channel struct {
	table  *capability.Table
	ref    entities.ChannelRef
	handle uint64
}

// CreateChannel registers a new audio channel with the host. The channel
// starts in the initialize state; set it to ChannelToPlay to start mixing.
func (c *Context) CreateChannel(spec ChannelSpec) (*Channel, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if spec.Mix == nil {
		return nil, fmt.Errorf("create channel: nil mix callback")
	}
	h, err := abi.Pin(spec.Data)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	ch := &Channel{table: c.table, handle: h}
	ref := c.table.Audio().ChannelCreate(c.ptr, ch.callbacks(spec), uintptr(h))
	if ref.IsZero() {
		abi.Release(h)
		return nil, fmt.Errorf("create channel: host refused the channel")
	}
	ch.ref = ref
	return ch, nil
}

func (ch *Channel) callbacks(spec ChannelSpec) ports.ChannelCallbacks {
	return ports.ChannelCallbacks{
		Mix: func(_ entities.ChannelRef, buffer []float32) {
			err := callProtected(func() error { spec.Mix(ch, buffer); return nil })
			if err != nil {
				clear(buffer)
				slog.Error("audio mix panicked", "channel", ch.ref.ID, "error", err)
			}
		},
		Update: ch.gameThread(spec.Update, false),
		Finish: ch.gameThread(spec.Finish, true),
	}
}

// gameThread adapts an update or finish callback. The finish adapter
// releases the channel data once the callback has returned.
func (ch *Channel) gameThread(fn func(*Channel, *VM) error, last bool) ports.ChannelCallbackFn {
	return func(_ entities.ChannelRef, ptr ports.VMPtr) {
		if last {
			defer abi.Release(ch.handle)
		}
		if fn == nil {
			return
		}
		f := &frame{}
		vm := &VM{table: ch.table, ptr: ptr, frame: f}
		err := callProtected(func() error { return fn(ch, vm) })
		f.close()
		if err != nil {
			failCallback(ch.table, ptr, err)
		}
	}
}

// Ref returns the host reference of the channel.
func (ch *Channel) Ref() entities.ChannelRef {
	return ch.ref
}

// State returns the channel state as seen by the host.
func (ch *Channel) State() entities.ChannelState {
	return ch.table.Audio().GetState(ch.ref)
}

// SetState changes the channel state.
func (ch *Channel) SetState(state entities.ChannelState) {
	ch.table.Audio().SetState(ch.ref, state)
}

// Stop asks the host to stop the channel. Finish is called on a later update.
func (ch *Channel) Stop() {
	ch.table.Audio().Stop(ch.ref)
}

// Data returns the value given in ChannelSpec.Data, or nil once the channel
// has finished.
func (ch *Channel) Data() any {
	v, _ := abi.Lookup(uint64(ch.table.Audio().GetData(ch.ref)))
	return v
}
