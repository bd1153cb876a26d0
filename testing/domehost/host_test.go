package domehost

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func groups(t *testing.T, h *Host) (ports.DomeAPI, ports.WrenAPI, ports.AudioAPI) {
	t.Helper()
	p := h.Provider()
	dome, ok := p.GetAPI(entities.APIDome, 0).(ports.DomeAPI)
	require.True(t, ok)
	wren, ok := p.GetAPI(entities.APIWren, 0).(ports.WrenAPI)
	require.True(t, ok)
	audio, ok := p.GetAPI(entities.APIAudio, 0).(ports.AudioAPI)
	require.True(t, ok)
	return dome, wren, audio
}

func TestGetAPI(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		api     entities.APIType
		version int32
		want    bool
	}{
		{name: "dome v0", api: entities.APIDome, version: 0, want: true},
		{name: "wren v1 unsupported", api: entities.APIWren, version: 1, want: false},
		{name: "host moved to audio v1", opts: []Option{WithAPIVersion(entities.APIAudio, 1)}, api: entities.APIAudio, version: 0, want: false},
		{name: "missing group", opts: []Option{WithoutAPI(entities.APIDome)}, api: entities.APIDome, version: 0, want: false},
		{name: "unknown group", api: entities.APIType(7), version: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.opts...)
			got := h.Provider().GetAPI(tt.api, tt.version)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestRegistration(t *testing.T) {
	h := New(WithRejection(OpRegisterFn, "Rejected.fn()"))
	dome, _, _ := groups(t, h)
	ctx := h.ContextPtr()
	noop := func(ports.VMPtr) {}

	assert.Equal(t, entities.ResultSuccess, dome.RegisterModule(ctx, "m", "foreign class A {}"))
	assert.Equal(t, entities.ResultFailure, dome.RegisterModule(ctx, "m", ""), "duplicate module")
	assert.Equal(t, entities.ResultFailure, dome.RegisterFn(ctx, "missing", "A.f()", noop), "unknown module")
	assert.Equal(t, entities.ResultSuccess, dome.RegisterClass(ctx, "m", "A", noop, nil))
	assert.Equal(t, entities.ResultFailure, dome.RegisterClass(ctx, "m", "B", nil, nil), "allocator required")
	assert.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "A.f()", noop))
	assert.Equal(t, entities.ResultFailure, dome.RegisterFn(ctx, "m", "Rejected.fn()", noop))

	dome.LockModule(ctx, "m")
	assert.Equal(t, entities.ResultFailure, dome.RegisterFn(ctx, "m", "A.g()", noop), "locked module")

	m, ok := h.Module("m")
	require.True(t, ok)
	assert.True(t, m.Locked)
	assert.True(t, m.HasFn("A.f()"))
	assert.False(t, m.HasFn("A.g()"))
	assert.Equal(t, []string{"m"}, h.Modules())

	journal := h.Journal()
	require.Len(t, journal, 9)
	assert.Equal(t, Call{Op: OpRegisterModule, Module: "m"}, journal[0])
	assert.Equal(t, "lock_module m", journal[7].String())
}

func TestRegistration_ForeignContext(t *testing.T) {
	h := New()
	other := New()
	dome, _, _ := groups(t, h)

	assert.Equal(t, entities.ResultFailure, dome.RegisterModule(other.ContextPtr(), "m", ""))
	dome.Log(other.ContextPtr(), "ignored")
	assert.Empty(t, h.Logs())
}

func TestLog(t *testing.T) {
	h := New()
	dome, _, _ := groups(t, h)

	dome.Log(h.ContextPtr(), "volume at 100%%\n")
	assert.Equal(t, []string{"volume at 100%"}, h.Logs())
}

type counter struct {
	n float64
}

func TestForeignObjects(t *testing.T) {
	h := New()
	dome, wren, _ := groups(t, h)
	ctx := h.ContextPtr()

	var finalized []float64
	allocate := func(vm ports.VMPtr) {
		p := wren.SetSlotNewForeign(vm, 0, 0, int(unsafe.Sizeof(counter{})))
		c := (*counter)(p)
		if wren.GetSlotCount(vm) > 1 {
			c.n = wren.GetSlotDouble(vm, 1)
		}
	}
	finalize := func(data unsafe.Pointer) {
		finalized = append(finalized, (*counter)(data).n)
	}
	incr := func(vm ports.VMPtr) {
		c := (*counter)(wren.GetSlotForeign(vm, 0))
		c.n += wren.GetSlotDouble(vm, 1)
		wren.SetSlotDouble(vm, 0, c.n)
	}
	fail := func(vm ports.VMPtr) {
		wren.SetSlotString(vm, 0, "nope")
		wren.AbortFiber(vm, 0)
	}

	require.Equal(t, entities.ResultSuccess, dome.RegisterModule(ctx, "m", "foreign class Counter {}"))
	require.Equal(t, entities.ResultSuccess, dome.RegisterClass(ctx, "m", "Counter", allocate, finalize))
	require.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "Counter.incr(_)", incr))
	require.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "static Counter.fail()", fail))

	obj, err := h.New("m", "Counter", 10.0)
	require.NoError(t, err)

	got, err := h.Call(obj, "incr(_)", 5.0)
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)

	_, err = h.Call(obj, "incr(_)")
	assert.ErrorContains(t, err, "takes 1 arguments")

	_, err = h.CallStatic("m", "Counter", "fail()")
	var fiberErr *FiberError
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, "nope", fiberErr.Value)

	_, err = h.CallStatic("m", "Counter", "missing()")
	assert.ErrorContains(t, err, "no foreign method")

	assert.Equal(t, 1, h.LiveObjects())
	h.Collect()
	assert.Equal(t, 0, h.LiveObjects())
	assert.True(t, obj.Finalized())
	assert.Equal(t, []float64{15}, finalized)

	_, err = h.Call(obj, "incr(_)", 1.0)
	assert.ErrorContains(t, err, "finalized")
}

func TestListsAndMaps(t *testing.T) {
	h := New(WithVariable("m", "Greeting", "hello"))
	dome, wren, _ := groups(t, h)
	ctx := h.ContextPtr()

	build := func(vm ports.VMPtr) {
		wren.EnsureSlots(vm, 4)
		wren.SetSlotNewList(vm, 0)
		for i := 0; i < 3; i++ {
			wren.SetSlotDouble(vm, 1, float64(i))
			wren.InsertInList(vm, 0, -1, 1)
		}
		wren.SetSlotString(vm, 1, "first")
		wren.InsertInList(vm, 0, 0, 1)
		wren.GetListElement(vm, 0, -1, 2)
		wren.SetListElement(vm, 0, 1, 2)

		wren.SetSlotNewMap(vm, 3)
		wren.GetVariable(vm, "m", "Greeting", 1)
		wren.SetSlotDouble(vm, 2, float64(wren.GetListCount(vm, 0)))
		wren.SetMapValue(vm, 3, 1, 2)
		wren.InsertInList(vm, 0, -1, 3)
	}

	require.Equal(t, entities.ResultSuccess, dome.RegisterModule(ctx, "m", "class Build {}"))
	require.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "static Build.list()", build))

	got, err := h.CallStatic("m", "Build", "list()")
	require.NoError(t, err)

	list, ok := got.(*List)
	require.True(t, ok)
	require.Len(t, list.Elements, 5)
	assert.Equal(t, []Value{"first", 2.0, 1.0, 2.0}, list.Elements[:4])

	m, ok := list.Elements[4].(*Map)
	require.True(t, ok)
	v, ok := m.Get("hello")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestHandles(t *testing.T) {
	h := New()
	dome, wren, _ := groups(t, h)
	ctx := h.ContextPtr()

	var saved ports.HandlePtr
	keep := func(vm ports.VMPtr) {
		saved = wren.GetSlotHandle(vm, 1)
	}
	restore := func(vm ports.VMPtr) {
		wren.SetSlotHandle(vm, 0, saved)
	}
	require.Equal(t, entities.ResultSuccess, dome.RegisterModule(ctx, "m", "class H {}"))
	require.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "static H.keep(_)", keep))
	require.Equal(t, entities.ResultSuccess, dome.RegisterFn(ctx, "m", "static H.restore()", restore))

	_, err := h.CallStatic("m", "H", "keep(_)", "kept")
	require.NoError(t, err)
	got, err := h.CallStatic("m", "H", "restore()")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
	assert.Equal(t, 1, h.Handles())
}

func TestAudio(t *testing.T) {
	h := New()
	_, _, audio := groups(t, h)

	var finished []uint64
	ref := audio.ChannelCreate(h.ContextPtr(), ports.ChannelCallbacks{
		Mix: func(_ entities.ChannelRef, buf []float32) {
			for i := range buf {
				buf[i] = 0.25
			}
		},
		Finish: func(ref entities.ChannelRef, _ ports.VMPtr) {
			finished = append(finished, ref.ID)
		},
	}, 42)

	require.False(t, ref.IsZero())
	assert.Equal(t, uintptr(42), audio.GetData(ref))
	assert.Equal(t, entities.ChannelInitialize, audio.GetState(ref))
	assert.Equal(t, []float32{0, 0}, h.MixAudio(1), "not playing yet")

	audio.SetState(ref, entities.ChannelToPlay)
	require.NoError(t, h.UpdateAudio())
	assert.Equal(t, entities.ChannelPlaying, audio.GetState(ref))
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, h.MixAudio(2))

	audio.Stop(ref)
	require.NoError(t, h.UpdateAudio())
	assert.Equal(t, []uint64{ref.ID}, finished)
	assert.Empty(t, h.Channels())
	assert.Equal(t, entities.ChannelInvalid, audio.GetState(ref))

	assert.True(t, audio.ChannelCreate(h.ContextPtr(), ports.ChannelCallbacks{}, 0).IsZero(), "mix is required")
}

type fakePlugin struct {
	events []entities.Event
	fail   entities.Event
}

func (p *fakePlugin) Init(provider ports.APIProvider, _ ports.ContextPtr) entities.Result {
	p.events = append(p.events, entities.EventInit)
	if provider.GetAPI(entities.APIDome, 0) == nil {
		return entities.ResultUnknown
	}
	return entities.ResultSuccess
}

func (p *fakePlugin) Dispatch(event entities.Event, _ ports.ContextPtr, _ float64) entities.Result {
	p.events = append(p.events, event)
	if event == p.fail {
		return entities.ResultFailure
	}
	return entities.ResultSuccess
}

func TestLifecycle(t *testing.T) {
	h := New()
	p := &fakePlugin{fail: entities.Event(-1)}

	require.Equal(t, entities.ResultSuccess, h.Load(p))
	require.NoError(t, h.Frame(p, 0.016))
	require.Equal(t, entities.ResultSuccess, h.Unload(p))

	assert.Equal(t, []entities.Event{
		entities.EventInit,
		entities.EventPreUpdate,
		entities.EventPostUpdate,
		entities.EventPreDraw,
		entities.EventPostDraw,
		entities.EventShutdown,
	}, p.events)
}

func TestFrame_StopsAtFailure(t *testing.T) {
	h := New()
	p := &fakePlugin{fail: entities.EventPostUpdate}

	err := h.Frame(p, 0)
	assert.EqualError(t, err, "post_update returned failure")
	assert.Equal(t, []entities.Event{entities.EventPreUpdate, entities.EventPostUpdate}, p.events)
}
