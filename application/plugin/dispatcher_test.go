package plugin_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

func recordingHooks(events *[]entities.Event, deltas *[]float64) plugin.Hooks {
	rec := func(ctx *plugin.Context) error {
		*events = append(*events, ctx.Event())
		if ctx.Event().HasDelta() {
			*deltas = append(*deltas, ctx.DeltaTime())
		}
		return nil
	}
	return plugin.Hooks{
		OnInit:     rec,
		PreUpdate:  rec,
		PostUpdate: rec,
		PreDraw:    rec,
		PostDraw:   rec,
		OnShutdown: rec,
	}
}

func TestDispatcher_Lifecycle(t *testing.T) {
	var events []entities.Event
	var deltas []float64
	h := domehost.New()
	d := newDispatcher(recordingHooks(&events, &deltas))

	assert.Equal(t, plugin.StateUnloaded, d.State())
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	assert.Equal(t, plugin.StateReady, d.State())

	require.NoError(t, h.Frame(d, 0.016))
	require.Equal(t, entities.ResultSuccess, h.Unload(d))
	assert.Equal(t, plugin.StateUnloaded, d.State())

	assert.Equal(t, []entities.Event{
		entities.EventInit,
		entities.EventPreUpdate,
		entities.EventPostUpdate,
		entities.EventPreDraw,
		entities.EventPostDraw,
		entities.EventShutdown,
	}, events)
	assert.Equal(t, []float64{0.016, 0.016}, deltas)
}

func TestDispatcher_NilHooks(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{})

	require.Equal(t, entities.ResultSuccess, h.Load(d))
	require.NoError(t, h.Frame(d, 1))
	assert.Equal(t, entities.ResultSuccess, h.Unload(d))
}

func TestDispatcher_LoadFailure(t *testing.T) {
	tests := []struct {
		name string
		opts []domehost.Option
	}{
		{name: "no dome api", opts: []domehost.Option{domehost.WithoutAPI(entities.APIDome)}},
		{name: "no wren api", opts: []domehost.Option{domehost.WithoutAPI(entities.APIWren)}},
		{name: "no audio api", opts: []domehost.Option{domehost.WithoutAPI(entities.APIAudio)}},
		{name: "wren api moved on", opts: []domehost.Option{domehost.WithAPIVersion(entities.APIWren, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := domehost.New(tt.opts...)
			d := newDispatcher(plugin.Hooks{
				OnInit:    func(*plugin.Context) error { called = true; return nil },
				PreUpdate: func(*plugin.Context) error { called = true; return nil },
			})

			assert.Equal(t, entities.ResultUnknown, h.Load(d))
			assert.Equal(t, plugin.StateUnloaded, d.State())
			assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
			assert.False(t, called)
		})
	}
}

func TestDispatcher_LoadFailure_NilArguments(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{})

	assert.Equal(t, entities.ResultUnknown, d.Init(nil, h.ContextPtr()))
	assert.Equal(t, entities.ResultUnknown, d.Init(h.Provider(), nil))
	assert.Equal(t, plugin.StateUnloaded, d.State())

	// A later init with valid arguments still works.
	assert.Equal(t, entities.ResultSuccess, d.Init(h.Provider(), h.ContextPtr()))
	h.Unload(d)
}

func TestDispatcher_InitHookFailure(t *testing.T) {
	updated := false
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		OnInit:    func(*plugin.Context) error { return fmt.Errorf("no audio device") },
		PreUpdate: func(*plugin.Context) error { updated = true; return nil },
	})

	assert.Equal(t, entities.ResultFailure, h.Load(d))
	assert.Equal(t, plugin.StateUnloaded, d.State())
	assert.Equal(t, []string{"no audio device"}, h.Logs())

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
	assert.False(t, updated)
}

func TestDispatcher_InitTwice(t *testing.T) {
	inits := 0
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		OnInit: func(*plugin.Context) error { inits++; return nil },
	})

	require.Equal(t, entities.ResultSuccess, h.Load(d))
	assert.Equal(t, entities.ResultFailure, h.Load(d))
	assert.Equal(t, 1, inits)
	assert.Equal(t, plugin.StateReady, d.State())
	h.Unload(d)
}

func TestDispatcher_LoadHook(t *testing.T) {
	var order []string
	h := domehost.New()
	d := plugin.NewDispatcher(
		plugin.WithLogger(quietLogger()),
		plugin.WithLoadHook(func() { order = append(order, "load") }),
		plugin.WithHooks(plugin.Hooks{
			OnInit: func(*plugin.Context) error { order = append(order, "init"); return nil },
		}),
	)

	require.Equal(t, entities.ResultSuccess, h.Load(d))
	assert.Equal(t, entities.ResultFailure, h.Load(d))
	assert.Equal(t, []string{"load", "init"}, order, "a rejected init does not run the load hook")

	require.Equal(t, entities.ResultSuccess, h.Unload(d))
	d.SetLoadHook(func() { order = append(order, "reload") })
	assert.Equal(t, entities.ResultUnknown, d.Init(nil, h.ContextPtr()))
	assert.Equal(t, []string{"load", "init", "reload"}, order, "a failed load still ran the hook")
}

func TestDispatcher_RejectsEventsBeforeInit(t *testing.T) {
	called := false
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		PreDraw: func(*plugin.Context) error { called = true; return nil },
	})

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreDraw, h.ContextPtr(), 0.5))
	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventShutdown, h.ContextPtr(), 0))
	assert.False(t, called)
}

func TestDispatcher_RejectsNonHookEvents(t *testing.T) {
	h := domehost.New()
	d := load(t, h)

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventInit, h.ContextPtr(), 0))
	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventCallback, h.ContextPtr(), 0))
	assert.Equal(t, plugin.StateReady, d.State())
}

func TestDispatcher_Reentrant(t *testing.T) {
	var nested entities.Result
	postUpdates := 0
	h := domehost.New()
	var d *plugin.Dispatcher
	d = newDispatcher(plugin.Hooks{
		PreUpdate: func(*plugin.Context) error {
			nested = d.Dispatch(entities.EventPostUpdate, h.ContextPtr(), 0)
			return nil
		},
		PostUpdate: func(*plugin.Context) error { postUpdates++; return nil },
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.Equal(t, entities.ResultSuccess, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
	assert.Equal(t, entities.ResultFailure, nested)
	assert.Equal(t, 0, postUpdates)
	assert.Equal(t, plugin.StateReady, d.State())
}

func TestDispatcher_HookError(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		PreUpdate: func(*plugin.Context) error { return fmt.Errorf("100%% broken") },
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
	assert.Equal(t, []string{"100% broken"}, h.Logs())
	assert.Equal(t, plugin.StateReady, d.State())
}

func TestDispatcher_HookErrorWrappingLoadFailure(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		PreUpdate: func(*plugin.Context) error {
			return fmt.Errorf("asset: %w", &errors.InvalidCapabilityTableError{Reason: "stale table"})
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
	assert.Equal(t, plugin.StateReady, d.State())
}

func TestDispatcher_HookErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	h := domehost.New()
	d := plugin.NewDispatcher(
		plugin.WithHooks(plugin.Hooks{
			PostUpdate: func(*plugin.Context) error { return fmt.Errorf("broken") },
		}),
		plugin.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	require.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPostUpdate, h.ContextPtr(), 0))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hook failed", entry["msg"])
	assert.Equal(t, "hook", entry["type"])
	assert.Equal(t, "post_update", entry["code"])
	assert.Equal(t, "broken", entry["cause"])
}

func TestDispatcher_HookPanic(t *testing.T) {
	draws := 0
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		PostDraw: func(*plugin.Context) error {
			draws++
			if draws == 1 {
				panic("boom")
			}
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPostDraw, h.ContextPtr(), 0))
	assert.Equal(t, []string{"Plugin panicked: boom"}, h.Logs())

	// The plugin keeps running after a contained panic.
	assert.Equal(t, entities.ResultSuccess, d.Dispatch(entities.EventPostDraw, h.ContextPtr(), 0))
	assert.Equal(t, 2, draws)
}

func TestDispatcher_ShutdownAlwaysUnloads(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		OnShutdown: func(*plugin.Context) error { return fmt.Errorf("flush failed") },
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))

	assert.Equal(t, entities.ResultFailure, h.Unload(d))
	assert.Equal(t, plugin.StateUnloaded, d.State())
	assert.Equal(t, entities.ResultFailure, d.Dispatch(entities.EventPreUpdate, h.ContextPtr(), 0))
}

func TestDispatcher_SetHooks(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{})

	inits := 0
	require.NoError(t, d.SetHooks(plugin.Hooks{OnInit: func(*plugin.Context) error { inits++; return nil }}))
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	assert.Equal(t, 1, inits)

	err := d.SetHooks(plugin.Hooks{})
	assert.ErrorIs(t, err, errors.ErrAlreadyInitialized)

	h.Unload(d)
	assert.NoError(t, d.SetHooks(plugin.Hooks{}))
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state plugin.State
		want  string
	}{
		{plugin.StateUnloaded, "unloaded"},
		{plugin.StateLoading, "loading"},
		{plugin.StateReady, "ready"},
		{plugin.StateDispatching, "dispatching"},
		{plugin.State(42), "State(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
