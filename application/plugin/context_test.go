package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

func TestContext_Log(t *testing.T) {
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		OnInit: func(ctx *plugin.Context) error {
			require.NoError(t, ctx.Log("volume at 100%\n"))
			require.NoError(t, ctx.Logf("loaded %d modules\n", 2))
			ctx.Logger().Info("ready", "plugin", "synth")
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.Equal(t, []string{
		"volume at 100%",
		"loaded 2 modules",
		"[INFO] ready plugin=synth",
	}, h.Logs())
}

func TestContext_Stale(t *testing.T) {
	var kept *plugin.Context
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		OnInit: func(ctx *plugin.Context) error {
			kept = ctx
			assert.True(t, ctx.Live())
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	require.NotNil(t, kept)
	assert.False(t, kept.Live())
	assert.ErrorIs(t, kept.Log("late"), errors.ErrStaleContext)
	assert.ErrorIs(t, kept.RegisterModule("late", ""), errors.ErrStaleContext)
	assert.ErrorIs(t, kept.LockModule("late"), errors.ErrStaleContext)

	_, err := kept.CreateChannel(plugin.ChannelSpec{Mix: func(*plugin.Channel, []float32) {}})
	assert.ErrorIs(t, err, errors.ErrStaleContext)

	assert.Empty(t, h.Logs())
	assert.Empty(t, h.Journal())
}

func TestContext_RegistrationClosedAfterInit(t *testing.T) {
	var regErr error
	h := domehost.New()
	d := newDispatcher(plugin.Hooks{
		PreUpdate: func(ctx *plugin.Context) error {
			regErr = ctx.RegisterModule("late", "class Late {}")
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	require.NoError(t, h.Frame(d, 0))
	assert.ErrorIs(t, regErr, errors.ErrRegistrationClosed)

	var re *errors.RegistrationError
	require.ErrorAs(t, regErr, &re)
	assert.Equal(t, "late", re.Module)
	assert.Empty(t, h.Journal())
}

func TestContext_RawRegistration(t *testing.T) {
	h := domehost.New(domehost.WithRejection(domehost.OpRegisterFn, "Raw.bad()"))
	noop := func(*plugin.VM) error { return nil }

	var errs []error
	d := newDispatcher(plugin.Hooks{
		OnInit: func(ctx *plugin.Context) error {
			errs = append(errs,
				ctx.RegisterModule("raw", "foreign class Raw {\n  foreign static ok()\n  foreign static bad()\n}\n"),
				ctx.RegisterClass("raw", "Raw", noop, nil),
				ctx.RegisterFn("raw", "static Raw.ok()", noop),
				ctx.RegisterFn("raw", "Raw.bad()", noop),
				ctx.RegisterFn("raw", "static Raw.nil()", nil),
				ctx.RegisterClass("raw", "Nil", nil, nil),
				ctx.LockModule("raw"),
			)
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	require.Len(t, errs, 7)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.NoError(t, errs[2])
	assert.ErrorIs(t, errs[3], errors.ErrHostRejected)
	assert.EqualError(t, errs[4], "failed to register method static Raw.nil() in module raw: nil handler")
	assert.EqualError(t, errs[5], "failed to register class Nil in module raw: nil allocator")
	assert.NoError(t, errs[6])

	m, ok := h.Module("raw")
	require.True(t, ok)
	assert.True(t, m.Locked)
	assert.True(t, m.HasFn("static Raw.ok()"))
	assert.False(t, m.HasFn("Raw.bad()"))
}

func TestContext_DuplicateModuleRejected(t *testing.T) {
	h := domehost.New()
	var second error
	d := newDispatcher(plugin.Hooks{
		OnInit: func(ctx *plugin.Context) error {
			if err := ctx.RegisterModule("dup", ""); err != nil {
				return err
			}
			second = ctx.RegisterModule("dup", "")
			return nil
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	defer h.Unload(d)

	assert.ErrorIs(t, second, errors.ErrHostRejected)
}
