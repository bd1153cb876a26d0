package plugin_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(hooks plugin.Hooks) *plugin.Dispatcher {
	return plugin.NewDispatcher(plugin.WithHooks(hooks), plugin.WithLogger(quietLogger()))
}

// load initializes a dispatcher that registers mods during init and unloads
// it when the test ends.
func load(t *testing.T, h *domehost.Host, mods ...plugin.Module) *plugin.Dispatcher {
	t.Helper()
	d := newDispatcher(plugin.Hooks{
		OnInit: func(ctx *plugin.Context) error {
			return ctx.RegisterModules(mods...)
		},
	})
	require.Equal(t, entities.ResultSuccess, h.Load(d))
	t.Cleanup(func() { h.Unload(d) })
	return d
}

// static wraps fn as a static method of class Test in module "test".
func static(name string, params []string, fn plugin.ForeignFunc) plugin.Module {
	return plugin.Module{
		Name: "test",
		Classes: []plugin.Class{{
			Name:    "Test",
			Methods: []plugin.Method{{Name: name, Static: true, Params: params, Handler: fn}},
		}},
	}
}
