// Package testutil provides common helpers for tests that run plugins
// against the simulated host.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoadPlugin initializes a dispatcher running hooks on a new host, fails the
// test unless init succeeds and unloads the plugin when the test ends.
func LoadPlugin(t *testing.T, hooks plugin.Hooks, opts ...domehost.Option) (*domehost.Host, *plugin.Dispatcher) {
	t.Helper()
	h := domehost.New(opts...)
	d := plugin.NewDispatcher(plugin.WithHooks(hooks), plugin.WithLogger(QuietLogger()))
	require.Equal(t, entities.ResultSuccess, h.Load(d), "plugin init")
	t.Cleanup(func() { h.Unload(d) })
	return h, d
}

// RequireFiberError asserts that a script call aborted its fiber.
func RequireFiberError(t *testing.T, err error) *domehost.FiberError {
	t.Helper()
	var fiber *domehost.FiberError
	require.ErrorAs(t, err, &fiber)
	return fiber
}
