package sdk

import (
	"fmt"

	"github.com/reglet-dev/dome-sdk/application/plugin"

	// Exports the PLUGIN_* entry points.
	_ "github.com/reglet-dev/dome-sdk/infrastructure/cabi"
)

// Register stages the plugin's hooks. It must be called before DOME loads
// the plugin, typically from an init function, and fails once the plugin
// is loaded.
func Register(h Hooks) error {
	if err := plugin.Default().SetHooks(h); err != nil {
		return fmt.Errorf("register hooks: %w", err)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(h Hooks) {
	if err := Register(h); err != nil {
		panic(err)
	}
}
