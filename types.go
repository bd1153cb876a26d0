// Package sdk is the entry point for writing DOME plugins in Go.
//
// A plugin registers its hooks from an init function of its c-shared main
// package; importing this package links in the PLUGIN_* symbols DOME looks
// up when it loads the library:
//
//	func init() {
//		sdk.MustRegister(sdk.Hooks{OnInit: onInit})
//	}
//
//	func main() {}
package sdk

import (
	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
)

// Version is the SDK version reported in plugin manifests.
const Version = entities.SDKVersion

// Re-exported plugin types.
type (
	Hooks        = plugin.Hooks
	HookFunc     = plugin.HookFunc
	Context      = plugin.Context
	VM           = plugin.VM
	Handle       = plugin.Handle
	ForeignFunc  = plugin.ForeignFunc
	FinalizeFunc = plugin.FinalizeFunc
	Module       = plugin.Module
	Class        = plugin.Class
	Method       = plugin.Method
	Registrar    = plugin.Registrar
	Bind         = plugin.Bind
	Fn           = plugin.Fn
	ChannelSpec  = plugin.ChannelSpec
	Channel      = plugin.Channel
)

// Re-exported domain types.
type (
	Result       = entities.Result
	Event        = entities.Event
	SlotType     = entities.SlotType
	ChannelState = entities.ChannelState
	Manifest     = entities.Manifest
	ErrorDetail  = entities.ErrorDetail
)

// ToErrorDetail converts a Go error to an ErrorDetail for logs and tooling.
func ToErrorDetail(err error) *ErrorDetail {
	return errors.ToErrorDetail(err)
}
