package plugin

import "github.com/reglet-dev/dome-sdk/domain/entities"

// HookFunc handles one lifecycle event. A returned error is logged to the
// host and reported as failure.
type HookFunc func(ctx *Context) error

// Hooks is the set of lifecycle callbacks of a plugin. A nil hook is a
// no-op that always succeeds.
type Hooks struct {
	OnInit     HookFunc
	PreUpdate  HookFunc
	PostUpdate HookFunc
	PreDraw    HookFunc
	PostDraw   HookFunc
	OnShutdown HookFunc
}

// For returns the hook for event, or nil.
func (h Hooks) For(event entities.Event) HookFunc {
	switch event {
	case entities.EventInit:
		return h.OnInit
	case entities.EventPreUpdate:
		return h.PreUpdate
	case entities.EventPostUpdate:
		return h.PostUpdate
	case entities.EventPreDraw:
		return h.PreDraw
	case entities.EventPostDraw:
		return h.PostDraw
	case entities.EventShutdown:
		return h.OnShutdown
	default:
		return nil
	}
}
