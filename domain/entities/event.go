package entities

// Event identifies a plugin lifecycle callback.
type Event int

const (
	// EventInit is delivered once, when the host loads the plugin.
	EventInit Event = iota
	// EventPreUpdate runs before the game's update step.
	EventPreUpdate
	// EventPostUpdate runs after the game's update step.
	EventPostUpdate
	// EventPreDraw runs before the game's draw step.
	EventPreDraw
	// EventPostDraw runs after the game's draw step.
	EventPostDraw
	// EventShutdown is delivered once, when the host unloads the plugin.
	EventShutdown
	// EventCallback marks a foreign method or audio callback invoked by a
	// script rather than a lifecycle entry point.
	EventCallback
)

var eventNames = [...]string{
	EventInit:       "init",
	EventPreUpdate:  "pre_update",
	EventPostUpdate: "post_update",
	EventPreDraw:    "pre_draw",
	EventPostDraw:   "post_draw",
	EventShutdown:   "shutdown",
	EventCallback:   "callback",
}

// String returns the snake_case event name.
func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// HasDelta reports whether the host passes a delta value with the event.
func (e Event) HasDelta() bool {
	return e == EventPreDraw || e == EventPostDraw
}
