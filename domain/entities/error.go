package entities

import (
	"fmt"
	"log/slog"
)

// ErrorDetail is the structured form of an SDK error, used for the plugin's
// Go-side logs and for tooling.
// Types: "load", "hook", "registration", "slot", "panic", "context", "internal"
type ErrorDetail struct {
	// Wrapped is the detail of the underlying cause, if any.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details holds the module, class, slot or version involved.
	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`

	// Code narrows Type: the event name for hook errors, the API group for
	// load errors, the module for registration errors.
	Code string `json:"code,omitempty"`

	// Stack is only set for panics.
	Stack []byte `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// Attrs returns the detail as slog attributes. The stack is left out.
func (e *ErrorDetail) Attrs() []any {
	if e == nil {
		return nil
	}
	attrs := []any{slog.String("error", e.Message), slog.String("type", e.Type)}
	if e.Code != "" {
		attrs = append(attrs, slog.String("code", e.Code))
	}
	if len(e.Details) > 0 {
		group := make([]any, 0, len(e.Details))
		for k, v := range e.Details {
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("details", group...))
	}
	if e.Wrapped != nil {
		attrs = append(attrs, slog.String("cause", e.Wrapped.Error()))
	}
	return attrs
}
