// Package errors provides domain-specific error types for the SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/dome-sdk/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

var (
	// ErrStaleContext is returned when a Context or VM is used after the
	// callback that produced it has returned.
	ErrStaleContext = stdErrors.New("context used outside of its callback")

	// ErrNotInitialized is returned when an event arrives before a successful init.
	ErrNotInitialized = stdErrors.New("plugin is not initialized")

	// ErrReentrantDispatch is returned when the host calls an entry point while
	// another one is still running.
	ErrReentrantDispatch = stdErrors.New("re-entrant dispatch")

	// ErrAlreadyInitialized is returned when init is called on a loaded plugin.
	ErrAlreadyInitialized = stdErrors.New("plugin is already initialized")

	// ErrTrampolinesExhausted is returned when no C callback slot is left for
	// a foreign method, finalizer or audio callback.
	ErrTrampolinesExhausted = stdErrors.New("callback trampolines exhausted")

	// ErrRegistrationClosed is returned when registration is attempted outside
	// of the init hook.
	ErrRegistrationClosed = stdErrors.New("registration is only allowed during init")

	// ErrHostRejected is returned when the host reports failure for a call.
	ErrHostRejected = stdErrors.New("host rejected the call")
)

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	if stdErrors.Is(err, ErrStaleContext) {
		return &entities.ErrorDetail{Message: err.Error(), Type: "context", Code: "stale"}
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// InvalidCapabilityTableError reports that the host did not hand over a usable
// capability group. It is fatal to plugin load.
type InvalidCapabilityTableError struct {
	API     entities.APIType
	Reason  string
	Version int32
}

func (e *InvalidCapabilityTableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid capability table: %s", e.Reason)
	}
	return fmt.Sprintf("invalid capability table: host does not provide %s API v%d", e.API, e.Version)
}

// LoadFailure marks the error as fatal to loading the plugin.
func (e *InvalidCapabilityTableError) LoadFailure() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *InvalidCapabilityTableError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "load",
		Code:    e.API.String(),
		Details: map[string]any{"version": e.Version},
	}
}

// HookError wraps an error returned by a lifecycle hook.
type HookError struct {
	Err   error
	Event entities.Event
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed: %v", e.Event, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// LoadFailure reports false: a hook failure is never a load failure, even
// when the hook's own error wraps one.
func (e *HookError) LoadFailure() bool {
	return false
}

// ToErrorDetail implements DetailedError.
func (e *HookError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "hook", Code: e.Event.String()}
	if e.Err != nil {
		d.Wrapped = ToErrorDetail(e.Err)
	}
	return d
}

// RegistrationError reports which module, class or method the host refused.
// Class and Method are empty when the failure happened at a coarser level.
type RegistrationError struct {
	Err    error
	Module string
	Class  string
	Method string
}

func (e *RegistrationError) Error() string {
	var msg string
	switch {
	case e.Method != "":
		msg = fmt.Sprintf("failed to register method %s in module %s", e.Method, e.Module)
	case e.Class != "":
		msg = fmt.Sprintf("failed to register class %s in module %s", e.Class, e.Module)
	default:
		msg = fmt.Sprintf("failed to register module %s", e.Module)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RegistrationError) ToErrorDetail() *entities.ErrorDetail {
	details := map[string]any{"module": e.Module}
	if e.Class != "" {
		details["class"] = e.Class
	}
	if e.Method != "" {
		details["method"] = e.Method
	}
	return &entities.ErrorDetail{Message: e.Error(), Type: "registration", Code: e.Module, Details: details}
}

// SlotError reports an invalid slot access from a foreign method.
type SlotError struct {
	Op     string
	Reason string
	Want   entities.SlotType
	Got    entities.SlotType
	Slot   int
	Count  int
}

func (e *SlotError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: slot %d: %s", e.Op, e.Slot, e.Reason)
	}
	if e.Want != e.Got {
		return fmt.Sprintf("%s: slot %d holds %s, want %s", e.Op, e.Slot, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: slot %d out of range (%d slots)", e.Op, e.Slot, e.Count)
}

// ToErrorDetail implements DetailedError.
func (e *SlotError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "slot",
		Code:    e.Op,
		Details: map[string]any{"slot": e.Slot, "count": e.Count},
	}
}

// PanicError carries a value recovered from a panicking hook or callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "panic", Stack: e.Stack}
}
