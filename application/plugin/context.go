package plugin

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/reglet-dev/dome-sdk/application/capability"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/domain/ports"
	"github.com/reglet-dev/dome-sdk/log"
)

// frame marks the extent of one host callback. Everything handed to plugin
// code during the callback shares the frame and stops working once the
// callback returns.
type frame struct {
	done bool
}

func (f *frame) live() bool {
	return f != nil && !f.done
}

func (f *frame) close() {
	f.done = true
}

// Context is the plugin's view of the host during one lifecycle callback.
// It must not be retained after the hook returns: every method then fails
// with errors.ErrStaleContext.
type Context struct {
	table *capability.Table
	ptr   ports.ContextPtr
	frame *frame
	event entities.Event
	dt    float64
}

func newContext(table *capability.Table, ptr ports.ContextPtr, f *frame, event entities.Event, dt float64) *Context {
	return &Context{table: table, ptr: ptr, frame: f, event: event, dt: dt}
}

func (c *Context) check() error {
	if c == nil || !c.frame.live() {
		return errors.ErrStaleContext
	}
	return nil
}

// Event returns the lifecycle event being delivered.
func (c *Context) Event() entities.Event {
	return c.event
}

// DeltaTime returns the delta the host passed to a draw event, or 0.
func (c *Context) DeltaTime() float64 {
	return c.dt
}

// Live reports whether the Context may still be used.
func (c *Context) Live() bool {
	return c.check() == nil
}

// Log writes text to the DOME log.
func (c *Context) Log(text string) error {
	if err := c.check(); err != nil {
		return err
	}
	c.table.Dome().Log(c.ptr, escapeLog(text))
	return nil
}

// Logf formats according to a format specifier and writes to the DOME log.
func (c *Context) Logf(format string, args ...any) error {
	return c.Log(fmt.Sprintf(format, args...))
}

// Logger returns a structured logger writing to the DOME log through this
// Context. It shares the Context's lifetime.
func (c *Context) Logger(opts ...log.HandlerOption) *slog.Logger {
	return slog.New(log.NewHandler(c, opts...))
}

// RegisterModule registers a Wren module with the given source.
func (c *Context) RegisterModule(name, source string) error {
	if err := c.registrationOpen(); err != nil {
		return &errors.RegistrationError{Module: name, Err: err}
	}
	if res := c.table.Dome().RegisterModule(c.ptr, name, source); !res.OK() {
		return &errors.RegistrationError{Module: name, Err: errors.ErrHostRejected}
	}
	return nil
}

// RegisterClass binds the allocator and finalizer of a foreign class.
// finalize may be nil.
func (c *Context) RegisterClass(module, class string, allocate ForeignFunc, finalize FinalizeFunc) error {
	if err := c.registrationOpen(); err != nil {
		return &errors.RegistrationError{Module: module, Class: class, Err: err}
	}
	if allocate == nil {
		return &errors.RegistrationError{Module: module, Class: class, Err: fmt.Errorf("nil allocator")}
	}
	res := c.table.Dome().RegisterClass(c.ptr, module, class,
		foreignMethod(c.table, allocate), finalizer(c.table, finalize))
	if !res.OK() {
		return &errors.RegistrationError{Module: module, Class: class, Err: errors.ErrHostRejected}
	}
	return nil
}

// RegisterFn binds a foreign method. signature is the full Wren signature
// including the class, e.g. "static Synth.play(_)".
func (c *Context) RegisterFn(module, signature string, fn ForeignFunc) error {
	if err := c.registrationOpen(); err != nil {
		return &errors.RegistrationError{Module: module, Method: signature, Err: err}
	}
	if fn == nil {
		return &errors.RegistrationError{Module: module, Method: signature, Err: fmt.Errorf("nil handler")}
	}
	if res := c.table.Dome().RegisterFn(c.ptr, module, signature, foreignMethod(c.table, fn)); !res.OK() {
		return &errors.RegistrationError{Module: module, Method: signature, Err: errors.ErrHostRejected}
	}
	return nil
}

// LockModule prevents further registration into the module.
func (c *Context) LockModule(name string) error {
	if err := c.registrationOpen(); err != nil {
		return &errors.RegistrationError{Module: name, Err: err}
	}
	c.table.Dome().LockModule(c.ptr, name)
	return nil
}

// RegisterModules validates and registers the given modules in order.
func (c *Context) RegisterModules(mods ...Module) error {
	return NewRegistrar(WithModule(mods...)).Register(c)
}

func (c *Context) registrationOpen() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.event != entities.EventInit {
		return errors.ErrRegistrationClosed
	}
	return nil
}

// escapeLog protects '%' from the host's printf-style log function.
func escapeLog(text string) string {
	return strings.ReplaceAll(text, "%", "%%")
}
