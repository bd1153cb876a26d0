package plugin

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/reglet-dev/dome-sdk/application/capability"
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// State is the lifecycle state of a Dispatcher.
type State int32

const (
	// StateUnloaded: no capability table, events fail.
	StateUnloaded State = iota
	// StateLoading: init is running.
	StateLoading
	// StateReady: init succeeded and no entry point is running.
	StateReady
	// StateDispatching: a lifecycle hook is running.
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDispatching:
		return "dispatching"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Dispatcher turns host entry point calls into hook invocations. It owns the
// capability table for the lifetime of the loaded library.
type Dispatcher struct {
	state  atomic.Int32
	mu     sync.Mutex
	staged Hooks
	hooks  Hooks
	table  *capability.Table
	logger *slog.Logger
	onLoad func()
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger for diagnostics that have no host context,
// such as entry points rejected by the state machine.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithHooks stages the hook set.
func WithHooks(h Hooks) DispatcherOption {
	return func(d *Dispatcher) {
		d.staged = h
	}
}

// WithLoadHook sets fn to run at the start of every accepted init, before
// the capability table is loaded. A rejected init does not run it.
func WithLoadHook(fn func()) DispatcherOption {
	return func(d *Dispatcher) {
		d.onLoad = fn
	}
}

// NewDispatcher creates an unloaded dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

var defaultDispatcher = NewDispatcher()

// Default returns the process-wide dispatcher the exported entry points use.
func Default() *Dispatcher {
	return defaultDispatcher
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// SetLoadHook replaces the function run at the start of an accepted init.
// See WithLoadHook.
func (d *Dispatcher) SetLoadHook(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLoad = fn
}

// SetHooks stages the hooks used from the next init on. It fails once the
// plugin is loaded because the hook set is frozen by init.
func (d *Dispatcher) SetHooks(h Hooks) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() != StateUnloaded {
		return errors.ErrAlreadyInitialized
	}
	d.staged = h
	return nil
}

// Init handles the host's init entry point: it loads the capability table,
// freezes the staged hooks and runs OnInit. A table that cannot be loaded
// yields ResultUnknown and no hook runs.
func (d *Dispatcher) Init(provider ports.APIProvider, ctx ports.ContextPtr) entities.Result {
	if !d.state.CompareAndSwap(int32(StateUnloaded), int32(StateLoading)) {
		d.logger.Warn("init rejected", "state", d.State(), "error", errors.ErrAlreadyInitialized)
		return entities.ResultFrom(errors.ErrAlreadyInitialized)
	}

	d.mu.Lock()
	onLoad := d.onLoad
	d.mu.Unlock()
	if onLoad != nil {
		onLoad()
	}

	table, err := d.load(provider, ctx)
	if err != nil {
		d.logger.Error("plugin load failed", errors.ToErrorDetail(err).Attrs()...)
		d.state.Store(int32(StateUnloaded))
		return entities.ResultFrom(err)
	}

	d.mu.Lock()
	d.table = table
	d.hooks = d.staged
	d.mu.Unlock()

	if err := d.invoke(entities.EventInit, ctx, 0); err != nil {
		d.reset()
		return entities.ResultFrom(err)
	}

	d.state.Store(int32(StateReady))
	return entities.ResultSuccess
}

func (d *Dispatcher) load(provider ports.APIProvider, ctx ports.ContextPtr) (*capability.Table, error) {
	if ctx == nil {
		return nil, &errors.InvalidCapabilityTableError{Reason: "nil context"}
	}
	return capability.Load(provider)
}

// Dispatch handles one event entry point. Events before a successful init,
// and calls made while another hook is running, fail without running a hook.
// After shutdown the dispatcher is unloaded whatever the hook returned.
func (d *Dispatcher) Dispatch(event entities.Event, ctx ports.ContextPtr, dt float64) entities.Result {
	if event == entities.EventInit || event == entities.EventCallback {
		d.logger.Warn("dispatch rejected", "event", event)
		return entities.ResultFailure
	}

	if !d.state.CompareAndSwap(int32(StateReady), int32(StateDispatching)) {
		err := errors.ErrNotInitialized
		if s := d.State(); s == StateDispatching || s == StateLoading {
			err = errors.ErrReentrantDispatch
		}
		d.logger.Warn("dispatch rejected", "event", event, "error", err)
		return entities.ResultFrom(err)
	}

	err := d.invoke(event, ctx, dt)

	if event == entities.EventShutdown {
		d.reset()
	} else {
		d.state.Store(int32(StateReady))
	}
	return entities.ResultFrom(err)
}

// invoke runs the hook for event with a fresh Context and translates panics.
// Failures are logged to the host before they are returned.
func (d *Dispatcher) invoke(event entities.Event, ctx ports.ContextPtr, dt float64) error {
	hook := d.hooks.For(event)
	if hook == nil {
		return nil
	}

	f := &frame{}
	c := newContext(d.table, ctx, f, event, dt)
	err := callProtected(func() error { return hook(c) })
	f.close()
	if err == nil {
		return nil
	}

	var p *errors.PanicError
	if stdErrors.As(err, &p) {
		logPanic(d.table, ctx, p)
	} else if ctx != nil {
		d.table.Dome().Log(ctx, escapeLog(err.Error()+"\n"))
	}
	hookErr := &errors.HookError{Event: event, Err: err}
	d.logger.Warn("hook failed", errors.ToErrorDetail(hookErr).Attrs()...)
	return hookErr
}

// reset returns the dispatcher to Unloaded and drops the table and hooks.
func (d *Dispatcher) reset() {
	d.mu.Lock()
	d.table = nil
	d.hooks = Hooks{}
	d.mu.Unlock()
	d.state.Store(int32(StateUnloaded))
}
