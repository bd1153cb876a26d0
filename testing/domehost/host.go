// Package domehost is an in-memory DOME host for exercising plugins without
// the engine. It implements the DOME, Wren and audio capability groups,
// records every registration call and drives the plugin lifecycle.
//
// The host is single-threaded like DOME: it must only be used from one
// goroutine and never spawns any.
package domehost

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// Journal operation names.
const (
	OpRegisterModule = "register_module"
	OpRegisterClass  = "register_class"
	OpRegisterFn     = "register_fn"
	OpLockModule     = "lock_module"
)

// Plugin is the plugin side of the ABI as seen by the host.
// *plugin.Dispatcher satisfies it.
type Plugin interface {
	Init(provider ports.APIProvider, ctx ports.ContextPtr) entities.Result
	Dispatch(event entities.Event, ctx ports.ContextPtr, dt float64) entities.Result
}

// Call is one journal entry.
type Call struct {
	Op     string
	Module string
	Name   string
}

func (c Call) String() string {
	if c.Name == "" {
		return c.Op + " " + c.Module
	}
	return c.Op + " " + c.Module + " " + c.Name
}

// Module is a Wren module registered by a plugin.
type Module struct {
	Name    string
	Source  string
	Locked  bool
	classes map[string]*Class
	fns     map[string]ports.ForeignMethodFn
}

// HasFn reports whether a foreign method with the given signature is bound.
func (m *Module) HasFn(signature string) bool {
	_, ok := m.fns[signature]
	return ok
}

// Class is a Wren class known to the host.
type Class struct {
	Module   string
	Name     string
	allocate ports.ForeignMethodFn
	finalize ports.FinalizerFn
}

// Foreign reports whether the class was registered with an allocator.
func (c *Class) Foreign() bool {
	return c.allocate != nil
}

// Option configures a Host.
type Option func(*Host)

// WithAPIVersion makes the host serve api only at version.
func WithAPIVersion(api entities.APIType, version int32) Option {
	return func(h *Host) {
		h.versions[api] = version
	}
}

// WithoutAPI makes getAPI return NULL for api.
func WithoutAPI(api entities.APIType) Option {
	return func(h *Host) {
		delete(h.versions, api)
	}
}

// WithRejection makes the host refuse a registration call. name is the
// module name for OpRegisterModule, the class name for OpRegisterClass and
// the full signature for OpRegisterFn.
func WithRejection(op, name string) Option {
	return func(h *Host) {
		h.rejections[op+"\x00"+name] = true
	}
}

// WithLogger mirrors host log lines to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithVariable defines a top-level variable visible to GetVariable.
func WithVariable(module, name string, value Value) Option {
	return func(h *Host) {
		h.SetVariable(module, name, value)
	}
}

type hostContext struct {
	host *Host
}

// Host is the simulated DOME engine.
type Host struct {
	versions   map[entities.APIType]int32
	rejections map[string]bool
	logger     *slog.Logger

	ctx *hostContext
	vm  *vmState

	modules     map[string]*Module
	moduleOrder []string
	variables   map[string]map[string]Value
	journal     []Call
	logs        []string
	objects     []*Object
	handles     []*Handle

	channels     map[uint64]*channel
	channelOrder []uint64
	nextChannel  uint64

	dome  *domeAPI
	wren  *wrenAPI
	audio *audioAPI
}

// New creates a host serving every API group at version 0.
func New(opts ...Option) *Host {
	h := &Host{
		versions: map[entities.APIType]int32{
			entities.APIDome:  entities.DomeAPIVersion,
			entities.APIWren:  entities.WrenAPIVersion,
			entities.APIAudio: entities.AudioAPIVersion,
		},
		rejections: make(map[string]bool),
		modules:    make(map[string]*Module),
		variables:  make(map[string]map[string]Value),
		channels:   make(map[uint64]*channel),
	}
	h.ctx = &hostContext{host: h}
	h.vm = &vmState{host: h}
	h.dome = &domeAPI{h: h}
	h.wren = &wrenAPI{h: h}
	h.audio = &audioAPI{h: h}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Provider returns the host's getAPI function.
func (h *Host) Provider() ports.APIProvider {
	return ports.APIProviderFunc(h.getAPI)
}

func (h *Host) getAPI(api entities.APIType, version int32) any {
	supported, ok := h.versions[api]
	if !ok || supported != version {
		return nil
	}
	switch api {
	case entities.APIDome:
		return h.dome
	case entities.APIWren:
		return h.wren
	case entities.APIAudio:
		return h.audio
	default:
		return nil
	}
}

// ContextPtr returns the DOME_Context the host passes to every entry point.
func (h *Host) ContextPtr() ports.ContextPtr {
	return ports.ContextPtr(unsafe.Pointer(h.ctx))
}

func (h *Host) ownsContext(ctx ports.ContextPtr) bool {
	return unsafe.Pointer(ctx) == unsafe.Pointer(h.ctx)
}

// Load calls the plugin's init entry point.
func (h *Host) Load(p Plugin) entities.Result {
	return p.Init(h.Provider(), h.ContextPtr())
}

// Frame runs one game loop iteration: update hooks, audio update and draw
// hooks. It stops at the first entry point that does not succeed.
func (h *Host) Frame(p Plugin, dt float64) error {
	steps := []entities.Event{entities.EventPreUpdate, entities.EventPostUpdate}
	for _, ev := range steps {
		if res := p.Dispatch(ev, h.ContextPtr(), 0); !res.OK() {
			return fmt.Errorf("%s returned %s", ev, res)
		}
	}
	if err := h.UpdateAudio(); err != nil {
		return err
	}
	for _, ev := range []entities.Event{entities.EventPreDraw, entities.EventPostDraw} {
		if res := p.Dispatch(ev, h.ContextPtr(), dt); !res.OK() {
			return fmt.Errorf("%s returned %s", ev, res)
		}
	}
	return nil
}

// Unload calls the plugin's shutdown entry point and then finalizes every
// live foreign object, as DOME does when it frees the VM.
func (h *Host) Unload(p Plugin) entities.Result {
	res := p.Dispatch(entities.EventShutdown, h.ContextPtr(), 0)
	h.Collect()
	return res
}

// Journal returns a copy of the registration calls in order.
func (h *Host) Journal() []Call {
	out := make([]Call, len(h.journal))
	copy(out, h.journal)
	return out
}

// Logs returns the host log lines in order.
func (h *Host) Logs() []string {
	out := make([]string, len(h.logs))
	copy(out, h.logs)
	return out
}

// Module returns a registered module.
func (h *Host) Module(name string) (*Module, bool) {
	m, ok := h.modules[name]
	return m, ok
}

// Modules returns the registered module names in registration order.
func (h *Host) Modules() []string {
	out := make([]string, len(h.moduleOrder))
	copy(out, h.moduleOrder)
	return out
}

// SetVariable defines or replaces a top-level module variable.
func (h *Host) SetVariable(module, name string, value Value) {
	vars, ok := h.variables[module]
	if !ok {
		vars = make(map[string]Value)
		h.variables[module] = vars
	}
	vars[name] = value
}

func (h *Host) rejects(op, name string) bool {
	return h.rejections[op+"\x00"+name]
}

func (h *Host) record(op, module, name string) {
	h.journal = append(h.journal, Call{Op: op, Module: module, Name: name})
}

func (h *Host) writeLog(text string) {
	line := strings.TrimRight(strings.ReplaceAll(text, "%%", "%"), "\n")
	h.logs = append(h.logs, line)
	if h.logger != nil {
		h.logger.Info(line, "source", "dome")
	}
}
