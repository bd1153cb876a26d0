package domehost

import (
	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// domeAPI implements ports.DomeAPI with the semantics of DOME's plugin
// module registry: modules must exist before classes and methods are
// bound, and a locked module accepts nothing further.
type domeAPI struct {
	h *Host
}

var _ ports.DomeAPI = (*domeAPI)(nil)

func (d *domeAPI) RegisterModule(ctx ports.ContextPtr, name, source string) entities.Result {
	h := d.h
	h.record(OpRegisterModule, name, "")
	if !h.ownsContext(ctx) || name == "" || h.rejects(OpRegisterModule, name) {
		return entities.ResultFailure
	}
	if _, exists := h.modules[name]; exists {
		return entities.ResultFailure
	}
	h.modules[name] = &Module{
		Name:    name,
		Source:  source,
		classes: make(map[string]*Class),
		fns:     make(map[string]ports.ForeignMethodFn),
	}
	h.moduleOrder = append(h.moduleOrder, name)
	return entities.ResultSuccess
}

func (d *domeAPI) RegisterFn(ctx ports.ContextPtr, module, signature string, fn ports.ForeignMethodFn) entities.Result {
	h := d.h
	h.record(OpRegisterFn, module, signature)
	m, ok := d.openModule(ctx, module)
	if !ok || fn == nil || h.rejects(OpRegisterFn, signature) {
		return entities.ResultFailure
	}
	m.fns[signature] = fn
	return entities.ResultSuccess
}

func (d *domeAPI) RegisterClass(ctx ports.ContextPtr, module, class string, allocate ports.ForeignMethodFn, finalize ports.FinalizerFn) entities.Result {
	h := d.h
	h.record(OpRegisterClass, module, class)
	m, ok := d.openModule(ctx, module)
	if !ok || allocate == nil || h.rejects(OpRegisterClass, class) {
		return entities.ResultFailure
	}
	m.classes[class] = &Class{Module: module, Name: class, allocate: allocate, finalize: finalize}
	return entities.ResultSuccess
}

func (d *domeAPI) LockModule(ctx ports.ContextPtr, name string) {
	h := d.h
	h.record(OpLockModule, name, "")
	if !h.ownsContext(ctx) {
		return
	}
	if m, ok := h.modules[name]; ok {
		m.Locked = true
	}
}

func (d *domeAPI) GetContext(vm ports.VMPtr) ports.ContextPtr {
	d.h.vmState(vm)
	return d.h.ContextPtr()
}

func (d *domeAPI) Log(ctx ports.ContextPtr, text string) {
	if !d.h.ownsContext(ctx) {
		return
	}
	d.h.writeLog(text)
}

func (d *domeAPI) openModule(ctx ports.ContextPtr, name string) (*Module, bool) {
	if !d.h.ownsContext(ctx) {
		return nil, false
	}
	m, ok := d.h.modules[name]
	if !ok || m.Locked {
		return nil, false
	}
	return m, true
}
