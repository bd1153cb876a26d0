package plugin

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
)

// Method describes one foreign method of a class.
type Method struct {
	Handler ForeignFunc `validate:"required"`
	Name    string      `validate:"required,wren_ident"`
	// Params names the parameters in the generated source. Its length is the
	// arity of the method.
	Params []string `validate:"dive,wren_ident"`
	Kind   MethodKind
	Static bool
}

// Class describes a Wren class declared by a module. A class with an
// allocator is a foreign class.
type Class struct {
	Allocate ForeignFunc
	Finalize FinalizeFunc
	Name     string `validate:"required,wren_ident"`
	// Source lines are emitted verbatim inside the class body, before the
	// foreign method declarations.
	Source  []string
	Methods []Method `validate:"dive"`
}

// Foreign reports whether instances of the class carry Go data.
func (c Class) Foreign() bool {
	return c.Allocate != nil
}

// Module describes a Wren module provided by the plugin. Modules are locked
// after registration unless KeepOpen is set.
type Module struct {
	Name string `validate:"required,module_name"`
	// Imports are emitted verbatim at the top of the module source.
	Imports  []string
	Classes  []Class `validate:"dive"`
	KeepOpen bool
}

// Registrar collects module descriptors and registers them with the host
// during init.
type Registrar struct {
	name    string
	modules []Module
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithName sets the plugin name reported in the manifest.
func WithName(name string) RegistrarOption {
	return func(r *Registrar) {
		r.name = name
	}
}

// WithModule adds modules to the Registrar.
func WithModule(mods ...Module) RegistrarOption {
	return func(r *Registrar) {
		r.modules = append(r.modules, mods...)
	}
}

// NewRegistrar creates a Registrar.
func NewRegistrar(opts ...RegistrarOption) *Registrar {
	r := &Registrar{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends modules to the Registrar.
func (r *Registrar) Add(mods ...Module) *Registrar {
	r.modules = append(r.modules, mods...)
	return r
}

// Modules returns the collected descriptors.
func (r *Registrar) Modules() []Module {
	return r.modules
}

// Validate checks every descriptor without touching the host.
func (r *Registrar) Validate() error {
	seen := make(map[string]bool, len(r.modules))
	for _, m := range r.modules {
		if err := validate.Struct(m); err != nil {
			return &errors.RegistrationError{Module: m.Name, Err: fmt.Errorf("invalid descriptor: %w", err)}
		}
		if seen[m.Name] {
			return &errors.RegistrationError{Module: m.Name, Err: fmt.Errorf("duplicate module")}
		}
		seen[m.Name] = true
		if err := validateClasses(m); err != nil {
			return err
		}
	}
	return nil
}

func validateClasses(m Module) error {
	classes := make(map[string]bool, len(m.Classes))
	for _, c := range m.Classes {
		if classes[c.Name] {
			return &errors.RegistrationError{Module: m.Name, Class: c.Name, Err: fmt.Errorf("duplicate class")}
		}
		classes[c.Name] = true
		if c.Finalize != nil && c.Allocate == nil {
			return &errors.RegistrationError{Module: m.Name, Class: c.Name, Err: fmt.Errorf("finalizer without allocator")}
		}
		sigs := make(map[string]bool, len(c.Methods))
		for _, meth := range c.Methods {
			sig := meth.FullSignature(c.Name)
			fail := func(format string, args ...any) error {
				return &errors.RegistrationError{Module: m.Name, Class: c.Name, Method: sig, Err: fmt.Errorf(format, args...)}
			}
			switch meth.Kind {
			case MethodKindMethod:
			case MethodKindGetter:
				if len(meth.Params) != 0 {
					return fail("getter takes no parameters, got %d", len(meth.Params))
				}
			case MethodKindSetter:
				if len(meth.Params) != 1 {
					return fail("setter takes exactly one parameter, got %d", len(meth.Params))
				}
			default:
				return fail("invalid method kind %d", int(meth.Kind))
			}
			if sigs[sig] {
				return fail("duplicate signature")
			}
			sigs[sig] = true
		}
	}
	return nil
}

// Register validates the descriptors and registers them through ctx, which
// must be the Context of the init hook. Modules are processed in order; for
// each one the host sees the module, then its foreign classes, then its
// methods, then the lock. The first failure stops registration.
func (r *Registrar) Register(ctx *Context) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, m := range r.modules {
		if err := registerModule(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func registerModule(ctx *Context, m Module) error {
	if err := ctx.RegisterModule(m.Name, m.Source()); err != nil {
		return err
	}
	for _, c := range m.Classes {
		if !c.Foreign() {
			continue
		}
		if err := ctx.RegisterClass(m.Name, c.Name, c.Allocate, c.Finalize); err != nil {
			return err
		}
	}
	for _, c := range m.Classes {
		for _, meth := range c.Methods {
			if err := ctx.RegisterFn(m.Name, meth.FullSignature(c.Name), meth.Handler); err != nil {
				return withClass(err, c.Name)
			}
		}
	}
	if m.KeepOpen {
		return nil
	}
	return ctx.LockModule(m.Name)
}

func withClass(err error, class string) error {
	var regErr *errors.RegistrationError
	if stdErrors.As(err, &regErr) {
		regErr.Class = class
	}
	return err
}

// Manifest describes what Register would install.
func (r *Registrar) Manifest() entities.Manifest {
	man := entities.Manifest{
		Name:       r.name,
		SDKVersion: entities.SDKVersion,
		Modules:    make([]entities.ModuleManifest, 0, len(r.modules)),
	}
	for _, m := range r.modules {
		mm := entities.ModuleManifest{
			Name:   m.Name,
			Source: m.Source(),
			Locked: !m.KeepOpen,
		}
		for _, c := range m.Classes {
			cm := entities.ClassManifest{
				Name:      c.Name,
				Foreign:   c.Foreign(),
				Finalizer: c.Finalize != nil,
			}
			for _, meth := range c.Methods {
				cm.Methods = append(cm.Methods, entities.MethodManifest{
					Name:      meth.Name,
					Signature: meth.FullSignature(c.Name),
					Static:    meth.Static,
					Arity:     meth.arity(),
				})
			}
			mm.Classes = append(mm.Classes, cm)
		}
		man.Modules = append(man.Modules, mm)
	}
	return man
}

func (m Method) arity() int {
	switch m.Kind {
	case MethodKindGetter:
		return 0
	case MethodKindSetter:
		return 1
	default:
		return len(m.Params)
	}
}
