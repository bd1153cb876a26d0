package entities

// Manifest describes everything a plugin installs into the Wren namespace.
// It is derived from the registration descriptors and is used by tooling;
// the host never sees it.
type Manifest struct {
	Name       string           `json:"name" jsonschema:"description=Plugin name"`
	SDKVersion string           `json:"sdk_version"`
	Modules    []ModuleManifest `json:"modules"`
}

// ModuleManifest describes one Wren module registered by the plugin.
type ModuleManifest struct {
	Name    string          `json:"name"`
	Source  string          `json:"source"`
	Locked  bool            `json:"locked"`
	Classes []ClassManifest `json:"classes,omitempty"`
}

// ClassManifest describes a class declared in a module.
type ClassManifest struct {
	Name      string           `json:"name"`
	Foreign   bool             `json:"foreign"`
	Finalizer bool             `json:"finalizer,omitempty"`
	Methods   []MethodManifest `json:"methods,omitempty"`
}

// MethodManifest describes a foreign method bound to a native handler.
type MethodManifest struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Static    bool   `json:"static,omitempty"`
	Arity     int    `json:"arity"`
}

// FindModule returns the module with the given name.
func (m *Manifest) FindModule(name string) (*ModuleManifest, bool) {
	for i := range m.Modules {
		if m.Modules[i].Name == name {
			return &m.Modules[i], true
		}
	}
	return nil, false
}

// MethodCount returns the number of foreign methods across all modules.
func (m *Manifest) MethodCount() int {
	n := 0
	for _, mod := range m.Modules {
		for _, cls := range mod.Classes {
			n += len(cls.Methods)
		}
	}
	return n
}
