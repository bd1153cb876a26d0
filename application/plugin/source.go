package plugin

import (
	"strings"
)

// MethodKind selects the Wren syntax of a foreign method.
type MethodKind int

const (
	// MethodKindMethod is a regular method: name(a, b).
	MethodKindMethod MethodKind = iota
	// MethodKindGetter is a getter: name.
	MethodKindGetter
	// MethodKindSetter is a setter: name=(value).
	MethodKindSetter
)

func (k MethodKind) String() string {
	switch k {
	case MethodKindMethod:
		return "method"
	case MethodKindGetter:
		return "getter"
	case MethodKindSetter:
		return "setter"
	default:
		return "invalid"
	}
}

// Signature returns the Wren signature of m without the class,
// e.g. "play(_,_)", "volume" or "volume=(_)".
func (m Method) Signature() string {
	switch m.Kind {
	case MethodKindGetter:
		return m.Name
	case MethodKindSetter:
		return m.Name + "=(_)"
	default:
		return m.Name + "(" + strings.TrimSuffix(strings.Repeat("_,", len(m.Params)), ",") + ")"
	}
}

// FullSignature returns the signature DOME expects in registerFn,
// e.g. "static Synth.play(_,_)".
func (m Method) FullSignature(class string) string {
	sig := class + "." + m.Signature()
	if m.Static {
		sig = "static " + sig
	}
	return sig
}

// declaration renders the foreign method declaration for the class body.
func (m Method) declaration() string {
	var b strings.Builder
	b.WriteString("foreign ")
	if m.Static {
		b.WriteString("static ")
	}
	b.WriteString(m.Name)
	switch m.Kind {
	case MethodKindGetter:
	case MethodKindSetter:
		// Validate rejects setters without exactly one parameter; Source and
		// Manifest render unvalidated descriptors, so fall back to a name.
		param := "value"
		if len(m.Params) > 0 {
			param = m.Params[0]
		}
		b.WriteString("=(")
		b.WriteString(param)
		b.WriteString(")")
	default:
		b.WriteString("(")
		b.WriteString(strings.Join(m.Params, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Source renders the Wren source of the module: its import lines followed by
// one class declaration per class.
func (m Module) Source() string {
	var b strings.Builder
	for _, line := range m.Imports {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for i, c := range m.Classes {
		if i > 0 || len(m.Imports) > 0 {
			b.WriteByte('\n')
		}
		c.writeSource(&b)
	}
	return b.String()
}

func (c Class) writeSource(b *strings.Builder) {
	if c.Foreign() {
		b.WriteString("foreign ")
	}
	b.WriteString("class ")
	b.WriteString(c.Name)
	b.WriteString(" {\n")
	for _, line := range c.Source {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, m := range c.Methods {
		b.WriteString("  ")
		b.WriteString(m.declaration())
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
}
