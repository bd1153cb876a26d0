package plugin

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Bind is embedded in a struct to declare a Wren class.
// Tag format: `class:"Name" construct:"new(a, b)"`
// The optional construct tag adds an empty constructor to the class body.
type Bind struct{}

// Fn is a field type declaring a foreign method.
// Tag format: `wren:"[static ]name(a, b)" method:"GoMethod"`
// Getters are written `name` and setters `name=(value)`. Without a method
// tag the Go method is the capitalised Wren name, prefixed with Set for
// setters.
type Fn struct{}

var (
	bindType        = reflect.TypeOf(Bind{})
	fnType          = reflect.TypeOf(Fn{})
	foreignFuncType = reflect.TypeOf(ForeignFunc(nil))
	finalizeType    = reflect.TypeOf(FinalizeFunc(nil))
)

// MustBindClass binds a class or panics.
// Use this when building package-level module descriptors.
func MustBindClass(v any) Class {
	c, err := BindClass(v)
	if err != nil {
		panic(fmt.Sprintf("failed to bind class: %v", err))
	}
	return c
}

// BindClass builds a Class descriptor from a tagged struct. v must be a
// pointer to a struct embedding Bind. Methods named by Fn fields must have
// the signature func(*VM) error. If v has an Allocate(*VM) error method the
// class is foreign, and a Finalize(any) method becomes its finalizer.
func BindClass(v any) (Class, error) {
	t := reflect.TypeOf(v)
	val := reflect.ValueOf(v)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return Class{}, fmt.Errorf("class must be a pointer to struct, got %T", v)
	}

	c, err := extractClassMetadata(t.Elem())
	if err != nil {
		return Class{}, err
	}

	fns, err := extractFns(t.Elem())
	if err != nil {
		return Class{}, fmt.Errorf("class %s: %w", c.Name, err)
	}
	for _, fn := range fns {
		method := val.MethodByName(fn.methodName)
		if !method.IsValid() {
			return Class{}, fmt.Errorf("class %s: no method %s for %s (field %s)",
				c.Name, fn.methodName, fn.tag, fn.fieldName)
		}
		if !method.Type().ConvertibleTo(foreignFuncType) {
			return Class{}, fmt.Errorf("class %s, method %s: must have signature func(*plugin.VM) error",
				c.Name, fn.methodName)
		}
		fn.method.Handler = method.Convert(foreignFuncType).Interface().(ForeignFunc)
		c.Methods = append(c.Methods, fn.method)
	}

	if alloc := val.MethodByName("Allocate"); alloc.IsValid() {
		if !alloc.Type().ConvertibleTo(foreignFuncType) {
			return Class{}, fmt.Errorf("class %s: Allocate must have signature func(*plugin.VM) error", c.Name)
		}
		c.Allocate = alloc.Convert(foreignFuncType).Interface().(ForeignFunc)
	}
	if fin := val.MethodByName("Finalize"); fin.IsValid() {
		if !fin.Type().ConvertibleTo(finalizeType) {
			return Class{}, fmt.Errorf("class %s: Finalize must have signature func(any)", c.Name)
		}
		c.Finalize = fin.Convert(finalizeType).Interface().(FinalizeFunc)
	}
	return c, nil
}

// extractClassMetadata finds the embedded Bind field and parses its tags.
func extractClassMetadata(t reflect.Type) (Class, error) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type != bindType {
			continue
		}
		name := field.Tag.Get("class")
		if name == "" {
			return Class{}, fmt.Errorf("Bind field missing 'class' tag")
		}
		c := Class{Name: name}
		if ctor := field.Tag.Get("construct"); ctor != "" {
			c.Source = append(c.Source, "construct "+ctor+" {}")
		}
		return c, nil
	}
	return Class{}, fmt.Errorf("struct must embed plugin.Bind")
}

// fnInfo holds method metadata extracted from struct fields.
type fnInfo struct {
	fieldName  string
	methodName string
	tag        string
	method     Method
}

// extractFns finds all Fn fields and parses their Wren signatures.
func extractFns(t reflect.Type) ([]fnInfo, error) {
	var fns []fnInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type != fnType {
			continue
		}
		tag := field.Tag.Get("wren")
		if tag == "" {
			return nil, fmt.Errorf("field %s missing 'wren' tag", field.Name)
		}
		m, err := ParseSignature(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		methodName := field.Tag.Get("method")
		if methodName == "" {
			methodName = defaultMethodName(m)
		}
		fns = append(fns, fnInfo{
			fieldName:  field.Name,
			methodName: methodName,
			tag:        tag,
			method:     m,
		})
	}
	return fns, nil
}

// ParseSignature parses a method declaration as written in a wren tag:
// "[static ]name(a, b)", "[static ]name" or "[static ]name=(value)".
// The returned Method has no handler.
func ParseSignature(decl string) (Method, error) {
	var m Method
	s := strings.TrimSpace(decl)
	if rest, ok := strings.CutPrefix(s, "static "); ok {
		m.Static = true
		s = strings.TrimSpace(rest)
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		m.Kind = MethodKindGetter
		m.Name = s
	} else {
		if !strings.HasSuffix(s, ")") {
			return Method{}, fmt.Errorf("malformed signature %q", decl)
		}
		m.Name = s[:open]
		if name, ok := strings.CutSuffix(m.Name, "="); ok {
			m.Kind = MethodKindSetter
			m.Name = name
		}
		if inner := strings.TrimSpace(s[open+1 : len(s)-1]); inner != "" {
			for _, p := range strings.Split(inner, ",") {
				p = strings.TrimSpace(p)
				if p == "" {
					return Method{}, fmt.Errorf("empty parameter in %q", decl)
				}
				m.Params = append(m.Params, p)
			}
		}
	}

	if !isWrenIdent(m.Name) {
		return Method{}, fmt.Errorf("invalid method name %q in %q", m.Name, decl)
	}
	for _, p := range m.Params {
		if !isWrenIdent(p) {
			return Method{}, fmt.Errorf("invalid parameter %q in %q", p, decl)
		}
	}
	if m.Kind == MethodKindSetter && len(m.Params) != 1 {
		return Method{}, fmt.Errorf("setter %q must take exactly one parameter", decl)
	}
	return m, nil
}

func defaultMethodName(m Method) string {
	r := []rune(m.Name)
	r[0] = unicode.ToUpper(r[0])
	name := string(r)
	if m.Kind == MethodKindSetter {
		name = "Set" + name
	}
	return name
}
