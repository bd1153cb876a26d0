package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

// Greeter is a foreign class declared with struct tags.
type Greeter struct {
	plugin.Bind `class:"Greeter" construct:"new(name)"`
	GreetFn     plugin.Fn `wren:"greet(greeting)"`
	NameFn      plugin.Fn `wren:"name"`
	RenameFn    plugin.Fn `wren:"name=(value)"`
	CountFn     plugin.Fn `wren:"static count" method:"Instances"`

	created int
}

type greeter struct {
	name string
}

func (g *Greeter) Allocate(vm *plugin.VM) error {
	name, err := vm.SlotString(1)
	if err != nil {
		return err
	}
	g.created++
	return plugin.NewForeign(vm, &greeter{name: name})
}

func (g *Greeter) Finalize(any) {}

func (g *Greeter) Greet(vm *plugin.VM) error {
	self, err := plugin.Foreign[greeter](vm, 0)
	if err != nil {
		return err
	}
	greeting, err := vm.SlotString(1)
	if err != nil {
		return err
	}
	return vm.SetSlotString(0, greeting+", "+self.name)
}

func (g *Greeter) Name(vm *plugin.VM) error {
	self, err := plugin.Foreign[greeter](vm, 0)
	if err != nil {
		return err
	}
	return vm.SetSlotString(0, self.name)
}

func (g *Greeter) SetName(vm *plugin.VM) error {
	self, err := plugin.Foreign[greeter](vm, 0)
	if err != nil {
		return err
	}
	if self.name, err = vm.SlotString(1); err != nil {
		return err
	}
	return vm.SetSlotNull(0)
}

func (g *Greeter) Instances(vm *plugin.VM) error {
	return vm.SetSlotDouble(0, float64(g.created))
}

func TestBindClass(t *testing.T) {
	g := &Greeter{}
	c, err := plugin.BindClass(g)
	require.NoError(t, err)

	assert.Equal(t, "Greeter", c.Name)
	assert.True(t, c.Foreign())
	assert.NotNil(t, c.Finalize)
	assert.Equal(t, []string{"construct new(name) {}"}, c.Source)

	sigs := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		sigs = append(sigs, m.FullSignature(c.Name))
	}
	assert.Equal(t, []string{
		"Greeter.greet(_)",
		"Greeter.name",
		"Greeter.name=(_)",
		"static Greeter.count",
	}, sigs)
}

func TestBindClass_EndToEnd(t *testing.T) {
	h := domehost.New()
	load(t, h, plugin.Module{Name: "greet", Classes: []plugin.Class{plugin.MustBindClass(&Greeter{})}})

	obj, err := h.New("greet", "Greeter", "Ada")
	require.NoError(t, err)

	got, err := h.Call(obj, "greet(_)", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada", got)

	_, err = h.Call(obj, "name=(_)", "Grace")
	require.NoError(t, err)
	got, err = h.Call(obj, "name")
	require.NoError(t, err)
	assert.Equal(t, "Grace", got)

	got, err = h.CallStatic("greet", "Greeter", "count")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

type noBind struct {
	RunFn plugin.Fn `wren:"run()"`
}

type missingClassTag struct {
	plugin.Bind
}

type missingMethod struct {
	plugin.Bind `class:"Missing"`
	RunFn       plugin.Fn `wren:"run()"`
}

type badSignature struct {
	plugin.Bind `class:"Bad"`
	RunFn       plugin.Fn `wren:"run()"`
}

func (b *badSignature) Run() error { return nil }

type badTag struct {
	plugin.Bind `class:"Bad"`
	RunFn       plugin.Fn `wren:"run(a"`
}

type badAllocator struct {
	plugin.Bind `class:"Bad"`
}

func (b *badAllocator) Allocate() {}

func TestBindClass_Errors(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		wantErr string
	}{
		{"not a pointer", Greeter{}, "class must be a pointer to struct"},
		{"nil", nil, "class must be a pointer to struct"},
		{"no Bind", &noBind{}, "struct must embed plugin.Bind"},
		{"no class tag", &missingClassTag{}, "Bind field missing 'class' tag"},
		{"missing method", &missingMethod{}, "class Missing: no method Run for run() (field RunFn)"},
		{"wrong signature", &badSignature{}, "class Bad, method Run: must have signature func(*plugin.VM) error"},
		{"malformed tag", &badTag{}, `class Bad: field RunFn: malformed signature "run(a"`},
		{"bad allocator", &badAllocator{}, "class Bad: Allocate must have signature func(*plugin.VM) error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.BindClass(tt.v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustBindClass_Panics(t *testing.T) {
	assert.Panics(t, func() { plugin.MustBindClass(&noBind{}) })
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		decl    string
		want    plugin.Method
		wantErr bool
	}{
		{decl: "run()", want: plugin.Method{Name: "run"}},
		{decl: "add(a, b)", want: plugin.Method{Name: "add", Params: []string{"a", "b"}}},
		{decl: "static play(note)", want: plugin.Method{Name: "play", Static: true, Params: []string{"note"}}},
		{decl: "volume", want: plugin.Method{Name: "volume", Kind: plugin.MethodKindGetter}},
		{decl: "volume=(v)", want: plugin.Method{Name: "volume", Kind: plugin.MethodKindSetter, Params: []string{"v"}}},
		{decl: "  static  count ", want: plugin.Method{Name: "count", Static: true, Kind: plugin.MethodKindGetter}},
		{decl: "volume=()", wantErr: true},
		{decl: "run(", wantErr: true},
		{decl: "while()", wantErr: true},
		{decl: "run(1a)", wantErr: true},
		{decl: "f(a,,b)", wantErr: true},
		{decl: "f(a,)", wantErr: true},
		{decl: "f(, a)", wantErr: true},
		{decl: "f( )", want: plugin.Method{Name: "f"}},
		{decl: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			got, err := plugin.ParseSignature(tt.decl)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
