package domehost

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const objectTypeName = "dome.object"

// Script drives a Host from Lua. The global table "dome" exposes:
//
//	dome.new(module, class, ...)           construct a foreign object
//	dome.call(obj, signature, ...)         call an instance method
//	dome.call_static(module, class, sig, ...)
//	dome.frame([dt])                       run one game loop iteration
//	dome.release(obj)                      finalize an object
//	dome.log(text)                         write to the host log
//	dome.logs()                            host log lines
//	dome.mix(samples)                      mix audio, returns the buffer
//
// Only the base, table, string and math libraries are loaded.
type Script struct {
	host   *Host
	plugin Plugin
	L      *lua.LState
}

var scriptLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// NewScript creates a Lua state bound to h. plugin may be nil when the
// script never calls dome.frame.
func NewScript(h *Host, plugin Plugin) (*Script, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}
	for _, fn := range []string{"dofile", "loadfile", "loadstring", "load"} {
		L.SetGlobal(fn, lua.LNil)
	}

	s := &Script{host: h, plugin: plugin, L: L}
	L.NewTypeMetatable(objectTypeName)

	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"new":         s.luaNew,
		"call":        s.luaCall,
		"call_static": s.luaCallStatic,
		"frame":       s.luaFrame,
		"release":     s.luaRelease,
		"log":         s.luaLog,
		"logs":        s.luaLogs,
		"mix":         s.luaMix,
	})
	L.SetGlobal("dome", mod)
	return s, nil
}

// Run executes a Lua chunk.
func (s *Script) Run(source string) error {
	if err := s.L.DoString(source); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.L.Close()
}

func (s *Script) luaNew(L *lua.LState) int {
	module, class := L.CheckString(1), L.CheckString(2)
	args := s.args(L, 3)
	obj, err := s.host.New(module, class, args...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(s.toLua(L, obj))
	return 1
}

func (s *Script) luaCall(L *lua.LState) int {
	obj := s.checkObject(L, 1)
	signature := L.CheckString(2)
	result, err := s.host.Call(obj, signature, s.args(L, 3)...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(s.toLua(L, result))
	return 1
}

func (s *Script) luaCallStatic(L *lua.LState) int {
	module, class, signature := L.CheckString(1), L.CheckString(2), L.CheckString(3)
	result, err := s.host.CallStatic(module, class, signature, s.args(L, 4)...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(s.toLua(L, result))
	return 1
}

func (s *Script) luaFrame(L *lua.LState) int {
	if s.plugin == nil {
		L.RaiseError("no plugin loaded")
		return 0
	}
	dt := float64(L.OptNumber(1, 0))
	if err := s.host.Frame(s.plugin, dt); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (s *Script) luaRelease(L *lua.LState) int {
	s.host.Release(s.checkObject(L, 1))
	return 0
}

func (s *Script) luaLog(L *lua.LState) int {
	s.host.writeLog(L.CheckString(1))
	return 0
}

func (s *Script) luaLogs(L *lua.LState) int {
	t := L.NewTable()
	for _, line := range s.host.logs {
		t.Append(lua.LString(line))
	}
	L.Push(t)
	return 1
}

func (s *Script) luaMix(L *lua.LState) int {
	t := L.NewTable()
	for _, sample := range s.host.MixAudio(L.CheckInt(1)) {
		t.Append(lua.LNumber(sample))
	}
	L.Push(t)
	return 1
}

func (s *Script) checkObject(L *lua.LState, n int) *Object {
	ud := L.CheckUserData(n)
	obj, ok := ud.Value.(*Object)
	if !ok {
		L.ArgError(n, "foreign object expected")
		return nil
	}
	return obj
}

func (s *Script) args(L *lua.LState, from int) []Value {
	var out []Value
	for i := from; i <= L.GetTop(); i++ {
		v, err := fromLua(L.Get(i))
		if err != nil {
			L.ArgError(i, err.Error())
			return nil
		}
		out = append(out, v)
	}
	return out
}

func fromLua(lv lua.LValue) (Value, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LUserData:
		if obj, ok := v.Value.(*Object); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("unsupported userdata %T", v.Value)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 || isEmptyTable(v) {
			list := &List{}
			for i := 1; i <= n; i++ {
				e, err := fromLua(v.RawGetInt(i))
				if err != nil {
					return nil, err
				}
				list.Elements = append(list.Elements, e)
			}
			return list, nil
		}
		m := NewMap()
		var convErr error
		v.ForEach(func(k, val lua.LValue) {
			if convErr != nil {
				return
			}
			key, err := fromLua(k)
			if err != nil {
				convErr = err
				return
			}
			value, err := fromLua(val)
			if err != nil {
				convErr = err
				return
			}
			m.Set(key, value)
		})
		return m, convErr
	default:
		return nil, fmt.Errorf("unsupported Lua type %s", lv.Type())
	}
}

func isEmptyTable(t *lua.LTable) bool {
	k, _ := t.Next(lua.LNil)
	return k == lua.LNil
}

func (s *Script) toLua(L *lua.LState, v Value) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case *List:
		t := L.NewTable()
		for _, e := range val.Elements {
			t.Append(s.toLua(L, e))
		}
		return t
	case *Map:
		t := L.NewTable()
		for _, k := range val.keys {
			L.SetTable(t, s.toLua(L, k), s.toLua(L, val.entries[k]))
		}
		return t
	case *Object:
		ud := L.NewUserData()
		ud.Value = val
		L.SetMetatable(ud, L.GetTypeMetatable(objectTypeName))
		return ud
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
