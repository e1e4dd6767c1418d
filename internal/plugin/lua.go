package plugin

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
)

var (
	errTimeoutBudget     = errors.New("instruction budget exceeded")
	errWallClock         = errors.New("wall-clock deadline exceeded")
	errPanic             = errors.New("plugin panicked")
	errNoTransform       = errors.New("script does not define a transform(text) function")
	errNotString         = errors.New("transform did not return a string")
	errOversizeOrInvalid = errors.New("result is not valid UTF-8 within the size cap")
)

// deniedGlobals are stripped from every Lua state before a script is ever
// run: anything that would allow I/O, code loading, or reflection.
var deniedGlobals = []string{
	"os", "io", "debug", "package",
	"dofile", "loadfile", "require", "load", "loadstring",
	"collectgarbage",
}

// LuaPlugin runs a sandboxed Lua-like script exposing a global
// `transform(text)` function.
type LuaPlugin struct {
	name   string
	source string
	cfg    Config
}

// NewLuaPlugin compiles nothing eagerly; the script is parsed fresh on
// every Apply call so one plugin instance cannot leak state between pages.
func NewLuaPlugin(name, source string, cfg Config) *LuaPlugin {
	return &LuaPlugin{name: name, source: source, cfg: cfg}
}

func (p *LuaPlugin) Name() string { return p.name }

func (p *LuaPlugin) Apply(text string) (string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// Only install the safe subset of the standard library.
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(pair.fn), NRet: 0, Protect: true}, lua.LString(pair.name)); err != nil {
			return "", &Error{Kind: LoadFailed, Plugin: p.name, Cause: err}
		}
	}
	for _, name := range deniedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	// raw metatable/raw-access capability removal: strip the base library
	// functions that would let a script escape the table sandbox.
	for _, name := range []string{"rawget", "rawset", "rawequal", "rawlen", "setmetatable", "getmetatable"} {
		L.SetGlobal(name, lua.LNil)
	}

	cancel := make(chan struct{})
	timedOut := int32(0)
	timer := time.AfterFunc(p.cfg.Timeout, func() {
		atomic.StoreInt32(&timedOut, 1)
		close(cancel)
	})
	defer timer.Stop()

	var instructionCount int64
	L.SetHook(func(l *lua.LState, ar *lua.Debug) {
		instructionCount += 1000
		if instructionCount > p.cfg.InstructionLimit {
			panic(&Error{Kind: Timeout, Plugin: p.name, Cause: errTimeoutBudget})
		}
		if atomic.LoadInt32(&timedOut) == 1 {
			panic(&Error{Kind: Timeout, Plugin: p.name, Cause: errWallClock})
		}
	}, lua.MaskCount, 1000)

	result, errE := p.run(L, text)
	if errE != nil {
		return "", errE
	}
	return result, nil
}

func (p *LuaPlugin) run(L *lua.LState, text string) (result string, errE error) {
	defer func() {
		if r := recover(); r != nil {
			if pErr, ok := r.(*Error); ok {
				errE = pErr
				return
			}
			errE = &Error{Kind: ExecutionFailed, Plugin: p.name, Cause: errPanic}
		}
	}()

	if err := L.DoString(p.source); err != nil {
		return "", &Error{Kind: LoadFailed, Plugin: p.name, Cause: err}
	}

	fn := L.GetGlobal("transform")
	if fn.Type() != lua.LTFunction {
		return "", &Error{Kind: LoadFailed, Plugin: p.name, Cause: errNoTransform}
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(text)); err != nil {
		return "", &Error{Kind: ExecutionFailed, Plugin: p.name, Cause: err}
	}

	ret := L.Get(-1)
	L.Pop(1)
	out, ok := ret.(lua.LString)
	if !ok {
		return "", &Error{Kind: InvalidReturn, Plugin: p.name, Cause: errNotString}
	}
	if !isValidUTF8Within(string(out), p.cfg.MaxResultBytes) {
		return "", &Error{Kind: InvalidReturn, Plugin: p.name, Cause: errOversizeOrInvalid}
	}
	return string(out), nil
}

func isValidUTF8Within(s string, maxBytes int) bool {
	if len(s) > maxBytes {
		return false
	}
	return strings.ToValidUTF8(s, "�") == s
}
