package engine

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

type (
	// LuaEnv evaluates Lua transition predicates in a sandboxed state pool.
	// Compiled bytecode is cached per script
	LuaEnv struct {
		statePool chan *lua.State
		scripts   sync.Map
	}

	compiledLua struct {
		bytecode []byte
	}
)

const (
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaTableIndex       = -3
	luaGlobalTableName  = "_G"
	luaContextPrelude   = "local context = select(1, ...)\n"
)

var (
	// ErrLuaLoad is returned when a condition script fails to load
	ErrLuaLoad = errors.New("lua load error")

	// ErrLuaExecution is returned when a condition script fails at runtime
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a Lua evaluation environment with a pooled state set
func NewLuaEnv() *LuaEnv {
	return &LuaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// EvaluateCondition runs a Lua predicate against the given context data and
// returns its boolean result. The script sees the data as a table named
// "context"
func (e *LuaEnv) EvaluateCondition(
	script string, data api.Data,
) (bool, error) {
	c, err := e.compileCached(script)
	if err != nil {
		return false, err
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(bytes.NewReader(c.bytecode), "chunk", "b"); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}
	pushLuaMap(L, data)
	if err := L.ProtectedCall(1, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}
	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

// Validate checks that a condition script compiles without running it
func (e *LuaEnv) Validate(script string) error {
	_, err := e.compile(script)
	return err
}

func (e *LuaEnv) compileCached(script string) (*compiledLua, error) {
	if val, ok := e.scripts.Load(script); ok {
		return val.(*compiledLua), nil
	}
	c, err := e.compile(script)
	if err == nil {
		e.scripts.Store(script, c)
	}
	return c, err
}

func (e *LuaEnv) compile(script string) (*compiledLua, error) {
	src := luaContextPrelude + script

	L := lua.NewState()
	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, err
	}
	return &compiledLua{bytecode: buf.Bytes()}, nil
}

func (e *LuaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(L *lua.State) {
	L.SetTop(0)
	select {
	case e.statePool <- L:
	default:
	}
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaTableIndex)
	}
}
