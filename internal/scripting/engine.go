package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding motion scripts.
// Single-goroutine access only (tick loop). Reload swaps the VM in place.
type Engine struct {
	vm  *lua.LState
	dir string
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory yields an engine with no scripts.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{dir: scriptsDir, log: log}
	vm, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

func (e *Engine) load() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	if err := e.loadDir(vm, e.dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load motion scripts: %w", err)
	}
	return vm, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Reload re-reads the scripts directory into a fresh VM. On error the
// current VM stays active.
func (e *Engine) Reload() error {
	vm, err := e.load()
	if err != nil {
		return err
	}
	old := e.vm
	e.vm = vm
	old.Close()
	e.log.Info("lua scripts reloaded", zap.String("dir", e.dir))
	return nil
}

// Has reports whether a global function called name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Motion calls the Lua function name with a context table
// {t, phase, origin = {x, y, z}} and reads back {x, y, z}.
func (e *Engine) Motion(name string, t float64, origin mgl32.Vec3, phase float32) (mgl32.Vec3, error) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return origin, fmt.Errorf("lua function %s not found", name)
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("t", lua.LNumber(t))
	ctx.RawSetString("phase", lua.LNumber(phase))
	ctx.RawSetString("origin", e.vec(origin))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		return origin, fmt.Errorf("lua %s: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return origin, fmt.Errorf("lua %s returned %s, want table", name, result.Type())
	}
	var pos mgl32.Vec3
	for i, key := range [3]string{"x", "y", "z"} {
		v := float64(lua.LVAsNumber(rt.RawGetString(key)))
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxFloat32 {
			return origin, fmt.Errorf("lua %s returned non-finite %s = %v", name, key, v)
		}
		pos[i] = float32(v)
	}
	return pos, nil
}

func (e *Engine) vec(v mgl32.Vec3) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("x", lua.LNumber(v.X()))
	t.RawSetString("y", lua.LNumber(v.Y()))
	t.RawSetString("z", lua.LNumber(v.Z()))
	return t
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	if e.vm != nil {
		e.vm.Close()
	}
}
