// Package scripting exposes simulation lifecycle events to Lua. The kernel
// stays deterministic: scripts observe, they do not mutate the object graph.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/sagego/engine/internal/sim"
)

// Engine wraps a single gopher-lua VM for event hooks.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory is fine: every hook is optional.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// call invokes a global Lua function with one table argument if the function
// is defined. Hook errors are logged, never fatal: a script cannot abort the
// simulation.
func (e *Engine) call(fn string, arg *lua.LTable) {
	val := e.vm.GetGlobal(fn)
	if val.Type() != lua.LTFunction {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      val,
		NRet:    0,
		Protect: true,
	}, arg); err != nil {
		e.log.Warn("lua hook failed", zap.String("hook", fn), zap.Error(err))
	}
}

func (e *Engine) objectTable(ev sim.ObjectEvent) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ev.ID))
	t.RawSetString("template", lua.LString(ev.Template))
	t.RawSetString("frame", lua.LNumber(ev.Frame))
	return t
}

// ObjectCreated implements sim.Events.
func (e *Engine) ObjectCreated(ev sim.ObjectEvent) {
	e.call("on_object_created", e.objectTable(ev))
}

// ObjectDestroyed implements sim.Events.
func (e *Engine) ObjectDestroyed(ev sim.ObjectEvent) {
	e.call("on_object_destroyed", e.objectTable(ev))
}

// UpgradeGranted implements sim.Events.
func (e *Engine) UpgradeGranted(ev sim.UpgradeEvent) {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ev.ID))
	t.RawSetString("template", lua.LString(ev.Template))
	t.RawSetString("upgrade", lua.LString(ev.Upgrade))
	t.RawSetString("frame", lua.LNumber(ev.Frame))
	e.call("on_upgrade", t)
}
