package scripting

import (
	"os"
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/sagego/engine/internal/sim"
)

const hookScript = `
created = 0
destroyed = 0
last_template = ""
last_upgrade = ""

function on_object_created(ev)
    created = created + 1
    last_template = ev.template
end

function on_object_destroyed(ev)
    destroyed = destroyed + 1
end

function on_upgrade(ev)
    last_upgrade = ev.upgrade
end
`

func newTestEngine(t *testing.T, script string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, "hooks.lua"), []byte(script), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func globalNumber(t *testing.T, e *Engine, name string) float64 {
	t.Helper()
	v, ok := e.vm.GetGlobal(name).(lua.LNumber)
	if !ok {
		t.Fatalf("global %s is not a number", name)
	}
	return float64(v)
}

func globalString(t *testing.T, e *Engine, name string) string {
	t.Helper()
	v, ok := e.vm.GetGlobal(name).(lua.LString)
	if !ok {
		t.Fatalf("global %s is not a string", name)
	}
	return string(v)
}

func TestHooksReceiveEvents(t *testing.T) {
	e := newTestEngine(t, hookScript)

	e.ObjectCreated(sim.ObjectEvent{ID: 1000, Template: "SupplyTruck", Frame: 3})
	e.ObjectCreated(sim.ObjectEvent{ID: 1001, Template: "AmmoCrate", Frame: 3})
	e.ObjectDestroyed(sim.ObjectEvent{ID: 1001, Template: "AmmoCrate", Frame: 9})
	e.UpgradeGranted(sim.UpgradeEvent{ID: 1000, Template: "SupplyTruck", Upgrade: "VeteranTraining", Frame: 9})

	if got := globalNumber(t, e, "created"); got != 2 {
		t.Fatalf("created = %v, want 2", got)
	}
	if got := globalNumber(t, e, "destroyed"); got != 1 {
		t.Fatalf("destroyed = %v, want 1", got)
	}
	if got := globalString(t, e, "last_template"); got != "AmmoCrate" {
		t.Fatalf("last_template = %q", got)
	}
	if got := globalString(t, e, "last_upgrade"); got != "VeteranTraining" {
		t.Fatalf("last_upgrade = %q", got)
	}
}

func TestMissingHooksAreOptional(t *testing.T) {
	e := newTestEngine(t, "x = 1\n")
	// No hook functions defined; events must be silently dropped.
	e.ObjectCreated(sim.ObjectEvent{ID: 1000, Template: "Barrel"})
	e.ObjectDestroyed(sim.ObjectEvent{ID: 1000, Template: "Barrel"})
	e.UpgradeGranted(sim.UpgradeEvent{ID: 1000, Upgrade: "x"})
}

func TestMissingScriptDirIsFine(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()
	e.ObjectCreated(sim.ObjectEvent{ID: 1000, Template: "Barrel"})
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if _, err := NewEngine(dir, zap.NewNop()); err == nil {
		t.Fatal("broken script accepted")
	}
}

func TestFailingHookDoesNotPanic(t *testing.T) {
	e := newTestEngine(t, "function on_object_created(ev)\n  error('boom')\nend\n")
	// Hook errors are logged and swallowed; the simulation never sees them.
	e.ObjectCreated(sim.ObjectEvent{ID: 1000, Template: "Barrel"})
}

func TestAPIVersionExposed(t *testing.T) {
	e := newTestEngine(t, "")
	if got := globalNumber(t, e, "API_VERSION"); got != 1 {
		t.Fatalf("API_VERSION = %v, want 1", got)
	}
}
