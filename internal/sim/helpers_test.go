package sim

import (
	"testing"

	"go.uber.org/zap"

	"github.com/sagego/engine/internal/data"
)

// testTemplates covers every module type the factory knows.
func testTemplates() *data.TemplateTable {
	objects, weapons := testTemplateSpecs()
	return data.NewTemplateTable(objects, weapons)
}

// testTemplatesWithout is testTemplates minus one object template.
func testTemplatesWithout(name string) *data.TemplateTable {
	objects, weapons := testTemplateSpecs()
	kept := objects[:0]
	for _, o := range objects {
		if o.Name != name {
			kept = append(kept, o)
		}
	}
	return data.NewTemplateTable(kept, weapons)
}

func testTemplateSpecs() ([]*data.ObjectTemplate, []*data.WeaponTemplate) {
	objects := []*data.ObjectTemplate{
		{
			Name: "AmmoCrate", Kind: "crate", MaxHealth: 10,
			Modules: []data.ModuleSpec{
				{Type: "LifetimeUpdate", MinLifetimeMS: 333, MaxLifetimeMS: 333},
			},
		},
		{
			Name: "SupplyTruck", Kind: "vehicle", MaxHealth: 200,
			Modules: []data.ModuleSpec{
				{Type: "SupplyTruckAIUpdate", MaxBoxes: 2, DockMS: 100, SearchRadius: 100},
				{Type: "ExperienceScalarUpgrade", TriggerUpgrade: "VeteranTraining", AddXPScalar: 0.5},
			},
		},
		{
			Name: "EphemeralTruck", Kind: "vehicle", MaxHealth: 100,
			Modules: []data.ModuleSpec{
				{Type: "LifetimeUpdate", MinLifetimeMS: 33, MaxLifetimeMS: 33},
				{Type: "SupplyTruckAIUpdate", MaxBoxes: 2, DockMS: 100, SearchRadius: 100},
			},
		},
		{Name: "SupplyDock", Kind: "supply_source", MaxHealth: 500},
		{Name: "SupplyCenter", Kind: "supply_center", MaxHealth: 1000},
		{
			Name: "GuardTower", Kind: "structure", MaxHealth: 500,
			Modules: []data.ModuleSpec{
				{Type: "FireWeaponCollide", Weapon: "Cannon"},
			},
		},
		{Name: "Barrel", Kind: "structure", MaxHealth: 50},
	}
	weapons := []*data.WeaponTemplate{
		{Name: "Cannon", Damage: 30, RefireMS: 1000, Radius: 4},
	}
	return objects, weapons
}

func newTestWorld(t *testing.T, seed uint32) *World {
	t.Helper()
	return NewWorld(testTemplates(), seed, zap.NewNop())
}

func mustCreate(t *testing.T, w *World, tmpl string, pos Vector3) *Object {
	t.Helper()
	obj, err := w.CreateObject(tmpl, pos)
	if err != nil {
		t.Fatalf("create %s: %v", tmpl, err)
	}
	return obj
}

func mustStep(t *testing.T, w *World, n int) {
	t.Helper()
	if err := w.Run(n); err != nil {
		t.Fatalf("step: %v", err)
	}
}
