package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleSpec declares one behavior module in an object template. The set of
// populated fields depends on Type; the factory validates what it needs.
type ModuleSpec struct {
	Type string `yaml:"type"`

	// LifetimeUpdate
	MinLifetimeMS int32 `yaml:"min_lifetime_ms"`
	MaxLifetimeMS int32 `yaml:"max_lifetime_ms"`

	// ExperienceScalarUpgrade
	TriggerUpgrade string  `yaml:"trigger_upgrade"`
	AddXPScalar    float32 `yaml:"add_xp_scalar"`

	// FireWeaponCollide
	Weapon string `yaml:"weapon"`

	// SupplyTruckAIUpdate
	MaxBoxes     int32   `yaml:"max_boxes"`
	DockMS       int32   `yaml:"dock_ms"`
	SearchRadius float32 `yaml:"search_radius"`
}

// ObjectTemplate holds static data for an object type loaded from YAML.
// The module list order is part of the format: modules are constructed,
// updated, and persisted in exactly this order.
type ObjectTemplate struct {
	Name      string       `yaml:"name"`
	Kind      string       `yaml:"kind"`
	MaxHealth float32      `yaml:"max_health"`
	Modules   []ModuleSpec `yaml:"modules"`
}

// WeaponTemplate holds static data for a weapon referenced by collide modules.
type WeaponTemplate struct {
	Name     string  `yaml:"name"`
	Damage   float32 `yaml:"damage"`
	RefireMS int32   `yaml:"refire_ms"`
	Radius   float32 `yaml:"radius"`
}

type templateFile struct {
	Objects []ObjectTemplate `yaml:"objects"`
	Weapons []WeaponTemplate `yaml:"weapons"`
}

// TemplateTable holds all object and weapon templates indexed by name.
type TemplateTable struct {
	objects map[string]*ObjectTemplate
	weapons map[string]*WeaponTemplate
}

// NewTemplateTable builds a table from in-memory templates.
func NewTemplateTable(objects []*ObjectTemplate, weapons []*WeaponTemplate) *TemplateTable {
	t := &TemplateTable{
		objects: make(map[string]*ObjectTemplate, len(objects)),
		weapons: make(map[string]*WeaponTemplate, len(weapons)),
	}
	for _, o := range objects {
		t.objects[o.Name] = o
	}
	for _, w := range weapons {
		t.weapons[w.Name] = w
	}
	return t
}

// LoadTemplateTable loads object and weapon templates from a YAML file.
func LoadTemplateTable(path string) (*TemplateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	t := &TemplateTable{
		objects: make(map[string]*ObjectTemplate, len(f.Objects)),
		weapons: make(map[string]*WeaponTemplate, len(f.Weapons)),
	}
	for i := range f.Objects {
		o := &f.Objects[i]
		if o.Name == "" {
			return nil, fmt.Errorf("object template %d has no name", i)
		}
		t.objects[o.Name] = o
	}
	for i := range f.Weapons {
		w := &f.Weapons[i]
		if w.Name == "" {
			return nil, fmt.Errorf("weapon template %d has no name", i)
		}
		t.weapons[w.Name] = w
	}
	return t, nil
}

// FindTemplate returns the object template with the given name, or nil.
func (t *TemplateTable) FindTemplate(name string) *ObjectTemplate {
	return t.objects[name]
}

// FindWeapon returns the weapon template with the given name, or nil.
func (t *TemplateTable) FindWeapon(name string) *WeaponTemplate {
	return t.weapons[name]
}

func (t *TemplateTable) Count() int { return len(t.objects) }
