package sim

import (
	"fmt"

	"github.com/sagego/engine/internal/data"
)

// TemplateStore is the asset collaborator: lookup by name, immutable results.
type TemplateStore interface {
	FindTemplate(name string) *data.ObjectTemplate
	FindWeapon(name string) *data.WeaponTemplate
}

// buildModules constructs the template's declared module list, in order.
// A module's concrete variant is fixed here and never changes identity
// afterward. Unknown types are a template/engine mismatch.
func buildModules(owner *Object, tmpl *data.ObjectTemplate, w *World) ([]Module, error) {
	modules := make([]Module, 0, len(tmpl.Modules))
	for i := range tmpl.Modules {
		spec := &tmpl.Modules[i]
		var m Module
		switch spec.Type {
		case "LifetimeUpdate":
			m = newLifetimeUpdate(owner, spec, w)
		case "ExperienceScalarUpgrade":
			m = newExperienceScalarUpgrade(owner, spec)
		case "FireWeaponCollide":
			weapon := w.templates.FindWeapon(spec.Weapon)
			if weapon == nil {
				return nil, fmt.Errorf("template %s: unknown weapon %q",
					tmpl.Name, spec.Weapon)
			}
			m = newFireWeaponCollide(owner, weapon, w)
		case "SupplyTruckAIUpdate":
			m = newSupplyTruckAIUpdate(owner, spec, w)
		default:
			return nil, fmt.Errorf("template %s: unknown module type %q",
				tmpl.Name, spec.Type)
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// newObject allocates an object body for a template with full health and the
// base experience scalar. Modules are attached by the caller.
func newObject(id ObjectID, tmpl *data.ObjectTemplate, pos Vector3) (*Object, error) {
	kind, err := KindFromName(tmpl.Kind)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.Name, err)
	}
	return &Object{
		id:       id,
		tmpl:     tmpl,
		kind:     kind,
		pos:      pos,
		health:   tmpl.MaxHealth,
		xpScalar: 1.0,
	}, nil
}
