package sim

import (
	"fmt"

	"go.uber.org/zap"
)

// World ties the kernel together: registry, spatial partition, RNG, and the
// logic scheduler. One World per simulation; all access single-threaded.
type World struct {
	log       *zap.Logger
	templates TemplateStore
	registry  *Registry
	partition *Partition
	rng       *Random
	frame     Frame
	events    Events
}

func NewWorld(templates TemplateStore, seed uint32, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		log:       log,
		templates: templates,
		registry:  NewRegistry(),
		partition: NewPartition(),
		rng:       NewRandom(seed),
		events:    nopEvents{},
	}
}

// SetEvents installs an observer. Pass nil to remove.
func (w *World) SetEvents(ev Events) {
	if ev == nil {
		w.events = nopEvents{}
		return
	}
	w.events = ev
}

func (w *World) Registry() *Registry   { return w.registry }
func (w *World) Partition() *Partition { return w.partition }
func (w *World) Random() *Random       { return w.rng }
func (w *World) CurrentFrame() Frame   { return w.frame }

// CreateObject builds a fresh object from a template: new identity, default
// module set in template order, registered and indexed.
func (w *World) CreateObject(templateName string, pos Vector3) (*Object, error) {
	tmpl := w.templates.FindTemplate(templateName)
	if tmpl == nil {
		return nil, fmt.Errorf("unknown object template %q", templateName)
	}
	obj, err := newObject(w.registry.allocateID(), tmpl, pos)
	if err != nil {
		return nil, err
	}
	obj.modules, err = buildModules(obj, tmpl, w)
	if err != nil {
		return nil, err
	}
	if err := w.registry.register(obj); err != nil {
		return nil, err
	}
	w.partition.Insert(obj)
	w.events.ObjectCreated(ObjectEvent{
		ID: obj.id, Template: tmpl.Name, Frame: w.frame,
	})
	return obj, nil
}

// Destroy marks an object for removal at the end of the current frame.
// Never removes synchronously: references held by other modules stay valid
// for the rest of the frame.
func (w *World) Destroy(obj *Object) {
	w.registry.Mark(obj)
}

// MoveObject relocates an object and keeps the spatial index current.
func (w *World) MoveObject(obj *Object, next Vector3) {
	w.partition.Move(obj, next)
}

// GrantUpgrade notifies every upgrade module listening for the named
// upgrade. Safe to call repeatedly; application is edge-triggered inside
// the modules.
func (w *World) GrantUpgrade(obj *Object, upgrade string) {
	ctx := &UpdateContext{Frame: w.frame, World: w, Object: obj, Log: w.log}
	for _, m := range obj.modules {
		um, ok := m.(UpgradeModule)
		if !ok || um.TriggerName() != upgrade {
			continue
		}
		um.OnTrigger(ctx, true)
	}
	w.events.UpgradeGranted(UpgradeEvent{
		ID: obj.id, Template: obj.tmpl.Name, Upgrade: upgrade, Frame: w.frame,
	})
}

// RevokeUpgrade notifies matching upgrade modules of deactivation.
func (w *World) RevokeUpgrade(obj *Object, upgrade string) {
	ctx := &UpdateContext{Frame: w.frame, World: w, Object: obj, Log: w.log}
	for _, m := range obj.modules {
		if um, ok := m.(UpgradeModule); ok && um.TriggerName() == upgrade {
			um.OnTrigger(ctx, false)
		}
	}
}

// NotifyCollision reports physical contact from the collision collaborator,
// dispatching to both parties' collide modules. b may be nil for terrain.
func (w *World) NotifyCollision(a, b *Object) {
	w.dispatchCollide(a, b)
	if b != nil {
		w.dispatchCollide(b, a)
	}
}

func (w *World) dispatchCollide(obj, other *Object) {
	if obj == nil || obj.marked {
		return
	}
	ctx := &UpdateContext{Frame: w.frame, World: w, Object: obj, Log: w.log}
	for _, m := range obj.modules {
		if cm, ok := m.(CollideModule); ok {
			cm.OnCollide(ctx, other)
		}
	}
}

// Step advances the simulation one logic frame: bump the counter, update
// every live object's modules in template order, then sweep deferred
// destruction. A returned error means the frame did not complete and the
// simulation is corrupt; there is no partial-frame commit.
func (w *World) Step() error {
	w.frame++

	var stepErr error
	w.registry.Each(func(obj *Object) {
		if stepErr != nil || obj.marked {
			return
		}
		ctx := &UpdateContext{Frame: w.frame, World: w, Object: obj, Log: w.log}
		for _, m := range obj.modules {
			um, ok := m.(UpdateModule)
			if !ok || w.frame < um.NextUpdateFrame() {
				continue
			}
			if err := um.Update(ctx); err != nil {
				stepErr = fmt.Errorf("frame %d: object %d (%s) module %s: %w",
					w.frame, obj.id, obj.tmpl.Name, m.Name(), err)
				return
			}
			if err := ctx.Failed(); err != nil {
				stepErr = fmt.Errorf("frame %d: object %d (%s) module %s: %w",
					w.frame, obj.id, obj.tmpl.Name, m.Name(), err)
				return
			}
			// Destruction pre-empts the rest of this object's modules
			// for the frame.
			if obj.marked {
				return
			}
		}
	})
	if stepErr != nil {
		return stepErr
	}

	// The safe point: no module holds the frame anymore.
	w.registry.Sweep(func(obj *Object) {
		w.partition.Remove(obj)
		w.events.ObjectDestroyed(ObjectEvent{
			ID: obj.id, Template: obj.tmpl.Name, Frame: w.frame,
		})
	})
	return nil
}

// Run advances n frames, stopping at the first failed frame.
func (w *World) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}
