// Package sim is the deterministic object-simulation kernel: the object
// registry, the behavior-module framework, the hierarchical state machine
// substrate, and the fixed-tick logic scheduler. Everything in this package
// runs on the single simulation goroutine.
package sim

import (
	"fmt"

	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/xfer"
)

// ObjectID is the persisted weak handle to an Object. Zero means "no object".
type ObjectID = xfer.ObjectID

// Frame is the logic-frame counter, the simulation's only notion of time.
type Frame uint32

// FrameSpan is a signed duration in logic frames.
type FrameSpan int32

// FrameNever parks a sleepy module until something reschedules it.
const FrameNever Frame = 0xFFFFFFFF

// Kind is a bitmask classifying objects for spatial queries.
type Kind uint32

const (
	KindInfantry Kind = 1 << iota
	KindVehicle
	KindStructure
	KindSupplySource
	KindSupplyCenter
	KindCrate
)

// KindAny matches every object kind in a partition query.
const KindAny Kind = 0xFFFFFFFF

var kindNames = map[string]Kind{
	"infantry":      KindInfantry,
	"vehicle":       KindVehicle,
	"structure":     KindStructure,
	"supply_source": KindSupplySource,
	"supply_center": KindSupplyCenter,
	"crate":         KindCrate,
}

// KindFromName maps a template kind string to its mask bit.
func KindFromName(name string) (Kind, error) {
	k, ok := kindNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown object kind %q", name)
	}
	return k, nil
}

// Condition flags are boolean semantic tags on an object, consumed by
// rendering and AI. They persist as a single bit word.
type Condition uint32

const (
	ConditionMoving Condition = 1 << iota
	ConditionDocking
	ConditionCarryingSupplies
	ConditionDamaged
	ConditionDying
)

// Vector3 is an object-space position. Math beyond this is a collaborator's
// problem; the kernel only stores and compares.
type Vector3 struct {
	X, Y, Z float32
}

// Object is a live simulation entity. Its identity is stable for its whole
// lifetime and its module set is fixed at creation from the template.
type Object struct {
	id       ObjectID
	tmpl     *data.ObjectTemplate
	kind     Kind
	pos      Vector3
	orient   float32 // rotation about Z, radians
	cond     Condition
	health   float32
	xpScalar float32 // experience multiplier, adjusted by upgrades
	modules  []Module
	marked   bool // queued for the end-of-frame destruction sweep
}

func (o *Object) ID() ObjectID                   { return o.id }
func (o *Object) Template() *data.ObjectTemplate { return o.tmpl }
func (o *Object) TemplateName() string           { return o.tmpl.Name }
func (o *Object) Kind() Kind                     { return o.kind }
func (o *Object) Position() Vector3              { return o.pos }
func (o *Object) Orientation() float32           { return o.orient }
func (o *Object) Health() float32                { return o.health }
func (o *Object) Marked() bool                   { return o.marked }

// ExperienceMultiplier is the accumulated XP scalar (base 1.0).
func (o *Object) ExperienceMultiplier() float32 { return o.xpScalar }

func (o *Object) AddExperienceScalar(s float32) { o.xpScalar += s }

func (o *Object) SetOrientation(rad float32) { o.orient = rad }

func (o *Object) TestCondition(c Condition) bool { return o.cond&c != 0 }
func (o *Object) SetCondition(c Condition)       { o.cond |= c }
func (o *Object) ClearCondition(c Condition)     { o.cond &^= c }

// ApplyDamage reduces health, clamping at zero. Killing intent is the
// caller's decision; the registry sweep is the only remover.
func (o *Object) ApplyDamage(amount float32) {
	o.health -= amount
	if o.health < 0 {
		o.health = 0
	}
	if o.health < o.tmpl.MaxHealth/2 {
		o.SetCondition(ConditionDamaged)
	}
}

func (o *Object) Modules() []Module { return o.modules }

// FindModule returns the first module with the given name, or nil.
func (o *Object) FindModule(name string) Module {
	for _, m := range o.modules {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Persist round-trips the object body: spatial state, condition bits, health,
// experience scalar, then every module in template order. The module list
// itself is never in the stream; it is rebuilt from the template, so the
// recorded count is an integrity check only.
func (o *Object) Persist(x xfer.Xfer) {
	x.Version(1)

	x.Real(&o.pos.X)
	x.Real(&o.pos.Y)
	x.Real(&o.pos.Z)
	x.Real(&o.orient)

	// Legacy scale field. Always 1.0 in every capture; anything else means
	// the stream is desynchronized.
	scale := float32(1.0)
	x.Real(&scale)
	if !x.Saving() && scale != 1.0 {
		x.Fatalf("object %d: scale %f, expected 1.0", o.id, scale)
		return
	}

	cond := uint32(o.cond)
	x.UInt32(&cond)
	o.cond = Condition(cond)

	x.Real(&o.health)
	x.Real(&o.xpScalar)

	// Unknown legacy bytes at this offset (observed always zero).
	x.SkipBytes(2)

	count := uint32(len(o.modules))
	x.UInt32(&count)
	if !x.Saving() && count != uint32(len(o.modules)) {
		x.Fatalf("object %d (%s): stream has %d modules, template declares %d",
			o.id, o.tmpl.Name, count, len(o.modules))
		return
	}
	for _, m := range o.modules {
		x.Snapshot(m.Name(), m)
		if x.Err() != nil {
			return
		}
	}
}
