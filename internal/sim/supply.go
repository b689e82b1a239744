package sim

import (
	"math"

	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/xfer"
)

// Supply truck state ids. 1 and 4 are gaps: legacy states ("regrouping" and
// a cut escort behavior) that were removed but whose ids stay reserved.
const (
	supplyStateDocking   StateID = 2
	supplyStateHauling   StateID = 3
	supplyStateReturning StateID = 5
)

const (
	supplyMoveStep     = 1.5 // world units per frame
	supplyArriveRadius = 2.0
	supplyIdlePollSpan = FrameSpan(5)
)

// SupplyTruckAIUpdate drives the gather/haul loop: find a supply source,
// dock and load boxes, haul them to a supply center, return. Decision logic
// lives in the state machine; two auxiliary layers exist only to persist
// legacy per-state data and have no behavior.
type SupplyTruckAIUpdate struct {
	owner        *Object
	world        *World
	machine      *StateMachine
	layer2       *StateMachine
	layer3       *StateMachine
	boxes        int32
	maxBoxes     int32
	dockFrames   FrameSpan
	searchRadius float32
	delivered    uint32
	sourceID     ObjectID
	centerID     ObjectID
	wake         Frame
}

func newSupplyTruckAIUpdate(owner *Object, spec *data.ModuleSpec, w *World) *SupplyTruckAIUpdate {
	m := &SupplyTruckAIUpdate{
		owner:        owner,
		world:        w,
		maxBoxes:     spec.MaxBoxes,
		dockFrames:   FrameSpan(data.FramesFromMillis(spec.DockMS)),
		searchRadius: spec.SearchRadius,
		wake:         w.frame + 1,
	}
	if m.maxBoxes <= 0 {
		m.maxBoxes = 1
	}
	if m.dockFrames <= 0 {
		m.dockFrames = 1
	}
	if m.searchRadius <= 0 {
		m.searchRadius = 100
	}

	m.machine = NewStateMachine("SupplyTruckAI")
	m.machine.Register(&supplyIdleState{ai: m})
	m.machine.Register(&supplyDockingState{ai: m})
	m.machine.Register(&supplyHaulingState{ai: m})
	m.machine.Register(&supplyReturningState{ai: m})

	// Layers 2/3 persist auxiliary per-state data not yet understood.
	// Their states are empty but must occupy their numeric slots so the
	// id-to-handler mapping survives a load.
	m.layer2 = NewStateMachine("SupplyTruckAILayer2")
	m.layer2.Register(&nullState{id: 0})
	m.layer2.Register(&nullState{id: 1})
	m.layer2.Register(&nullState{id: 3}) // 2 is a gap here too
	m.layer3 = NewStateMachine("SupplyTruckAILayer3")
	m.layer3.Register(&nullState{id: 0})
	m.layer3.Register(&nullState{id: 1})

	return m
}

func (m *SupplyTruckAIUpdate) Name() string { return "SupplyTruckAIUpdate" }

func (m *SupplyTruckAIUpdate) NextUpdateFrame() Frame { return m.wake }

// Boxes reports the current load.
func (m *SupplyTruckAIUpdate) Boxes() int32 { return m.boxes }

// Delivered reports the lifetime box count dropped at supply centers.
func (m *SupplyTruckAIUpdate) Delivered() uint32 { return m.delivered }

func (m *SupplyTruckAIUpdate) Update(ctx *UpdateContext) error {
	// Active hauling thinks every frame; an idle truck with nothing in
	// range polls sparsely.
	m.wake = ctx.Frame + 1
	if m.machine.ActiveID() == StateIdle && m.sourceID == 0 {
		m.wake = ctx.Frame + Frame(supplyIdlePollSpan)
	}
	if err := m.machine.Update(ctx); err != nil {
		return err
	}
	return ctx.Failed()
}

func (m *SupplyTruckAIUpdate) objectRefs() []ObjectID {
	return []ObjectID{m.sourceID, m.centerID}
}

func (m *SupplyTruckAIUpdate) Persist(x xfer.Xfer) {
	version := x.Version(2)
	x.Int32(&m.boxes)
	if x.Saving() {
		m.sourceID = sanitizeRef(m.world, m.sourceID)
		m.centerID = sanitizeRef(m.world, m.centerID)
	}
	x.ObjectID(&m.sourceID)
	x.ObjectID(&m.centerID)
	wake := uint32(m.wake)
	x.UInt32(&wake)
	m.wake = Frame(wake)
	// Version 2 added the delivery counter; records written at version 1
	// leave it at its zero default.
	if version >= 2 {
		x.UInt32(&m.delivered)
	}
	x.Snapshot("SupplyTruckAI", m.machine)
	x.Snapshot("SupplyTruckAILayer2", m.layer2)
	x.Snapshot("SupplyTruckAILayer3", m.layer3)
}

// --- movement helpers ---

func dist2D(a, b Vector3) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

// stepToward advances the owner one move step and faces the target.
// Returns true once within the arrive radius.
func (m *SupplyTruckAIUpdate) stepToward(ctx *UpdateContext, target Vector3) bool {
	pos := m.owner.Position()
	d := dist2D(pos, target)
	if d <= supplyArriveRadius {
		m.owner.ClearCondition(ConditionMoving)
		return true
	}
	m.owner.SetCondition(ConditionMoving)
	step := supplyMoveStep / d
	if step > 1 {
		step = 1
	}
	next := Vector3{
		X: pos.X + (target.X-pos.X)*step,
		Y: pos.Y + (target.Y-pos.Y)*step,
		Z: pos.Z,
	}
	m.owner.SetOrientation(float32(math.Atan2(
		float64(target.Y-pos.Y), float64(target.X-pos.X))))
	ctx.World.MoveObject(m.owner, next)
	return false
}

// sanitizeRef nulls a weak ref whose target no longer resolves.
func sanitizeRef(w *World, id ObjectID) ObjectID {
	if id == 0 {
		return id
	}
	if obj := w.registry.Lookup(id); obj == nil || obj.Marked() {
		return 0
	}
	return id
}

// resolve looks up a weak ref, clearing it if the target is gone.
func resolve(ctx *UpdateContext, id *ObjectID) *Object {
	obj := ctx.World.Registry().Lookup(*id)
	if obj == nil || obj.Marked() {
		*id = 0
		return nil
	}
	return obj
}

// --- states ---

// supplyIdleState scans for work. It overrides the default idle slot.
type supplyIdleState struct {
	ai *SupplyTruckAIUpdate
}

func (*supplyIdleState) ID() StateID            { return StateIdle }
func (*supplyIdleState) OnEnter(*UpdateContext) {}
func (*supplyIdleState) OnExit(*UpdateContext)  {}

func (s *supplyIdleState) Update(ctx *UpdateContext) StateID {
	ai := s.ai
	if ai.boxes > 0 {
		if s.findCenter(ctx) {
			return supplyStateHauling
		}
		return StateContinue
	}
	if src := resolve(ctx, &ai.sourceID); src != nil {
		return supplyStateDocking
	}
	pos := ai.owner.Position()
	near := ctx.World.Partition().Nearby(pos, ai.searchRadius, KindSupplySource)
	if len(near) > 0 {
		ai.sourceID = near[0].ID()
		return supplyStateDocking
	}
	return StateContinue
}

func (s *supplyIdleState) findCenter(ctx *UpdateContext) bool {
	ai := s.ai
	if resolve(ctx, &ai.centerID) != nil {
		return true
	}
	near := ctx.World.Partition().Nearby(
		ai.owner.Position(), ai.searchRadius, KindSupplyCenter)
	if len(near) == 0 {
		return false
	}
	ai.centerID = near[0].ID()
	return true
}

func (*supplyIdleState) Persist(x xfer.Xfer) { x.Version(1) }

// supplyDockingState drives to the source and loads boxes over time.
type supplyDockingState struct {
	ai       *SupplyTruckAIUpdate
	progress uint32 // frames spent loading the current box
}

func (*supplyDockingState) ID() StateID { return supplyStateDocking }

func (s *supplyDockingState) OnEnter(ctx *UpdateContext) {
	s.progress = 0
	s.ai.owner.SetCondition(ConditionDocking)
}

func (s *supplyDockingState) OnExit(ctx *UpdateContext) {
	s.ai.owner.ClearCondition(ConditionDocking)
}

func (s *supplyDockingState) Update(ctx *UpdateContext) StateID {
	ai := s.ai
	src := resolve(ctx, &ai.sourceID)
	if src == nil {
		return StateIdle
	}
	if !ai.stepToward(ctx, src.Position()) {
		return StateContinue
	}
	s.progress++
	if s.progress < uint32(ai.dockFrames) {
		return StateContinue
	}
	s.progress = 0
	ai.boxes++
	ai.owner.SetCondition(ConditionCarryingSupplies)
	if ai.boxes >= ai.maxBoxes {
		return supplyStateHauling
	}
	return StateContinue
}

func (s *supplyDockingState) Persist(x xfer.Xfer) {
	x.Version(1)
	x.UInt32(&s.progress)
}

// supplyHaulingState carries the load to a supply center.
type supplyHaulingState struct {
	ai *SupplyTruckAIUpdate
}

func (*supplyHaulingState) ID() StateID            { return supplyStateHauling }
func (*supplyHaulingState) OnEnter(*UpdateContext) {}
func (*supplyHaulingState) OnExit(*UpdateContext)  {}

func (s *supplyHaulingState) Update(ctx *UpdateContext) StateID {
	ai := s.ai
	center := resolve(ctx, &ai.centerID)
	if center == nil {
		near := ctx.World.Partition().Nearby(
			ai.owner.Position(), ai.searchRadius, KindSupplyCenter)
		if len(near) == 0 {
			return StateIdle
		}
		ai.centerID = near[0].ID()
		center = near[0]
	}
	if !ai.stepToward(ctx, center.Position()) {
		return StateContinue
	}
	ai.delivered += uint32(ai.boxes)
	ai.boxes = 0
	ai.owner.ClearCondition(ConditionCarryingSupplies)
	return supplyStateReturning
}

func (*supplyHaulingState) Persist(x xfer.Xfer) { x.Version(1) }

// supplyReturningState heads back to the source for another load.
type supplyReturningState struct {
	ai *SupplyTruckAIUpdate
}

func (*supplyReturningState) ID() StateID            { return supplyStateReturning }
func (*supplyReturningState) OnEnter(*UpdateContext) {}
func (*supplyReturningState) OnExit(*UpdateContext)  {}

func (s *supplyReturningState) Update(ctx *UpdateContext) StateID {
	ai := s.ai
	src := resolve(ctx, &ai.sourceID)
	if src == nil {
		return StateIdle
	}
	if ai.stepToward(ctx, src.Position()) {
		return supplyStateDocking
	}
	return StateContinue
}

func (*supplyReturningState) Persist(x xfer.Xfer) { x.Version(1) }
