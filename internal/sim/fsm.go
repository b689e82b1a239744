package sim

import (
	"errors"
	"fmt"

	"github.com/sagego/engine/internal/xfer"
)

// StateID keys a registered State. Ids are stable across save versions and
// need not be contiguous: gaps denote states removed or never implemented.
type StateID int32

// StateContinue is the transition signal meaning "stay in the current state".
const StateContinue StateID = -1

// StateIdle is the default state registered by every machine.
const StateIdle StateID = 0

// ErrUnknownState reports a transition signal targeting an unregistered
// state id. Fatal: it indicates a template/engine mismatch.
var ErrUnknownState = errors.New("unknown state id")

// State is a numbered behavior fragment with entry/update/exit semantics.
// Update returns the next state id, or StateContinue.
type State interface {
	ID() StateID
	OnEnter(ctx *UpdateContext)
	Update(ctx *UpdateContext) StateID
	OnExit(ctx *UpdateContext)
	Persist(x xfer.Xfer)
}

// StateMachine owns a map of state ids to State instances plus the active
// id. Machines may nest: wrap one in MachineState to use it as a State.
//
// Persist writes the version, the active id, then delegates to the active
// state only. Inactive state data is not double-buffered; switching away
// from a state without persisting forfeits its fields. Legacy behavior,
// preserved on purpose.
type StateMachine struct {
	name     string
	states   map[StateID]State
	activeID StateID
}

// NewStateMachine creates a machine with the default idle state registered
// and active.
func NewStateMachine(name string) *StateMachine {
	m := &StateMachine{
		name:     name,
		states:   make(map[StateID]State, 8),
		activeID: StateIdle,
	}
	m.states[StateIdle] = &idleState{}
	return m
}

func (m *StateMachine) Name() string      { return m.name }
func (m *StateMachine) ActiveID() StateID { return m.activeID }

// Register adds a state, replacing any previous holder of its id (templates
// override the default idle this way).
func (m *StateMachine) Register(s State) {
	m.states[s.ID()] = s
}

// Transition exits the active state, enters the target, and records the new
// active id. An unregistered target is fatal.
func (m *StateMachine) Transition(ctx *UpdateContext, target StateID) error {
	next, ok := m.states[target]
	if !ok {
		return fmt.Errorf("%s: transition to %d: %w", m.name, target, ErrUnknownState)
	}
	if cur, ok := m.states[m.activeID]; ok {
		cur.OnExit(ctx)
	}
	m.activeID = target
	next.OnEnter(ctx)
	return nil
}

// Update runs the active state and follows at most one transition signal.
func (m *StateMachine) Update(ctx *UpdateContext) error {
	cur, ok := m.states[m.activeID]
	if !ok {
		return fmt.Errorf("%s: active state %d has no handler: %w",
			m.name, m.activeID, ErrUnknownState)
	}
	sig := cur.Update(ctx)
	if sig == StateContinue || sig == m.activeID {
		return nil
	}
	return m.Transition(ctx, sig)
}

// Persist round-trips version, active id, and the active state's own fields.
// On load the restored id must have a registered handler; OnEnter is not
// re-run, the state's persisted fields stand in for it.
func (m *StateMachine) Persist(x xfer.Xfer) {
	x.Version(1)

	active := int32(m.activeID)
	x.Int32(&active)
	if x.Err() != nil {
		return
	}
	if !x.Saving() {
		if _, ok := m.states[StateID(active)]; !ok {
			x.Fatalf("machine %s: persisted active state %d is not registered",
				m.name, active)
			return
		}
		m.activeID = StateID(active)
	}
	m.states[m.activeID].Persist(x)
}

// idleState is the always-registered default. It does nothing and waits.
type idleState struct{}

func (*idleState) ID() StateID                   { return StateIdle }
func (*idleState) OnEnter(*UpdateContext)        {}
func (*idleState) Update(*UpdateContext) StateID { return StateContinue }
func (*idleState) OnExit(*UpdateContext)         {}
func (s *idleState) Persist(x xfer.Xfer)         { x.Version(1) }

// nullState occupies a numeric slot whose legacy behavior is not yet
// understood. Its body is legitimately empty, but the slot must exist so the
// id-to-handler mapping and save compatibility are preserved. Unlike most
// states it persists no version tag at all; that asymmetry is part of the
// format.
type nullState struct {
	id StateID
}

func (s *nullState) ID() StateID                 { return s.id }
func (*nullState) OnEnter(*UpdateContext)        {}
func (*nullState) Update(*UpdateContext) StateID { return StateContinue }
func (*nullState) OnExit(*UpdateContext)         {}
func (*nullState) Persist(xfer.Xfer)             {}

// MachineState adapts a nested StateMachine into a State, letting a machine
// delegate a numeric slot's update to a whole sub-machine.
type MachineState struct {
	id      StateID
	machine *StateMachine
}

func NewMachineState(id StateID, machine *StateMachine) *MachineState {
	return &MachineState{id: id, machine: machine}
}

func (s *MachineState) ID() StateID            { return s.id }
func (s *MachineState) OnEnter(*UpdateContext) {}
func (s *MachineState) OnExit(*UpdateContext)  {}

func (s *MachineState) Update(ctx *UpdateContext) StateID {
	// The State interface has no error return; a nested machine's failure
	// is a frame invariant violation and aborts the frame via the context.
	if err := s.machine.Update(ctx); err != nil {
		ctx.Fail(err)
	}
	return StateContinue
}

func (s *MachineState) Persist(x xfer.Xfer) {
	s.machine.Persist(x)
}
