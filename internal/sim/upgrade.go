package sim

import (
	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/xfer"
)

// ExperienceScalarUpgrade adds a flat scalar to the owner's experience
// multiplier when its named upgrade becomes active.
//
// The application is edge-triggered: guarded by the persisted applied flag,
// so repeated OnTrigger(true) calls while the upgrade stays active are
// no-ops, and a reload of an already-applied upgrade does not reapply.
// NOTE: the legacy engine applies the scalar unconditionally on every
// triggered call, which would accumulate under repeated notifications.
// Whether that was intentional is unsettled; we keep edge semantics because
// the persisted flag is meaningless otherwise, and flag the difference here
// rather than silently matching a probable defect.
type ExperienceScalarUpgrade struct {
	owner       *Object
	triggerName string
	addScalar   float32
	applied     bool
}

func newExperienceScalarUpgrade(owner *Object, spec *data.ModuleSpec) *ExperienceScalarUpgrade {
	return &ExperienceScalarUpgrade{
		owner:       owner,
		triggerName: spec.TriggerUpgrade,
		addScalar:   spec.AddXPScalar,
	}
}

func (m *ExperienceScalarUpgrade) Name() string        { return "ExperienceScalarUpgrade" }
func (m *ExperienceScalarUpgrade) TriggerName() string { return m.triggerName }

func (m *ExperienceScalarUpgrade) OnTrigger(_ *UpdateContext, triggered bool) {
	if triggered {
		if !m.applied {
			m.owner.AddExperienceScalar(m.addScalar)
			m.applied = true
		}
		return
	}
	if m.applied {
		m.owner.AddExperienceScalar(-m.addScalar)
		m.applied = false
	}
}

func (m *ExperienceScalarUpgrade) Persist(x xfer.Xfer) {
	x.Version(1)
	x.Bool(&m.applied)
}
