package sim

import (
	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/xfer"
)

// FireWeaponCollide fires its template weapon at whatever the owner touches,
// subject to the weapon's refire delay. Terrain contact is ignored.
type FireWeaponCollide struct {
	owner        *Object
	world        *World
	weapon       *data.WeaponTemplate
	refireFrames FrameSpan
	lastFire     Frame
	fired        bool // lastFire is meaningless until the first shot
	victimID     ObjectID
}

func newFireWeaponCollide(owner *Object, weapon *data.WeaponTemplate, w *World) *FireWeaponCollide {
	return &FireWeaponCollide{
		owner:        owner,
		world:        w,
		weapon:       weapon,
		refireFrames: FrameSpan(data.FramesFromMillis(weapon.RefireMS)),
	}
}

func (m *FireWeaponCollide) Name() string { return "FireWeaponCollide" }

// LastVictim resolves the most recent contact target, nil if gone.
func (m *FireWeaponCollide) LastVictim(w *World) *Object {
	return w.registry.Lookup(m.victimID)
}

func (m *FireWeaponCollide) OnCollide(ctx *UpdateContext, other *Object) {
	if other == nil || other.Marked() {
		return
	}
	if m.fired && ctx.Frame < m.lastFire+Frame(m.refireFrames) {
		return
	}
	other.ApplyDamage(m.weapon.Damage)
	if other.Health() <= 0 {
		ctx.World.Destroy(other)
	}
	m.lastFire = ctx.Frame
	m.fired = true
	m.victimID = other.ID() // weak by design: resolved on demand, never owned
}

func (m *FireWeaponCollide) objectRefs() []ObjectID {
	return []ObjectID{m.victimID}
}

func (m *FireWeaponCollide) Persist(x xfer.Xfer) {
	x.Version(1)
	last := uint32(m.lastFire)
	x.UInt32(&last)
	m.lastFire = Frame(last)
	x.Bool(&m.fired)
	// A victim destroyed since the last contact must not leave a dangling
	// id in the stream; loads treat unresolvable ids as corruption.
	if x.Saving() {
		m.victimID = sanitizeRef(m.world, m.victimID)
	}
	x.ObjectID(&m.victimID)
	// Unknown legacy dword, zero in every captured save.
	x.SkipBytes(4)
}
