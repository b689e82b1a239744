package sim

import (
	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/xfer"
)

// LifetimeUpdate destroys its owner after a random lifespan drawn once at
// construction from the template's millisecond range. The draw comes from
// the world's own RNG so two runs with the same seed die on the same frame.
type LifetimeUpdate struct {
	owner    *Object
	dieFrame Frame
}

func newLifetimeUpdate(owner *Object, spec *data.ModuleSpec, w *World) *LifetimeUpdate {
	lo := FrameSpan(data.FramesFromMillis(spec.MinLifetimeMS))
	hi := FrameSpan(data.FramesFromMillis(spec.MaxLifetimeMS))
	span := w.rng.FrameSpanIn(lo, hi)
	return &LifetimeUpdate{
		owner:    owner,
		dieFrame: w.frame + Frame(span),
	}
}

func (m *LifetimeUpdate) Name() string { return "LifetimeUpdate" }

func (m *LifetimeUpdate) NextUpdateFrame() Frame { return m.dieFrame }

func (m *LifetimeUpdate) Update(ctx *UpdateContext) error {
	// >= not ==: frames can be skipped during catch-up, and the fire frame
	// may already be in the past after a fast-forward.
	if ctx.Frame >= m.dieFrame {
		ctx.World.Destroy(m.owner)
	}
	return nil
}

func (m *LifetimeUpdate) Persist(x xfer.Xfer) {
	x.Version(1)
	die := uint32(m.dieFrame)
	x.UInt32(&die)
	m.dieFrame = Frame(die)
}
