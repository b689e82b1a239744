package sim

import (
	"go.uber.org/zap"

	"github.com/sagego/engine/internal/xfer"
)

// Module is the unit of per-object behavior. Every module participates in
// persistence; update, upgrade, and collide participation are capability
// interfaces asserted by the scheduler and dispatchers.
type Module interface {
	// Name is the stable module tag used for block labels and diagnostics.
	Name() string
	Persist(x xfer.Xfer)
}

// UpdateModule runs on frames where NextUpdateFrame has been reached.
// Modules self-schedule sparse updates; returning a far wake frame is the
// primary means of limiting per-frame cost.
type UpdateModule interface {
	Module
	NextUpdateFrame() Frame
	Update(ctx *UpdateContext) error
}

// UpgradeModule reacts to a named upgrade becoming active or inactive.
// The stat change applies exactly once per inactive-to-active transition.
type UpgradeModule interface {
	Module
	TriggerName() string
	OnTrigger(ctx *UpdateContext, triggered bool)
}

// CollideModule reacts to physical contact reported by the collision
// collaborator. other is nil for terrain contact.
type CollideModule interface {
	Module
	OnCollide(ctx *UpdateContext, other *Object)
}

// referencer is implemented by modules holding weak object references, so
// the post-load pass can verify every persisted id resolves.
type referencer interface {
	objectRefs() []ObjectID
}

// UpdateContext carries everything a module may touch during a frame. Side
// effects are confined to the owning object and objects it explicitly
// references.
type UpdateContext struct {
	Frame  Frame
	World  *World
	Object *Object
	Log    *zap.Logger

	err error
}

// Fail records a frame invariant violation from a call path with no error
// return (state bodies). The scheduler aborts the frame when set.
func (ctx *UpdateContext) Fail(err error) {
	if ctx.err == nil {
		ctx.err = err
	}
}

// Failed reports the first recorded failure, if any.
func (ctx *UpdateContext) Failed() error { return ctx.err }
