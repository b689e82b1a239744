package sim

// ObjectEvent describes an object lifecycle transition for observers.
type ObjectEvent struct {
	ID       ObjectID
	Template string
	Frame    Frame
}

// UpgradeEvent describes an upgrade grant.
type UpgradeEvent struct {
	ID       ObjectID
	Template string
	Upgrade  string
	Frame    Frame
}

// Events receives kernel notifications at frame-safe points. Handlers run on
// the simulation goroutine and must not mutate the object graph.
type Events interface {
	ObjectCreated(ev ObjectEvent)
	ObjectDestroyed(ev ObjectEvent)
	UpgradeGranted(ev UpgradeEvent)
}

type nopEvents struct{}

func (nopEvents) ObjectCreated(ObjectEvent)   {}
func (nopEvents) ObjectDestroyed(ObjectEvent) {}
func (nopEvents) UpgradeGranted(UpgradeEvent) {}
