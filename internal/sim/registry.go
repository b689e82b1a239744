package sim

import (
	"errors"
	"fmt"
)

// ErrUnresolvedRef reports an ObjectID that never resolved to a live object
// after a load completed.
var ErrUnresolvedRef = errors.New("unresolved object reference")

// firstObjectID is the allocation floor. Lower values are reserved so tools
// can recognize legacy fixed ids; 0 stays the null sentinel.
const firstObjectID ObjectID = 1000

// Registry owns every live Object. It is the sole owner: all other holders
// keep the integer id and resolve through Lookup on demand. Iteration order
// is insertion order, which load reproduces, keeping traversals
// deterministic across runs.
type Registry struct {
	objects map[ObjectID]*Object
	order   []ObjectID
	nextID  ObjectID
	marked  []ObjectID
}

func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[ObjectID]*Object, 256),
		order:   make([]ObjectID, 0, 256),
		nextID:  firstObjectID,
	}
}

// Lookup resolves an id to a live object. Returns nil for the zero sentinel
// and for missing ids; during load a nil result means "not yet resolvable",
// never a format error. ValidateRefs does the final judgement.
func (r *Registry) Lookup(id ObjectID) *Object {
	if id == 0 {
		return nil
	}
	return r.objects[id]
}

func (r *Registry) Count() int { return len(r.objects) }

// Each visits live objects in insertion order. The callback must not create
// or register objects mid-walk.
func (r *Registry) Each(fn func(*Object)) {
	for _, id := range r.order {
		if obj, ok := r.objects[id]; ok {
			fn(obj)
		}
	}
}

func (r *Registry) allocateID() ObjectID {
	id := r.nextID
	r.nextID++
	return id
}

func (r *Registry) register(obj *Object) error {
	if _, exists := r.objects[obj.id]; exists {
		return fmt.Errorf("duplicate object id %d", obj.id)
	}
	r.objects[obj.id] = obj
	r.order = append(r.order, obj.id)
	if obj.id >= r.nextID {
		r.nextID = obj.id + 1
	}
	return nil
}

// Mark queues an object for removal at the next safe point. References stay
// valid for the rest of the current frame; nothing is removed synchronously.
func (r *Registry) Mark(obj *Object) {
	if obj == nil || obj.marked {
		return
	}
	obj.marked = true
	obj.SetCondition(ConditionDying)
	r.marked = append(r.marked, obj.id)
}

// Sweep removes every marked object. Called by the scheduler after all
// per-object updates for the frame complete.
func (r *Registry) Sweep(onRemove func(*Object)) {
	if len(r.marked) == 0 {
		return
	}
	for _, id := range r.marked {
		obj, ok := r.objects[id]
		if !ok {
			continue
		}
		if onRemove != nil {
			onRemove(obj)
		}
		delete(r.objects, id)
	}
	r.marked = r.marked[:0]

	// Compact insertion order in place.
	kept := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.objects[id]; ok {
			kept = append(kept, id)
		}
	}
	r.order = kept
}
