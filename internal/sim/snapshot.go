package sim

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/sagego/engine/internal/xfer"
)

// saveMagic opens every save stream.
var saveMagic = []byte("SGSV")

// Persist round-trips the whole world: frame counter, object graph, then the
// RNG. The RNG comes last deliberately: rebuilding modules on load draws
// from it, and restoring its state afterward puts the stream's sequence
// back exactly.
//
// This is the one traversal where the load side instantiates: each object
// record's id and template name are read first, the object is built from the
// template, and only then does its Persist consume the body.
func (w *World) Persist(x xfer.Xfer) {
	x.Version(1)

	frame := uint32(w.frame)
	x.UInt32(&frame)
	w.frame = Frame(frame)

	nextID := uint32(w.registry.nextID)
	x.UInt32(&nextID)

	count := uint32(w.registry.Count())
	x.BeginArray(&count)
	if x.Saving() {
		w.registry.Each(func(obj *Object) {
			id := obj.id
			name := obj.tmpl.Name
			x.ObjectID(&id)
			x.AsciiString(&name)
			x.Snapshot("Object", obj)
		})
	} else {
		for i := uint32(0); i < count && x.Err() == nil; i++ {
			var id ObjectID
			var name string
			x.ObjectID(&id)
			x.AsciiString(&name)
			if x.Err() != nil {
				return
			}
			obj, err := w.restoreObject(id, name)
			if err != nil {
				x.Fatalf("object record %d: %v", i, err)
				return
			}
			x.Snapshot("Object", obj)
			if x.Err() == nil {
				w.partition.Insert(obj)
			}
		}
	}
	x.EndArray()

	x.Snapshot("GameLogicRandom", w.rng)

	if !x.Saving() && x.Err() == nil {
		w.registry.nextID = ObjectID(nextID)
	}
}

// restoreObject rebuilds an object shell for a persisted record. The module
// set comes from the template, exactly as at creation; the subsequent body
// read overwrites every live field.
func (w *World) restoreObject(id ObjectID, templateName string) (*Object, error) {
	if id == 0 {
		return nil, fmt.Errorf("null object id")
	}
	tmpl := w.templates.FindTemplate(templateName)
	if tmpl == nil {
		return nil, fmt.Errorf("unknown object template %q", templateName)
	}
	obj, err := newObject(id, tmpl, Vector3{})
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
	return obj, nil
}

// ValidateRefs checks that every persisted weak reference resolves now that
// the whole graph is loaded. Records may reference objects stored later in
// the stream, so this runs once at the end, never during the read.
func (w *World) ValidateRefs() error {
	var bad error
	w.registry.Each(func(obj *Object) {
		if bad != nil {
			return
		}
		for _, m := range obj.modules {
			r, ok := m.(referencer)
			if !ok {
				continue
			}
			for _, id := range r.objectRefs() {
				if id != 0 && w.registry.Lookup(id) == nil {
					bad = fmt.Errorf("object %d (%s) module %s: id %d: %w",
						obj.id, obj.tmpl.Name, m.Name(), id, ErrUnresolvedRef)
					return
				}
			}
		}
	})
	return bad
}

// SaveWorld serializes the complete live object graph. Stop-the-world:
// callers must not interleave it with Step.
func SaveWorld(w *World) ([]byte, error) {
	s := xfer.NewSaver()
	s.Raw(saveMagic)
	w.Persist(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("save world: %w", err)
	}
	return s.Bytes(), nil
}

// LoadWorld reconstructs a world from a save stream. Any integrity failure
// aborts the load; no partial state is returned.
func LoadWorld(raw []byte, templates TemplateStore, log *zap.Logger) (*World, error) {
	l := xfer.NewLoader(raw)
	magic := make([]byte, len(saveMagic))
	l.Raw(magic)
	if err := l.Err(); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if !bytes.Equal(magic, saveMagic) {
		return nil, fmt.Errorf("load world: %w: bad magic %q", xfer.ErrFormat, magic)
	}

	w := NewWorld(templates, 0, log)
	w.Persist(l)
	if err := l.Err(); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if l.Remaining() != 0 {
		return nil, fmt.Errorf("load world: %w: %d trailing bytes",
			xfer.ErrFormat, l.Remaining())
	}
	if err := w.ValidateRefs(); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	return w, nil
}

// WorldDigest returns the blake2b-256 digest of the canonical snapshot.
// Peers in lockstep compare digests to detect desync; the determinism law
// says equal inputs must yield equal digests.
func WorldDigest(w *World) ([blake2b.Size256]byte, error) {
	raw, err := SaveWorld(w)
	if err != nil {
		return [blake2b.Size256]byte{}, err
	}
	return blake2b.Sum256(raw), nil
}
