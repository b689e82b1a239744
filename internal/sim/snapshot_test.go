package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sagego/engine/internal/xfer"
)

// spawnTestScene places one of everything plus a supply loop.
func spawnTestScene(t *testing.T, w *World) {
	t.Helper()
	mustCreate(t, w, "SupplyDock", Vector3{X: 10})
	mustCreate(t, w, "SupplyCenter", Vector3{X: 40})
	mustCreate(t, w, "SupplyTruck", Vector3{})
	mustCreate(t, w, "GuardTower", Vector3{X: 80})
	mustCreate(t, w, "AmmoCrate", Vector3{X: 5, Y: 5})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	w := newTestWorld(t, 7)
	spawnTestScene(t, w)
	mustStep(t, w, 40)

	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	w2, err := LoadWorld(raw, testTemplates(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if w2.CurrentFrame() != w.CurrentFrame() {
		t.Fatalf("frame = %d, want %d", w2.CurrentFrame(), w.CurrentFrame())
	}
	if w2.Registry().Count() != w.Registry().Count() {
		t.Fatalf("population = %d, want %d", w2.Registry().Count(), w.Registry().Count())
	}

	// The round-trip law: a loaded world re-saves byte-identically.
	raw2, err := SaveWorld(w2)
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if !bytes.Equal(raw, raw2) {
		t.Fatal("re-save differs from original stream")
	}
}

func TestDeterminismSameSeed(t *testing.T) {
	run := func() [32]byte {
		w := newTestWorld(t, 7)
		spawnTestScene(t, w)
		mustStep(t, w, 120)
		d, err := WorldDigest(w)
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		return d
	}
	if run() != run() {
		t.Fatal("same seed, same inputs, different digests")
	}
}

func TestDeterminismAcrossReload(t *testing.T) {
	// A loaded world must continue exactly like the world it was saved
	// from: this is the lockstep desync check.
	w := newTestWorld(t, 7)
	spawnTestScene(t, w)
	mustStep(t, w, 40)

	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	w2, err := LoadWorld(raw, testTemplates(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	mustStep(t, w, 60)
	mustStep(t, w2, 60)

	d1, err := WorldDigest(w)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := WorldDigest(w2)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatal("saved and resumed worlds diverged")
	}
}

func TestObjectIdentityAndIDsSurviveReload(t *testing.T) {
	w := newTestWorld(t, 7)
	spawnTestScene(t, w)
	crate := mustCreate(t, w, "AmmoCrate", Vector3{X: 1})
	w.Destroy(crate)
	mustStep(t, w, 1)

	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	w2, err := LoadWorld(raw, testTemplates(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var before, after []ObjectID
	w.Registry().Each(func(o *Object) { before = append(before, o.ID()) })
	w2.Registry().Each(func(o *Object) { after = append(after, o.ID()) })
	if len(before) != len(after) {
		t.Fatalf("population %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("iteration position %d: %d vs %d", i, before[i], after[i])
		}
	}

	// The allocator floor survives too: new ids must not collide with the
	// destroyed crate's id.
	fresh := mustCreate(t, w2, "Barrel", Vector3{X: 200})
	if fresh.ID() <= crate.ID() {
		t.Fatalf("new id %d reuses destroyed id space (crate was %d)", fresh.ID(), crate.ID())
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	w := newTestWorld(t, 7)
	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	raw[0] ^= 0xFF
	if _, err := LoadWorld(raw, testTemplates(), nil); !errors.Is(err, xfer.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestLoadRejectsTrailingBytes(t *testing.T) {
	w := newTestWorld(t, 7)
	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	raw = append(raw, 0xCC)
	if _, err := LoadWorld(raw, testTemplates(), nil); !errors.Is(err, xfer.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestLoadRejectsTruncation(t *testing.T) {
	w := newTestWorld(t, 7)
	spawnTestScene(t, w)
	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, cut := range []int{5, len(raw) / 2, len(raw) - 1} {
		if _, err := LoadWorld(raw[:cut], testTemplates(), nil); !errors.Is(err, xfer.ErrFormat) {
			t.Fatalf("cut at %d: err = %v, want ErrFormat", cut, err)
		}
	}
}

func TestLoadRejectsUnknownTemplate(t *testing.T) {
	w := newTestWorld(t, 7)
	mustCreate(t, w, "Barrel", Vector3{})
	raw, err := SaveWorld(w)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	// A table missing the template cannot rebuild the object.
	empty := testTemplatesWithout("Barrel")
	if _, err := LoadWorld(raw, empty, nil); !errors.Is(err, xfer.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

// buildSaveWithVictim hand-assembles a save stream holding a single tower
// whose collide module records the given victim id. It mirrors the object
// record layout field for field, which doubles as a format regression check.
func buildSaveWithVictim(t *testing.T, victim ObjectID) []byte {
	t.Helper()
	s := xfer.NewSaver()
	s.Raw([]byte("SGSV"))
	s.Version(1)

	frame := uint32(12)
	s.UInt32(&frame)
	nextID := uint32(2000)
	s.UInt32(&nextID)

	count := uint32(1)
	s.BeginArray(&count)

	id := ObjectID(1000)
	name := "GuardTower"
	s.ObjectID(&id)
	s.AsciiString(&name)

	s.BeginBlock("Object")
	s.Version(1)
	pos := [4]float32{80, 0, 0, 0} // x, y, z, orientation
	for i := range pos {
		s.Real(&pos[i])
	}
	scale := float32(1.0)
	s.Real(&scale)
	cond := uint32(0)
	s.UInt32(&cond)
	health := float32(500)
	s.Real(&health)
	xp := float32(1.0)
	s.Real(&xp)
	s.SkipBytes(2)
	moduleCount := uint32(1)
	s.UInt32(&moduleCount)

	s.BeginBlock("FireWeaponCollide")
	s.Version(1)
	lastFire := uint32(3)
	s.UInt32(&lastFire)
	fired := true
	s.Bool(&fired)
	s.ObjectID(&victim)
	s.SkipBytes(4)
	s.EndBlock()

	s.EndBlock()
	s.EndArray()

	s.BeginBlock("GameLogicRandom")
	s.Version(1)
	state := uint32(777)
	s.UInt32(&state)
	s.EndBlock()

	if err := s.Err(); err != nil {
		t.Fatalf("assemble stream: %v", err)
	}
	return s.Bytes()
}
