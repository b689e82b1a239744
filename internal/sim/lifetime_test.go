package sim

import "testing"

func TestLifetimeExpiresOnExactFrame(t *testing.T) {
	// AmmoCrate's lifetime range is degenerate (333ms..333ms): exactly
	// 10 frames regardless of the RNG draw.
	w := newTestWorld(t, 1)
	crate := mustCreate(t, w, "AmmoCrate", Vector3{})

	mustStep(t, w, 9)
	if w.Registry().Lookup(crate.ID()) == nil {
		t.Fatal("crate died early")
	}

	mustStep(t, w, 1)
	if w.Registry().Lookup(crate.ID()) != nil {
		t.Fatal("crate alive past its lifetime")
	}
}

func TestLifetimeRelativeToCreationFrame(t *testing.T) {
	w := newTestWorld(t, 1)
	mustStep(t, w, 25)
	crate := mustCreate(t, w, "AmmoCrate", Vector3{})

	mustStep(t, w, 9)
	if w.Registry().Lookup(crate.ID()) == nil {
		t.Fatal("crate died early")
	}
	mustStep(t, w, 1)
	if w.Registry().Lookup(crate.ID()) != nil {
		t.Fatal("crate alive past its lifetime")
	}
}

func TestLifetimeSpanDrawnFromWorldRNG(t *testing.T) {
	// Same seed, same creation order: both worlds must agree on every
	// crate's death frame even with a randomized range.
	tmpl := testTemplates()
	wide := tmpl.FindTemplate("AmmoCrate")
	wide.Modules[0].MinLifetimeMS = 1000
	wide.Modules[0].MaxLifetimeMS = 5000

	runCensus := func(seed uint32) []int {
		w := NewWorld(tmpl, seed, nil)
		for i := 0; i < 8; i++ {
			if _, err := w.CreateObject("AmmoCrate", Vector3{X: float32(i)}); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		var counts []int
		for f := 0; f < 160; f++ {
			mustStep(t, w, 1)
			counts = append(counts, w.Registry().Count())
		}
		return counts
	}

	a := runCensus(12345)
	b := runCensus(12345)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d: population %d vs %d", i+1, a[i], b[i])
		}
	}
}
