package sim

import "github.com/sagego/engine/internal/xfer"

// Random is the simulation-domain random source. Every draw that can affect
// object state must come from here: the generator's state is part of the
// persisted graph, so replays and loads continue the exact same sequence.
//
// The algorithm is the legacy engine's multiply-with-carry-free LCG
// (214013/2531011). math/rand is not used because its algorithm is not
// guaranteed stable across Go releases.
type Random struct {
	state uint32
}

func NewRandom(seed uint32) *Random {
	return &Random{state: seed}
}

// next advances the generator and returns 15 mixed bits.
func (r *Random) next() uint32 {
	r.state = r.state*214013 + 2531011
	return (r.state >> 16) & 0x7fff
}

// UInt32 returns a full-width draw (two steps, high then low).
func (r *Random) UInt32() uint32 {
	hi := r.next()
	lo := r.next()
	return hi<<17 | lo<<2 | (r.state & 3)
}

// IntRange returns a draw in [lo, hi] inclusive. lo > hi is a caller bug and
// collapses to lo, matching the legacy behavior on inverted template ranges.
func (r *Random) IntRange(lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	span := uint32(hi-lo) + 1
	return lo + int32(r.UInt32()%span)
}

// FrameSpanIn returns a random span in [lo, hi] frames.
func (r *Random) FrameSpanIn(lo, hi FrameSpan) FrameSpan {
	return FrameSpan(r.IntRange(int32(lo), int32(hi)))
}

func (r *Random) Persist(x xfer.Xfer) {
	x.Version(1)
	x.UInt32(&r.state)
}
