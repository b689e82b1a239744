// Package xfer implements the legacy save-game transfer protocol: a single
// versioned traversal that runs in save mode (live state -> stream) or load
// mode (stream -> live state). The stream is positionally exact and not
// self-describing; block framing exists for diagnostics, not typing.
package xfer

import (
	"errors"
	"fmt"
)

// Mode selects the direction of a traversal.
type Mode int

const (
	ModeSave Mode = iota
	ModeLoad
)

func (m Mode) String() string {
	if m == ModeSave {
		return "save"
	}
	return "load"
}

// ObjectID is a persisted 32-bit handle to a simulation object.
// Zero is the reserved "no object" sentinel.
type ObjectID uint32

// InvalidID is the null object reference.
const InvalidID ObjectID = 0

// Snapshotable is implemented by every unit that round-trips through the
// protocol. Persist must use one code path for both modes.
type Snapshotable interface {
	Persist(x Xfer)
}

// ErrFormat tags all read-time integrity failures. These are deliberately
// non-recoverable: a partially decoded graph is worse than an abort.
var ErrFormat = errors.New("invalid persisted state")

// Xfer is the symmetric protocol. Every method is a no-op once an error has
// been recorded; callers check Err at unit boundaries.
type Xfer interface {
	Mode() Mode
	Saving() bool

	// Version writes cur in save mode, or reads the stored tag in load mode.
	// A stored tag of zero or greater than cur is a format failure.
	Version(cur uint8) uint8

	Byte(v *byte)
	Bool(v *bool)
	Int16(v *int16)
	Int32(v *int32)
	UInt32(v *uint32)
	Real(v *float32)
	ObjectID(v *ObjectID)

	// AsciiString round-trips a uint16-length-prefixed ASCII string.
	AsciiString(v *string)
	// DisplayString round-trips a length-prefixed Windows-1252 string,
	// used by legacy display-name fields that may exceed ASCII.
	DisplayString(v *string)

	// Raw copies len(b) bytes verbatim: out of b on save, into b on load.
	Raw(b []byte)

	// SkipBytes emits n zero bytes on save and consumes n bytes on load.
	// Padding for fields whose meaning is not yet understood; removing or
	// resizing a skip corrupts every later field in the record.
	SkipBytes(n int)

	// BeginBlock/EndBlock frame a size-prefixed region. The loader verifies
	// the region was consumed exactly at EndBlock.
	BeginBlock(label string)
	EndBlock()

	// BeginArray frames a homogeneous element run and round-trips its count.
	BeginArray(count *uint32)
	EndArray()

	// Snapshot delegates to a nested persistable inside its own block.
	Snapshot(label string, s Snapshotable)

	// Fatalf records an integrity failure; all later calls no-op.
	Fatalf(format string, args ...any)
	Err() error
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
