package xfer

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// Saver serializes through the Xfer traversal into an in-memory buffer.
// All multi-byte values are little-endian, matching the legacy layout.
type Saver struct {
	buf    []byte
	blocks []int // offsets of 4-byte size slots awaiting backpatch
	labels []string
	err    error
}

func NewSaver() *Saver {
	return &Saver{buf: make([]byte, 0, 1024)}
}

// Bytes returns the serialized stream. Invalid while blocks remain open.
func (s *Saver) Bytes() []byte { return s.buf }

func (s *Saver) Mode() Mode   { return ModeSave }
func (s *Saver) Saving() bool { return true }
func (s *Saver) Err() error   { return s.err }

func (s *Saver) Fatalf(format string, args ...any) {
	if s.err == nil {
		s.err = formatErr(format, args...)
	}
}

func (s *Saver) Version(cur uint8) uint8 {
	s.Byte(&cur)
	return cur
}

func (s *Saver) Byte(v *byte) {
	if s.err != nil {
		return
	}
	s.buf = append(s.buf, *v)
}

func (s *Saver) Bool(v *bool) {
	b := byte(0)
	if *v {
		b = 1
	}
	s.Byte(&b)
}

func (s *Saver) Int16(v *int16) {
	if s.err != nil {
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(*v))
	s.buf = append(s.buf, b[:]...)
}

func (s *Saver) Int32(v *int32) {
	u := uint32(*v)
	s.UInt32(&u)
}

func (s *Saver) UInt32(v *uint32) {
	if s.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], *v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Saver) Real(v *float32) {
	u := math.Float32bits(*v)
	s.UInt32(&u)
}

func (s *Saver) ObjectID(v *ObjectID) {
	u := uint32(*v)
	s.UInt32(&u)
}

func (s *Saver) AsciiString(v *string) {
	if s.err != nil {
		return
	}
	if len(*v) > math.MaxUint16 {
		s.Fatalf("string too long: %d bytes", len(*v))
		return
	}
	for i := 0; i < len(*v); i++ {
		if (*v)[i] >= 0x80 {
			s.Fatalf("non-ascii byte 0x%02x in ascii string", (*v)[i])
			return
		}
	}
	n := uint16(len(*v))
	s.writeLen(n)
	s.buf = append(s.buf, *v...)
}

func (s *Saver) DisplayString(v *string) {
	if s.err != nil {
		return
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(*v))
	if err != nil {
		// Fallback: raw bytes (correct for pure ASCII).
		encoded = []byte(*v)
	}
	if len(encoded) > math.MaxUint16 {
		s.Fatalf("display string too long: %d bytes", len(encoded))
		return
	}
	s.writeLen(uint16(len(encoded)))
	s.buf = append(s.buf, encoded...)
}

func (s *Saver) writeLen(n uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], n)
	s.buf = append(s.buf, b[:]...)
}

func (s *Saver) Raw(b []byte) {
	if s.err != nil {
		return
	}
	s.buf = append(s.buf, b...)
}

func (s *Saver) SkipBytes(n int) {
	if s.err != nil {
		return
	}
	for i := 0; i < n; i++ {
		s.buf = append(s.buf, 0)
	}
}

func (s *Saver) BeginBlock(label string) {
	if s.err != nil {
		return
	}
	// Reserve a size slot; EndBlock backpatches it.
	s.blocks = append(s.blocks, len(s.buf))
	s.labels = append(s.labels, label)
	s.buf = append(s.buf, 0, 0, 0, 0)
}

func (s *Saver) EndBlock() {
	if s.err != nil {
		return
	}
	if len(s.blocks) == 0 {
		s.Fatalf("EndBlock without BeginBlock")
		return
	}
	slot := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]
	s.labels = s.labels[:len(s.labels)-1]
	binary.LittleEndian.PutUint32(s.buf[slot:], uint32(len(s.buf)-slot-4))
}

func (s *Saver) BeginArray(count *uint32) {
	s.BeginBlock("array")
	s.UInt32(count)
}

func (s *Saver) EndArray() {
	s.EndBlock()
}

func (s *Saver) Snapshot(label string, sn Snapshotable) {
	if s.err != nil {
		return
	}
	s.BeginBlock(label)
	sn.Persist(s)
	s.EndBlock()
}
