package xfer

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// Loader deserializes a stream produced by Saver. The caller must already
// know the exact shape to read; block sizes only verify that it did.
type Loader struct {
	data   []byte
	off    int
	blocks []int // absolute end offsets of open blocks
	labels []string
	err    error
}

func NewLoader(data []byte) *Loader {
	return &Loader{data: data}
}

func (l *Loader) Mode() Mode   { return ModeLoad }
func (l *Loader) Saving() bool { return false }
func (l *Loader) Err() error   { return l.err }

// Offset reports the current read position, for diagnostics.
func (l *Loader) Offset() int { return l.off }

// Remaining reports unread bytes in the stream.
func (l *Loader) Remaining() int { return len(l.data) - l.off }

func (l *Loader) Fatalf(format string, args ...any) {
	if l.err == nil {
		l.err = formatErr(format, args...)
	}
}

func (l *Loader) need(n int) bool {
	if l.err != nil {
		return false
	}
	if l.off+n > len(l.data) {
		l.Fatalf("truncated stream: need %d bytes at offset %d, have %d",
			n, l.off, len(l.data)-l.off)
		return false
	}
	return true
}

func (l *Loader) Version(cur uint8) uint8 {
	var stored uint8
	l.Byte(&stored)
	if l.err != nil {
		return 0
	}
	if stored == 0 || stored > cur {
		l.Fatalf("unknown version %d at offset %d (newest known %d)",
			stored, l.off-1, cur)
		return 0
	}
	return stored
}

func (l *Loader) Byte(v *byte) {
	if !l.need(1) {
		return
	}
	*v = l.data[l.off]
	l.off++
}

func (l *Loader) Bool(v *bool) {
	var b byte
	l.Byte(&b)
	if l.err != nil {
		return
	}
	if b > 1 {
		l.Fatalf("boolean byte 0x%02x at offset %d", b, l.off-1)
		return
	}
	*v = b == 1
}

func (l *Loader) Int16(v *int16) {
	if !l.need(2) {
		return
	}
	*v = int16(binary.LittleEndian.Uint16(l.data[l.off:]))
	l.off += 2
}

func (l *Loader) Int32(v *int32) {
	var u uint32
	l.UInt32(&u)
	if l.err == nil {
		*v = int32(u)
	}
}

func (l *Loader) UInt32(v *uint32) {
	if !l.need(4) {
		return
	}
	*v = binary.LittleEndian.Uint32(l.data[l.off:])
	l.off += 4
}

func (l *Loader) Real(v *float32) {
	var u uint32
	l.UInt32(&u)
	if l.err == nil {
		*v = math.Float32frombits(u)
	}
}

func (l *Loader) ObjectID(v *ObjectID) {
	var u uint32
	l.UInt32(&u)
	if l.err == nil {
		*v = ObjectID(u)
	}
}

func (l *Loader) AsciiString(v *string) {
	raw, ok := l.readLenPrefixed()
	if !ok {
		return
	}
	for _, b := range raw {
		if b >= 0x80 {
			l.Fatalf("non-ascii byte 0x%02x in ascii string", b)
			return
		}
	}
	*v = string(raw)
}

func (l *Loader) DisplayString(v *string) {
	raw, ok := l.readLenPrefixed()
	if !ok {
		return
	}
	// Fast path: pure ASCII needs no decode.
	allASCII := true
	for _, b := range raw {
		if b >= 0x80 {
			allASCII = false
			break
		}
	}
	if allASCII {
		*v = string(raw)
		return
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		*v = string(raw)
		return
	}
	*v = string(decoded)
}

func (l *Loader) readLenPrefixed() ([]byte, bool) {
	if !l.need(2) {
		return nil, false
	}
	n := int(binary.LittleEndian.Uint16(l.data[l.off:]))
	l.off += 2
	if !l.need(n) {
		return nil, false
	}
	raw := l.data[l.off : l.off+n]
	l.off += n
	return raw, true
}

func (l *Loader) Raw(b []byte) {
	if !l.need(len(b)) {
		return
	}
	copy(b, l.data[l.off:])
	l.off += len(b)
}

func (l *Loader) SkipBytes(n int) {
	if !l.need(n) {
		return
	}
	l.off += n
}

func (l *Loader) BeginBlock(label string) {
	var size uint32
	l.UInt32(&size)
	if l.err != nil {
		return
	}
	end := l.off + int(size)
	if end > len(l.data) {
		l.Fatalf("block %q claims %d bytes at offset %d, stream has %d",
			label, size, l.off, len(l.data)-l.off)
		return
	}
	l.blocks = append(l.blocks, end)
	l.labels = append(l.labels, label)
}

func (l *Loader) EndBlock() {
	if l.err != nil {
		return
	}
	if len(l.blocks) == 0 {
		l.Fatalf("EndBlock without BeginBlock")
		return
	}
	end := l.blocks[len(l.blocks)-1]
	label := l.labels[len(l.labels)-1]
	l.blocks = l.blocks[:len(l.blocks)-1]
	l.labels = l.labels[:len(l.labels)-1]
	if l.off != end {
		l.Fatalf("block %q consumed %d bytes past/short of its frame",
			label, l.off-end)
	}
}

// SkipBlock discards an entire framed region without decoding it.
// Recovery aid for tooling; the kernel itself never skips live data.
func (l *Loader) SkipBlock(label string) {
	l.BeginBlock(label)
	if l.err != nil {
		return
	}
	l.off = l.blocks[len(l.blocks)-1]
	l.EndBlock()
}

func (l *Loader) BeginArray(count *uint32) {
	l.BeginBlock("array")
	l.UInt32(count)
}

func (l *Loader) EndArray() {
	l.EndBlock()
}

func (l *Loader) Snapshot(label string, sn Snapshotable) {
	if l.err != nil {
		return
	}
	l.BeginBlock(label)
	if l.err != nil {
		return
	}
	sn.Persist(l)
	l.EndBlock()
}
