// saveinspect dumps the block structure of a save file: top-level header,
// per-object records with their framed sizes, and the RNG tail. It decodes
// no module bodies, so it works on saves from newer kernels too.
package main

import (
	"fmt"
	"os"

	"github.com/sagego/engine/internal/xfer"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: saveinspect <save-file>\n")
		os.Exit(2)
	}
	if err := inspect(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "saveinspect: %v\n", err)
		os.Exit(1)
	}
}

func inspect(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	l := xfer.NewLoader(raw)

	magic := make([]byte, 4)
	l.Raw(magic)
	if err := l.Err(); err != nil {
		return err
	}
	if string(magic) != "SGSV" {
		return fmt.Errorf("bad magic %q", magic)
	}

	var version byte
	l.Byte(&version)
	var frame, nextID uint32
	l.UInt32(&frame)
	l.UInt32(&nextID)
	if err := l.Err(); err != nil {
		return err
	}

	fmt.Printf("save file    %s (%d bytes)\n", path, len(raw))
	fmt.Printf("world ver    %d\n", version)
	fmt.Printf("frame        %d\n", frame)
	fmt.Printf("next id      %d\n", nextID)

	var count uint32
	l.BeginArray(&count)
	if err := l.Err(); err != nil {
		return err
	}
	fmt.Printf("objects      %d\n", count)

	for i := uint32(0); i < count; i++ {
		var id xfer.ObjectID
		var name string
		l.ObjectID(&id)
		l.AsciiString(&name)
		start := l.Offset()
		l.SkipBlock("Object")
		if err := l.Err(); err != nil {
			return fmt.Errorf("object record %d: %w", i, err)
		}
		fmt.Printf("  [%4d] id=%-8d %-28s %5d bytes\n",
			i, id, name, l.Offset()-start-4)
	}
	l.EndArray()

	l.BeginBlock("GameLogicRandom")
	var rngVersion byte
	var rngState uint32
	l.Byte(&rngVersion)
	l.UInt32(&rngState)
	l.EndBlock()
	if err := l.Err(); err != nil {
		return err
	}
	fmt.Printf("rng state    0x%08x\n", rngState)

	if l.Remaining() != 0 {
		fmt.Printf("WARNING: %d trailing bytes\n", l.Remaining())
	}
	return nil
}
