package materializer

import (
	"fmt"
	"io"
)

// Entity is one typed slot in the argument struct. The five concrete
// entities in this package (PersistentEntity, LocalEntity, ResultEntity,
// RegisterEntity, SymbolEntity) are the only implementations; materialize,
// dematerialize, wipe, and setOffset are unexported because only the
// Materializer/Dematerializer drive them.
type Entity interface {
	Size() uint64
	Alignment() uint64
	Offset() uint64

	materialize(frame Frame, mm MemoryMap, structAddr uint64) error
	dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error
	wipe(mm MemoryMap) error
	dump(w io.Writer, structAddr uint64, mm MemoryMap)

	setOffset(uint64)
}

// entityBase carries the frozen-after-construction/frozen-after-layout
// triple every entity shares.
type entityBase struct {
	size, alignment, offset uint64
}

func (e *entityBase) Size() uint64         { return e.size }
func (e *entityBase) Alignment() uint64    { return e.alignment }
func (e *entityBase) Offset() uint64       { return e.offset }
func (e *entityBase) setOffset(off uint64) { e.offset = off }

// dumpSlot renders one entity's (offset, size, alignment) plus a hex preview
// of its current slot contents, the common half of every entity's dump.
func dumpSlot(w io.Writer, label string, structAddr uint64, e Entity, mm MemoryMap) {
	preview := "-"
	if e.Size() > 0 && mm != nil {
		buf := make([]byte, e.Size())
		if err := mm.ReadMemory(buf, structAddr+e.Offset()); err == nil {
			preview = fmt.Sprintf("% x", buf)
		} else {
			preview = "<unreadable>"
		}
	}
	fmt.Fprintf(w, "%-18s offset=%-4d size=%-3d align=%-3d %s\n", label, e.Offset(), e.Size(), e.Alignment(), preview)
}
