package materializer

import "golang.org/x/exp/constraints"

func align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}

// layout assigns each appended entity an offset into the argument struct.
type layout struct {
	currentOffset   uint64
	structAlignment uint64
	hasAlignment    bool
}

// append assigns e its offset. The first entity ever appended sets
// structAlignment for the whole struct; later entities never widen it, even
// one whose own alignment is larger — a quirk preserved from the source, not
// "fixed" here. See DESIGN.md.
func (l *layout) append(e Entity) uint64 {
	a := e.Alignment()
	if a == 0 {
		a = 1
	}
	if !l.hasAlignment {
		l.structAlignment = e.Alignment()
		l.hasAlignment = true
	}
	offset := align(l.currentOffset, a)
	e.setOffset(offset)
	l.currentOffset = offset + e.Size()
	return offset
}
