package materializer

import "io"

// ResultEntity reserves a slot for the expression's return value and
// promotes it to a new persistent variable after the expression runs.
type ResultEntity struct {
	entityBase
	typ                ValueType
	isProgramReference bool
	keepInMemory       bool
	temp               *temporaryAllocation
}

func newResultEntity(typ ValueType, isProgramReference, keepInMemory bool) *ResultEntity {
	e := &ResultEntity{typ: typ, isProgramReference: isProgramReference, keepInMemory: keepInMemory}
	e.size, e.alignment = 8, 8
	return e
}

func (e *ResultEntity) materialize(frame Frame, mm MemoryMap, structAddr uint64) error {
	if e.isProgramReference {
		// The expression itself fills the pointer slot with a program
		// address; nothing to do here.
		return nil
	}
	if e.temp != nil {
		return ErrDoubleAllocation
	}
	// Plain ceiling division here, not bitAlignToByteAlign's preserved
	// quirk: the original's ResultVariableMaterializer computes its
	// allocation's alignment with (bit_align+7)/8 directly, never through
	// SetSizeAndAlignmentFromType.
	byteAlign := (uint64(e.typ.BitAlign) + 7) / 8
	addr, err := mm.Malloc(e.typ.ByteSize, byteAlign, PermRead|PermWrite, AllocPolicyMirror)
	if err != nil {
		return ErrAllocationFailed
	}
	e.temp = &temporaryAllocation{addr: addr, size: e.typ.ByteSize}
	if err := mm.WritePointer(structAddr+e.offset, addr); err != nil {
		return ErrWriteFailed
	}
	return nil
}

// dematerialize is the generic Entity form. A ResultEntity must only ever be
// dematerialized through dematerializeResult, which the Dematerializer
// recognizes by pointer identity; calling the generic form on it is always
// a driver bug.
func (e *ResultEntity) dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error {
	return ErrWrongEntry
}

// dematerializeResult is the specialized out-parameter form §4.6 describes.
func (e *ResultEntity) dematerializeResult(frame Frame, mm MemoryMap, structAddr uint64) (*PersistentVariableRecord, error) {
	addr, err := mm.ReadPointer(structAddr + e.offset)
	if err != nil {
		return nil, ErrReadFailed
	}
	scope := executionScope(frame, mm)
	if scope == nil {
		return nil, ErrNoExecutionScope
	}
	target := scope.Target()
	if target == nil {
		return nil, ErrNoTarget
	}
	store := target.PersistentStore()
	name := store.NextPersistentVariableName()
	record := store.CreateVariable(scope, name, e.typ, mm.ByteOrder(), mm.AddressByteSize())
	record.setLiveAddress(addr)
	buf := make([]byte, e.typ.ByteSize)
	if err := mm.ReadMemory(buf, addr); err != nil {
		return nil, ErrReadFailed
	}
	record.Data = buf
	if !e.keepInMemory && e.temp != nil {
		record.NeedsAllocation = true
		if err := mm.Free(e.temp.addr); err != nil {
			return nil, ErrDeallocationFailed
		}
	} else {
		record.IsHostAllocated = true
	}
	e.temp = nil
	return record, nil
}

func (e *ResultEntity) wipe(mm MemoryMap) error {
	if e.temp == nil {
		return nil
	}
	addr := e.temp.addr
	e.temp = nil
	if e.keepInMemory {
		return nil
	}
	return mm.Free(addr)
}

func (e *ResultEntity) dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	dumpSlot(w, "result", structAddr, e, mm)
}
