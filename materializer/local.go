package materializer

import "io"

type temporaryAllocation struct {
	addr uint64
	size uint64
}

// LocalEntity stages a frame-local variable: by its real address when one
// exists, otherwise via a scratch allocation mirrored into the inferior.
type LocalEntity struct {
	entityBase
	desc        VariableDescriptor
	isReference bool
	temp        *temporaryAllocation
}

func newLocalEntity(desc VariableDescriptor) *LocalEntity {
	e := &LocalEntity{desc: desc, isReference: desc.IsReference()}
	e.size, e.alignment = 8, 8
	return e
}

func (e *LocalEntity) materialize(frame Frame, mm MemoryMap, structAddr uint64) error {
	scope := executionScope(frame, mm)
	vo, err := e.desc.Resolve(frame, scope)
	if err != nil {
		return ErrReadFailed
	}
	if e.isReference {
		data, err := vo.Data()
		if err != nil {
			return ErrReadFailed
		}
		addr := decodePointer(data, mm.ByteOrder(), mm.AddressByteSize())
		if err := mm.WritePointer(structAddr+e.offset, addr); err != nil {
			return ErrWriteFailed
		}
		return nil
	}
	if addr, ok := vo.AddressOf(); ok {
		if err := mm.WritePointer(structAddr+e.offset, addr); err != nil {
			return ErrWriteFailed
		}
		return nil
	}
	if e.temp != nil {
		return ErrDoubleAllocation
	}
	typ := e.desc.Type()
	data, err := vo.Data()
	if err != nil {
		return ErrReadFailed
	}
	if uint64(len(data)) != typ.ByteSize {
		return ErrSizeMismatch
	}
	// Plain ceiling division here, not bitAlignToByteAlign's preserved
	// quirk: the original's LocalVariableMaterializer computes its scratch
	// allocation's alignment with (bit_align+7)/8 directly, never through
	// SetSizeAndAlignmentFromType.
	byteAlign := (uint64(typ.BitAlign) + 7) / 8
	addr, err := mm.Malloc(typ.ByteSize, byteAlign, PermRead|PermWrite, AllocPolicyMirror)
	if err != nil {
		return ErrAllocationFailed
	}
	e.temp = &temporaryAllocation{addr: addr, size: typ.ByteSize}
	if err := mm.WriteMemory(addr, data); err != nil {
		return ErrWriteFailed
	}
	if err := mm.WritePointer(structAddr+e.offset, addr); err != nil {
		return ErrWriteFailed
	}
	return nil
}

func (e *LocalEntity) dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error {
	if e.temp == nil {
		return nil
	}
	scope := executionScope(frame, mm)
	vo, err := e.desc.Resolve(frame, scope)
	if err != nil {
		return ErrReadFailed
	}
	buf := make([]byte, e.temp.size)
	if err := mm.ReadMemory(buf, e.temp.addr); err != nil {
		return ErrReadFailed
	}
	if err := vo.SetData(buf); err != nil {
		return ErrWriteFailed
	}
	vo.ValueUpdated()
	addr := e.temp.addr
	e.temp = nil
	if err := mm.Free(addr); err != nil {
		return ErrDeallocationFailed
	}
	return nil
}

func (e *LocalEntity) wipe(mm MemoryMap) error {
	if e.temp == nil {
		return nil
	}
	addr := e.temp.addr
	e.temp = nil
	return mm.Free(addr)
}

func (e *LocalEntity) dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	dumpSlot(w, "local", structAddr, e, mm)
}
