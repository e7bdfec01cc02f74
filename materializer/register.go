package materializer

import "io"

// RegisterEntity copies a CPU register's bytes into the struct slot on
// materialize and writes the (possibly expression-mutated) bytes back on
// dematerialize.
type RegisterEntity struct {
	entityBase
	info *RegisterInfo
}

func newRegisterEntity(info *RegisterInfo) *RegisterEntity {
	e := &RegisterEntity{info: info}
	e.size, e.alignment = info.ByteSize, info.ByteSize
	return e
}

func (e *RegisterEntity) materialize(frame Frame, mm MemoryMap, structAddr uint64) error {
	if frame == nil {
		return ErrNoFrame
	}
	rc := frame.RegisterContext()
	if rc == nil {
		return ErrNoFrame
	}
	val, err := rc.ReadRegister(e.info)
	if err != nil {
		return ErrReadFailed
	}
	if uint64(len(val.Bytes)) != e.info.ByteSize {
		return ErrSizeMismatch
	}
	if err := mm.WriteMemory(structAddr+e.offset, val.Bytes); err != nil {
		return ErrWriteFailed
	}
	return nil
}

func (e *RegisterEntity) dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error {
	if frame == nil {
		return ErrNoFrame
	}
	rc := frame.RegisterContext()
	if rc == nil {
		return ErrNoFrame
	}
	buf := make([]byte, e.info.ByteSize)
	if err := mm.ReadMemory(buf, structAddr+e.offset); err != nil {
		return ErrReadFailed
	}
	val := RegisterValue{Bytes: buf, Order: mm.ByteOrder()}
	if err := rc.WriteRegister(e.info, val); err != nil {
		return ErrWriteFailed
	}
	return nil
}

func (e *RegisterEntity) wipe(mm MemoryMap) error { return nil }

func (e *RegisterEntity) dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	dumpSlot(w, "register:"+e.info.Name, structAddr, e, mm)
}
