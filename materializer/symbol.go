package materializer

import "io"

// SymbolEntity writes the load address of a named symbol into the struct
// slot, falling back to the symbol's file address when the target hasn't
// relocated it (or has no loaded image at all).
type SymbolEntity struct {
	entityBase
	symbol SymbolRecord
}

func newSymbolEntity(symbol SymbolRecord) *SymbolEntity {
	e := &SymbolEntity{symbol: symbol}
	e.size, e.alignment = 8, 8
	return e
}

func (e *SymbolEntity) materialize(frame Frame, mm MemoryMap, structAddr uint64) error {
	scope := executionScope(frame, mm)
	if scope == nil {
		return ErrNoExecutionScope
	}
	target := scope.Target()
	if target == nil {
		return ErrNoTarget
	}
	addr, ok := e.symbol.LoadAddress(target)
	if !ok {
		addr = e.symbol.FileAddress()
	}
	if err := mm.WritePointer(structAddr+e.offset, addr); err != nil {
		return ErrWriteFailed
	}
	return nil
}

func (e *SymbolEntity) dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error {
	return nil
}

func (e *SymbolEntity) wipe(mm MemoryMap) error { return nil }

func (e *SymbolEntity) dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	dumpSlot(w, "symbol:"+e.symbol.Name(), structAddr, e, mm)
}
