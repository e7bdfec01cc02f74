// Package microdbg adapts materializer's collaborator interfaces
// (MemoryMap, Frame, Target, ValueObject, VariableDescriptor, SymbolRecord)
// to the concrete debugger/emulator/loader host, so an expression can
// materialize against a real (or emulated) inferior rather than a test
// fake.
package microdbg

import (
	"encoding/binary"

	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/emulator"
	"github.com/wnxd/microdbg/materializer"
)

// MemoryMap adapts a debugger.Debugger's MemoryManager half to
// materializer.MemoryMap.
type MemoryMap struct {
	Dbg      debugger.Debugger
	Scope    materializer.ExecutionScope
	Order    materializer.ByteOrder
	AddrSize int

	sizes map[uint64]uint64
}

func toProt(perm materializer.Perm) emulator.MemProt {
	var p emulator.MemProt
	if perm&materializer.PermRead != 0 {
		p |= emulator.MEM_PROT_READ
	}
	if perm&materializer.PermWrite != 0 {
		p |= emulator.MEM_PROT_WRITE
	}
	if perm&materializer.PermExec != 0 {
		p |= emulator.MEM_PROT_EXEC
	}
	return p
}

// Malloc always uses the Mirror allocation policy's one real requirement
// here: a fresh inferior-side mapping. The host doesn't keep a separate
// shadow buffer the way LLDB's IRMemoryMap does; ReadMemory/WriteMemory go
// straight to the inferior, which is equivalent from the materializer's
// point of view since nothing else touches the allocation concurrently.
func (m *MemoryMap) Malloc(size, align uint64, perm materializer.Perm, policy materializer.AllocPolicy) (uint64, error) {
	region, err := m.Dbg.MapAlloc(size, toProt(perm))
	if err != nil {
		return 0, err
	}
	if m.sizes == nil {
		m.sizes = make(map[uint64]uint64)
	}
	m.sizes[region.Addr] = region.Size
	return region.Addr, nil
}

// Free unmaps a mapping Malloc made; any other address yields
// debugger.ErrAddressInvalid.
func (m *MemoryMap) Free(addr uint64) error {
	size, ok := m.sizes[addr]
	if !ok {
		return debugger.ErrAddressInvalid
	}
	delete(m.sizes, addr)
	return m.Dbg.MapFree(addr, size)
}

func (m *MemoryMap) ReadMemory(dest []byte, addr uint64) error {
	data, err := m.Dbg.ToPointer(addr).MemRead(uint64(len(dest)))
	if err != nil {
		return err
	}
	copy(dest, data)
	return nil
}

func (m *MemoryMap) WriteMemory(addr uint64, src []byte) error {
	return m.Dbg.ToPointer(addr).MemWrite(src)
}

func (m *MemoryMap) ReadPointer(addr uint64) (uint64, error) {
	ptr, err := m.Dbg.ToPointer(addr).MemReadPointer()
	if err != nil {
		return 0, err
	}
	return ptr.Address(), nil
}

func (m *MemoryMap) WritePointer(addr, ptr uint64) error {
	buf := make([]byte, m.AddrSize)
	putUint(buf, ptr, m.Order)
	return m.WriteMemory(addr, buf)
}

func (m *MemoryMap) WriteScalar(addr uint64, scalar uint64, byteCount int) error {
	buf := make([]byte, byteCount)
	putUint(buf, scalar, m.Order)
	return m.WriteMemory(addr, buf)
}

func (m *MemoryMap) GetBestExecutionScope() materializer.ExecutionScope { return m.Scope }
func (m *MemoryMap) ByteOrder() materializer.ByteOrder                 { return m.Order }
func (m *MemoryMap) AddressByteSize() int                              { return m.AddrSize }

func putUint(buf []byte, v uint64, order materializer.ByteOrder) {
	if len(buf) == 4 {
		if order == materializer.BigEndian {
			binary.BigEndian.PutUint32(buf, uint32(v))
		} else {
			binary.LittleEndian.PutUint32(buf, uint32(v))
		}
		return
	}
	padded := make([]byte, 8)
	if order == materializer.BigEndian {
		binary.BigEndian.PutUint64(padded, v)
	} else {
		binary.LittleEndian.PutUint64(padded, v)
	}
	copy(buf, padded)
}

func readUint(buf []byte, order materializer.ByteOrder) uint64 {
	if len(buf) == 4 {
		if order == materializer.BigEndian {
			return uint64(binary.BigEndian.Uint32(buf))
		}
		return uint64(binary.LittleEndian.Uint32(buf))
	}
	padded := make([]byte, 8)
	copy(padded, buf)
	if order == materializer.BigEndian {
		return binary.BigEndian.Uint64(padded)
	}
	return binary.LittleEndian.Uint64(padded)
}
