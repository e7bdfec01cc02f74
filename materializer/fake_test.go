package materializer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// fakeEntity is a bare-bones Entity used only to exercise the layout engine
// in isolation, without pulling in a concrete entity's materialize logic.
type fakeEntity struct {
	entityBase
}

func newFakeEntity(size, alignment uint64) *fakeEntity {
	e := &fakeEntity{}
	e.size, e.alignment = size, alignment
	return e
}

func (e *fakeEntity) materialize(Frame, MemoryMap, uint64) error                       { return nil }
func (e *fakeEntity) dematerialize(Frame, MemoryMap, uint64, uint64, uint64) error      { return nil }
func (e *fakeEntity) wipe(MemoryMap) error                                             { return nil }
func (e *fakeEntity) dump(io.Writer, uint64, MemoryMap)                                {}

// fakeMemoryMap is a trivial bump-allocating IRMemoryMap stand-in: regions
// are tracked by base address so tests can also pre-seed the argument
// struct's own region (which, per spec, is caller-owned, not allocated by
// the materializer).
type fakeMemoryMap struct {
	regions  map[uint64][]byte
	next     uint64
	order    ByteOrder
	addrSize int
	scope    ExecutionScope

	lastMallocAlign uint64
}

func newFakeMemoryMap() *fakeMemoryMap {
	return &fakeMemoryMap{regions: make(map[uint64][]byte), next: 0x10000, addrSize: 8}
}

func (f *fakeMemoryMap) seed(addr uint64, size uint64) {
	f.regions[addr] = make([]byte, size)
}

func alignUint(v, a uint64) uint64 {
	if a == 0 {
		a = 1
	}
	return (v + a - 1) &^ (a - 1)
}

func (f *fakeMemoryMap) Malloc(size, align uint64, perm Perm, policy AllocPolicy) (uint64, error) {
	f.lastMallocAlign = align
	addr := alignUint(f.next, align)
	f.next = addr + size + 1
	f.regions[addr] = make([]byte, size)
	return addr, nil
}

func (f *fakeMemoryMap) Free(addr uint64) error {
	if _, ok := f.regions[addr]; !ok {
		return errors.New("fakeMemoryMap: double free")
	}
	delete(f.regions, addr)
	return nil
}

func (f *fakeMemoryMap) find(addr, size uint64) ([]byte, uint64, error) {
	for base, buf := range f.regions {
		if addr >= base && addr+size <= base+uint64(len(buf)) {
			return buf, addr - base, nil
		}
	}
	return nil, 0, fmt.Errorf("fakeMemoryMap: address 0x%x not mapped", addr)
}

func (f *fakeMemoryMap) ReadMemory(dest []byte, addr uint64) error {
	buf, off, err := f.find(addr, uint64(len(dest)))
	if err != nil {
		return err
	}
	copy(dest, buf[off:off+uint64(len(dest))])
	return nil
}

func (f *fakeMemoryMap) WriteMemory(addr uint64, src []byte) error {
	buf, off, err := f.find(addr, uint64(len(src)))
	if err != nil {
		return err
	}
	copy(buf[off:], src)
	return nil
}

func (f *fakeMemoryMap) putAddr(buf []byte, v uint64) {
	if f.order == BigEndian {
		if f.addrSize == 4 {
			binary.BigEndian.PutUint32(buf, uint32(v))
		} else {
			binary.BigEndian.PutUint64(buf, v)
		}
		return
	}
	if f.addrSize == 4 {
		binary.LittleEndian.PutUint32(buf, uint32(v))
	} else {
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func (f *fakeMemoryMap) ReadPointer(addr uint64) (uint64, error) {
	buf := make([]byte, f.addrSize)
	if err := f.ReadMemory(buf, addr); err != nil {
		return 0, err
	}
	return decodePointer(buf, f.order, f.addrSize), nil
}

func (f *fakeMemoryMap) WritePointer(addr, ptr uint64) error {
	buf := make([]byte, f.addrSize)
	f.putAddr(buf, ptr)
	return f.WriteMemory(addr, buf)
}

func (f *fakeMemoryMap) WriteScalar(addr uint64, scalar uint64, byteCount int) error {
	buf := make([]byte, byteCount)
	save := f.addrSize
	f.addrSize = byteCount
	f.putAddr(buf, scalar)
	f.addrSize = save
	return f.WriteMemory(addr, buf)
}

func (f *fakeMemoryMap) GetBestExecutionScope() ExecutionScope { return f.scope }
func (f *fakeMemoryMap) ByteOrder() ByteOrder                  { return f.order }
func (f *fakeMemoryMap) AddressByteSize() int                  { return f.addrSize }

type fakePersistentStore struct {
	counter int
	created []*PersistentVariableRecord
}

func (s *fakePersistentStore) NextPersistentVariableName() string {
	s.counter++
	return fmt.Sprintf("$%d", s.counter)
}

func (s *fakePersistentStore) CreateVariable(scope ExecutionScope, name string, typ ValueType, order ByteOrder, addrSize int) *PersistentVariableRecord {
	r := &PersistentVariableRecord{Name: name, Type: typ, ByteOrder: order}
	s.created = append(s.created, r)
	return r
}

type fakeTarget struct {
	store  PersistentStore
	loadOK func(uint64) bool
}

func (t *fakeTarget) PersistentStore() PersistentStore { return t.store }
func (t *fakeTarget) IsLoadAddress(addr uint64) bool {
	if t.loadOK == nil {
		return true
	}
	return t.loadOK(addr)
}

type fakeFrame struct {
	target *fakeTarget
	regs   map[string][]byte
	noRegs bool
}

func (fr *fakeFrame) Target() Target {
	if fr.target == nil {
		return nil
	}
	return fr.target
}
func (fr *fakeFrame) RegisterContext() RegisterContext {
	if fr.noRegs {
		return nil
	}
	return fr
}

func (fr *fakeFrame) ReadRegister(info *RegisterInfo) (RegisterValue, error) {
	b, ok := fr.regs[info.Name]
	if !ok {
		return RegisterValue{}, fmt.Errorf("no such register %q", info.Name)
	}
	return RegisterValue{Bytes: append([]byte(nil), b...)}, nil
}

func (fr *fakeFrame) WriteRegister(info *RegisterInfo, val RegisterValue) error {
	fr.regs[info.Name] = append([]byte(nil), val.Bytes...)
	return nil
}

type fakeValueObject struct {
	data    []byte
	addr    uint64
	hasAddr bool
	updated bool
}

func (v *fakeValueObject) Data() ([]byte, error)       { return append([]byte(nil), v.data...), nil }
func (v *fakeValueObject) SetData(d []byte) error      { v.data = append([]byte(nil), d...); return nil }
func (v *fakeValueObject) AddressOf() (uint64, bool)   { return v.addr, v.hasAddr }
func (v *fakeValueObject) ByteSize() uint64            { return uint64(len(v.data)) }
func (v *fakeValueObject) ValueUpdated()               { v.updated = true }

type fakeVariableDescriptor struct {
	vo          *fakeValueObject
	isReference bool
	typ         ValueType
}

func (d *fakeVariableDescriptor) Resolve(frame Frame, scope ExecutionScope) (ValueObject, error) {
	return d.vo, nil
}
func (d *fakeVariableDescriptor) IsReference() bool { return d.isReference }
func (d *fakeVariableDescriptor) Type() ValueType   { return d.typ }

type fakeSymbolRecord struct {
	name    string
	load    uint64
	hasLoad bool
	file    uint64
}

func (s *fakeSymbolRecord) Name() string                            { return s.name }
func (s *fakeSymbolRecord) LoadAddress(Target) (uint64, bool)       { return s.load, s.hasLoad }
func (s *fakeSymbolRecord) FileAddress() uint64                     { return s.file }
