package materializer

import (
	"encoding/binary"
	"testing"
)

// scenario 4: materialize allocates the slot, the expression writes a
// value, dematerialize mints a fresh persistent variable and frees scratch.
func TestResultEntityRoundTrip(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	store := &fakePersistentStore{}
	target := &fakeTarget{store: store}
	frame := &fakeFrame{target: target, regs: map[string][]byte{}}

	m := New()
	off := m.AddResult(ValueType{ByteSize: 4, BitAlign: 32}, false, false)

	d, err := m.Materialize(frame, mm, structAddr)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	resultAddr, err := mm.ReadPointer(structAddr + off)
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 0xDEADBEEF)
	if err := mm.WriteMemory(resultAddr, payload); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}

	record, err := d.Dematerialize(0, 0)
	if err != nil {
		t.Fatalf("Dematerialize: %v", err)
	}
	if record == nil {
		t.Fatal("Dematerialize returned no record")
	}
	if binary.LittleEndian.Uint32(record.Data) != 0xDEADBEEF {
		t.Fatalf("record.Data = %x, want DEADBEEF", record.Data)
	}
	if !record.NeedsAllocation {
		t.Fatal("record.NeedsAllocation should be set when keep_in_memory is false and a temporary existed")
	}
	if _, err := mm.find(resultAddr, 1); err == nil {
		t.Fatal("temporary result allocation was not freed")
	}
}

func TestResultEntityProgramReferenceMaterializeIsNoop(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)
	// Pretend the expression already wrote its own address here.
	if err := mm.WritePointer(structAddr, 0x7000); err != nil {
		t.Fatalf("seed WritePointer: %v", err)
	}
	mm.seed(0x7000, 4)

	store := &fakePersistentStore{}
	frame := &fakeFrame{target: &fakeTarget{store: store}, regs: map[string][]byte{}}

	m := New()
	m.AddResult(ValueType{ByteSize: 4, BitAlign: 32}, true, false)

	d, err := m.Materialize(frame, mm, structAddr)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, err := mm.ReadPointer(structAddr)
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if got != 0x7000 {
		t.Fatalf("materialize must not touch a program-reference slot; got 0x%x", got)
	}
	if _, err := d.Dematerialize(0, 0); err != nil {
		t.Fatalf("Dematerialize: %v", err)
	}
}

// A BitAlign that isn't a multiple of 8 must round up with plain ceiling
// division, not bitAlignToByteAlign's preserved quirk (which would yield 0
// for BitAlign=12 and make mm.Malloc see an unaligned request).
func TestResultEntityAllocationAlignmentUsesCeilingDivision(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	store := &fakePersistentStore{}
	frame := &fakeFrame{target: &fakeTarget{store: store}, regs: map[string][]byte{}}

	m := New()
	m.AddResult(ValueType{ByteSize: 2, BitAlign: 12}, false, false)

	if _, err := m.Materialize(frame, mm, structAddr); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if mm.lastMallocAlign != 2 {
		t.Fatalf("Malloc align = %d, want 2 (ceil(12/8)), not bitAlignToByteAlign's 0", mm.lastMallocAlign)
	}
}

func TestResultEntityGenericDematerializeFails(t *testing.T) {
	e := newResultEntity(ValueType{ByteSize: 4}, false, false)
	if err := e.dematerialize(nil, nil, 0, 0, 0); err != ErrWrongEntry {
		t.Fatalf("generic dematerialize = %v, want ErrWrongEntry", err)
	}
}
