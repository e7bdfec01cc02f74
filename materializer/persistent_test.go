package materializer

import "testing"

func TestPersistentEntityAllocatesAndReleases(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	record := &PersistentVariableRecord{
		Name:            "$0",
		Type:            ValueType{ByteSize: 4, BitAlign: 32},
		NeedsAllocation: true,
		IsHostAllocated: true,
		Data:            []byte{1, 2, 3, 4},
	}
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{}}

	m := New()
	off := m.AddPersistent(record)
	d, err := m.Materialize(frame, mm, structAddr)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	liveAddr, hasLive := record.LiveAddress()
	if !hasLive {
		t.Fatal("record has no live address after materialize")
	}
	got, err := mm.ReadPointer(structAddr + off)
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if got != liveAddr {
		t.Fatalf("slot = 0x%x, want live address 0x%x", got, liveAddr)
	}
	if !record.IsHostAllocated && !record.IsProgramReference {
		t.Fatal("a freshly allocated record must end up flagged as host-allocated or program-referenced to materialize at all")
	}

	if _, err := d.Dematerialize(0, 0); err != nil {
		t.Fatalf("Dematerialize: %v", err)
	}
	if _, err := mm.find(liveAddr, 1); err == nil {
		t.Fatal("persistent allocation should have been freed (KeepInTarget is false)")
	}
}

func TestPersistentEntityNotMaterializedWithoutFlags(t *testing.T) {
	record := &PersistentVariableRecord{Name: "$0", Type: ValueType{ByteSize: 4}}
	e := newPersistentEntity(record)
	e.setOffset(0)
	mm := newFakeMemoryMap()
	mm.seed(0, 8)
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{}}
	if err := e.materialize(frame, mm, 0); err != ErrNotMaterialized {
		t.Fatalf("materialize = %v, want ErrNotMaterialized", err)
	}
}

func TestPersistentEntityFreezeDryWhenReferenceEscapesFrame(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)
	const frameBottom, frameTop = 0x7000, 0x8000
	const withinFrame = 0x7500
	mm.seed(withinFrame, 4)
	if err := mm.WritePointer(structAddr, withinFrame); err != nil {
		t.Fatalf("seed WritePointer: %v", err)
	}
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	if err := mm.WriteMemory(withinFrame, payload); err != nil {
		t.Fatalf("seed WriteMemory: %v", err)
	}

	record := &PersistentVariableRecord{
		Name:               "$0",
		Type:                ValueType{ByteSize: 4},
		IsProgramReference: true,
	}
	e := newPersistentEntity(record)
	e.setOffset(0)
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{}}

	if err := e.dematerialize(frame, mm, structAddr, frameBottom, frameTop); err != nil {
		t.Fatalf("dematerialize: %v", err)
	}
	if record.IsProgramReference {
		t.Fatal("IsProgramReference should be cleared once the value is frozen out of the dying frame")
	}
	if !record.IsHostAllocated || !record.NeedsAllocation || record.NeedsFreezeDry {
		t.Fatalf("flags after freeze-dry = {host=%v alloc=%v freeze=%v}, want {true true false}",
			record.IsHostAllocated, record.NeedsAllocation, record.NeedsFreezeDry)
	}
}
