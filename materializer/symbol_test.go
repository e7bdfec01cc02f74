package materializer

import "testing"

func TestSymbolEntityPrefersLoadAddress(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	sym := &fakeSymbolRecord{name: "foo", load: 0x9000, hasLoad: true, file: 0x100}
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{}}

	m := New()
	off := m.AddSymbol(sym)
	if _, err := m.Materialize(frame, mm, structAddr); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, err := mm.ReadPointer(structAddr + off)
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if got != 0x9000 {
		t.Fatalf("slot = 0x%x, want load address 0x9000", got)
	}
}

func TestSymbolEntityFallsBackToFileAddress(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	sym := &fakeSymbolRecord{name: "foo", hasLoad: false, file: 0x100}
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{}}

	m := New()
	off := m.AddSymbol(sym)
	if _, err := m.Materialize(frame, mm, structAddr); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, err := mm.ReadPointer(structAddr + off)
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if got != 0x100 {
		t.Fatalf("slot = 0x%x, want file address 0x100", got)
	}
}

func TestSymbolEntityNoTarget(t *testing.T) {
	e := newSymbolEntity(&fakeSymbolRecord{name: "foo"})
	e.setOffset(0)
	mm := newFakeMemoryMap()
	mm.seed(0, 8)
	frame := &fakeFrame{target: nil, regs: map[string][]byte{}}
	if err := e.materialize(frame, mm, 0); err != ErrNoTarget {
		t.Fatalf("materialize = %v, want ErrNoTarget", err)
	}
}
