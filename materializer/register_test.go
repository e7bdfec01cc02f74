package materializer

import (
	"encoding/binary"
	"testing"
)

// scenario 5: register round-trip through a mutated slot.
func TestRegisterEntityRoundTrip(t *testing.T) {
	mm := newFakeMemoryMap()
	const structAddr = 0x2000
	mm.seed(structAddr, 8)

	raxInit := make([]byte, 8)
	binary.LittleEndian.PutUint64(raxInit, 0x1111)
	frame := &fakeFrame{
		target: &fakeTarget{store: &fakePersistentStore{}},
		regs:   map[string][]byte{"rax": raxInit},
	}

	m := New()
	info := &RegisterInfo{Name: "rax", ByteSize: 8}
	off := m.AddRegister(info)

	d, err := m.Materialize(frame, mm, structAddr)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	var slot [8]byte
	if err := mm.ReadMemory(slot[:], structAddr+off); err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if binary.LittleEndian.Uint64(slot[:]) != 0x1111 {
		t.Fatalf("slot after materialize = %x, want 1111", slot)
	}

	mutated := make([]byte, 8)
	binary.LittleEndian.PutUint64(mutated, 0x2222)
	if err := mm.WriteMemory(structAddr+off, mutated); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}

	if _, err := d.Dematerialize(0, 0); err != nil {
		t.Fatalf("Dematerialize: %v", err)
	}
	if binary.LittleEndian.Uint64(frame.regs["rax"]) != 0x2222 {
		t.Fatalf("rax after dematerialize = %x, want 2222", frame.regs["rax"])
	}
}

func TestRegisterEntityNoFrame(t *testing.T) {
	e := newRegisterEntity(&RegisterInfo{Name: "rax", ByteSize: 8})
	e.setOffset(0)
	mm := newFakeMemoryMap()
	mm.seed(0, 8)
	if err := e.materialize(nil, mm, 0); err != ErrNoFrame {
		t.Fatalf("materialize = %v, want ErrNoFrame", err)
	}
	if err := e.dematerialize(nil, mm, 0, 0, 0); err != ErrNoFrame {
		t.Fatalf("dematerialize = %v, want ErrNoFrame", err)
	}
}

func TestRegisterEntitySizeMismatch(t *testing.T) {
	frame := &fakeFrame{target: &fakeTarget{store: &fakePersistentStore{}}, regs: map[string][]byte{"r8": {1, 2, 3}}}
	mm := newFakeMemoryMap()
	mm.seed(0, 8)
	e := newRegisterEntity(&RegisterInfo{Name: "r8", ByteSize: 8})
	e.setOffset(0)
	if err := e.materialize(frame, mm, 0); err != ErrSizeMismatch {
		t.Fatalf("materialize = %v, want ErrSizeMismatch", err)
	}
}
