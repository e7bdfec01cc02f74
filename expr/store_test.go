package expr

import (
	"testing"

	"github.com/wnxd/microdbg/materializer"
)

func TestPersistentVariableStoreNamesAreSequentialAndUnique(t *testing.T) {
	store := NewPersistentVariableStore()
	first := store.NextPersistentVariableName()
	second := store.NextPersistentVariableName()
	if first == second {
		t.Fatalf("NextPersistentVariableName returned the same name twice: %q", first)
	}
}

func TestPersistentVariableStoreCreateVariableIsRetrievable(t *testing.T) {
	store := NewPersistentVariableStore()
	name := store.NextPersistentVariableName()
	typ := materializer.ValueType{ByteSize: 8, BitAlign: 64}

	record := store.CreateVariable(nil, name, typ, materializer.LittleEndian, 8)
	if record == nil {
		t.Fatal("CreateVariable returned nil")
	}
	if record.Name != name {
		t.Fatalf("record.Name = %q, want %q", record.Name, name)
	}

	got, ok := store.Lookup(name)
	if !ok {
		t.Fatalf("Lookup(%q): not found", name)
	}
	if got != record {
		t.Fatal("Lookup returned a different record than CreateVariable produced")
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
}

func TestPersistentVariableStoreForget(t *testing.T) {
	store := NewPersistentVariableStore()
	name := store.NextPersistentVariableName()
	store.CreateVariable(nil, name, materializer.ValueType{}, materializer.LittleEndian, 8)

	store.Forget(name)
	if _, ok := store.Lookup(name); ok {
		t.Fatalf("Lookup(%q): found after Forget", name)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Forget", store.Len())
	}
}
