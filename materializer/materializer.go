package materializer

import (
	"fmt"
	"io"
)

// Materializer owns the entity list for one argument struct layout, drives
// materialize, and hands back a one-shot Dematerializer.
type Materializer struct {
	layout         layout
	entities       []Entity
	result         *ResultEntity
	dematerializer *Dematerializer
}

// New returns an empty Materializer. Entities are appended with the Add*
// builders, in the order the argument struct should lay them out.
func New() *Materializer {
	return &Materializer{}
}

// AddPersistent appends a PersistentEntity bound to record.
func (m *Materializer) AddPersistent(record *PersistentVariableRecord) uint64 {
	return m.append(newPersistentEntity(record))
}

// AddLocal appends a LocalEntity bound to desc.
func (m *Materializer) AddLocal(desc VariableDescriptor) uint64 {
	return m.append(newLocalEntity(desc))
}

// AddResult appends the Materializer's single ResultEntity. Calling it more
// than once produces more than one result slot in the struct; only the most
// recently added one is dematerialized as the result, and Dematerialize
// fails with ErrWrongEntry when it reaches an earlier one.
func (m *Materializer) AddResult(typ ValueType, isProgramReference, keepInMemory bool) uint64 {
	e := newResultEntity(typ, isProgramReference, keepInMemory)
	off := m.append(e)
	m.result = e
	return off
}

// AddSymbol appends a SymbolEntity bound to symbol.
func (m *Materializer) AddSymbol(symbol SymbolRecord) uint64 {
	return m.append(newSymbolEntity(symbol))
}

// AddRegister appends a RegisterEntity sized exactly to info.
func (m *Materializer) AddRegister(info *RegisterInfo) uint64 {
	return m.append(newRegisterEntity(info))
}

// Size returns the total byte size of the argument struct laid out so far.
func (m *Materializer) Size() uint64 { return m.layout.currentOffset }

// Alignment returns the struct's alignment per the layout engine's
// first-entity-only rule (layout.go).
func (m *Materializer) Alignment() uint64 { return m.layout.structAlignment }

func (m *Materializer) append(e Entity) uint64 {
	off := m.layout.append(e)
	m.entities = append(m.entities, e)
	return off
}

// Materialize drives every entity's materialize in insertion order and, on
// success, returns a Dematerializer bound to frame, mm, and structAddr. It
// fails with ErrAlreadyMaterialized if a Dematerializer from a previous call
// is still outstanding, and with ErrNoExecutionScope if neither frame nor mm
// yields one. On the first entity failure it returns that error directly;
// no handle is returned, and nothing already materialized is rolled back —
// the caller must treat the struct as tainted or wipe it by hand.
func (m *Materializer) Materialize(frame Frame, mm MemoryMap, structAddr uint64) (*Dematerializer, error) {
	if m.dematerializer != nil {
		return nil, ErrAlreadyMaterialized
	}
	if executionScope(frame, mm) == nil {
		return nil, ErrNoExecutionScope
	}
	for _, e := range m.entities {
		if err := e.materialize(frame, mm, structAddr); err != nil {
			return nil, err
		}
	}
	d := &Dematerializer{m: m, frame: frame, mm: mm, structAddr: structAddr, valid: true}
	m.dematerializer = d
	return d, nil
}

// Close force-wipes any outstanding Dematerializer. Callers that tear down a
// Materializer without having run dematerialize must call this so that
// scratch allocations aren't leaked — it is the forced-unwind path the
// source ties to the Materializer's destructor.
func (m *Materializer) Close() error {
	if m.dematerializer != nil && m.dematerializer.valid {
		return m.dematerializer.Wipe()
	}
	return nil
}

func (m *Materializer) clearDematerializer(d *Dematerializer) {
	if m.dematerializer == d {
		m.dematerializer = nil
	}
}

// Dump renders every entity's (offset, size, alignment) and a hex preview of
// its current slot, for expression-evaluation diagnostics.
func (m *Materializer) Dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	fmt.Fprintf(w, "argument struct @ 0x%x size=%d align=%d\n", structAddr, m.layout.currentOffset, m.layout.structAlignment)
	for _, e := range m.entities {
		e.dump(w, structAddr, mm)
	}
}
