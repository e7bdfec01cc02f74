package materializer

import "io"

// PersistentVariableRecord is a user-visible $-named variable that can
// survive across expression calls. Ownership belongs to the persistent
// store; the materializer only mutates its flags and live-location fields,
// under the single-threaded-access assumption spec'd for the whole package.
type PersistentVariableRecord struct {
	Name      string
	Type      ValueType
	ByteOrder ByteOrder

	// NeedsAllocation is set when the record has no inferior-side storage
	// yet and materialize must create it.
	NeedsAllocation bool
	// IsProgramReference is set when the struct slot should be (or was)
	// filled by the expression itself with a program address, rather than
	// one the materializer allocated.
	IsProgramReference bool
	// IsHostAllocated marks a record whose inferior storage was created by
	// this materializer (named IsHostAllocated: the source's IsLLDBAllocated
	// renamed for a host that isn't LLDB).
	IsHostAllocated bool
	// KeepInTarget means the inferior-side allocation should survive past
	// this expression instead of being freed on dematerialize.
	KeepInTarget bool
	// NeedsFreezeDry means the host-side Data buffer is stale and must be
	// refreshed from inferior memory before the allocation is freed.
	NeedsFreezeDry bool

	liveAddr uint64
	hasLive  bool

	Data []byte
}

// LiveAddress returns the record's current inferior-side storage address,
// if one has been established.
func (r *PersistentVariableRecord) LiveAddress() (uint64, bool) {
	return r.liveAddr, r.hasLive
}

func (r *PersistentVariableRecord) setLiveAddress(addr uint64) {
	r.liveAddr = addr
	r.hasLive = true
}

// PersistentEntity stages a user $-variable: it may already exist in the
// inferior, or it may need a fresh allocation.
type PersistentEntity struct {
	entityBase
	record *PersistentVariableRecord
}

func newPersistentEntity(record *PersistentVariableRecord) *PersistentEntity {
	e := &PersistentEntity{record: record}
	e.size, e.alignment = 8, 8
	return e
}

func (e *PersistentEntity) materialize(frame Frame, mm MemoryMap, structAddr uint64) error {
	r := e.record
	if r.NeedsAllocation {
		addr, err := mm.Malloc(r.Type.ByteSize, 8, PermRead|PermWrite, AllocPolicyMirror)
		if err != nil {
			return ErrAllocationFailed
		}
		r.setLiveAddress(addr)
		if r.KeepInTarget {
			r.NeedsAllocation = false
		}
		if err := mm.WriteMemory(addr, r.Data); err != nil {
			return ErrWriteFailed
		}
	}
	live, hasLive := r.LiveAddress()
	switch {
	case r.IsProgramReference && hasLive:
		if err := mm.WritePointer(structAddr+e.offset, live); err != nil {
			return ErrWriteFailed
		}
	case r.IsHostAllocated:
		if err := mm.WritePointer(structAddr+e.offset, live); err != nil {
			return ErrWriteFailed
		}
	default:
		return ErrNotMaterialized
	}
	return nil
}

func (e *PersistentEntity) dematerialize(frame Frame, mm MemoryMap, structAddr uint64, frameBottom, frameTop uint64) error {
	r := e.record
	if !r.IsHostAllocated && !r.IsProgramReference {
		return ErrNotDematerialized
	}
	if r.IsProgramReference {
		if _, hasLive := r.LiveAddress(); !hasLive {
			addr, err := mm.ReadPointer(structAddr + e.offset)
			if err != nil {
				return ErrReadFailed
			}
			r.setLiveAddress(addr)
			if addr >= frameBottom && addr <= frameTop {
				r.IsHostAllocated = true
				r.NeedsAllocation = true
				r.NeedsFreezeDry = true
				r.IsProgramReference = false
			}
		}
	}
	live, hasLive := r.LiveAddress()
	if !hasLive {
		return ErrBadAddressForm
	}
	if scope := executionScope(frame, mm); scope != nil {
		if target := scope.Target(); target != nil && !target.IsLoadAddress(live) {
			return ErrBadAddressForm
		}
	}
	if r.NeedsFreezeDry || r.KeepInTarget {
		buf := make([]byte, r.Type.ByteSize)
		if err := mm.ReadMemory(buf, live); err != nil {
			return ErrReadFailed
		}
		r.Data = buf
		r.NeedsFreezeDry = false
	}
	if r.NeedsAllocation && !r.KeepInTarget {
		if err := mm.Free(live); err != nil {
			return ErrDeallocationFailed
		}
	}
	return nil
}

// wipe is a no-op: persistent records manage their own lifetime and are
// never torn down just because a Dematerializer is abandoned.
func (e *PersistentEntity) wipe(mm MemoryMap) error { return nil }

func (e *PersistentEntity) dump(w io.Writer, structAddr uint64, mm MemoryMap) {
	dumpSlot(w, "persistent:"+e.record.Name, structAddr, e, mm)
}
