package expr

import (
	"fmt"

	"github.com/wnxd/microdbg/materializer"
)

// Result is what a completed evaluation produced: the materialized struct's
// own address space has already been torn down by the time Run returns, so
// Result only ever carries the record the ResultEntity, if any,
// dematerialized into.
type Result struct {
	// Variable is nil if the Materializer passed to Run never called
	// AddResult.
	Variable *materializer.PersistentVariableRecord
}

// Extractor is the one method of debugger.Debugger that Result.Decode needs
// (Debugger.MemExtract), accepted narrowly so a caller or test can supply it
// without building a full debugger.Debugger.
type Extractor interface {
	MemExtract(addr uint64, val any) error
}

// Decode extracts the result variable's live inferior bytes into val using
// dbg's reflective struct packer (MemExtract, which drives the encoding
// package the same way the host's own MemImport/MemWrite conveniences do)
// instead of the caller hand-unpacking Variable.Data.
//
// Only valid while the variable is still resident in the inferior (the
// record is IsHostAllocated, as AddResult with keepInMemory set leaves it,
// or KeepInTarget):
// once a non-kept result's scratch allocation is freed on dematerialize,
// Variable.Data already holds the freeze-dried raw copy and there is no
// live address left to decode from.
func (r *Result) Decode(dbg Extractor, val any) error {
	if r.Variable == nil {
		return fmt.Errorf("expr: no result variable to decode")
	}
	if !r.Variable.IsHostAllocated && !r.Variable.KeepInTarget {
		return fmt.Errorf("expr: result variable is not resident in the inferior, decode Variable.Data directly")
	}
	addr, ok := r.Variable.LiveAddress()
	if !ok {
		return fmt.Errorf("expr: result variable has no live inferior address")
	}
	return dbg.MemExtract(addr, val)
}
