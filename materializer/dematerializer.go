package materializer

// Dematerializer is a single-use handle bound to one materialization
// instance: a Materializer, the frame/memory-map pair it materialized
// against, and the inferior address of the struct.
type Dematerializer struct {
	m          *Materializer
	frame      Frame
	mm         MemoryMap
	structAddr uint64
	valid      bool
}

// IsValid reports whether Dematerialize or Wipe has not yet been called.
func (d *Dematerializer) IsValid() bool {
	return d.valid
}

// Dematerialize iterates entities in insertion order, transferring values
// back from inferior memory. The single ResultEntity is dispatched to its
// specialized form and its fresh persistent-variable record is returned;
// every other entity uses the generic form. It stops at the first error but
// always wipes scratch afterward, success or failure, and always invalidates
// the handle.
func (d *Dematerializer) Dematerialize(frameBottom, frameTop uint64) (*PersistentVariableRecord, error) {
	if !d.valid {
		return nil, ErrInvalidated
	}
	defer d.Wipe()
	if executionScope(d.frame, d.mm) == nil {
		return nil, ErrNoExecutionScope
	}
	var result *PersistentVariableRecord
	for _, e := range d.m.entities {
		if re, ok := e.(*ResultEntity); ok && re == d.m.result {
			r, err := re.dematerializeResult(d.frame, d.mm, d.structAddr)
			if err != nil {
				return nil, err
			}
			result = r
			continue
		}
		if err := e.dematerialize(d.frame, d.mm, d.structAddr, frameBottom, frameTop); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Wipe releases every entity's transient resource without copying data back
// and invalidates the handle. Idempotent.
func (d *Dematerializer) Wipe() error {
	if !d.valid {
		return nil
	}
	d.valid = false
	d.m.clearDematerializer(d)
	var first error
	for _, e := range d.m.entities {
		if err := e.wipe(d.mm); err != nil && first == nil {
			first = err
		}
	}
	return first
}
