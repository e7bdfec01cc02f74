package expr

import (
	"context"
	"fmt"

	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/debugger/generic"
	"github.com/wnxd/microdbg/emulator"
	"github.com/wnxd/microdbg/materializer"
	"github.com/wnxd/microdbg/materializer/microdbg"
)

// Evaluator drives one materialize -> run -> dematerialize cycle against a
// real debugger.Debugger. Expression parsing and code generation sit above
// this package; Run takes an already-compiled entry address and an
// already-built Materializer describing the argument struct the compiled
// code expects.
type Evaluator struct {
	Dbg    debugger.Debugger
	Target *microdbg.Target
	MM     *microdbg.MemoryMap
	Config Config

	// RegNames maps the register names a RegisterEntity was built with to
	// the debugger's Reg numbering, for materializer.Frame.RegisterContext.
	// Evaluations that never add a RegisterEntity can leave this nil.
	RegNames map[string]emulator.Reg
}

// NewEvaluator wires an Evaluator against dbg and store, using order/addrSize
// to describe the inferior's pointer layout.
func NewEvaluator(dbg debugger.Debugger, store materializer.PersistentStore, order materializer.ByteOrder, addrSize int, cfg Config) *Evaluator {
	target := &microdbg.Target{Dbg: dbg, Store: store, Order: order}
	mm := &microdbg.MemoryMap{Dbg: dbg, Scope: target, Order: order, AddrSize: addrSize}
	return &Evaluator{Dbg: dbg, Target: target, MM: mm, Config: cfg}
}

// Run allocates an argument struct sized to mat, materializes mat against
// it, forks the inferior's main task so the call runs on its own register
// and stack state, runs the fork to entryAddr, and dematerializes.
// frameBottom/frameTop bound the stack frame PersistentEntity uses to
// decide whether a reference has escaped its originating frame
// (materializer/persistent.go); LocalEntity does not use them.
func (e *Evaluator) Run(ctx context.Context, mat *materializer.Materializer, entryAddr, frameBottom, frameTop uint64) (*Result, error) {
	main, err := e.Dbg.GetMainTask(ctx)
	if err != nil {
		return nil, fmt.Errorf("expr: getting main task: %w", err)
	}
	task, err := main.Fork()
	if err != nil {
		return nil, fmt.Errorf("expr: forking call task: %w", err)
	}
	defer task.Close()

	align := e.Config.ArgumentStructAlign
	if align == 0 {
		align = 8
	}
	size := mat.Size()
	if size == 0 {
		size = align
	}

	structAddr, err := e.MM.Malloc(size, align, materializer.PermRead|materializer.PermWrite, materializer.AllocPolicyMirror)
	if err != nil {
		return nil, fmt.Errorf("expr: allocating argument struct: %w", err)
	}
	defer e.MM.Free(structAddr)

	frame := &microdbg.Frame{Ctx: task.Context(), Tgt: e.Target, Regs: e.RegNames}

	d, err := mat.Materialize(frame, e.MM, structAddr)
	if err != nil {
		return nil, fmt.Errorf("expr: materializing: %w", err)
	}

	if err := task.Context().RegWrite(generic.RegArg0, structAddr); err != nil {
		d.Wipe()
		return nil, fmt.Errorf("expr: writing argument struct address: %w", err)
	}
	if err := e.Dbg.CallTaskOf(task, entryAddr); err != nil {
		d.Wipe()
		return nil, fmt.Errorf("expr: starting call: %w", err)
	}
	if err := task.SyncRun(); err != nil {
		d.Wipe()
		return nil, fmt.Errorf("expr: running: %w", err)
	}

	record, err := d.Dematerialize(frameBottom, frameTop)
	if err != nil {
		return nil, fmt.Errorf("expr: dematerializing: %w", err)
	}
	return &Result{Variable: record}, nil
}
