package debugger

import (
	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/emulator"
)

// ArchConfig describes the handful of architecture facts the host needs:
// the calling convention for materialized expressions is always "pass one
// pointer argument, return nothing interesting" (the JIT writes results
// into the argument struct itself), so a single generic backend replaces
// what used to be one package per architecture.
type ArchConfig struct {
	Arch           emulator.Arch
	PointerSize    uint64
	StackAlignment uint64
	StackSize      uint64
	PC, SP, LR     emulator.Reg
	ArgRegs        []emulator.Reg
}

type GenericDbg struct {
	Dbg
	cfg ArchConfig
}

func NewGenericDebugger(cfg ArchConfig) debugger.DbgCtor {
	return func(emu emulator.Emulator) (debugger.Debugger, error) {
		dbg := &GenericDbg{cfg: cfg}
		if err := dbg.Init(dbg, emu); err != nil {
			return nil, err
		}
		return dbg, nil
	}
}

func (dbg *GenericDbg) Close() error {
	return dbg.Dbg.Close()
}

func (dbg *GenericDbg) PointerSize() uint64 {
	return dbg.cfg.PointerSize
}

func (dbg *GenericDbg) StackAlign() uint64 {
	return dbg.cfg.StackAlignment
}

func (dbg *GenericDbg) PC() emulator.Reg {
	return dbg.cfg.PC
}

func (dbg *GenericDbg) SP() emulator.Reg {
	return dbg.cfg.SP
}

// Args/ArgWrite/RetExtract/RetWrite implement the ordinary-call ABI used to
// invoke helper functions inside the inferior (module initializers, the
// persistent-store allocator shim). Materialized expressions never go
// through this path: they receive their one argument (the address of the
// argument struct materialized by materializer.Materializer) directly in
// ArgRegs[0], written by expr.Evaluator via RegWrite.
func (dbg *GenericDbg) Args(ctx debugger.RegisterContext, calling debugger.Calling) (debugger.Args, error) {
	if calling != debugger.Calling_Default && calling != debugger.Calling_Fastcall {
		return nil, debugger.ErrCallingUnsupported
	}
	regs := dbg.cfg.ArgRegs
	return debugger.Args(func(args ...any) error {
		if len(args) > len(regs) {
			return debugger.ErrArgumentInvalid
		}
		for i, arg := range args {
			p, ok := arg.(*uint64)
			if !ok {
				return debugger.ErrArgumentInvalid
			}
			v, err := ctx.RegRead(regs[i])
			if err != nil {
				return err
			}
			*p = v
		}
		return nil
	}), nil
}

func (dbg *GenericDbg) ArgWrite(ctx debugger.RegisterContext, calling debugger.Calling, args ...any) error {
	if calling != debugger.Calling_Default && calling != debugger.Calling_Fastcall {
		return debugger.ErrCallingUnsupported
	}
	regs := dbg.cfg.ArgRegs
	if len(args) > len(regs) {
		return debugger.ErrArgumentInvalid
	}
	for i, arg := range args {
		v, ok := arg.(uint64)
		if !ok {
			return debugger.ErrArgumentInvalid
		}
		if err := ctx.RegWrite(regs[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (dbg *GenericDbg) RetExtract(ctx debugger.RegisterContext, val any) error {
	p, ok := val.(*uint64)
	if !ok {
		return debugger.ErrArgumentInvalid
	}
	v, err := ctx.RegRead(dbg.cfg.ArgRegs[0])
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (dbg *GenericDbg) RetWrite(ctx debugger.RegisterContext, val any) error {
	v, ok := val.(uint64)
	if !ok {
		return debugger.ErrArgumentInvalid
	}
	return ctx.RegWrite(dbg.cfg.ArgRegs[0], v)
}

func (dbg *GenericDbg) Return(ctx debugger.RegisterContext) error {
	lr, err := ctx.RegRead(dbg.cfg.LR)
	if err != nil {
		return err
	}
	return ctx.RegWrite(dbg.cfg.PC, lr)
}

func (dbg *GenericDbg) InitStack() (uint64, error) {
	region, err := dbg.MapAlloc(dbg.cfg.StackSize, emulator.MEM_PROT_READ|emulator.MEM_PROT_WRITE)
	if err != nil {
		return 0, err
	}
	return region.Addr + dbg.cfg.StackSize, nil
}

func (dbg *GenericDbg) CloseStack(stack uint64) error {
	return dbg.MapFree(stack-dbg.cfg.StackSize, dbg.cfg.StackSize)
}

func (dbg *GenericDbg) TaskControl(task debugger.Task, addr uint64) (debugger.ControlHandler, error) {
	ctrl, err := dbg.AddControl(func(ctx debugger.Context, data any) {
		t := data.(debugger.Task)
		if t.Context() != ctx {
			panic("call exception return")
		}
		t.CancelCause(debugger.TaskStatus_Done)
	}, task)
	if err != nil {
		return nil, err
	}
	ctx := task.Context()
	ctx.RegWrite(dbg.cfg.PC, addr)
	ctx.RegWrite(dbg.cfg.LR, ctrl.Addr())
	return ctrl, nil
}
