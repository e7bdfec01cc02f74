package microdbg

import (
	"fmt"

	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/emulator"
	"github.com/wnxd/microdbg/materializer"
)

// Frame adapts a debugger.Context (a running task's register/stack frame)
// to materializer.Frame.
type Frame struct {
	Ctx  debugger.Context
	Tgt  *Target
	Regs map[string]emulator.Reg
}

func (f *Frame) Target() materializer.Target { return f.Tgt }

func (f *Frame) RegisterContext() materializer.RegisterContext {
	return &RegisterContext{Regs: f.Ctx, Names: f.Regs, Order: f.Tgt.Order}
}

// RegisterContext adapts emulator.RegisterContext (raw uint64-valued
// registers keyed by emulator.Reg) to materializer's byte-slice-valued,
// name-keyed RegisterContext. Names is owned by whoever builds the Frame —
// it's the same register-numbering convention an internal/debugger
// ArchConfig (built by debugger/generic) declares.
type RegisterContext struct {
	Regs  emulator.RegisterContext
	Names map[string]emulator.Reg
	Order materializer.ByteOrder
}

func (rc *RegisterContext) ReadRegister(info *materializer.RegisterInfo) (materializer.RegisterValue, error) {
	reg, ok := rc.Names[info.Name]
	if !ok {
		return materializer.RegisterValue{}, fmt.Errorf("microdbg: unknown register %q", info.Name)
	}
	v, err := rc.Regs.RegRead(reg)
	if err != nil {
		return materializer.RegisterValue{}, err
	}
	buf := make([]byte, 8)
	putUint(buf, v, rc.Order)
	bytes := buf
	if info.ByteSize <= 8 {
		if rc.Order == materializer.BigEndian {
			bytes = buf[8-info.ByteSize:]
		} else {
			bytes = buf[:info.ByteSize]
		}
	}
	return materializer.RegisterValue{Bytes: append([]byte(nil), bytes...), Order: rc.Order}, nil
}

func (rc *RegisterContext) WriteRegister(info *materializer.RegisterInfo, val materializer.RegisterValue) error {
	reg, ok := rc.Names[info.Name]
	if !ok {
		return fmt.Errorf("microdbg: unknown register %q", info.Name)
	}
	return rc.Regs.RegWrite(reg, readUint(val.Bytes, rc.Order))
}
