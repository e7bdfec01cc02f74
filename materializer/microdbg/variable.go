package microdbg

import (
	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/materializer"
)

// Variable describes a frame-local value. The host carries no DWARF/AST
// layer (symbol and type resolution are explicitly out of scope for this
// repository, same as for the materializer itself), so a Variable is simply
// an inferior address the caller already resolved, plus the declared type
// the layout engine needs.
type Variable struct {
	Dbg       debugger.Debugger
	Addr      uint64
	HasAddr   bool
	Reference bool
	ValueType materializer.ValueType
}

func (v *Variable) Resolve(frame materializer.Frame, scope materializer.ExecutionScope) (materializer.ValueObject, error) {
	return &ValueObject{Dbg: v.Dbg, Addr: v.Addr, HasAddr: v.HasAddr, Size: v.ValueType.ByteSize}, nil
}

func (v *Variable) IsReference() bool            { return v.Reference }
func (v *Variable) Type() materializer.ValueType { return v.ValueType }

// ValueObject adapts a live inferior memory location to
// materializer.ValueObject.
type ValueObject struct {
	Dbg     debugger.Debugger
	Addr    uint64
	HasAddr bool
	Size    uint64
}

func (v *ValueObject) Data() ([]byte, error) {
	return v.Dbg.ToPointer(v.Addr).MemRead(v.Size)
}

func (v *ValueObject) SetData(data []byte) error {
	return v.Dbg.ToPointer(v.Addr).MemWrite(data)
}

func (v *ValueObject) AddressOf() (uint64, bool) { return v.Addr, v.HasAddr }
func (v *ValueObject) ByteSize() uint64          { return v.Size }
func (v *ValueObject) ValueUpdated()             {}
