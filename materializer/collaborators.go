package materializer

// Perm is a memory permission bitmask passed to MemoryMap.Malloc.
type Perm int

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// AllocPolicy selects how a MemoryMap-backed allocation is kept in sync
// between host and inferior. Mirror is the only policy this package uses;
// others exist only for interface completeness with a real IRMemoryMap.
type AllocPolicy int

const (
	AllocPolicyMirror AllocPolicy = iota
	AllocPolicyTarget
)

// ByteOrder is the inferior's byte order, as reported by the memory map.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// MemoryMap is the black-box IRMemoryMap collaborator: malloc/free/read/write
// in the inferior's address space, plus the handful of typed helpers entities
// need to move pointers and scalars without hand-rolling byte order.
type MemoryMap interface {
	Malloc(size, align uint64, perm Perm, policy AllocPolicy) (uint64, error)
	Free(addr uint64) error
	ReadMemory(dest []byte, addr uint64) error
	WriteMemory(addr uint64, src []byte) error
	ReadPointer(addr uint64) (uint64, error)
	WritePointer(addr, ptr uint64) error
	WriteScalar(addr uint64, scalar uint64, byteCount int) error
	GetBestExecutionScope() ExecutionScope
	ByteOrder() ByteOrder
	AddressByteSize() int
}

// ExecutionScope yields the Target that a symbol or result is resolved
// against. A Frame is also an ExecutionScope.
type ExecutionScope interface {
	Target() Target
}

// Target owns the persistent-variable store and can tell a load address
// from a file address.
type Target interface {
	PersistentStore() PersistentStore
	IsLoadAddress(addr uint64) bool
}

// PersistentStore mints names for new persistent variables and creates the
// records that back them.
type PersistentStore interface {
	NextPersistentVariableName() string
	CreateVariable(scope ExecutionScope, name string, typ ValueType, order ByteOrder, addrSize int) *PersistentVariableRecord
}

// Frame is the stack-frame collaborator: register access plus, since a
// frame always belongs to some target, an ExecutionScope.
type Frame interface {
	ExecutionScope
	RegisterContext() RegisterContext
}

// RegisterContext reads and writes whole registers by descriptor.
type RegisterContext interface {
	ReadRegister(info *RegisterInfo) (RegisterValue, error)
	WriteRegister(info *RegisterInfo, value RegisterValue) error
}

// RegisterInfo names a register and its width; it is the only thing a
// RegisterEntity needs to know about the register it stages.
type RegisterInfo struct {
	Name     string
	ByteSize uint64
}

// RegisterValue is the raw bytes of a register, as read from or about to be
// written to a RegisterContext.
type RegisterValue struct {
	Bytes []byte
	Order ByteOrder
}

// ValueType is the subset of a compiler's type information the layout
// engine and the local/result entities need: how many bytes the value
// occupies and its required bit alignment.
type ValueType struct {
	ByteSize uint64
	BitAlign uint32
}

// ValueObject is a live program value resolved from a frame: a local
// variable, a dereferenced reference, or similar.
type ValueObject interface {
	Data() ([]byte, error)
	SetData(data []byte) error
	AddressOf() (addr uint64, ok bool)
	ByteSize() uint64
	ValueUpdated()
}

// VariableDescriptor identifies a frame-local variable and knows how to
// resolve it to a live ValueObject.
type VariableDescriptor interface {
	Resolve(frame Frame, scope ExecutionScope) (ValueObject, error)
	IsReference() bool
	Type() ValueType
}

// SymbolRecord identifies an externally-visible symbol.
type SymbolRecord interface {
	Name() string
	LoadAddress(target Target) (addr uint64, ok bool)
	FileAddress() uint64
}

// executionScope implements the "frame may be null, in which case the
// memory map's scope is used where legal" rule shared by several entities.
func executionScope(frame Frame, mm MemoryMap) ExecutionScope {
	if frame != nil {
		return frame
	}
	return mm.GetBestExecutionScope()
}
