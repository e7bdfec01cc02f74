package emulator

import "io"

type HookType int

const (
	HOOK_TYPE_INTR HookType = 1 << iota
	HOOK_TYPE_INSN_INVALID
	HOOK_TYPE_CODE
	HOOK_TYPE_BLOCK
	HOOK_TYPE_MEM_READ
	HOOK_TYPE_MEM_WRITE
	HOOK_TYPE_MEM_FETCH
	HOOK_TYPE_MEM_READ_AFTER
	HOOK_TYPE_MEM_READ_UNMAPPED
	HOOK_TYPE_MEM_WRITE_UNMAPPED
	HOOK_TYPE_MEM_FETCH_UNMAPPED
	HOOK_TYPE_MEM_READ_PROT
	HOOK_TYPE_MEM_WRITE_PROT
	HOOK_TYPE_MEM_FETCH_PROT

	HOOK_TYPE_MEM_VALID   = HOOK_TYPE_MEM_READ | HOOK_TYPE_MEM_WRITE | HOOK_TYPE_MEM_FETCH
	HOOK_TYPE_MEM_INVALID = HOOK_TYPE_MEM_READ_UNMAPPED | HOOK_TYPE_MEM_WRITE_UNMAPPED | HOOK_TYPE_MEM_FETCH_UNMAPPED |
		HOOK_TYPE_MEM_READ_PROT | HOOK_TYPE_MEM_WRITE_PROT | HOOK_TYPE_MEM_FETCH_PROT
)

// Hook is a live callback registration returned by Emulator.Hook; closing it
// unregisters the callback.
type Hook interface {
	io.Closer
}
