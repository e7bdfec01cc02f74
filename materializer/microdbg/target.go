package microdbg

import (
	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/materializer"
)

// Target binds a debugger.Debugger and a persistent-variable store into a
// materializer.Target. IsLoadAddress is answered by asking the emulator
// whether the address lies in a presently mapped region: a load address is
// one the inferior has actually relocated into live memory, while a file
// address (read straight out of an unrelocated loader.Module) essentially
// never collides with a live mapping.
type Target struct {
	Dbg   debugger.Debugger
	Store materializer.PersistentStore
	Order materializer.ByteOrder
}

func (t *Target) PersistentStore() materializer.PersistentStore { return t.Store }

func (t *Target) IsLoadAddress(addr uint64) bool {
	regions, err := t.Dbg.Emulator().MemRegions()
	if err != nil {
		return false
	}
	for _, r := range regions {
		if addr >= r.Addr && addr-r.Addr < r.Size {
			return true
		}
	}
	return false
}
