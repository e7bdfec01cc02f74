package microdbg

import (
	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/loader"
	"github.com/wnxd/microdbg/materializer"
)

// Symbol adapts a name resolvable against a loaded, relocated
// debugger.Module (load address) and/or an unrelocated loader.Module (file
// address fallback) to materializer.SymbolRecord.
type Symbol struct {
	SymbolName string
	Module     debugger.Module
	FileModule loader.Module
}

func (s *Symbol) Name() string { return s.SymbolName }

func (s *Symbol) LoadAddress(materializer.Target) (uint64, bool) {
	if s.Module == nil {
		return 0, false
	}
	addr, err := s.Module.FindSymbol(s.SymbolName)
	if err != nil {
		return 0, false
	}
	return addr, true
}

func (s *Symbol) FileAddress() uint64 {
	if s.FileModule == nil {
		return 0
	}
	addr, err := s.FileModule.FindSymbol(s.SymbolName)
	if err != nil {
		return 0
	}
	return addr
}
