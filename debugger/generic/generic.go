// Package generic registers a single architecture-parametric debugger
// backend for every supported Arch, replacing what used to be one hand
// written package per architecture (debugger/arm, debugger/arm64). The
// register numbering below is a convention owned by this module, not a
// real ISA encoding: whatever concrete emulator.Emulator is plugged in
// (a hardware single-step backend, a CPU emulator, or a test fake) is
// free to interpret Reg values however it likes, as long as it agrees
// with the numbering a given ArchConfig declares.
package generic

import (
	"github.com/wnxd/microdbg/debugger"
	"github.com/wnxd/microdbg/emulator"
	internal "github.com/wnxd/microdbg/internal/debugger"
)

// Register indices shared by the preset configs below: PC, SP, LR, then up
// to eight integer argument registers.
const (
	RegPC Reg = iota
	RegSP
	RegLR
	RegArg0
	RegArg1
	RegArg2
	RegArg3
	RegArg4
	RegArg5
	RegArg6
	RegArg7
)

type Reg = emulator.Reg

var argRegs = []emulator.Reg{RegArg0, RegArg1, RegArg2, RegArg3, RegArg4, RegArg5, RegArg6, RegArg7}

// Config64 is the preset for any 64-bit, 8 integer-argument-register
// architecture (ARM64, x86-64 with a System-V-shaped convention).
func Config64(arch emulator.Arch) internal.ArchConfig {
	return internal.ArchConfig{
		Arch:           arch,
		PointerSize:    8,
		StackAlignment: 16,
		StackSize:      0x4000,
		PC:             RegPC,
		SP:             RegSP,
		LR:             RegLR,
		ArgRegs:        argRegs,
	}
}

// Config32 is the preset for any 32-bit, 4 integer-argument-register
// architecture (ARM, x86 with a fastcall-shaped convention).
func Config32(arch emulator.Arch) internal.ArchConfig {
	return internal.ArchConfig{
		Arch:           arch,
		PointerSize:    4,
		StackAlignment: 8,
		StackSize:      0x4000,
		PC:             RegPC,
		SP:             RegSP,
		LR:             RegLR,
		ArgRegs:        argRegs[:4],
	}
}

func init() {
	debugger.Register(emulator.ARCH_ARM64, internal.NewGenericDebugger(Config64(emulator.ARCH_ARM64)))
	debugger.Register(emulator.ARCH_X86_64, internal.NewGenericDebugger(Config64(emulator.ARCH_X86_64)))
	debugger.Register(emulator.ARCH_ARM, internal.NewGenericDebugger(Config32(emulator.ARCH_ARM)))
	debugger.Register(emulator.ARCH_X86, internal.NewGenericDebugger(Config32(emulator.ARCH_X86)))
}
