// Package expr is a minimal expression-evaluation harness built on
// materializer and the debugger host: it owns the $-variable store the
// materializer needs a collaborator for, and an Evaluator that runs the
// materialize -> execute -> dematerialize cycle against an
// already-compiled entry address. Parsing an expression string and
// generating the code at that address are out of scope here, same as for
// materializer itself.
package expr

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/wnxd/microdbg/debugger"
)

// Config holds the Evaluator's tunables. The zero value is not valid;
// use DefaultConfig or LoadConfig.
type Config struct {
	// StackSize is loaded from stack_size. Evaluator.Run does not read it:
	// the task it forks runs on the main task's stack.
	StackSize uint64 `toml:"stack_size"`
	// ArgumentStructAlign is the alignment the Evaluator rounds an argument
	// struct's allocation up to. This is independent of the layout
	// engine's own struct_alignment quirk (materializer/layout.go), which
	// only ever reflects the first appended entity's alignment.
	ArgumentStructAlign uint64 `toml:"argument_struct_align"`
	// DefaultCallingName names a calling convention, resolved by LoadConfig
	// and returned by DefaultCalling. Evaluator.Run makes no helper calls
	// and does not read it.
	DefaultCallingName string `toml:"default_calling"`

	defaultCalling debugger.Calling
}

// DefaultCalling returns the resolved calling convention named by
// DefaultCallingName.
func (c Config) DefaultCalling() debugger.Calling { return c.defaultCalling }

// DefaultConfig returns the Config an Evaluator gets when no TOML file is
// supplied.
func DefaultConfig() Config {
	cfg := Config{
		StackSize:           0x4000,
		ArgumentStructAlign: 8,
		DefaultCallingName:  "default",
	}
	cfg.defaultCalling = debugger.Calling_Default
	return cfg
}

// LoadConfig reads path as TOML over DefaultConfig, then resolves
// DefaultCallingName into a debugger.Calling.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("expr: loading config: %w", err)
	}
	calling, err := parseCalling(cfg.DefaultCallingName)
	if err != nil {
		return Config{}, err
	}
	cfg.defaultCalling = calling
	return cfg, nil
}

func parseCalling(name string) (debugger.Calling, error) {
	switch name {
	case "", "default":
		return debugger.Calling_Default, nil
	case "cdecl":
		return debugger.Calling_Cdecl, nil
	case "stdcall":
		return debugger.Calling_Stdcall, nil
	case "fastcall":
		return debugger.Calling_Fastcall, nil
	default:
		return 0, fmt.Errorf("expr: unknown calling convention %q", name)
	}
}
