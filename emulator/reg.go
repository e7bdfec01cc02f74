package emulator

// Reg identifies a CPU register in an architecture-specific numbering
// scheme; the numbering is owned by whatever concrete Emulator is in use.
type Reg int
