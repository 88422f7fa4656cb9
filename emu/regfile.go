// Package emu provides the architectural state of the simulated MIPS machine:
// the register file, byte-addressable memory and the syscall dispatcher.
package emu

import "github.com/sarchlab/mipsim/insts"

// RegFile holds every architectural register: 32 integer registers, 32 float
// registers, HI and LO. Storage is indexed by insts.Register so index order
// and name order agree.
type RegFile struct {
	regs [insts.NumRegisters]uint32
}

// NamedValue is a register name paired with its value.
type NamedValue struct {
	Name  string
	Value uint32
}

// NewRegFile creates a register file with $sp at the stack base.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()

	return r
}

// Reset zeroes every register and points $sp at the stack base.
func (r *RegFile) Reset() {
	r.regs = [insts.NumRegisters]uint32{}
	r.regs[insts.SP] = StackBase
}

// Get reads a register. $zero and registers outside the file read as 0.
func (r *RegFile) Get(reg insts.Register) uint32 {
	if reg == insts.Zero || int(reg) >= insts.NumRegisters {
		return 0
	}

	return r.regs[reg]
}

// Set writes a register. Writes to $zero and unknown registers are ignored.
func (r *RegFile) Set(reg insts.Register, value uint32) {
	if reg == insts.Zero || int(reg) >= insts.NumRegisters {
		return
	}

	r.regs[reg] = value
}

// ByIndex returns the register at position i in file order.
func (r *RegFile) ByIndex(i int) (NamedValue, bool) {
	if i < 0 || i >= insts.NumRegisters {
		return NamedValue{}, false
	}

	reg := insts.Register(i)

	return NamedValue{Name: reg.String(), Value: r.Get(reg)}, true
}

// Snapshot returns every register in file order.
func (r *RegFile) Snapshot() []NamedValue {
	out := make([]NamedValue, 0, insts.NumRegisters)
	for i := 0; i < insts.NumRegisters; i++ {
		nv, _ := r.ByIndex(i)
		out = append(out, nv)
	}

	return out
}
