// Package pipeline provides the 5-stage pipeline implementation for timing
// simulation.
package pipeline

import "github.com/sarchlab/mipsim/insts"

// Controls are the control signals produced by decode and carried down the
// pipeline with the instruction.
type Controls struct {
	RegDst    bool // destination is rd rather than rt
	ALUSrc    bool // operand B is the immediate
	MemToReg  bool // result comes from memory
	RegWrite  bool
	MemRead   bool
	MemWrite  bool
	Branch    bool
	BranchNot bool // branch when the ALU result is non-zero
	Jump      bool
	WordAlign bool // word access; byte access otherwise
	UseHILO   bool // result pair goes to LO/HI
	Syscall   bool
	ALUOp     ALUOp
}

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the address of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the IF/ID register to a bubble.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid           bool
	PC              uint32
	InstructionWord uint32

	// Register numbers after bank remapping.
	Rs insts.Register
	Rt insts.Register
	Rd insts.Register

	// Values read from the register file, or synthesized for jal.
	RsValue uint32
	RtValue uint32

	Imm   uint32
	Shamt uint32
	Funct uint32

	// JumpReg marks jr, whose target is the forwarded rs value.
	JumpReg bool

	Controls
}

// Clear resets the ID/EX register to a bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid           bool
	PC              uint32
	InstructionWord uint32

	// ALU result pair. Hi is only meaningful for multiply and divide.
	ALULo uint32
	ALUHi uint32
	Zero  bool

	// WriteData is the forwarded rt value, stored by store instructions.
	WriteData uint32

	WriteRegister insts.Register

	BranchPC uint32
	JumpPC   uint32

	Controls
}

// Clear resets the EX/MEM register to a bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid           bool
	PC              uint32
	InstructionWord uint32

	MemData uint32
	ALULo   uint32
	ALUHi   uint32

	WriteRegister insts.Register

	MemToReg bool
	RegWrite bool
	UseHILO  bool
	Syscall  bool
}

// Clear resets the MEM/WB register to a bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value the instruction writes to its destination.
func (r *MEMWBRegister) Result() uint32 {
	if r.MemToReg {
		return r.MemData
	}

	return r.ALULo
}

// PipelineOutput describes the instruction that retired in a cycle.
type PipelineOutput struct {
	Valid           bool
	PC              uint32
	InstructionWord uint32
	Syscall         bool
}
