package pipeline

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/cache"
)

// ErrUnrecognizedOpcode is returned when decode meets an opcode it has no
// control entry for.
var ErrUnrecognizedOpcode = errors.New("unrecognized opcode")

// FetchStage reads instruction words from memory.
type FetchStage struct {
	memory *emu.Memory
	icache *cache.Cache
}

// NewFetchStage creates a new fetch stage. icache may be nil.
func NewFetchStage(memory *emu.Memory, icache *cache.Cache) *FetchStage {
	return &FetchStage{memory: memory, icache: icache}
}

// Fetch reads the word at pc.
func (s *FetchStage) Fetch(pc uint32) (IFIDRegister, error) {
	word, err := s.memory.Read32(pc)
	if err != nil {
		return IFIDRegister{}, fmt.Errorf("fetch: %w", err)
	}

	if s.icache != nil {
		s.icache.Read(pc)
	}

	return IFIDRegister{Valid: true, PC: pc, InstructionWord: word}, nil
}

// DecodeStage decodes instructions and reads the register file.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile}
}

// Decode turns an IF/ID register into an ID/EX register. A bubble decodes
// to a bubble.
func (s *DecodeStage) Decode(ifid *IFIDRegister) (IDEXRegister, error) {
	if !ifid.Valid {
		return IDEXRegister{}, nil
	}

	inst := insts.Decode(ifid.InstructionWord)

	ctl, err := controlFor(inst)
	if err != nil {
		return IDEXRegister{}, err
	}

	rs, rt, rd := inst.Rs, inst.Rt, inst.Rd

	switch {
	case inst.Op == insts.OpSpecial && inst.Funct == insts.FunctADDS:
		rs += insts.FloatBase
		rt += insts.FloatBase
		rd += insts.FloatBase
	case inst.Op == insts.OpSpecial &&
		(inst.Funct == insts.FunctMFHI || inst.Funct == insts.FunctMFLO):
		rs += insts.HI
	case inst.Op == insts.OpLWC1 || inst.Op == insts.OpSWC1:
		rt += insts.FloatBase
	}

	idex := IDEXRegister{
		Valid:           true,
		PC:              ifid.PC,
		InstructionWord: ifid.InstructionWord,
		Rs:              rs,
		Rt:              rt,
		Rd:              rd,
		RsValue:         s.regFile.Get(rs),
		RtValue:         s.regFile.Get(rt),
		Imm:             inst.Imm,
		Shamt:           inst.Shamt,
		Funct:           inst.Funct,
		Controls:        ctl,
	}

	switch {
	case inst.Op == insts.OpJ:
		idex.Imm = inst.Target
	case inst.Op == insts.OpJAL:
		// Execute adds these to produce the return address pc+8.
		idex.Imm = inst.Target
		idex.Rs, idex.Rt, idex.Rd = insts.Zero, insts.Zero, insts.RA
		idex.RsValue, idex.RtValue = ifid.PC+4, 4
	case inst.Op == insts.OpSpecial && inst.Funct == insts.FunctJR:
		idex.Jump = true
		idex.JumpReg = true
	}

	return idex, nil
}

func rTypeControl(inst insts.Instruction) Controls {
	c := Controls{WordAlign: true, RegDst: true, RegWrite: true, ALUOp: ALUOpR}

	switch {
	case inst.Op == insts.OpSpecial2:
		c.ALUOp = ALUOpSpecial2
	case inst.IsSyscall():
		c.RegWrite, c.Syscall = false, true
	case inst.Funct == insts.FunctJR:
		c.RegWrite = false
	case inst.Funct == insts.FunctMULT, inst.Funct == insts.FunctMULTU,
		inst.Funct == insts.FunctDIV, inst.Funct == insts.FunctDIVU:
		c.RegWrite, c.UseHILO = false, true
	}

	return c
}

// controlFor is the main control unit.
//
//nolint:funlen // one case per opcode
func controlFor(inst insts.Instruction) (Controls, error) {
	if inst.IsRType() {
		return rTypeControl(inst), nil
	}

	c := Controls{WordAlign: true}

	switch inst.Op {
	case insts.OpLB, insts.OpLBU:
		c.ALUSrc, c.MemToReg, c.RegWrite, c.MemRead = true, true, true, true
		c.WordAlign, c.ALUOp = false, ALUOpADD
	case insts.OpSB:
		c.ALUSrc, c.MemWrite = true, true
		c.WordAlign, c.ALUOp = false, ALUOpADD
	case insts.OpLW, insts.OpLWC1:
		c.ALUSrc, c.MemToReg, c.RegWrite, c.MemRead = true, true, true, true
		c.ALUOp = ALUOpADD
	case insts.OpSW, insts.OpSWC1:
		c.ALUSrc, c.MemWrite, c.ALUOp = true, true, ALUOpADD
	case insts.OpADDI, insts.OpADDIU:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpADD
	case insts.OpSLTI:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpSLT
	case insts.OpSLTIU:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpSLTU
	case insts.OpANDI:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpAND
	case insts.OpORI:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpOR
	case insts.OpXORI:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpXOR
	case insts.OpLUI:
		c.ALUSrc, c.RegWrite, c.ALUOp = true, true, ALUOpUPPER
	case insts.OpBEQ:
		c.Branch, c.ALUOp = true, ALUOpSUB
	case insts.OpBNE:
		c.Branch, c.BranchNot, c.ALUOp = true, true, ALUOpSUB
	case insts.OpJ:
		c.Jump, c.ALUOp = true, ALUOpADD
	case insts.OpJAL:
		c.Jump, c.RegDst, c.RegWrite, c.ALUOp = true, true, true, ALUOpADD
	default:
		return Controls{}, fmt.Errorf("%w: 0x%02x", ErrUnrecognizedOpcode, inst.Op)
	}

	return c, nil
}

// ExecuteStage runs the ALU with forwarded operands.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// ExecuteResult is the EX/MEM register produced by Execute plus which
// operands were forwarded.
type ExecuteResult struct {
	EXMEM     EXMEMRegister
	ForwardRs ForwardSource
	ForwardRt ForwardSource
}

// Execute computes the ALU result and branch/jump targets of idex.
func (s *ExecuteStage) Execute(idex *IDEXRegister, fwd ForwardingUnit) (ExecuteResult, error) {
	if !idex.Valid {
		return ExecuteResult{}, nil
	}

	ctl, err := ResolveALUControl(idex.ALUOp, idex.Funct)
	if err != nil {
		return ExecuteResult{}, err
	}

	arg1, srcRs := fwd.Resolve(idex.Rs, idex.RsValue)
	arg2, srcRt := fwd.Resolve(idex.Rt, idex.RtValue)
	storeData := arg2

	jumpPC := idex.Imm << 2
	if idex.JumpReg {
		jumpPC = arg1 &^ 3
	}

	if idex.ALUSrc {
		arg2 = idex.Imm
	}

	switch ctl.Shift {
	case ShiftImmed:
		arg1, arg2 = arg2, idex.Shamt
	case ShiftVariable:
		arg1, arg2 = arg2, arg1&31
	}

	lo, hi := ALU(arg1, arg2, ctl)

	dest := idex.Rt
	if idex.RegDst {
		dest = idex.Rd
	}

	return ExecuteResult{
		EXMEM: EXMEMRegister{
			Valid:           true,
			PC:              idex.PC,
			InstructionWord: idex.InstructionWord,
			ALULo:           lo,
			ALUHi:           hi,
			Zero:            lo == 0,
			WriteData:       storeData,
			WriteRegister:   dest,
			BranchPC:        idex.PC + 4 + insts.SignExtend16(idex.Imm)<<2,
			JumpPC:          jumpPC,
			Controls:        idex.Controls,
		},
		ForwardRs: srcRs,
		ForwardRt: srcRt,
	}, nil
}

// MemoryStage performs loads and stores and resolves control flow.
type MemoryStage struct {
	memory *emu.Memory
	dcache *cache.Cache
}

// NewMemoryStage creates a new memory stage. dcache may be nil.
func NewMemoryStage(memory *emu.Memory, dcache *cache.Cache) *MemoryStage {
	return &MemoryStage{memory: memory, dcache: dcache}
}

// MemoryResult is the MEM/WB register plus any control-flow redirect.
type MemoryResult struct {
	MEMWB    MEMWBRegister
	Redirect bool
	Target   uint32
}

// Access performs the memory operation of exmem.
func (s *MemoryStage) Access(exmem *EXMEMRegister) (MemoryResult, error) {
	if !exmem.Valid {
		return MemoryResult{}, nil
	}

	addr := exmem.ALULo

	var data uint32

	var err error

	switch {
	case exmem.MemWrite && exmem.WordAlign:
		err = s.memory.Write32(addr, exmem.WriteData)
	case exmem.MemWrite:
		err = s.memory.Write8(addr, byte(exmem.WriteData))
	case exmem.MemRead && exmem.WordAlign:
		data, err = s.memory.Read32(addr)
	case exmem.MemRead:
		var b byte
		b, err = s.memory.Read8(addr)
		data = uint32(b)
	}

	if err != nil {
		return MemoryResult{}, fmt.Errorf("memory access: %w", err)
	}

	if s.dcache != nil {
		switch {
		case exmem.MemWrite:
			s.dcache.Write(addr)
		case exmem.MemRead:
			s.dcache.Read(addr)
		}
	}

	result := MemoryResult{
		MEMWB: MEMWBRegister{
			Valid:           true,
			PC:              exmem.PC,
			InstructionWord: exmem.InstructionWord,
			MemData:         data,
			ALULo:           exmem.ALULo,
			ALUHi:           exmem.ALUHi,
			WriteRegister:   exmem.WriteRegister,
			MemToReg:        exmem.MemToReg,
			RegWrite:        exmem.RegWrite,
			UseHILO:         exmem.UseHILO,
			Syscall:         exmem.Syscall,
		},
	}

	switch {
	case exmem.Jump:
		result.Redirect, result.Target = true, exmem.JumpPC
	case exmem.Branch && exmem.Zero != exmem.BranchNot:
		result.Redirect, result.Target = true, exmem.BranchPC
	}

	return result, nil
}

// WritebackStage writes results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback retires memwb.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) PipelineOutput {
	if !memwb.Valid {
		return PipelineOutput{}
	}

	switch {
	case memwb.RegWrite:
		s.regFile.Set(memwb.WriteRegister, memwb.Result())
	case memwb.UseHILO:
		s.regFile.Set(insts.LO, memwb.ALULo)
		s.regFile.Set(insts.HI, memwb.ALUHi)
	}

	return PipelineOutput{
		Valid:           true,
		PC:              memwb.PC,
		InstructionWord: memwb.InstructionWord,
		Syscall:         memwb.Syscall,
	}
}
