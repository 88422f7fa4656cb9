package asm

import (
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// format describes the operand layout of a machine instruction.
type format uint8

const (
	fmtR3       format = iota // rd, rs, rt
	fmtShift                  // rd, rt, shamt
	fmtShiftV                 // rd, rt, rs
	fmtMulDiv                 // rs, rt
	fmtMoveFrom               // rd
	fmtJR                     // rs
	fmtNone                   // no operands
	fmtFloat3                 // fd, fs, ft
	fmtArithI                 // rt, rs, signed imm
	fmtLogicI                 // rt, rs, 16-bit imm
	fmtLUI                    // rt, imm
	fmtMem                    // rt, offset(rs)
	fmtFloatMem               // ft, offset(rs)
	fmtBranch                 // rs, rt, target
	fmtJump                   // target
)

var operandCounts = map[format]int{
	fmtR3: 3, fmtShift: 3, fmtShiftV: 3, fmtMulDiv: 2, fmtMoveFrom: 1,
	fmtJR: 1, fmtNone: 0, fmtFloat3: 3, fmtArithI: 3, fmtLogicI: 3,
	fmtLUI: 2, fmtMem: 2, fmtFloatMem: 2, fmtBranch: 3, fmtJump: 1,
}

type opcodeInfo struct {
	format format
	op     uint32
	funct  uint32
}

var opcodes = map[string]opcodeInfo{
	"add":     {fmtR3, insts.OpSpecial, insts.FunctADD},
	"addu":    {fmtR3, insts.OpSpecial, insts.FunctADDU},
	"sub":     {fmtR3, insts.OpSpecial, insts.FunctSUB},
	"subu":    {fmtR3, insts.OpSpecial, insts.FunctSUBU},
	"and":     {fmtR3, insts.OpSpecial, insts.FunctAND},
	"or":      {fmtR3, insts.OpSpecial, insts.FunctOR},
	"xor":     {fmtR3, insts.OpSpecial, insts.FunctXOR},
	"nor":     {fmtR3, insts.OpSpecial, insts.FunctNOR},
	"slt":     {fmtR3, insts.OpSpecial, insts.FunctSLT},
	"sltu":    {fmtR3, insts.OpSpecial, insts.FunctSLTU},
	"sll":     {fmtShift, insts.OpSpecial, insts.FunctSLL},
	"srl":     {fmtShift, insts.OpSpecial, insts.FunctSRL},
	"sra":     {fmtShift, insts.OpSpecial, insts.FunctSRA},
	"sllv":    {fmtShiftV, insts.OpSpecial, insts.FunctSLLV},
	"srlv":    {fmtShiftV, insts.OpSpecial, insts.FunctSRLV},
	"srav":    {fmtShiftV, insts.OpSpecial, insts.FunctSRAV},
	"mult":    {fmtMulDiv, insts.OpSpecial, insts.FunctMULT},
	"multu":   {fmtMulDiv, insts.OpSpecial, insts.FunctMULTU},
	"div":     {fmtMulDiv, insts.OpSpecial, insts.FunctDIV},
	"divu":    {fmtMulDiv, insts.OpSpecial, insts.FunctDIVU},
	"mfhi":    {fmtMoveFrom, insts.OpSpecial, insts.FunctMFHI},
	"mflo":    {fmtMoveFrom, insts.OpSpecial, insts.FunctMFLO},
	"jr":      {fmtJR, insts.OpSpecial, insts.FunctJR},
	"syscall": {fmtNone, insts.OpSpecial, insts.FunctSyscall},
	"add.s":   {fmtFloat3, insts.OpSpecial, insts.FunctADDS},
	"mul":     {fmtR3, insts.OpSpecial2, insts.FunctMUL},
	"addi":    {fmtArithI, insts.OpADDI, 0},
	"addiu":   {fmtArithI, insts.OpADDIU, 0},
	"slti":    {fmtArithI, insts.OpSLTI, 0},
	"sltiu":   {fmtArithI, insts.OpSLTIU, 0},
	"andi":    {fmtLogicI, insts.OpANDI, 0},
	"ori":     {fmtLogicI, insts.OpORI, 0},
	"xori":    {fmtLogicI, insts.OpXORI, 0},
	"lui":     {fmtLUI, insts.OpLUI, 0},
	"lw":      {fmtMem, insts.OpLW, 0},
	"sw":      {fmtMem, insts.OpSW, 0},
	"lb":      {fmtMem, insts.OpLB, 0},
	"lbu":     {fmtMem, insts.OpLBU, 0},
	"sb":      {fmtMem, insts.OpSB, 0},
	"lwc1":    {fmtFloatMem, insts.OpLWC1, 0},
	"swc1":    {fmtFloatMem, insts.OpSWC1, 0},
	"beq":     {fmtBranch, insts.OpBEQ, 0},
	"bne":     {fmtBranch, insts.OpBNE, 0},
	"j":       {fmtJump, insts.OpJ, 0},
	"jal":     {fmtJump, insts.OpJAL, 0},
}

// tmpl is a machine instruction awaiting encoding.
type tmpl struct {
	mnemonic string
	args     []string
}

// encode produces the word for t placed at addr.
//
//nolint:gocyclo // one case per operand format
func encode(t tmpl, addr uint32, resolve resolver) (uint32, error) {
	info, ok := opcodes[t.mnemonic]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMnemonic, t.mnemonic)
	}

	if len(t.args) != operandCounts[info.format] {
		return 0, fmt.Errorf("%w: %s takes %d, got %d", ErrOperandCount,
			t.mnemonic, operandCounts[info.format], len(t.args))
	}

	var p operandParser

	switch info.format {
	case fmtR3:
		rd, rs, rt := p.intReg(t.args[0]), p.intReg(t.args[1]), p.intReg(t.args[2])
		return insts.EncodeR(info.op, rs, rt, rd, 0, info.funct), p.err
	case fmtShift:
		rd, rt := p.intReg(t.args[0]), p.intReg(t.args[1])
		shamt := p.expr(t.args[2], resolve)
		if p.err == nil && (shamt < 0 || shamt > 31) {
			return 0, fmt.Errorf("%w: shift amount %d", ErrOverflow, shamt)
		}

		return insts.EncodeR(info.op, insts.Zero, rt, rd, uint32(shamt), info.funct), p.err
	case fmtShiftV:
		rd, rt, rs := p.intReg(t.args[0]), p.intReg(t.args[1]), p.intReg(t.args[2])
		return insts.EncodeR(info.op, rs, rt, rd, 0, info.funct), p.err
	case fmtMulDiv:
		rs, rt := p.intReg(t.args[0]), p.intReg(t.args[1])
		return insts.EncodeR(info.op, rs, rt, insts.Zero, 0, info.funct), p.err
	case fmtMoveFrom:
		rd := p.intReg(t.args[0])

		sel := insts.Zero
		if info.funct == insts.FunctMFLO {
			sel = insts.Register(insts.HILOSelectLO)
		}

		return insts.EncodeR(info.op, sel, insts.Zero, rd, 0, info.funct), p.err
	case fmtJR:
		rs := p.intReg(t.args[0])
		return insts.EncodeR(info.op, rs, insts.Zero, insts.Zero, 0, info.funct), p.err
	case fmtNone:
		return insts.EncodeR(info.op, insts.Zero, insts.Zero, insts.Zero, 0, info.funct), nil
	case fmtFloat3:
		fd, fs, ft := p.floatReg(t.args[0]), p.floatReg(t.args[1]), p.floatReg(t.args[2])
		return insts.EncodeR(info.op, fs, ft, fd, 0, info.funct), p.err
	case fmtArithI, fmtLogicI:
		rt, rs := p.intReg(t.args[0]), p.intReg(t.args[1])
		imm := p.expr(t.args[2], resolve)
		p.check(imm, info.format == fmtArithI)

		return insts.EncodeI(info.op, rs, rt, uint32(imm)), p.err
	case fmtLUI:
		rt := p.intReg(t.args[0])
		imm := p.expr(t.args[1], resolve)
		p.check(imm, false)

		return insts.EncodeI(info.op, insts.Zero, rt, uint32(imm)), p.err
	case fmtMem, fmtFloatMem:
		var rt insts.Register
		if info.format == fmtFloatMem {
			rt = p.floatReg(t.args[0])
		} else {
			rt = p.intReg(t.args[0])
		}

		rs, off := p.memOperand(t.args[1], resolve)

		return insts.EncodeI(info.op, rs, rt, uint32(off)), p.err
	case fmtBranch:
		rs, rt := p.intReg(t.args[0]), p.intReg(t.args[1])
		target := p.expr(t.args[2], resolve)
		if p.err != nil {
			return 0, p.err
		}

		off := (int64(uint32(target)) - int64(addr) - 4) >> 2
		if uint32(target)&3 != 0 {
			return 0, fmt.Errorf("%w: branch target 0x%08x is not word aligned",
				ErrBadOperand, uint32(target))
		}

		if err := checkSigned16(off); err != nil {
			return 0, fmt.Errorf("branch to 0x%08x: %w", uint32(target), err)
		}

		return insts.EncodeI(info.op, rs, rt, uint32(off)), nil
	case fmtJump:
		target := uint32(p.expr(t.args[0], resolve))
		if p.err != nil {
			return 0, p.err
		}

		if !insts.FitsTarget(target) {
			return 0, fmt.Errorf("%w: jump target 0x%08x", ErrOverflow, target)
		}

		return insts.EncodeJ(info.op, target), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownMnemonic, t.mnemonic)
}

// operandParser accumulates the first operand error so encoders can parse
// all operands before checking.
type operandParser struct {
	err error
}

func (p *operandParser) intReg(s string) insts.Register {
	r, err := parseIntReg(s)
	p.keep(err)

	return r
}

func (p *operandParser) floatReg(s string) insts.Register {
	r, err := parseFloatReg(s)
	p.keep(err)

	return r
}

func (p *operandParser) expr(s string, resolve resolver) int64 {
	v, err := evalExpr(s, resolve)
	p.keep(err)

	return v
}

func (p *operandParser) check(v int64, signed bool) {
	if p.err != nil {
		return
	}

	if signed {
		p.keep(checkSigned16(v))
	} else {
		p.keep(checkAny16(v))
	}
}

func (p *operandParser) memOperand(s string, resolve resolver) (insts.Register, int64) {
	offset, base, ok := splitMemOperand(s)
	if !ok {
		p.keep(fmt.Errorf("%w: %q is not offset(register)", ErrBadOperand, s))
		return insts.Zero, 0
	}

	rs := p.intReg(base)

	var off int64
	if offset != "" {
		off = p.expr(offset, resolve)
		p.check(off, true)
	}

	return rs, off
}

func (p *operandParser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}
