package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/mipsim/insts"
)

// ErrUnknownFunction is returned for R-type function codes the ALU cannot
// perform.
var ErrUnknownFunction = errors.New("unknown function code")

// ALUOp is the coarse operation class chosen by decode.
type ALUOp uint8

// ALU operation classes.
const (
	ALUOpR ALUOp = iota // resolved from the function code
	ALUOpAND
	ALUOpOR
	ALUOpADD
	ALUOpSUB
	ALUOpUPPER
	ALUOpXOR
	ALUOpSLT
	ALUOpSLTU
	ALUOpSpecial2 // resolved from the SPECIAL2 function code
)

// ALUFunc is an operation the ALU performs.
type ALUFunc uint8

// ALU functions.
const (
	ALUAnd ALUFunc = iota
	ALUOr
	ALUAdd
	ALUSlt
	ALUSll
	ALUSrl
	ALUSra
	ALUUpper
	ALUXor
	ALUAddS
	ALUMul
	ALUDiv
	ALUSltu
	ALUMulu
	ALUDivu
)

// ShiftSource selects how shift operands are routed.
type ShiftSource uint8

// Shift routings.
const (
	ShiftNone     ShiftSource = iota
	ShiftImmed                // value from rt, amount from shamt
	ShiftVariable             // value from rt, amount from rs
)

// ALUControl is the fully resolved ALU configuration.
type ALUControl struct {
	InvertA bool
	InvertB bool
	Func    ALUFunc
	Shift   ShiftSource
}

var rTypeControls = map[uint32]ALUControl{
	insts.FunctADD:     {Func: ALUAdd},
	insts.FunctADDU:    {Func: ALUAdd},
	insts.FunctSUB:     {InvertB: true, Func: ALUAdd},
	insts.FunctSUBU:    {InvertB: true, Func: ALUAdd},
	insts.FunctAND:     {Func: ALUAnd},
	insts.FunctOR:      {Func: ALUOr},
	insts.FunctXOR:     {Func: ALUXor},
	insts.FunctNOR:     {InvertA: true, InvertB: true, Func: ALUAnd},
	insts.FunctSLT:     {Func: ALUSlt},
	insts.FunctSLTU:    {Func: ALUSltu},
	insts.FunctSLL:     {Func: ALUSll, Shift: ShiftImmed},
	insts.FunctSRL:     {Func: ALUSrl, Shift: ShiftImmed},
	insts.FunctSRA:     {Func: ALUSra, Shift: ShiftImmed},
	insts.FunctSLLV:    {Func: ALUSll, Shift: ShiftVariable},
	insts.FunctSRLV:    {Func: ALUSrl, Shift: ShiftVariable},
	insts.FunctSRAV:    {Func: ALUSra, Shift: ShiftVariable},
	insts.FunctJR:      {Func: ALUAdd},
	insts.FunctSyscall: {Func: ALUAdd},
	insts.FunctMFHI:    {Func: ALUAdd},
	insts.FunctMFLO:    {Func: ALUAdd},
	insts.FunctADDS:    {Func: ALUAddS},
	insts.FunctMULT:    {Func: ALUMul},
	insts.FunctMULTU:   {Func: ALUMulu},
	insts.FunctDIV:     {Func: ALUDiv},
	insts.FunctDIVU:    {Func: ALUDivu},
}

var immControls = map[ALUOp]ALUControl{
	ALUOpAND:   {Func: ALUAnd},
	ALUOpOR:    {Func: ALUOr},
	ALUOpADD:   {Func: ALUAdd},
	ALUOpSUB:   {InvertB: true, Func: ALUAdd},
	ALUOpUPPER: {Func: ALUUpper},
	ALUOpXOR:   {Func: ALUXor},
	ALUOpSLT:   {Func: ALUSlt},
	ALUOpSLTU:  {Func: ALUSltu},
}

// ResolveALUControl maps an operation class and function code to an ALU
// configuration.
func ResolveALUControl(op ALUOp, funct uint32) (ALUControl, error) {
	switch op {
	case ALUOpR:
		if c, ok := rTypeControls[funct]; ok {
			return c, nil
		}
	case ALUOpSpecial2:
		if funct == insts.FunctMUL {
			return ALUControl{Func: ALUMul}, nil
		}
	default:
		if c, ok := immControls[op]; ok {
			return c, nil
		}

		return ALUControl{}, fmt.Errorf("%w: ALU op %d", ErrUnknownFunction, op)
	}

	return ALUControl{}, fmt.Errorf("%w: 0x%02x", ErrUnknownFunction, funct)
}

// ALU computes a result pair. Inverted operands of an add are negated, so
// subtraction is an add with InvertB.
func ALU(a, b uint32, c ALUControl) (lo, hi uint32) {
	if c.Func == ALUAdd {
		if c.InvertA {
			a = -a
		}

		if c.InvertB {
			b = -b
		}
	} else {
		if c.InvertA {
			a = ^a
		}

		if c.InvertB {
			b = ^b
		}
	}

	switch c.Func {
	case ALUAnd:
		return a & b, 0
	case ALUOr:
		return a | b, 0
	case ALUXor:
		return a ^ b, 0
	case ALUAdd:
		return a + b, 0
	case ALUSll:
		return a << (b & 31), 0
	case ALUSrl:
		return a >> (b & 31), 0
	case ALUSra:
		return uint32(int32(a) >> (b & 31)), 0
	case ALUUpper:
		return b << 16, 0
	case ALUSlt:
		return boolWord(int32(a) < int32(b)), 0
	case ALUSltu:
		return boolWord(a < b), 0
	case ALUMul:
		p := uint64(int64(int32(a)) * int64(int32(b)))
		return uint32(p), uint32(p >> 32)
	case ALUMulu:
		p := uint64(a) * uint64(b)
		return uint32(p), uint32(p >> 32)
	case ALUDiv:
		return divSigned(a, b)
	case ALUDivu:
		if b == 0 {
			return 0, a
		}

		return a / b, a % b
	case ALUAddS:
		f := math.Float32frombits(a) + math.Float32frombits(b)
		return math.Float32bits(f), 0
	}

	return 0, 0
}

// divSigned divides with Go's truncating semantics. Division by zero
// yields quotient 0 and the dividend as remainder.
func divSigned(a, b uint32) (uint32, uint32) {
	x, y := int32(a), int32(b)

	switch {
	case y == 0:
		return 0, a
	case x == math.MinInt32 && y == -1:
		return a, 0
	}

	return uint32(x / y), uint32(x % y)
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}

	return 0
}
