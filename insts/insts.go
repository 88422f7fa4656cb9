// Package insts provides MIPS instruction definitions, field extraction and
// encoding.
//
// Every instruction is a 32-bit word laid out as:
//
//	R-type: op(31-26) rs(25-21) rt(20-16) rd(15-11) shamt(10-6) funct(5-0)
//	I-type: op(31-26) rs(25-21) rt(20-16) imm(15-0)
//	J-type: op(31-26) target(25-0)
//
// Usage:
//
//	word := insts.EncodeR(insts.OpSpecial, insts.T1, insts.T2, insts.T0, 0, insts.FunctADD)
//	inst := insts.Decode(word) // add $t0, $t1, $t2
//	fmt.Printf("rd=%v rs=%v rt=%v\n", inst.Rd, inst.Rs, inst.Rt)
package insts

// Opcode values (bits 31-26).
const (
	OpSpecial  uint32 = 0x00
	OpJ        uint32 = 0x02
	OpJAL      uint32 = 0x03
	OpBEQ      uint32 = 0x04
	OpBNE      uint32 = 0x05
	OpADDI     uint32 = 0x08
	OpADDIU    uint32 = 0x09
	OpSLTI     uint32 = 0x0a
	OpSLTIU    uint32 = 0x0b
	OpANDI     uint32 = 0x0c
	OpORI      uint32 = 0x0d
	OpXORI     uint32 = 0x0e
	OpLUI      uint32 = 0x0f
	OpSpecial2 uint32 = 0x1c
	OpLB       uint32 = 0x20
	OpLW       uint32 = 0x23
	OpLBU      uint32 = 0x24
	OpSB       uint32 = 0x28
	OpSW       uint32 = 0x2b
	OpLWC1     uint32 = 0x31
	OpSWC1     uint32 = 0x39
)

// Function codes (bits 5-0) of opcode OpSpecial.
const (
	FunctSLL     uint32 = 0x00
	FunctSRL     uint32 = 0x02
	FunctSRA     uint32 = 0x03
	FunctSLLV    uint32 = 0x04
	FunctSRLV    uint32 = 0x06
	FunctSRAV    uint32 = 0x07
	FunctJR      uint32 = 0x08
	FunctSyscall uint32 = 0x0c
	FunctMFHI    uint32 = 0x10
	FunctADDS    uint32 = 0x11 // add.s, operands in the float bank
	FunctMFLO    uint32 = 0x12
	FunctMULT    uint32 = 0x18
	FunctMULTU   uint32 = 0x19
	FunctDIV     uint32 = 0x1a
	FunctDIVU    uint32 = 0x1b
	FunctADD     uint32 = 0x20
	FunctADDU    uint32 = 0x21
	FunctSUB     uint32 = 0x22
	FunctSUBU    uint32 = 0x23
	FunctAND     uint32 = 0x24
	FunctOR      uint32 = 0x25
	FunctXOR     uint32 = 0x26
	FunctNOR     uint32 = 0x27
	FunctSLT     uint32 = 0x2a
	FunctSLTU    uint32 = 0x2b
)

// FunctMUL is the function code of mul under OpSpecial2.
const FunctMUL uint32 = 0x02

// HILOSelectLO is the rs field value that makes a move-from instruction read
// LO. A zero rs field reads HI.
const HILOSelectLO uint32 = 1

// Guard words written after the last program instruction. The first loads
// the kernel sentinel into $v0 (ori sign-extends its immediate) and the
// second traps it.
const (
	GuardSentinelWord uint32 = 0x3402DEAD
	GuardSyscallWord  uint32 = 0x0000000C
)

// KernelSentinel is the value of $v0 after the first guard word executes.
const KernelSentinel uint32 = 0xFFFFDEAD

// NOP is the canonical no-op word, sll $zero, $zero, 0.
const NOP uint32 = 0x00000000
