package insts

// Instruction holds the raw fields of a 32-bit instruction word. Fields are
// extracted without regard to format; the opcode decides which ones matter.
type Instruction struct {
	Word   uint32
	Op     uint32
	Rs     Register
	Rt     Register
	Rd     Register
	Shamt  uint32
	Funct  uint32
	Imm    uint32 // low 16 bits, sign-extended
	Target uint32 // low 26 bits
}

// Field masks.
const (
	functMask  = 0x3f
	regMask    = 0x1f
	immMask    = 0xffff
	targetMask = 0x03ffffff
)

// Decode extracts the fields of an instruction word.
func Decode(word uint32) Instruction {
	return Instruction{
		Word:   word,
		Op:     word >> 26,
		Rs:     Register((word >> 21) & regMask),
		Rt:     Register((word >> 16) & regMask),
		Rd:     Register((word >> 11) & regMask),
		Shamt:  (word >> 6) & regMask,
		Funct:  word & functMask,
		Imm:    SignExtend16(word & immMask),
		Target: word & targetMask,
	}
}

// SignExtend16 sign-extends the low 16 bits of v.
func SignExtend16(v uint32) uint32 {
	return uint32(int32(int16(uint16(v))))
}

// IsRType reports whether the instruction uses the register format.
func (i Instruction) IsRType() bool {
	return i.Op == OpSpecial || i.Op == OpSpecial2
}

// IsSyscall reports whether the instruction is the syscall trap.
func (i Instruction) IsSyscall() bool {
	return i.Op == OpSpecial && i.Funct == FunctSyscall
}
