package insts

// EncodeR builds a register-format word. Register arguments are reduced to
// their 5-bit field so float registers encode by bank position.
func EncodeR(op uint32, rs, rt, rd Register, shamt, funct uint32) uint32 {
	return op<<26 |
		rs.Field()<<21 |
		rt.Field()<<16 |
		rd.Field()<<11 |
		(shamt&regMask)<<6 |
		funct&functMask
}

// EncodeI builds an immediate-format word. Only the low 16 bits of imm are
// kept.
func EncodeI(op uint32, rs, rt Register, imm uint32) uint32 {
	return op<<26 |
		rs.Field()<<21 |
		rt.Field()<<16 |
		imm&immMask
}

// EncodeJ builds a jump-format word from a word-aligned byte address.
func EncodeJ(op uint32, addr uint32) uint32 {
	return op<<26 | (addr>>2)&targetMask
}

// FitsTarget reports whether addr can be reached by a J-type target field.
func FitsTarget(addr uint32) bool {
	return addr&3 == 0 && addr>>2 <= targetMask
}
