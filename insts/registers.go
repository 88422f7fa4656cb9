package insts

import (
	"strconv"
	"strings"
)

// Register identifies an architectural register. Integer registers occupy
// 0-31, float registers 32-63, followed by HI and LO.
type Register uint16

// Integer registers.
const (
	Zero Register = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

// Float registers.
const (
	F0 Register = iota + 32
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24
	F25
	F26
	F27
	F28
	F29
	F30
	F31
)

// Special registers.
const (
	HI Register = 64
	LO Register = 65

	// Unknown is returned for indices and names that map to no register.
	Unknown Register = 999
)

// NumRegisters is the number of addressable registers, HI and LO included.
const NumRegisters = 66

// FloatBase is the offset of the float bank.
const FloatBase = 32

var intNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var byName = func() map[string]Register {
	m := make(map[string]Register, NumRegisters+1)
	for i := 0; i < NumRegisters; i++ {
		r := Register(i)
		m[r.String()] = r
	}
	m["s8"] = FP

	return m
}()

// RegisterFromIndex converts a numeric index to a Register. Indices beyond
// LO map to Unknown.
func RegisterFromIndex(i uint32) Register {
	if i >= NumRegisters {
		return Unknown
	}

	return Register(i)
}

// ParseRegister converts a register name to a Register. The name may carry a
// leading '$' and may be a symbolic name ("t0", "f12", "hi") or an integer
// register number ("8").
func ParseRegister(name string) (Register, bool) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "$"))
	if name == "" {
		return Unknown, false
	}

	if r, ok := byName[name]; ok {
		return r, true
	}

	n, err := strconv.ParseUint(name, 10, 8)
	if err != nil || n >= 32 {
		return Unknown, false
	}

	return Register(n), true
}

// Index returns the register's numeric index.
func (r Register) Index() int {
	return int(r)
}

// IsFloat reports whether the register is in the float bank.
func (r Register) IsFloat() bool {
	return r >= F0 && r <= F31
}

// Field returns the 5-bit encoding of the register within its bank.
func (r Register) Field() uint32 {
	return uint32(r) & 0x1f
}

// String returns the lowercase register name without a '$' prefix.
func (r Register) String() string {
	switch {
	case r < 32:
		return intNames[r]
	case r.IsFloat():
		return "f" + strconv.Itoa(int(r-F0))
	case r == HI:
		return "hi"
	case r == LO:
		return "lo"
	default:
		return "unknown"
	}
}
