package pipeline

import "github.com/sarchlab/mipsim/insts"

// ForwardSource indicates where a forwarded value comes from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingPort is what one later stage offers for forwarding.
type ForwardingPort struct {
	Valid    bool
	RegWrite bool
	Dest     insts.Register
	Lo       uint32
	Hi       uint32
	UseHILO  bool
}

func (p ForwardingPort) provides(reg insts.Register) (uint32, bool) {
	if !p.Valid {
		return 0, false
	}

	switch reg {
	case insts.HI:
		return p.Hi, p.UseHILO
	case insts.LO:
		return p.Lo, p.UseHILO
	}

	return p.Lo, p.RegWrite && p.Dest == reg
}

// ForwardingUnit holds the forwarding candidates for one cycle. It is built
// from the EX/MEM and MEM/WB registers as they were at the start of the
// cycle.
type ForwardingUnit struct {
	EXMEM ForwardingPort
	MEMWB ForwardingPort
}

// NewForwardingUnit captures the forwarding candidates of exmem and memwb.
// A load in MEM/WB offers its loaded data.
func NewForwardingUnit(exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardingUnit {
	return ForwardingUnit{
		EXMEM: ForwardingPort{
			Valid:    exmem.Valid,
			RegWrite: exmem.RegWrite,
			Dest:     exmem.WriteRegister,
			Lo:       exmem.ALULo,
			Hi:       exmem.ALUHi,
			UseHILO:  exmem.UseHILO,
		},
		MEMWB: ForwardingPort{
			Valid:    memwb.Valid,
			RegWrite: memwb.RegWrite,
			Dest:     memwb.WriteRegister,
			Lo:       memwb.Result(),
			Hi:       memwb.ALUHi,
			UseHILO:  memwb.UseHILO,
		},
	}
}

// Resolve returns the up-to-date value of reg given the value decode read.
// EX/MEM takes priority over MEM/WB; $zero is never forwarded.
func (f ForwardingUnit) Resolve(reg insts.Register, value uint32) (uint32, ForwardSource) {
	if reg == insts.Zero || reg == insts.Unknown {
		return value, ForwardNone
	}

	if v, ok := f.EXMEM.provides(reg); ok {
		return v, ForwardFromEXMEM
	}

	if v, ok := f.MEMWB.provides(reg); ok {
		return v, ForwardFromMEMWB
	}

	return value, ForwardNone
}

// HazardUnit detects hazards that forwarding cannot cover.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectLoadUseHazard reports whether next reads the register that the
// load in idex is about to fetch from memory. That value only exists after
// the Memory stage, so next must wait one cycle.
func (h *HazardUnit) DetectLoadUseHazard(idex *IDEXRegister, next *IDEXRegister) bool {
	if !idex.Valid || !idex.MemRead || !next.Valid {
		return false
	}

	if idex.Rt == insts.Zero {
		return false
	}

	return idex.Rt == next.Rs || idex.Rt == next.Rt
}
