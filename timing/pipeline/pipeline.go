package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

// Phase is the orchestrator's control phase.
type Phase int

// Phases.
const (
	// PhaseRunning advances the pipeline normally.
	PhaseRunning Phase = iota
	// PhaseDrainingSyscall holds fetch and decode while a syscall moves to
	// writeback.
	PhaseDrainingSyscall
)

func (p Phase) String() string {
	if p == PhaseDrainingSyscall {
		return "draining-syscall"
	}

	return "running"
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister
	out   PipelineOutput

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit

	icache *cache.Cache
	dcache *cache.Cache

	syscallHandler emu.SyscallHandler
	logger         logr.Logger

	pc    uint32
	phase Phase
	stats Statistics
}

// NewPipeline creates a new 5-stage pipeline over regFile and memory.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	o := buildOptions(regFile, memory, opts)
	icache, dcache := o.caches()

	return &Pipeline{
		fetchStage:     NewFetchStage(memory, icache),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory, dcache),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     NewHazardUnit(),
		icache:         icache,
		dcache:         dcache,
		syscallHandler: o.syscallHandler,
		logger:         o.logger,
	}
}

// PC returns the address of the next instruction to fetch.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the fetch address.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// Phase returns the current control phase.
func (p *Pipeline) Phase() Phase {
	return p.phase
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// State returns a copy of the pipeline registers.
func (p *Pipeline) State() State {
	return State{
		PC:    p.pc,
		IFID:  p.ifid,
		IDEX:  p.idex,
		EXMEM: p.exmem,
		MEMWB: p.memwb,
		Out:   p.out,
	}
}

// Tick executes one pipeline cycle.
//
// Writeback always runs first. A retiring syscall is trapped and returned
// with the other registers left in place. While a syscall is in EX/MEM or
// MEM/WB, fetch and decode hold so the instructions after it see its
// effects. Otherwise the cycle decodes, checks for a load-use hazard and
// fetches.
//
// Branches and jumps redirect the fetch address in the Memory stage. The
// two instructions already fetched behind them are not squashed, so the
// third fetch after a taken branch is its target.
func (p *Pipeline) Tick() (*emu.Syscall, error) {
	p.stats.Cycles++

	fwd := NewForwardingUnit(&p.exmem, &p.memwb)

	p.out = p.writebackStage.Writeback(&p.memwb)
	if p.out.Valid {
		p.stats.Instructions++
	}

	if p.out.Syscall {
		return p.trap(), nil
	}

	mem, err := p.memoryStage.Access(&p.exmem)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", p.exmem.PC, err)
	}

	idex := p.idex
	ifid := p.ifid

	if mem.Redirect {
		p.pc = mem.Target
		p.stats.Redirects++
		p.logger.V(2).Info("redirect",
			"pc", fmt.Sprintf("0x%08x", p.exmem.PC),
			"target", fmt.Sprintf("0x%08x", mem.Target))
	}

	ex, err := p.executeStage.Execute(&idex, fwd)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", idex.PC, err)
	}

	p.stats.Forwards += countForwards(ex)

	if ex.EXMEM.Syscall || mem.MEMWB.Syscall {
		p.phase = PhaseDrainingSyscall
		p.stats.SyscallStalls++
		p.commit(ifid, IDEXRegister{}, ex.EXMEM, mem.MEMWB)
		p.traceCycle()

		return nil, nil
	}

	p.phase = PhaseRunning

	next, err := p.decodeStage.Decode(&ifid)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", ifid.PC, err)
	}

	if p.hazardUnit.DetectLoadUseHazard(&idex, &next) {
		p.stats.Stalls++
		p.logger.V(2).Info("load-use stall",
			"load", fmt.Sprintf("0x%08x", idex.PC),
			"use", fmt.Sprintf("0x%08x", ifid.PC))
		p.commit(ifid, IDEXRegister{}, ex.EXMEM, mem.MEMWB)
		p.traceCycle()

		return nil, nil
	}

	fetched, err := p.fetchStage.Fetch(p.pc)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", p.pc, err)
	}

	p.pc += 4
	p.commit(fetched, next, ex.EXMEM, mem.MEMWB)
	p.traceCycle()

	return nil, nil
}

func (p *Pipeline) trap() *emu.Syscall {
	sc := p.syscallHandler.Handle()
	p.stats.Syscalls++
	p.memwb.Clear()
	p.phase = PhaseRunning
	p.logger.V(1).Info("syscall",
		"pc", fmt.Sprintf("0x%08x", p.out.PC),
		"kind", sc.Kind.String(),
		"message", sc.Message)

	return &sc
}

func (p *Pipeline) commit(
	ifid IFIDRegister,
	idex IDEXRegister,
	exmem EXMEMRegister,
	memwb MEMWBRegister,
) {
	if !ifid.Valid {
		ifid = IFIDRegister{}
	}

	if !idex.Valid {
		idex = IDEXRegister{}
	}

	p.ifid = ifid
	p.idex = idex
	p.exmem = exmem
	p.memwb = memwb
}

func (p *Pipeline) traceCycle() {
	log := p.logger.V(3)
	if !log.Enabled() {
		return
	}

	log.Info("cycle",
		"cycle", p.stats.Cycles,
		"phase", p.phase.String(),
		"pc", fmt.Sprintf("0x%08x", p.pc),
		"ifid", p.ifid.Valid,
		"idex", p.idex.Valid,
		"exmem", p.exmem.Valid,
		"memwb", p.memwb.Valid)
}

func countForwards(ex ExecuteResult) uint64 {
	var n uint64

	if ex.ForwardRs != ForwardNone {
		n++
	}

	if ex.ForwardRt != ForwardNone {
		n++
	}

	return n
}

// Reset clears all pipeline state and statistics.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.out = PipelineOutput{}
	p.pc = 0
	p.phase = PhaseRunning
	p.stats = Statistics{}
	resetCache(p.icache)
	resetCache(p.dcache)
}

// ICacheStats returns I-cache statistics, or empty if I-cache not enabled.
func (p *Pipeline) ICacheStats() cache.Statistics {
	return cacheStats(p.icache)
}

// DCacheStats returns D-cache statistics, or empty if D-cache not enabled.
func (p *Pipeline) DCacheStats() cache.Statistics {
	return cacheStats(p.dcache)
}
