package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

// Sequential executes one whole instruction per cycle through the same
// stages as Pipeline, without overlap or forwarding.
//
// It keeps the two addresses Pipeline would already have fetched behind the
// current instruction. A taken branch or jump only changes the address
// after those, so both instructions behind it run before the target, even
// when one of them is itself a jump. Both engines retire the same
// instruction stream.
type Sequential struct {
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	icache *cache.Cache
	dcache *cache.Cache

	syscallHandler emu.SyscallHandler
	logger         logr.Logger

	// queue holds the next two instructions to run; pc is the one after.
	queue [2]uint32
	pc    uint32
	last  State
	stats Statistics
}

// NewSequential creates a single-cycle engine over regFile and memory.
func NewSequential(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Sequential {
	o := buildOptions(regFile, memory, opts)
	icache, dcache := o.caches()

	return &Sequential{
		fetchStage:     NewFetchStage(memory, icache),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory, dcache),
		writebackStage: NewWritebackStage(regFile),
		icache:         icache,
		dcache:         dcache,
		syscallHandler: o.syscallHandler,
		logger:         o.logger,
	}
}

// PC returns the address of the next instruction.
func (s *Sequential) PC() uint32 {
	return s.queue[0]
}

// SetPC restarts sequential execution at pc.
func (s *Sequential) SetPC(pc uint32) {
	s.queue = [2]uint32{pc, pc + 4}
	s.pc = pc + 8
}

// Stats returns engine statistics.
func (s *Sequential) Stats() Statistics {
	return s.stats
}

// State returns the intermediate registers of the last instruction.
func (s *Sequential) State() State {
	st := s.last
	st.PC = s.queue[0]

	return st
}

// Tick executes one instruction.
func (s *Sequential) Tick() (*emu.Syscall, error) {
	s.stats.Cycles++

	pc := s.queue[0]

	ifid, err := s.fetchStage.Fetch(pc)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", pc, err)
	}

	s.queue = [2]uint32{s.queue[1], s.pc}
	s.pc += 4

	idex, err := s.decodeStage.Decode(&ifid)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", pc, err)
	}

	ex, err := s.executeStage.Execute(&idex, ForwardingUnit{})
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", pc, err)
	}

	mem, err := s.memoryStage.Access(&ex.EXMEM)
	if err != nil {
		return nil, fmt.Errorf("pc 0x%08x: %w", pc, err)
	}

	if mem.Redirect {
		s.pc = mem.Target
		s.stats.Redirects++
		s.logger.V(2).Info("redirect",
			"pc", fmt.Sprintf("0x%08x", pc),
			"target", fmt.Sprintf("0x%08x", mem.Target))
	}

	out := s.writebackStage.Writeback(&mem.MEMWB)
	s.stats.Instructions++
	s.last = State{IFID: ifid, IDEX: idex, EXMEM: ex.EXMEM, MEMWB: mem.MEMWB, Out: out}

	s.logger.V(3).Info("cycle",
		"cycle", s.stats.Cycles,
		"pc", fmt.Sprintf("0x%08x", pc))

	if !out.Syscall {
		return nil, nil
	}

	sc := s.syscallHandler.Handle()
	s.stats.Syscalls++
	s.logger.V(1).Info("syscall",
		"pc", fmt.Sprintf("0x%08x", pc),
		"kind", sc.Kind.String(),
		"message", sc.Message)

	return &sc, nil
}

// Reset clears engine state and statistics.
func (s *Sequential) Reset() {
	s.queue = [2]uint32{}
	s.pc = 0
	s.last = State{}
	s.stats = Statistics{}
	resetCache(s.icache)
	resetCache(s.dcache)
}

// ICacheStats returns I-cache statistics, or empty if I-cache not enabled.
func (s *Sequential) ICacheStats() cache.Statistics {
	return cacheStats(s.icache)
}

// DCacheStats returns D-cache statistics, or empty if D-cache not enabled.
func (s *Sequential) DCacheStats() cache.Statistics {
	return cacheStats(s.dcache)
}
