package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

type options struct {
	syscallHandler emu.SyscallHandler
	logger         logr.Logger
	icache         *cache.Config
	dcache         *cache.Config
}

func buildOptions(
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts []PipelineOption,
) options {
	o := options{logger: logr.Discard()}

	for _, opt := range opts {
		opt(&o)
	}

	if o.syscallHandler == nil {
		o.syscallHandler = emu.NewDefaultSyscallHandler(regFile, memory)
	}

	return o
}

func (o options) caches() (icache, dcache *cache.Cache) {
	if o.icache != nil {
		icache = cache.New(*o.icache)
	}

	if o.dcache != nil {
		dcache = cache.New(*o.dcache)
	}

	return icache, dcache
}

// PipelineOption is a functional option for configuring an engine.
type PipelineOption func(*options)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(o *options) {
		o.syscallHandler = handler
	}
}

// WithLogger sets the logger. V(1) reports syscalls, V(2) stalls and
// redirects, V(3) every cycle.
func WithLogger(logger logr.Logger) PipelineOption {
	return func(o *options) {
		o.logger = logger
	}
}

// WithICache attaches an L1 instruction cache model with the given
// configuration. The config must pass Validate.
func WithICache(config cache.Config) PipelineOption {
	return func(o *options) {
		o.icache = &config
	}
}

// WithDCache attaches an L1 data cache model with the given configuration.
// The config must pass Validate.
func WithDCache(config cache.Config) PipelineOption {
	return func(o *options) {
		o.dcache = &config
	}
}

// WithDefaultCaches attaches the default L1 instruction and data caches.
func WithDefaultCaches() PipelineOption {
	return func(o *options) {
		i, d := cache.DefaultL1IConfig(), cache.DefaultL1DConfig()
		o.icache, o.dcache = &i, &d
	}
}

// Statistics holds engine performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// SyscallStalls is the number of cycles spent draining toward a syscall.
	SyscallStalls uint64
	// Redirects is the number of taken branches and jumps.
	Redirects uint64
	// Forwards is the number of operands taken from the forwarding network.
	Forwards uint64
	// Syscalls is the number of syscalls trapped.
	Syscalls uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}

	return float64(s.Cycles) / float64(s.Instructions)
}

// State is a copy of the pipeline registers at the end of a cycle.
type State struct {
	PC    uint32
	IFID  IFIDRegister
	IDEX  IDEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister
	Out   PipelineOutput
}

// Engine advances the simulated CPU one cycle at a time. Both Pipeline and
// Sequential implement it.
type Engine interface {
	// Tick simulates one cycle. It returns a non-nil Syscall when one was
	// trapped in this cycle.
	Tick() (*emu.Syscall, error)
	PC() uint32
	SetPC(pc uint32)
	Reset()
	Stats() Statistics
	State() State
	ICacheStats() cache.Statistics
	DCacheStats() cache.Statistics
}

func cacheStats(c *cache.Cache) cache.Statistics {
	if c == nil {
		return cache.Statistics{}
	}

	return c.Stats()
}

func resetCache(c *cache.Cache) {
	if c != nil {
		c.Reset()
	}
}
