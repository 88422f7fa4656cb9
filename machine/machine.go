// Package machine provides the top-level simulator facade. A Machine owns
// the register file, memory, label table and timing engine, and turns
// trapped syscalls into callbacks and explicit suspension states.
package machine

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/asm"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// ErrCycleLimit is returned by Run when the cycle budget is used up.
var ErrCycleLimit = errors.New("cycle limit reached")

// Signal tells the caller whether to keep cycling.
type Signal int

// Signals.
const (
	Continue Signal = iota
	Stop
)

// State is the machine's execution state.
type State int

// States.
const (
	Idle State = iota
	Running
	DrainingSyscall
	AwaitingInput
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case DrainingSyscall:
		return "DrainingSyscall"
	case AwaitingInput:
		return "AwaitingInput"
	case Halted:
		return "Halted"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Callback receives the message of a trapped syscall.
type Callback func(message string)

// StackEntry is one word of the stack.
type StackEntry struct {
	Address uint32
	Value   uint32
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger for the machine and its engine.
func WithLogger(logger logr.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithSequential selects the single-cycle engine instead of the pipeline.
func WithSequential() Option {
	return func(m *Machine) {
		m.sequential = true
	}
}

// WithEngineOptions passes options, such as cache models, to the engine.
func WithEngineOptions(opts ...pipeline.PipelineOption) Option {
	return func(m *Machine) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// Machine is a simulated CPU with its memory and syscall plumbing.
type Machine struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	labels  *asm.LabelTable
	handler *emu.DefaultSyscallHandler
	engine  pipeline.Engine

	sequential bool
	engineOpts []pipeline.PipelineOption
	logger     logr.Logger

	state     State
	pending   *emu.Syscall
	last      *emu.Syscall
	input     string
	hasInput  bool
	err       error
	callbacks map[emu.SyscallKind][]Callback
}

// New creates a machine with empty memory, reset to TextBase.
func New(opts ...Option) *Machine {
	m := &Machine{
		regFile:   emu.NewRegFile(),
		memory:    emu.NewMemory(),
		labels:    asm.NewLabelTable(),
		logger:    logr.Discard(),
		callbacks: make(map[emu.SyscallKind][]Callback),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.Reset()

	return m
}

// Assemble assembles source without touching any machine.
func Assemble(source string) (*emu.Memory, *asm.LabelTable, error) {
	return asm.Assemble(source)
}

// Load assembles source and flashes the result.
func (m *Machine) Load(source string) error {
	mem, labels, err := asm.Assemble(source)
	if err != nil {
		return err
	}

	m.Flash(mem, labels)

	return nil
}

// Flash copies mem into the machine, adopts labels and resets.
func (m *Machine) Flash(mem *emu.Memory, labels *asm.LabelTable) {
	m.memory = mem.Clone()

	if labels == nil {
		labels = asm.NewLabelTable()
	}

	m.labels = labels
	m.Reset()
}

// Reset clears registers, the engine and any pending syscall and moves the
// PC to TextBase. Memory is kept.
func (m *Machine) Reset() {
	m.regFile.Reset()
	m.handler = emu.NewDefaultSyscallHandler(m.regFile, m.memory)

	opts := append([]pipeline.PipelineOption{
		pipeline.WithSyscallHandler(m.handler),
		pipeline.WithLogger(m.logger),
	}, m.engineOpts...)

	if m.sequential {
		m.engine = pipeline.NewSequential(m.regFile, m.memory, opts...)
	} else {
		m.engine = pipeline.NewPipeline(m.regFile, m.memory, opts...)
	}

	m.engine.SetPC(emu.TextBase)

	m.state = Idle
	m.pending = nil
	m.last = nil
	m.err = nil
	m.ClearInput()

	m.logger.V(1).Info("reset", "sequential", m.sequential)
}

// HardReset also clears memory and labels.
func (m *Machine) HardReset() {
	m.memory = emu.NewMemory()
	m.labels = asm.NewLabelTable()
	m.Reset()
}

// RegisterCallback adds cb for syscalls of kind's category. Read kinds all
// register under KindReadAny.
func (m *Machine) RegisterCallback(kind emu.SyscallKind, cb Callback) {
	cat := emu.Syscall{Kind: kind}.Category()
	m.callbacks[cat] = append(m.callbacks[cat], cb)
}

func (m *Machine) fire(kind emu.SyscallKind, message string) {
	for _, cb := range m.callbacks[kind] {
		cb(message)
	}
}

// SetInput supplies the text for a pending read. It is consumed by the next
// Cycle.
func (m *Machine) SetInput(input string) {
	m.input = input
	m.hasInput = true
}

// ClearInput drops any supplied input.
func (m *Machine) ClearInput() {
	m.input = ""
	m.hasInput = false
}

// Cycle advances the machine by one cycle.
func (m *Machine) Cycle() Signal {
	switch m.state {
	case Halted:
		return Stop
	case AwaitingInput:
		if !m.resolvePending() {
			return Continue
		}
	}

	return m.advance()
}

// resolvePending completes the pending read with the buffered input. It
// reports whether the machine may advance.
func (m *Machine) resolvePending() bool {
	if !m.hasInput {
		return false
	}

	err := m.handler.Resolve(*m.pending, m.input)
	m.ClearInput()

	if err != nil {
		m.logger.V(1).Info("input rejected", "kind", m.pending.Kind.String(), "error", err.Error())
		m.fire(emu.KindReadAny, err.Error())

		return false
	}

	m.pending = nil
	m.state = Running

	return true
}

func (m *Machine) advance() Signal {
	sc, err := m.engine.Tick()
	if err != nil {
		m.err = err
		m.state = Halted
		m.logger.V(1).Info("halted", "error", err.Error())

		return Stop
	}

	if sc == nil {
		m.state = Running
		if p, ok := m.engine.(*pipeline.Pipeline); ok && p.Phase() == pipeline.PhaseDrainingSyscall {
			m.state = DrainingSyscall
		}

		return Continue
	}

	m.last = sc

	switch sc.Kind {
	case emu.KindPrint:
		m.state = Running
		m.fire(emu.KindPrint, sc.Message)

		return Continue
	case emu.KindError, emu.KindQuit:
		m.state = Halted
		m.fire(sc.Kind, sc.Message)
		m.logger.V(1).Info("halted", "syscall", sc.String())

		return Stop
	default:
		m.pending = sc
		m.state = AwaitingInput
		m.fire(emu.KindReadAny, sc.Message)

		return Continue
	}
}

// Run cycles until the machine halts, waits for input that has not been
// supplied, or maxCycles cycles have run. A zero maxCycles means no limit.
// It returns the fatal engine error, if any, or ErrCycleLimit.
func (m *Machine) Run(maxCycles uint64) error {
	for n := uint64(0); maxCycles == 0 || n < maxCycles; n++ {
		if m.Cycle() == Stop {
			return m.err
		}

		if m.state == AwaitingInput && !m.hasInput {
			return nil
		}
	}

	return ErrCycleLimit
}

// State returns the execution state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the error that halted the machine, if any.
func (m *Machine) Err() error {
	return m.err
}

// LastSyscall returns the most recently trapped syscall.
func (m *Machine) LastSyscall() (emu.Syscall, bool) {
	if m.last == nil {
		return emu.Syscall{}, false
	}

	return *m.last, true
}

// PendingSyscall returns the read waiting for input, if any.
func (m *Machine) PendingSyscall() (emu.Syscall, bool) {
	if m.pending == nil {
		return emu.Syscall{}, false
	}

	return *m.pending, true
}

// PC returns the engine's fetch address.
func (m *Machine) PC() uint32 {
	return m.engine.PC()
}

// Register returns the value of reg.
func (m *Machine) Register(reg insts.Register) uint32 {
	return m.regFile.Get(reg)
}

// RegisterSnapshot returns every register in index order.
func (m *Machine) RegisterSnapshot() []emu.NamedValue {
	return m.regFile.Snapshot()
}

// StackSnapshot returns the words from $sp up to StackBase.
func (m *Machine) StackSnapshot() []StackEntry {
	sp := m.regFile.Get(insts.SP) &^ 3
	words := m.memory.Words(sp, emu.StackBase)

	out := make([]StackEntry, len(words))
	for i, w := range words {
		out[i] = StackEntry{Address: sp + uint32(4*i), Value: w}
	}

	return out
}

// ReadWord reads a word of memory.
func (m *Machine) ReadWord(addr uint32) (uint32, error) {
	return m.memory.Read32(addr)
}

// WriteWord writes a word of memory.
func (m *Machine) WriteWord(addr, value uint32) error {
	return m.memory.Write32(addr, value)
}

// Labels returns the label table of the flashed program.
func (m *Machine) Labels() *asm.LabelTable {
	return m.labels
}

// Pipeline returns a copy of the pipeline registers.
func (m *Machine) Pipeline() pipeline.State {
	return m.engine.State()
}

// Engine returns the timing engine.
func (m *Machine) Engine() pipeline.Engine {
	return m.engine
}

// Stats returns engine statistics.
func (m *Machine) Stats() pipeline.Statistics {
	return m.engine.Stats()
}

// CurrentSourceLines returns the source line of the instruction in each of
// IF, ID, EX, MEM and WB, or -1 for a bubble or an address with no line.
func (m *Machine) CurrentSourceLines() [5]int {
	st := m.engine.State()

	slots := [5]struct {
		valid bool
		pc    uint32
	}{
		{st.IFID.Valid, st.IFID.PC},
		{st.IDEX.Valid, st.IDEX.PC},
		{st.EXMEM.Valid, st.EXMEM.PC},
		{st.MEMWB.Valid, st.MEMWB.PC},
		{st.Out.Valid, st.Out.PC},
	}

	var lines [5]int

	for i, s := range slots {
		lines[i] = -1

		if !s.valid {
			continue
		}

		if line, ok := m.labels.Line(s.pc); ok {
			lines[i] = line
		}
	}

	return lines
}
