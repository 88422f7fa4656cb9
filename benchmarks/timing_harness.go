// Package benchmarks provides assembly microbenchmarks and a harness that
// runs them on the simulator and reports timing statistics.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/machine"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Engine is "pipelined" or "sequential"
	Engine string `json:"engine"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// SyscallStalls is the number of cycles spent draining before a syscall
	SyscallStalls uint64 `json:"syscall_stalls"`

	// Forwards is the number of operands taken from the forwarding paths
	Forwards uint64 `json:"forwards"`

	// Redirects is the number of taken branches and jumps
	Redirects uint64 `json:"redirects"`

	// ICacheHits/Misses (if cache enabled)
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// MemoryCycles estimates the cycles spent in the enabled caches from
	// their hit and miss latencies
	MemoryCycles uint64 `json:"memory_cycles,omitempty"`

	// Halt is the syscall that ended the program
	Halt string `json:"halt"`

	// Mismatches lists expected register values the program did not produce
	Mismatches []string `json:"mismatches,omitempty"`

	// Error is the fatal simulator error, if any
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether the benchmark quit cleanly with the expected
// register values.
func (r BenchmarkResult) Passed() bool {
	return r.Error == "" && r.Halt == emu.KindQuit.String() && len(r.Mismatches) == 0
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source is the assembly program. It must end with the exit syscall.
	Source string

	// Expected maps registers to their values when the program quits.
	Expected map[insts.Register]uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableICache enables instruction cache simulation
	EnableICache bool

	// EnableDCache enables data cache simulation
	EnableDCache bool

	// Sequential runs the single-cycle engine instead of the pipeline
	Sequential bool

	// MaxCycles bounds each run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives per-benchmark progress at V(1)
	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableICache: true,
		EnableDCache: true,
		MaxCycles:    1_000_000,
		Output:       os.Stdout,
		Logger:       logr.Discard(),
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, _ := h.runBenchmark(bench)
		h.config.Logger.V(1).Info("benchmark done",
			"name", result.Name, "cycles", result.SimulatedCycles, "cpi", result.CPI,
			"passed", result.Passed())
		results = append(results, result)
	}

	return results
}

func (h *Harness) machineOptions() []machine.Option {
	opts := []machine.Option{machine.WithLogger(h.config.Logger)}

	if h.config.Sequential {
		opts = append(opts, machine.WithSequential())
	}

	if h.config.EnableICache {
		opts = append(opts, machine.WithEngineOptions(pipeline.WithICache(cache.DefaultL1IConfig())))
	}

	if h.config.EnableDCache {
		opts = append(opts, machine.WithEngineOptions(pipeline.WithDCache(cache.DefaultL1DConfig())))
	}

	return opts
}

// runBenchmark executes a single benchmark and returns the machine it ran
// on for inspection.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, *machine.Machine) {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Engine:      "pipelined",
	}

	if h.config.Sequential {
		result.Engine = "sequential"
	}

	m := machine.New(h.machineOptions()...)

	if err := m.Load(bench.Source); err != nil {
		result.Error = err.Error()
		return result, m
	}

	start := time.Now()
	err := m.Run(h.config.MaxCycles)
	result.WallTime = time.Since(start)

	if err != nil {
		result.Error = err.Error()
	}

	if sc, ok := m.LastSyscall(); ok {
		result.Halt = sc.Kind.String()
	}

	stats := m.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.SyscallStalls = stats.SyscallStalls
	result.Forwards = stats.Forwards
	result.Redirects = stats.Redirects

	if h.config.EnableICache {
		ic := m.Engine().ICacheStats()
		result.ICacheHits = ic.Hits
		result.ICacheMisses = ic.Misses
		result.MemoryCycles += memoryCycles(ic, cache.DefaultL1IConfig())
	}

	if h.config.EnableDCache {
		dc := m.Engine().DCacheStats()
		result.DCacheHits = dc.Hits
		result.DCacheMisses = dc.Misses
		result.MemoryCycles += memoryCycles(dc, cache.DefaultL1DConfig())
	}

	result.Mismatches = bench.check(m)

	return result, m
}

func memoryCycles(s cache.Statistics, c cache.Config) uint64 {
	return s.Hits*c.HitLatency + s.Misses*c.MissLatency
}

// check compares the expected register values against m.
func (b Benchmark) check(m *machine.Machine) []string {
	regs := make([]insts.Register, 0, len(b.Expected))
	for r := range b.Expected {
		regs = append(regs, r)
	}

	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })

	var mismatches []string

	for _, r := range regs {
		if got, want := m.Register(r), b.Expected[r]; got != want {
			mismatches = append(mismatches, fmt.Sprintf("$%s = %d, want %d", r, got, want))
		}
	}

	return mismatches
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w, "=== MIPSim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Engine: %s\n", r.Engine)
		_, _ = fmt.Fprintf(w, "  Halt: %s\n", r.Halt)
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Load-use Stalls:      %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Syscall Stalls:       %d\n", r.SyscallStalls)
		_, _ = fmt.Fprintf(w, "  Forwards:             %d\n", r.Forwards)
		_, _ = fmt.Fprintf(w, "  Redirects:            %d\n", r.Redirects)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(w, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.ICacheMisses)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(w, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.DCacheMisses)
		}

		if r.MemoryCycles > 0 {
			_, _ = fmt.Fprintf(w, "  Memory Cycles (est.): %d\n", r.MemoryCycles)
		}

		for _, mm := range r.Mismatches {
			_, _ = fmt.Fprintf(w, "  MISMATCH: %s\n", mm)
		}

		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "  ERROR: %s\n", r.Error)
		}

		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w,
		"name,engine,cycles,instructions,cpi,stalls,syscall_stalls,forwards,redirects,icache_hits,icache_misses,dcache_hits,dcache_misses,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.Engine,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.SyscallStalls,
			r.Forwards,
			r.Redirects,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.Passed(),
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	ICacheEnabled bool `json:"icache_enabled"`
	DCacheEnabled bool `json:"dcache_enabled"`
	Sequential    bool `json:"sequential"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks that quit with the expected values
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is total cycles over total instructions
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Report aggregates results into a BenchmarkReport.
func (h *Harness) Report(results []BenchmarkResult) BenchmarkReport {
	summary := ReportSummary{TotalBenchmarks: len(results)}

	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime

		if r.Passed() {
			summary.Passed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				ICacheEnabled: h.config.EnableICache,
				DCacheEnabled: h.config.EnableDCache,
				Sequential:    h.config.Sequential,
			},
		},
		Results: results,
		Summary: summary,
	}
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")

	return encoder.Encode(h.Report(results))
}
