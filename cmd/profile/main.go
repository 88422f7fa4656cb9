// Package main provides a profiling wrapper for MIPSim to identify
// simulator performance bottlenecks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/machine"
)

// chunk is the number of cycles run between deadline checks.
const chunk = 10_000

var (
	mode       = flag.String("mode", "pipelined", "Engine mode: pipelined or sequential")
	caches     = flag.Bool("caches", false, "Enable the L1 cache models")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxCycles  = flag.Uint64("max-cycles", 0, "max cycles to simulate (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.s>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.Mode = config.Mode(*mode)
	cfg.MaxCycles = *maxCycles
	cfg.ICache.Enabled = *caches
	cfg.DCache.Enabled = *caches

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s (%d instruction words)\n", programPath, len(prog.TextWords()))

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	m := machine.New(cfg.MachineOptions()...)
	prog.Flash(m)

	start := time.Now()
	runErr := run(m, cfg.MaxCycles, time.Now().Add(*duration))
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	stats := m.Stats()

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("State: %s\n", m.State())
	if runErr != nil {
		fmt.Printf("Stopped: %v\n", runErr)
	}
	fmt.Printf("Cycles simulated: %d\n", stats.Cycles)
	fmt.Printf("Instructions retired: %d\n", stats.Instructions)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(stats.Cycles)/elapsed.Seconds())
	}
}

var errTimeout = errors.New("timeout reached")

// run cycles m in chunks until it halts, blocks on input, hits the cycle
// limit or passes the deadline. Read syscalls are not served.
func run(m *machine.Machine, limit uint64, deadline time.Time) error {
	for {
		budget := uint64(chunk)
		if limit != 0 {
			used := m.Stats().Cycles
			if used >= limit {
				return machine.ErrCycleLimit
			}

			budget = min(budget, limit-used)
		}

		err := m.Run(budget)
		if err != nil && !errors.Is(err, machine.ErrCycleLimit) {
			return err
		}

		switch m.State() {
		case machine.Halted:
			if sc, ok := m.LastSyscall(); ok && sc.Kind == emu.KindError && sc.Message != emu.KernelMessage {
				return errors.New(sc.Message)
			}

			return nil
		case machine.AwaitingInput:
			return errors.New("program is waiting for input")
		}

		if time.Now().After(deadline) {
			return errTimeout
		}
	}
}
