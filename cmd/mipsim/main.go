// Package main provides the command-line runner for MIPSim.
// It assembles a source file, runs it to completion and connects the
// program's syscalls to standard input and output.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/machine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	maxCycles  uint64
	mode       string
	dump       bool
	stats      bool
	verbosity  int
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}

	fs := flag.NewFlagSet("mipsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to simulator configuration JSON file")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Cycle limit, overrides the config (0 keeps the config value)")
	fs.StringVar(&opts.mode, "mode", "", "Engine mode: pipelined or sequential")
	fs.BoolVar(&opts.dump, "dump", false, "Print registers and pipeline state after the run")
	fs.BoolVar(&opts.stats, "stats", false, "Print timing statistics after the run")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity (1: syscalls, 2: stalls and redirects, 3: every cycle)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: mipsim [options] <program.s>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return opts, fs.Args(), nil
}

func loadConfig(opts *options) (*config.SimConfig, error) {
	cfg := config.DefaultConfig()

	if opts.configPath != "" {
		var err error

		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.mode != "" {
		cfg.Mode = config.Mode(opts.mode)
	}

	if opts.maxCycles != 0 {
		cfg.MaxCycles = opts.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(verbosity int, w io.Writer) logr.Logger {
	if verbosity <= 0 {
		return logr.Discard()
	}

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}

		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return 2
	}

	if len(rest) < 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: mipsim [options] <program.s>\n")
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	programPath := rest[0]

	prog, err := loader.Load(programPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	logger := newLogger(opts.verbosity, stderr).WithName("mipsim")
	logger.V(1).Info("loaded", "path", programPath, "mode", string(cfg.Mode))

	m := machine.New(append(cfg.MachineOptions(), machine.WithLogger(logger))...)
	prog.Flash(m)

	interactive := isTerminal(stdin)

	m.RegisterCallback(emu.KindPrint, func(msg string) {
		_, _ = io.WriteString(stdout, msg)
	})
	m.RegisterCallback(emu.KindReadAny, func(msg string) {
		if msg != "" {
			_, _ = fmt.Fprintf(stderr, "%s\n", msg)
		}

		if interactive {
			_, _ = fmt.Fprint(stderr, "> ")
		}
	})

	runErr := execute(m, cfg.MaxCycles, bufio.NewReader(stdin))

	if opts.stats {
		printStats(stdout, programPath, m)
	}

	if opts.dump {
		dump(stdout, m, isTerminal(stdout))
	}

	return exitCode(m, runErr, stderr)
}

// execute runs m until it halts, feeding stdin lines to pending reads.
func execute(m *machine.Machine, maxCycles uint64, in *bufio.Reader) error {
	for {
		budget := uint64(0)
		if maxCycles != 0 {
			used := m.Stats().Cycles
			if used >= maxCycles {
				return machine.ErrCycleLimit
			}

			budget = maxCycles - used
		}

		if err := m.Run(budget); err != nil {
			return err
		}

		if m.State() != machine.AwaitingInput {
			return nil
		}

		line, err := in.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return fmt.Errorf("waiting for input: %w", err)
		}

		m.SetInput(strings.TrimRight(line, "\r\n"))
	}
}

func exitCode(m *machine.Machine, runErr error, stderr io.Writer) int {
	if runErr != nil {
		_, _ = fmt.Fprintf(stderr, "\nError: %v\n", runErr)
		return 1
	}

	sc, ok := m.LastSyscall()
	if ok && sc.Kind == emu.KindError && sc.Message != emu.KernelMessage {
		_, _ = fmt.Fprintf(stderr, "\nError: %s\n", sc.Message)
		return 1
	}

	return 0
}

func printStats(w io.Writer, programPath string, m *machine.Machine) {
	stats := m.Stats()

	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Program: %s\n", programPath)
	_, _ = fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Pipeline Events:\n")
	_, _ = fmt.Fprintf(w, "  Load-use stalls: %d\n", stats.Stalls)
	_, _ = fmt.Fprintf(w, "  Syscall stalls:  %d\n", stats.SyscallStalls)
	_, _ = fmt.Fprintf(w, "  Redirects:       %d\n", stats.Redirects)
	_, _ = fmt.Fprintf(w, "  Forwards:        %d\n", stats.Forwards)
	_, _ = fmt.Fprintf(w, "  Syscalls:        %d\n", stats.Syscalls)

	e := m.Engine()
	if ic := e.ICacheStats(); ic.Reads+ic.Writes > 0 {
		_, _ = fmt.Fprintf(w, "\nI-Cache: %d hits, %d misses (%.1f%% hit rate)\n",
			ic.Hits, ic.Misses, 100*ic.HitRate())
	}

	if dc := e.DCacheStats(); dc.Reads+dc.Writes > 0 {
		_, _ = fmt.Fprintf(w, "D-Cache: %d hits, %d misses (%.1f%% hit rate)\n",
			dc.Hits, dc.Misses, 100*dc.HitRate())
	}
}

func dump(w io.Writer, m *machine.Machine, color bool) {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(color)

	_, _ = fmt.Fprintf(w, "\nState: %s  PC: 0x%08x\n", m.State(), m.PC())
	_, _ = printer.Println(m.RegisterSnapshot())
	_, _ = printer.Println(m.Pipeline())
	_, _ = printer.Println(m.StackSnapshot())
}
