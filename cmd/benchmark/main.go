// Command benchmark runs the MIPSim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-format      Output format: json (default), csv or text
//	-core        Run only the 3 core benchmarks
//	-sequential  Use the single-cycle engine
//	-no-icache   Disable instruction cache simulation
//	-no-dcache   Disable data cache simulation
//	-v           Log verbosity
//
// Example:
//
//	# Compare the pipelined and single-cycle engines
//	go run ./cmd/benchmark > pipelined.json
//	go run ./cmd/benchmark -sequential > sequential.json
//
// The exit status is 1 when any benchmark fails to quit with its expected
// register values.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/mipsim/benchmarks"
)

func main() {
	format := flag.String("format", "json", "Output format: json, csv or text")
	core := flag.Bool("core", false, "Run only the core benchmarks")
	sequential := flag.Bool("sequential", false, "Use the single-cycle engine")
	noICache := flag.Bool("no-icache", false, "Disable instruction cache simulation")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	verbosity := flag.Int("v", 0, "Log verbosity")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableICache = !*noICache
	config.EnableDCache = !*noDCache
	config.Sequential = *sequential
	config.Output = os.Stdout
	config.Logger = funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: *verbosity}).WithName("benchmark")

	harness := benchmarks.NewHarness(config)
	if *core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	switch *format {
	case "json":
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
			os.Exit(1)
		}
	case "csv":
		harness.PrintCSV(results)
	case "text":
		fmt.Println("MIPSim Timing Benchmark Harness")
		fmt.Println("===============================")
		engine := "pipelined"
		if config.Sequential {
			engine = "sequential"
		}

		fmt.Printf("Engine:  %s\n", engine)
		fmt.Printf("I-Cache: %v\n", config.EnableICache)
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Println("")
		harness.PrintResults(results)
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q\n", *format)
		os.Exit(2)
	}

	for _, r := range results {
		if !r.Passed() {
			os.Exit(1)
		}
	}
}
