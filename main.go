// Package main provides the entry point for MIPSim.
// MIPSim is an educational 5-stage pipelined MIPS simulator.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("MIPSim - 5-stage pipelined MIPS simulator")
	fmt.Println("")
	fmt.Println("Usage: mipsim [options] <program.s>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to simulator configuration JSON file")
	fmt.Println("  -mode        Engine mode: pipelined or sequential")
	fmt.Println("  -max-cycles  Cycle limit")
	fmt.Println("  -stats       Print timing statistics")
	fmt.Println("  -dump        Print registers and pipeline state")
	fmt.Println("  -v           Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the timing benchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
