package benchmarks

import (
	"fmt"
	"strings"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// exit ends every benchmark.
const exit = `
      li   $v0, 10
      syscall
`

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline behavior.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		byteCopy(),
		functionCalls(),
		branchLoop(),
		mixedOperations(),
		matrixMultiply2x2(),
		floatAccumulate(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a matrix multiply and call-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		matrixMultiply2x2(),
		functionCalls(),
	}
}

// 1. Arithmetic Sequential - independent ALU operations, no hazards
func arithmeticSequential() Benchmark {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "      addi $t%d, $t%d, 1\n", i%5, i%5)
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDIs over 5 registers - measures ALU throughput",
		Source:      b.String() + exit,
		Expected: map[insts.Register]uint32{
			insts.T0: 4, insts.T1: 4, insts.T2: 4, insts.T3: 4, insts.T4: 4,
		},
	}
}

// 2. Dependency Chain - every instruction reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs ($t0 = $t0 + 1) - measures forwarding",
		Source:      strings.Repeat("      addi $t0, $t0, 1\n", 20) + exit,
		Expected:    map[insts.Register]uint32{insts.T0: 20},
	}
}

// 3. Load-Use - each load is consumed by the next instruction
func loadUse() Benchmark {
	return Benchmark{
		Name:        "load_use",
		Description: "4 loads each followed by a dependent ADD - one stall per pair",
		Source: `
.data
vals: .word 1, 2, 3, 4
.text
      la   $s0, vals
      lw   $t0, 0($s0)
      add  $t1, $t1, $t0
      lw   $t0, 4($s0)
      add  $t1, $t1, $t0
      lw   $t0, 8($s0)
      add  $t1, $t1, $t0
      lw   $t0, 12($s0)
      add  $t1, $t1, $t0
` + exit,
		Expected: map[insts.Register]uint32{insts.T1: 10},
	}
}

// 4. Memory Sequential - store an array then sum it back
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "store 8 words then load and sum them - exercises the data cache",
		Source: `
.data
buf:  .space 32
.text
       la   $s0, buf
       addi $t1, $zero, 8
store: sll  $t2, $t0, 2
       add  $t2, $s0, $t2
       sw   $t0, 0($t2)
       addi $t0, $t0, 1
       bne  $t0, $t1, store
       nop
       nop
       addi $t0, $zero, 0
load:  sll  $t2, $t0, 2
       add  $t2, $s0, $t2
       lw   $t4, 0($t2)
       add  $t3, $t3, $t4
       addi $t0, $t0, 1
       bne  $t0, $t1, load
       nop
       nop
` + exit,
		Expected: map[insts.Register]uint32{insts.T0: 8, insts.T3: 28},
	}
}

// 5. Byte Copy - strcpy with the counter in the delay slot
func byteCopy() Benchmark {
	return Benchmark{
		Name:        "byte_copy",
		Description: "copy a NUL-terminated string byte by byte - load-use on LBU/SB",
		Source: `
.data
src:  .asciiz "hello"
dst:  .space 8
.text
      la   $s0, src
      la   $s1, dst
copy: lbu  $t0, 0($s0)
      sb   $t0, 0($s1)
      addi $s0, $s0, 1
      addi $s1, $s1, 1
      bne  $t0, $zero, copy
      addi $t1, $t1, 1
      nop
` + exit,
		Expected: map[insts.Register]uint32{insts.T1: 6, insts.T0: 0},
	}
}

// 6. Function Calls - JAL/JR with the return address spilled to the stack
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls that save and restore $ra on the stack",
		Source: `
      jal  incr
      nop
      nop
      jal  incr
      nop
      nop
      jal  incr
      nop
      nop
      j    done
      nop
      nop
incr: addi $sp, $sp, -4
      sw   $ra, 0($sp)
      addi $s0, $s0, 1
      lw   $ra, 0($sp)
      jr   $ra
      addi $sp, $sp, 4
      nop
done:` + exit,
		Expected: map[insts.Register]uint32{insts.S0: 3, insts.SP: emu.StackBase},
	}
}

// 7. Branch Loop - a counted loop with a taken branch per iteration
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration countdown loop - measures taken-branch cost",
		Source: `
      addi $t0, $zero, 10
loop: addi $t1, $t1, 2
      addi $t0, $t0, -1
      bne  $t0, $zero, loop
      nop
      nop
` + exit,
		Expected: map[insts.Register]uint32{insts.T0: 0, insts.T1: 20},
	}
}

// 8. Mixed Operations - ALU, shifts and HI/LO traffic
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "logical, shift, compare, multiply and divide - exercises HI/LO forwarding",
		Source: `
      addi $t0, $zero, 6
      addi $t1, $zero, 7
      mult $t0, $t1
      mflo $t2
      sub  $t3, $t2, $t0
      and  $t4, $t3, $t1
      or   $t5, $t4, $t0
      slt  $t6, $t0, $t1
      div  $t2, $t1
      mflo $t7
      mfhi $s1
      xor  $s2, $t0, $t1
      sll  $s3, $t1, 3
      srl  $s4, $t2, 1
` + exit,
		Expected: map[insts.Register]uint32{
			insts.T2: 42, insts.T3: 36, insts.T4: 4, insts.T5: 6, insts.T6: 1,
			insts.T7: 6, insts.S1: 0, insts.S2: 1, insts.S3: 56, insts.S4: 21,
		},
	}
}

// 9. Matrix Multiply 2x2 - unrolled C = A * B
func matrixMultiply2x2() Benchmark {
	return Benchmark{
		Name:        "matrix_multiply_2x2",
		Description: "unrolled 2x2 integer matrix multiply with MUL",
		Source: `
.data
a:    .word 1, 2, 3, 4
b:    .word 5, 6, 7, 8
c:    .space 16
.text
      la   $s4, a
      la   $s5, b
      la   $s6, c
      lw   $t0, 0($s4)
      lw   $t1, 4($s4)
      lw   $t2, 8($s4)
      lw   $t3, 12($s4)
      lw   $t4, 0($s5)
      lw   $t5, 4($s5)
      lw   $t6, 8($s5)
      lw   $t7, 12($s5)
      mul  $t8, $t0, $t4
      mul  $t9, $t1, $t6
      add  $s0, $t8, $t9
      mul  $t8, $t0, $t5
      mul  $t9, $t1, $t7
      add  $s1, $t8, $t9
      mul  $t8, $t2, $t4
      mul  $t9, $t3, $t6
      add  $s2, $t8, $t9
      mul  $t8, $t2, $t5
      mul  $t9, $t3, $t7
      add  $s3, $t8, $t9
      sw   $s0, 0($s6)
      sw   $s1, 4($s6)
      sw   $s2, 8($s6)
      sw   $s3, 12($s6)
` + exit,
		Expected: map[insts.Register]uint32{
			insts.S0: 19, insts.S1: 22, insts.S2: 43, insts.S3: 50,
		},
	}
}

// 10. Float Accumulate - single-precision adds fed by LWC1
func floatAccumulate() Benchmark {
	return Benchmark{
		Name:        "float_accumulate",
		Description: "4 dependent ADD.S of 1.0 - float bank forwarding",
		Source: `
.data
one:  .word 0x3f800000
.text
      la    $s0, one
      lwc1  $f1, 0($s0)
      add.s $f2, $f2, $f1
      add.s $f2, $f2, $f1
      add.s $f2, $f2, $f1
      add.s $f2, $f2, $f1
` + exit,
		Expected: map[insts.Register]uint32{insts.F2: 0x40800000},
	}
}
