package pipeline_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Pipeline Stages", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		memory = emu.NewMemory()
	})

	Describe("FetchStage", func() {
		It("should fetch the word at pc", func() {
			Expect(memory.Write32(emu.TextBase, 0x01095020)).To(Succeed())

			ifid, err := pipeline.NewFetchStage(memory, nil).Fetch(emu.TextBase)

			Expect(err).NotTo(HaveOccurred())
			Expect(ifid).To(Equal(pipeline.IFIDRegister{
				Valid: true, PC: emu.TextBase, InstructionWord: 0x01095020,
			}))
		})

		It("should fail outside user memory", func() {
			_, err := pipeline.NewFetchStage(memory, nil).Fetch(emu.KernelBase)
			Expect(err).To(MatchError(emu.ErrOutOfRange))
		})
	})

	Describe("DecodeStage", func() {
		var decodeStage *pipeline.DecodeStage

		decode := func(word uint32) pipeline.IDEXRegister {
			ifid := pipeline.IFIDRegister{Valid: true, PC: emu.TextBase, InstructionWord: word}
			idex, err := decodeStage.Decode(&ifid)
			Expect(err).NotTo(HaveOccurred())

			return idex
		}

		BeforeEach(func() {
			decodeStage = pipeline.NewDecodeStage(regFile)
		})

		It("should decode a bubble to a bubble", func() {
			idex, err := decodeStage.Decode(&pipeline.IFIDRegister{})
			Expect(err).NotTo(HaveOccurred())
			Expect(idex.Valid).To(BeFalse())
		})

		It("should treat an all-zero word as a valid nop", func() {
			idex := decode(insts.NOP)
			Expect(idex.Valid).To(BeTrue())
			Expect(idex.RegWrite).To(BeTrue())
			Expect(idex.Rd).To(Equal(insts.Zero))
		})

		It("should read register values", func() {
			regFile.Set(insts.T1, 11)
			regFile.Set(insts.T2, 22)

			idex := decode(insts.EncodeR(insts.OpSpecial, insts.T1, insts.T2, insts.T0, 0, insts.FunctADD))

			Expect(idex.Rs).To(Equal(insts.T1))
			Expect(idex.RsValue).To(Equal(uint32(11)))
			Expect(idex.RtValue).To(Equal(uint32(22)))
			Expect(idex.RegDst).To(BeTrue())
			Expect(idex.ALUOp).To(Equal(pipeline.ALUOpR))
		})

		It("should map add.s operands to the float bank", func() {
			idex := decode(insts.EncodeR(insts.OpSpecial, insts.F2, insts.F4, insts.F0, 0, insts.FunctADDS))

			Expect(idex.Rs).To(Equal(insts.F2))
			Expect(idex.Rt).To(Equal(insts.F4))
			Expect(idex.Rd).To(Equal(insts.F0))
		})

		It("should map mfhi and mflo sources to HI and LO", func() {
			regFile.Set(insts.HI, 5)
			regFile.Set(insts.LO, 6)

			hi := decode(insts.EncodeR(insts.OpSpecial, insts.Zero, insts.Zero, insts.T0, 0, insts.FunctMFHI))
			lo := decode(insts.EncodeR(insts.OpSpecial, insts.AT, insts.Zero, insts.T0, 0, insts.FunctMFLO))

			Expect(hi.Rs).To(Equal(insts.HI))
			Expect(hi.RsValue).To(Equal(uint32(5)))
			Expect(lo.Rs).To(Equal(insts.LO))
			Expect(lo.RsValue).To(Equal(uint32(6)))
		})

		It("should map lwc1 targets to the float bank", func() {
			idex := decode(insts.EncodeI(insts.OpLWC1, insts.SP, insts.F6, 8))
			Expect(idex.Rt).To(Equal(insts.F6))
			Expect(idex.MemRead).To(BeTrue())
		})

		It("should set up jal to link pc+8", func() {
			idex := decode(insts.EncodeJ(insts.OpJAL, 0x00400040))

			Expect(idex.Jump).To(BeTrue())
			Expect(idex.RegWrite).To(BeTrue())
			Expect(idex.Rd).To(Equal(insts.RA))
			Expect(idex.RsValue + idex.RtValue).To(Equal(emu.TextBase + 8))
		})

		It("should mark jr as a register jump without a write", func() {
			idex := decode(insts.EncodeR(insts.OpSpecial, insts.RA, insts.Zero, insts.Zero, 0, insts.FunctJR))

			Expect(idex.Jump).To(BeTrue())
			Expect(idex.JumpReg).To(BeTrue())
			Expect(idex.RegWrite).To(BeFalse())
		})

		It("should flag only syscall as a syscall", func() {
			Expect(decode(insts.GuardSyscallWord).Syscall).To(BeTrue())
			Expect(decode(insts.GuardSyscallWord).RegWrite).To(BeFalse())
			Expect(decode(insts.EncodeI(insts.OpANDI, insts.T0, insts.T0, 0x0c)).Syscall).To(BeFalse())

			special2 := decode(insts.EncodeR(insts.OpSpecial2, insts.T0, insts.T1, insts.T2, 0, insts.FunctSyscall))
			Expect(special2.Syscall).To(BeFalse())
			Expect(special2.ALUOp).To(Equal(pipeline.ALUOpSpecial2))
		})

		It("should set UseHILO only for multiply and divide", func() {
			mult := decode(insts.EncodeR(insts.OpSpecial, insts.T0, insts.T1, insts.Zero, 0, insts.FunctMULT))
			mfhi := decode(insts.EncodeR(insts.OpSpecial, insts.Zero, insts.Zero, insts.T0, 0, insts.FunctMFHI))

			Expect(mult.UseHILO).To(BeTrue())
			Expect(mult.RegWrite).To(BeFalse())
			Expect(mfhi.UseHILO).To(BeFalse())
		})

		It("should reject unknown opcodes", func() {
			ifid := pipeline.IFIDRegister{Valid: true, InstructionWord: 0x3f << 26}
			_, err := decodeStage.Decode(&ifid)
			Expect(err).To(MatchError(pipeline.ErrUnrecognizedOpcode))
		})
	})

	Describe("ExecuteStage", func() {
		var executeStage *pipeline.ExecuteStage

		BeforeEach(func() {
			executeStage = pipeline.NewExecuteStage()
		})

		execute := func(word uint32) pipeline.EXMEMRegister {
			ifid := pipeline.IFIDRegister{Valid: true, PC: emu.TextBase, InstructionWord: word}
			idex, err := pipeline.NewDecodeStage(regFile).Decode(&ifid)
			Expect(err).NotTo(HaveOccurred())

			res, err := executeStage.Execute(&idex, pipeline.ForwardingUnit{})
			Expect(err).NotTo(HaveOccurred())

			return res.EXMEM
		}

		It("should pass a bubble through", func() {
			res, err := executeStage.Execute(&pipeline.IDEXRegister{}, pipeline.ForwardingUnit{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.EXMEM.Valid).To(BeFalse())
		})

		It("should compute immediate shifts from rt", func() {
			regFile.Set(insts.T1, 0x80000000)

			exmem := execute(insts.EncodeR(insts.OpSpecial, insts.Zero, insts.T1, insts.T0, 4, insts.FunctSRA))
			Expect(exmem.ALULo).To(Equal(uint32(0xF8000000)))
		})

		It("should mask variable shift amounts", func() {
			regFile.Set(insts.T1, 1)
			regFile.Set(insts.T2, 33)

			exmem := execute(insts.EncodeR(insts.OpSpecial, insts.T2, insts.T1, insts.T0, 0, insts.FunctSLLV))
			Expect(exmem.ALULo).To(Equal(uint32(2)))
		})

		It("should carry the forwarded rt as store data", func() {
			regFile.Set(insts.SP, 0x7FFFEFF0)

			idex, err := pipeline.NewDecodeStage(regFile).Decode(&pipeline.IFIDRegister{
				Valid: true, InstructionWord: insts.EncodeI(insts.OpSW, insts.SP, insts.T0, 4),
			})
			Expect(err).NotTo(HaveOccurred())

			fwd := pipeline.ForwardingUnit{
				EXMEM: pipeline.ForwardingPort{Valid: true, RegWrite: true, Dest: insts.T0, Lo: 77},
			}

			res, err := executeStage.Execute(&idex, fwd)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.EXMEM.ALULo).To(Equal(uint32(0x7FFFEFF4)))
			Expect(res.EXMEM.WriteData).To(Equal(uint32(77)))
			Expect(res.ForwardRt).To(Equal(pipeline.ForwardFromEXMEM))
		})

		It("should compute branch targets relative to pc+4", func() {
			exmem := execute(insts.EncodeI(insts.OpBEQ, insts.Zero, insts.Zero, 0xFFFF))
			Expect(exmem.BranchPC).To(Equal(emu.TextBase))
			Expect(exmem.Zero).To(BeTrue())
		})

		It("should take the jr target from rs", func() {
			regFile.Set(insts.RA, 0x00400123)

			exmem := execute(insts.EncodeR(insts.OpSpecial, insts.RA, insts.Zero, insts.Zero, 0, insts.FunctJR))
			Expect(exmem.JumpPC).To(Equal(uint32(0x00400120)))
		})

		It("should reject unknown function codes", func() {
			ifid := pipeline.IFIDRegister{Valid: true, InstructionWord: 0x3f}
			idex, err := pipeline.NewDecodeStage(regFile).Decode(&ifid)
			Expect(err).NotTo(HaveOccurred())

			_, err = executeStage.Execute(&idex, pipeline.ForwardingUnit{})
			Expect(err).To(MatchError(pipeline.ErrUnknownFunction))
		})
	})

	Describe("MemoryStage", func() {
		var memoryStage *pipeline.MemoryStage

		BeforeEach(func() {
			memoryStage = pipeline.NewMemoryStage(memory, nil)
		})

		It("should store and load words", func() {
			store := &pipeline.EXMEMRegister{Valid: true, ALULo: emu.DataBase, WriteData: 0xCAFEBABE}
			store.MemWrite, store.WordAlign = true, true

			_, err := memoryStage.Access(store)
			Expect(err).NotTo(HaveOccurred())

			load := &pipeline.EXMEMRegister{Valid: true, ALULo: emu.DataBase}
			load.MemRead, load.WordAlign, load.MemToReg = true, true, true

			res, err := memoryStage.Access(load)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.MEMWB.Result()).To(Equal(uint32(0xCAFEBABE)))
		})

		It("should zero-extend byte loads", func() {
			Expect(memory.Write8(emu.DataBase+1, 0xF0)).To(Succeed())

			load := &pipeline.EXMEMRegister{Valid: true, ALULo: emu.DataBase + 1}
			load.MemRead = true

			res, err := memoryStage.Access(load)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.MEMWB.MemData).To(Equal(uint32(0xF0)))
		})

		It("should fail on misaligned words", func() {
			load := &pipeline.EXMEMRegister{Valid: true, ALULo: emu.DataBase + 2}
			load.MemRead, load.WordAlign = true, true

			_, err := memoryStage.Access(load)
			Expect(err).To(MatchError(emu.ErrMisaligned))
		})

		DescribeTable("branch resolution",
			func(zero, branchNot, taken bool) {
				exmem := &pipeline.EXMEMRegister{Valid: true, Zero: zero, BranchPC: 0x00400100}
				exmem.Branch, exmem.BranchNot = true, branchNot

				res, err := memoryStage.Access(exmem)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Redirect).To(Equal(taken))

				if taken {
					Expect(res.Target).To(Equal(uint32(0x00400100)))
				}
			},
			Entry("beq equal", true, false, true),
			Entry("beq not equal", false, false, false),
			Entry("bne equal", true, true, false),
			Entry("bne not equal", false, true, true),
		)

		It("should always take jumps", func() {
			exmem := &pipeline.EXMEMRegister{Valid: true, JumpPC: 0x00400200}
			exmem.Jump = true

			res, err := memoryStage.Access(exmem)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Redirect).To(BeTrue())
			Expect(res.Target).To(Equal(uint32(0x00400200)))
		})
	})

	Describe("WritebackStage", func() {
		var writebackStage *pipeline.WritebackStage

		BeforeEach(func() {
			writebackStage = pipeline.NewWritebackStage(regFile)
		})

		It("should write the result register", func() {
			memwb := &pipeline.MEMWBRegister{
				Valid: true, PC: emu.TextBase, RegWrite: true,
				WriteRegister: insts.T0, ALULo: 9,
			}

			out := writebackStage.Writeback(memwb)

			Expect(regFile.Get(insts.T0)).To(Equal(uint32(9)))
			Expect(out.Valid).To(BeTrue())
			Expect(out.PC).To(Equal(emu.TextBase))
		})

		It("should write HI and LO", func() {
			memwb := &pipeline.MEMWBRegister{Valid: true, UseHILO: true, ALULo: 1, ALUHi: 2}

			writebackStage.Writeback(memwb)

			Expect(regFile.Get(insts.LO)).To(Equal(uint32(1)))
			Expect(regFile.Get(insts.HI)).To(Equal(uint32(2)))
		})

		It("should report a retiring syscall", func() {
			out := writebackStage.Writeback(&pipeline.MEMWBRegister{Valid: true, Syscall: true})
			Expect(out.Syscall).To(BeTrue())
		})

		It("should do nothing for a bubble", func() {
			out := writebackStage.Writeback(&pipeline.MEMWBRegister{RegWrite: true, WriteRegister: insts.T0, ALULo: 3})
			Expect(out.Valid).To(BeFalse())
			Expect(regFile.Get(insts.T0)).To(BeZero())
		})
	})
})

var _ = Describe("ALU", func() {
	add := pipeline.ALUControl{Func: pipeline.ALUAdd}
	sub := pipeline.ALUControl{InvertB: true, Func: pipeline.ALUAdd}
	nor := pipeline.ALUControl{InvertA: true, InvertB: true, Func: pipeline.ALUAnd}

	DescribeTable("results",
		func(a, b uint32, c pipeline.ALUControl, lo, hi uint32) {
			gotLo, gotHi := pipeline.ALU(a, b, c)
			Expect(gotLo).To(Equal(lo))
			Expect(gotHi).To(Equal(hi))
		},
		Entry("add wraps", uint32(0xFFFFFFFF), uint32(2), add, uint32(1), uint32(0)),
		Entry("sub", uint32(5), uint32(7), sub, uint32(0xFFFFFFFE), uint32(0)),
		Entry("nor", uint32(0xF0), uint32(0x0F), nor, uint32(0xFFFFFF00), uint32(0)),
		Entry("slt is signed", uint32(0xFFFFFFFF), uint32(1),
			pipeline.ALUControl{Func: pipeline.ALUSlt}, uint32(1), uint32(0)),
		Entry("sltu is unsigned", uint32(0xFFFFFFFF), uint32(1),
			pipeline.ALUControl{Func: pipeline.ALUSltu}, uint32(0), uint32(0)),
		Entry("upper", uint32(0), uint32(0x1234),
			pipeline.ALUControl{Func: pipeline.ALUUpper}, uint32(0x12340000), uint32(0)),
		Entry("signed multiply", uint32(0xFFFFFFFF), uint32(2),
			pipeline.ALUControl{Func: pipeline.ALUMul}, uint32(0xFFFFFFFE), uint32(0xFFFFFFFF)),
		Entry("unsigned multiply", uint32(0xFFFFFFFF), uint32(2),
			pipeline.ALUControl{Func: pipeline.ALUMulu}, uint32(0xFFFFFFFE), uint32(1)),
		Entry("signed divide", uint32(0xFFFFFFF9), uint32(2),
			pipeline.ALUControl{Func: pipeline.ALUDiv}, uint32(0xFFFFFFFD), uint32(0xFFFFFFFF)),
		Entry("divide by zero", uint32(9), uint32(0),
			pipeline.ALUControl{Func: pipeline.ALUDiv}, uint32(0), uint32(9)),
		Entry("unsigned divide by zero", uint32(9), uint32(0),
			pipeline.ALUControl{Func: pipeline.ALUDivu}, uint32(0), uint32(9)),
	)

	It("should add single-precision floats", func() {
		lo, _ := pipeline.ALU(
			math.Float32bits(1.5),
			math.Float32bits(2.25),
			pipeline.ALUControl{Func: pipeline.ALUAddS},
		)
		Expect(math.Float32frombits(lo)).To(Equal(float32(3.75)))
	})

	It("should resolve R-type controls from the function code", func() {
		c, err := pipeline.ResolveALUControl(pipeline.ALUOpR, insts.FunctSUBU)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(sub))

		c, err = pipeline.ResolveALUControl(pipeline.ALUOpR, insts.FunctSRAV)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shift).To(Equal(pipeline.ShiftVariable))
	})

	It("should reject unknown function codes", func() {
		_, err := pipeline.ResolveALUControl(pipeline.ALUOpR, 0x3f)
		Expect(err).To(MatchError(pipeline.ErrUnknownFunction))

		_, err = pipeline.ResolveALUControl(pipeline.ALUOpSpecial2, 0x3f)
		Expect(err).To(MatchError(pipeline.ErrUnknownFunction))
	})
})
