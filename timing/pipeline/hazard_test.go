package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("ForwardingUnit", func() {
	var (
		exmem *pipeline.EXMEMRegister
		memwb *pipeline.MEMWBRegister
	)

	BeforeEach(func() {
		exmem = &pipeline.EXMEMRegister{}
		memwb = &pipeline.MEMWBRegister{}
	})

	Context("when no forwarding is needed", func() {
		It("should return the decoded value", func() {
			fwd := pipeline.NewForwardingUnit(exmem, memwb)

			v, src := fwd.Resolve(insts.T0, 7)
			Expect(v).To(Equal(uint32(7)))
			Expect(src).To(Equal(pipeline.ForwardNone))
		})
	})

	Context("when both stages write the register", func() {
		BeforeEach(func() {
			exmem.Valid = true
			exmem.RegWrite = true
			exmem.WriteRegister = insts.T0
			exmem.ALULo = 100

			memwb.Valid = true
			memwb.RegWrite = true
			memwb.WriteRegister = insts.T0
			memwb.ALULo = 200
		})

		It("should prefer EX/MEM", func() {
			fwd := pipeline.NewForwardingUnit(exmem, memwb)

			v, src := fwd.Resolve(insts.T0, 0)
			Expect(v).To(Equal(uint32(100)))
			Expect(src).To(Equal(pipeline.ForwardFromEXMEM))
		})

		It("should fall back to MEM/WB when EX/MEM is a bubble", func() {
			exmem.Valid = false
			fwd := pipeline.NewForwardingUnit(exmem, memwb)

			v, src := fwd.Resolve(insts.T0, 0)
			Expect(v).To(Equal(uint32(200)))
			Expect(src).To(Equal(pipeline.ForwardFromMEMWB))
		})
	})

	It("should forward loaded data from MEM/WB", func() {
		memwb.Valid = true
		memwb.RegWrite = true
		memwb.MemToReg = true
		memwb.WriteRegister = insts.S0
		memwb.ALULo = 0x10010000
		memwb.MemData = 42

		v, _ := pipeline.NewForwardingUnit(exmem, memwb).Resolve(insts.S0, 0)
		Expect(v).To(Equal(uint32(42)))
	})

	It("should never forward $zero", func() {
		exmem.Valid = true
		exmem.RegWrite = true
		exmem.WriteRegister = insts.Zero
		exmem.ALULo = 9

		v, src := pipeline.NewForwardingUnit(exmem, memwb).Resolve(insts.Zero, 0)
		Expect(v).To(BeZero())
		Expect(src).To(Equal(pipeline.ForwardNone))
	})

	It("should ignore instructions that do not write", func() {
		exmem.Valid = true
		exmem.WriteRegister = insts.T1
		exmem.ALULo = 9

		_, src := pipeline.NewForwardingUnit(exmem, memwb).Resolve(insts.T1, 0)
		Expect(src).To(Equal(pipeline.ForwardNone))
	})

	It("should forward HI and LO from a multiply or divide", func() {
		exmem.Valid = true
		exmem.UseHILO = true
		exmem.ALULo = 0x11
		exmem.ALUHi = 0x22

		fwd := pipeline.NewForwardingUnit(exmem, memwb)

		lo, _ := fwd.Resolve(insts.LO, 0)
		hi, _ := fwd.Resolve(insts.HI, 0)
		Expect(lo).To(Equal(uint32(0x11)))
		Expect(hi).To(Equal(uint32(0x22)))
	})
})

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		load       *pipeline.IDEXRegister
	)

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
		load = &pipeline.IDEXRegister{Valid: true, Rt: insts.T1}
		load.MemRead = true
	})

	DescribeTable("DetectLoadUseHazard",
		func(rs, rt insts.Register, expected bool) {
			next := &pipeline.IDEXRegister{Valid: true, Rs: rs, Rt: rt}
			Expect(hazardUnit.DetectLoadUseHazard(load, next)).To(Equal(expected))
		},
		Entry("rs depends on the load", insts.T1, insts.T2, true),
		Entry("rt depends on the load", insts.T2, insts.T1, true),
		Entry("independent", insts.T2, insts.T3, false),
	)

	It("should not stall on a non-load", func() {
		load.MemRead = false
		next := &pipeline.IDEXRegister{Valid: true, Rs: insts.T1}
		Expect(hazardUnit.DetectLoadUseHazard(load, next)).To(BeFalse())
	})

	It("should not stall on a load into $zero", func() {
		load.Rt = insts.Zero
		next := &pipeline.IDEXRegister{Valid: true, Rs: insts.Zero}
		Expect(hazardUnit.DetectLoadUseHazard(load, next)).To(BeFalse())
	})

	It("should not stall on a bubble", func() {
		next := &pipeline.IDEXRegister{Rs: insts.T1}
		Expect(hazardUnit.DetectLoadUseHazard(load, next)).To(BeFalse())
	})
})
