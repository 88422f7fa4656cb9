package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Registers", func() {
	It("should name integer registers in lowercase", func() {
		Expect(insts.Zero.String()).To(Equal("zero"))
		Expect(insts.T0.String()).To(Equal("t0"))
		Expect(insts.SP.String()).To(Equal("sp"))
		Expect(insts.RA.String()).To(Equal("ra"))
	})

	It("should name float and special registers", func() {
		Expect(insts.F12.String()).To(Equal("f12"))
		Expect(insts.HI.String()).To(Equal("hi"))
		Expect(insts.LO.String()).To(Equal("lo"))
		Expect(insts.Unknown.String()).To(Equal("unknown"))
	})

	It("should place float registers after the integer bank", func() {
		Expect(int(insts.F0)).To(Equal(32))
		Expect(int(insts.F31)).To(Equal(63))
		Expect(int(insts.HI)).To(Equal(64))
		Expect(int(insts.LO)).To(Equal(65))
	})

	It("should map out-of-range indices to Unknown", func() {
		Expect(insts.RegisterFromIndex(8)).To(Equal(insts.T0))
		Expect(insts.RegisterFromIndex(65)).To(Equal(insts.LO))
		Expect(insts.RegisterFromIndex(66)).To(Equal(insts.Unknown))
	})

	DescribeTable("parsing register names",
		func(name string, want insts.Register, ok bool) {
			r, found := insts.ParseRegister(name)
			Expect(found).To(Equal(ok))
			Expect(r).To(Equal(want))
		},
		Entry("symbolic", "$t0", insts.T0, true),
		Entry("without dollar", "sp", insts.SP, true),
		Entry("numeric", "$31", insts.RA, true),
		Entry("float", "$f12", insts.F12, true),
		Entry("uppercase", "$A0", insts.A0, true),
		Entry("s8 alias", "$s8", insts.FP, true),
		Entry("out of range number", "$32", insts.Unknown, false),
		Entry("garbage", "$q7", insts.Unknown, false),
		Entry("empty", "$", insts.Unknown, false),
	)
})
