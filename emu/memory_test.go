package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read unwritten addresses as zero", func() {
		v, err := memory.Read32(emu.DataBase)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())
		Expect(memory.PageCount()).To(BeZero())
	})

	It("should store words little endian", func() {
		Expect(memory.Write32(emu.DataBase, 0x11223344)).To(Succeed())

		b, err := memory.Read8(emu.DataBase)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(byte(0x44)))

		b, _ = memory.Read8(emu.DataBase + 3)
		Expect(b).To(Equal(byte(0x11)))
	})

	It("should assemble words from bytes", func() {
		Expect(memory.LoadBytes(emu.DataBase, []byte{0xAD, 0xDE, 0, 0})).To(Succeed())

		v, err := memory.Read32(emu.DataBase)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0xDEAD)))
	})

	It("should reject misaligned word accesses", func() {
		_, err := memory.Read32(emu.DataBase + 2)
		Expect(err).To(MatchError(emu.ErrMisaligned))
		Expect(err).To(MatchError(emu.ErrOutOfRange))

		Expect(memory.Write32(emu.DataBase+1, 1)).To(MatchError(emu.ErrMisaligned))
	})

	It("should reject kernel addresses", func() {
		_, err := memory.Read32(emu.KernelBase)
		Expect(err).To(MatchError(emu.ErrOutOfRange))

		Expect(memory.Write8(0xFFFFFFFF, 1)).To(MatchError(emu.ErrOutOfRange))
		Expect(memory.LoadBytes(emu.KernelBase-1, []byte{1, 2})).
			To(MatchError(emu.ErrOutOfRange))
	})

	It("should list words in a range", func() {
		Expect(memory.Write32(emu.StackBase-4, 7)).To(Succeed())
		Expect(memory.Write32(emu.StackBase-8, 9)).To(Succeed())

		Expect(memory.Words(emu.StackBase-8, emu.StackBase)).
			To(Equal([]uint32{9, 7}))
	})

	It("should clone independently", func() {
		Expect(memory.Write32(emu.TextBase, 1)).To(Succeed())

		clone := memory.Clone()
		Expect(clone.Write32(emu.TextBase, 2)).To(Succeed())

		v, _ := memory.Read32(emu.TextBase)
		Expect(v).To(Equal(uint32(1)))
		v, _ = clone.Read32(emu.TextBase)
		Expect(v).To(Equal(uint32(2)))
	})
})
