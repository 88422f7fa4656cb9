package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Syscall Handler", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		handler *emu.DefaultSyscallHandler
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		memory = emu.NewMemory()
		handler = emu.NewDefaultSyscallHandler(regFile, memory)
	})

	trap := func(service uint32) emu.Syscall {
		regFile.Set(insts.V0, service)
		return handler.Handle()
	}

	Describe("Print services", func() {
		It("should print $a0 as a signed integer", func() {
			regFile.Set(insts.A0, uint32(0xFFFFFFF6))
			Expect(trap(emu.ServicePrintInt)).
				To(Equal(emu.Syscall{Kind: emu.KindPrint, Message: "-10"}))
		})

		It("should print $f12 as a float", func() {
			regFile.Set(insts.F12, math.Float32bits(1.5))
			Expect(trap(emu.ServicePrintFloat).Message).To(Equal("1.5"))
		})

		It("should print a NUL-terminated string at $a0", func() {
			Expect(memory.LoadBytes(emu.DataBase, []byte("hi\x00junk"))).To(Succeed())
			regFile.Set(insts.A0, emu.DataBase)

			Expect(trap(emu.ServicePrintString).Message).To(Equal("hi"))
		})

		It("should report invalid UTF-8 as an error", func() {
			Expect(memory.LoadBytes(emu.DataBase, []byte{0xff, 0xfe, 0})).To(Succeed())
			regFile.Set(insts.A0, emu.DataBase)

			Expect(trap(emu.ServicePrintString).Kind).To(Equal(emu.KindError))
		})

		It("should print characters, hex, binary and unsigned", func() {
			regFile.Set(insts.A0, 'A')
			Expect(trap(emu.ServicePrintChar).Message).To(Equal("A"))

			regFile.Set(insts.A0, 255)
			Expect(trap(emu.ServicePrintHex).Message).To(Equal("ff"))
			Expect(trap(emu.ServicePrintBinary).Message).To(Equal("11111111"))

			regFile.Set(insts.A0, 0xFFFFFFFF)
			Expect(trap(emu.ServicePrintUnsigned).Message).To(Equal("4294967295"))
		})

		It("should print the whole code point in a0", func() {
			regFile.Set(insts.A0, 0x4E2D)
			Expect(trap(emu.ServicePrintChar).Message).To(Equal("中"))

			regFile.Set(insts.A0, 0xD800)
			Expect(trap(emu.ServicePrintChar).Message).To(Equal("\uFFFD"))

			regFile.Set(insts.A0, 0xFFFFFFFF)
			Expect(trap(emu.ServicePrintChar).Message).To(Equal("\uFFFD"))
		})
	})

	Describe("Control services", func() {
		It("should classify exit as quit", func() {
			Expect(trap(emu.ServiceExit)).To(Equal(emu.Syscall{Kind: emu.KindQuit}))
		})

		It("should report the kernel sentinel", func() {
			Expect(trap(insts.KernelSentinel)).To(Equal(emu.Syscall{
				Kind:    emu.KindError,
				Message: emu.KernelMessage,
			}))
		})

		It("should report unknown services as errors", func() {
			sc := trap(999)
			Expect(sc.Kind).To(Equal(emu.KindError))
			Expect(sc.Message).To(ContainSubstring("unrecognized syscall"))
		})

		It("should not implement read char", func() {
			regFile.Set(insts.V0, emu.ServiceReadChar)
			_, err := handler.Trap()
			Expect(err).To(MatchError(emu.ErrUnknownSyscall))
		})
	})

	Describe("Read services", func() {
		It("should group reads under ReadAny", func() {
			sc := trap(emu.ServiceReadInt)
			Expect(sc.Kind).To(Equal(emu.KindReadInt))
			Expect(sc.Category()).To(Equal(emu.KindReadAny))
			Expect(trap(emu.ServiceReadFloat).Category()).To(Equal(emu.KindReadAny))
			Expect(trap(emu.ServiceReadString).IsRead()).To(BeTrue())
			Expect(trap(emu.ServiceExit).Category()).To(Equal(emu.KindQuit))
		})

		It("should resolve an integer into $v0", func() {
			sc := emu.Syscall{Kind: emu.KindReadInt}
			Expect(handler.Resolve(sc, " -42\n")).To(Succeed())
			Expect(regFile.Get(insts.V0)).To(Equal(uint32(0xFFFFFFD6)))
		})

		It("should reject a non-integer", func() {
			sc := emu.Syscall{Kind: emu.KindReadInt}
			Expect(handler.Resolve(sc, "abc")).To(MatchError(emu.ErrInvalidInput))
		})

		It("should resolve a float into $f0", func() {
			sc := emu.Syscall{Kind: emu.KindReadFloat}
			Expect(handler.Resolve(sc, "2.25")).To(Succeed())
			Expect(regFile.Get(insts.F0)).To(Equal(math.Float32bits(2.25)))
		})

		It("should copy a string into the buffer with zero padding", func() {
			Expect(memory.LoadBytes(emu.DataBase, []byte("xxxxxxxx"))).To(Succeed())
			regFile.Set(insts.A0, emu.DataBase)
			regFile.Set(insts.A1, 6)

			Expect(handler.Resolve(emu.Syscall{Kind: emu.KindReadString}, "abc\n")).
				To(Succeed())

			buf := make([]byte, 8)
			for i := range buf {
				buf[i], _ = memory.Read8(emu.DataBase + uint32(i))
			}
			Expect(buf).To(Equal([]byte("abc\x00\x00\x00xx")))
		})

		It("should truncate strings longer than $a1", func() {
			regFile.Set(insts.A0, emu.DataBase)
			regFile.Set(insts.A1, 2)

			Expect(handler.Resolve(emu.Syscall{Kind: emu.KindReadString}, "hello")).
				To(Succeed())

			b, _ := memory.Read8(emu.DataBase + 1)
			Expect(b).To(Equal(byte('e')))
			b, _ = memory.Read8(emu.DataBase + 2)
			Expect(b).To(BeZero())
		})
	})
})
