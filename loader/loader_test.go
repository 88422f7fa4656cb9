package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/asm"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/machine"
)

const program = `# sum 1..4
        .data
result: .word 0
        .text
main:   li   $t0, 4
loop:   add  $t1, $t1, $t0
        addi $t0, $t0, -1
        bnez $t0, loop
        nop
        nop
        la   $t2, result
        sw   $t1, 0($t2)
        li   $v0, 10
        syscall
`

var _ = Describe("Source Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(tempDir, "sum.s")
			Expect(os.WriteFile(path, []byte(program), 0o644)).To(Succeed())
		})

		It("should load without error", func() {
			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Path).To(Equal(path))
			Expect(prog.Source).To(Equal(program))
		})

		It("should resolve labels", func() {
			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())

			main, ok := prog.Labels.Lookup("main")
			Expect(ok).To(BeTrue())
			Expect(main).To(Equal(emu.TextBase))

			result, ok := prog.Labels.Lookup("result")
			Expect(ok).To(BeTrue())
			Expect(result).To(Equal(emu.DataBase))
		})

		It("should end the text with the guard words", func() {
			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())

			words := prog.TextWords()
			Expect(words[len(words)-2:]).To(Equal([]uint32{
				insts.GuardSentinelWord, insts.GuardSyscallWord,
			}))
		})

		It("should run when flashed", func() {
			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())

			m := machine.New()
			prog.Flash(m)
			Expect(m.Run(1000)).To(Succeed())

			Expect(m.ReadWord(emu.DataBase)).To(Equal(uint32(10)))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.s"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("TextWords", func() {
		It("should start at the first instruction and stop after the guard words", func() {
			prog, err := loader.LoadSource("high.s", ".text 0x00400100\n nop\n")
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.TextWords()).To(Equal([]uint32{
				insts.NOP, insts.GuardSentinelWord, insts.GuardSyscallWord,
			}))
		})
	})

	Describe("LoadReader", func() {
		It("should report assembly errors with the source name", func() {
			_, err := loader.LoadReader("bad.s", strings.NewReader("frob $t0\n"))

			Expect(err).To(MatchError(asm.ErrUnknownMnemonic))
			Expect(err.Error()).To(HavePrefix("bad.s: "))
		})
	})
})
