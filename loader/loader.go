// Package loader reads assembly source files and assembles them into
// programs ready to flash into a machine.
package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mipsim/asm"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/machine"
)

// Program is an assembled source file.
type Program struct {
	// Path is the file the program was read from, or a caller-given name.
	Path string
	// Source is the assembly text.
	Source string
	// Memory holds the text and data segments.
	Memory *emu.Memory
	// Labels maps symbols to addresses and addresses to source lines.
	Labels *asm.LabelTable
}

// Load reads and assembles the file at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadReader(path, f)
}

// LoadReader reads and assembles source from r. name is used in error
// messages.
func LoadReader(name string, r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return LoadSource(name, string(data))
}

// LoadSource assembles source held in memory.
func LoadSource(name, source string) (*Program, error) {
	mem, labels, err := asm.Assemble(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &Program{Path: name, Source: source, Memory: mem, Labels: labels}, nil
}

// Flash loads the program into m and resets it.
func (p *Program) Flash(m *machine.Machine) {
	m.Flash(p.Memory, p.Labels)
}

// TextWords returns the assembled instruction words from the first
// instruction up to and including the guard words.
func (p *Program) TextWords() []uint32 {
	start, end := p.Labels.TextRange()
	words := make([]uint32, 0, (end-start)/4)

	for addr := start; addr < end; addr += 4 {
		w, err := p.Memory.Read32(addr)
		if err != nil {
			break
		}

		words = append(words, w)
	}

	return words
}
