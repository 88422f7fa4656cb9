package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Segment base addresses.
const (
	TextBase   uint32 = 0x00400000
	DataBase   uint32 = 0x10010000
	StackBase  uint32 = 0x7FFFEFFC
	KernelBase uint32 = 0x80000000
)

// Memory errors.
var (
	// ErrOutOfRange is returned for accesses outside the user address space.
	ErrOutOfRange = errors.New("address out of range")

	// ErrMisaligned is returned for word accesses that are not 4-byte
	// aligned. It also matches ErrOutOfRange.
	ErrMisaligned = fmt.Errorf("%w: misaligned word access", ErrOutOfRange)
)

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

type page [pageSize]byte

// Memory is a sparse, little-endian, byte-addressable store covering the
// user address space. Pages are allocated on first write; unwritten
// addresses read as zero.
type Memory struct {
	pages map[uint32]*page
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*page)}
}

func checkRange(addr uint32, size uint32) error {
	if addr >= KernelBase || KernelBase-addr < size {
		return fmt.Errorf("%w: 0x%08x", ErrOutOfRange, addr)
	}

	return nil
}

func checkWord(addr uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("%w: 0x%08x", ErrMisaligned, addr)
	}

	return checkRange(addr, 4)
}

func (m *Memory) lookup(addr uint32) *page {
	return m.pages[addr>>pageBits]
}

func (m *Memory) ensure(addr uint32) *page {
	p, ok := m.pages[addr>>pageBits]
	if !ok {
		p = new(page)
		m.pages[addr>>pageBits] = p
	}

	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) (byte, error) {
	if err := checkRange(addr, 1); err != nil {
		return 0, err
	}

	p := m.lookup(addr)
	if p == nil {
		return 0, nil
	}

	return p[addr&pageMask], nil
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value byte) error {
	if err := checkRange(addr, 1); err != nil {
		return err
	}

	m.ensure(addr)[addr&pageMask] = value

	return nil
}

// Read32 reads an aligned word. Aligned words never straddle a page.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	if err := checkWord(addr); err != nil {
		return 0, err
	}

	p := m.lookup(addr)
	if p == nil {
		return 0, nil
	}

	off := addr & pageMask

	return binary.LittleEndian.Uint32(p[off : off+4]), nil
}

// Write32 writes an aligned word.
func (m *Memory) Write32(addr uint32, value uint32) error {
	if err := checkWord(addr); err != nil {
		return err
	}

	off := addr & pageMask
	binary.LittleEndian.PutUint32(m.ensure(addr)[off:off+4], value)

	return nil
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) error {
	if err := checkRange(addr, uint32(len(data))); err != nil {
		return err
	}

	for i, b := range data {
		a := addr + uint32(i)
		m.ensure(a)[a&pageMask] = b
	}

	return nil
}

// Words returns the words in [from, to), both rounded down to a word
// boundary. Out-of-range words are skipped.
func (m *Memory) Words(from, to uint32) []uint32 {
	from &^= 3
	to &^= 3

	var out []uint32
	for a := from; a < to; a += 4 {
		v, err := m.Read32(a)
		if err != nil {
			break
		}

		out = append(out, v)
	}

	return out
}

// Clone returns an independent copy of the memory.
func (m *Memory) Clone() *Memory {
	c := NewMemory()
	for k, p := range m.pages {
		cp := *p
		c.pages[k] = &cp
	}

	return c
}

// PageCount returns the number of allocated pages.
func (m *Memory) PageCount() int {
	return len(m.pages)
}
