// Package asm implements a two-pass assembler for the simulated MIPS machine.
//
// The first pass lays out every statement and binds labels to addresses; the
// second encodes instructions and data into a fresh memory image. Assembly is
// all-or-nothing: on any error no memory is returned.
//
// Usage:
//
//	mem, labels, err := asm.Assemble(source)
//	if err != nil {
//		var asmErr *asm.Error
//		if errors.As(err, &asmErr) {
//			fmt.Println(asmErr.Line, asmErr.Err)
//		}
//	}
package asm

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

type segment uint8

const (
	segText segment = iota
	segData
)

type cursors struct {
	current segment
	addr    [2]uint32
}

func newCursors() *cursors {
	return &cursors{addr: [2]uint32{emu.TextBase, emu.DataBase}}
}

func (c *cursors) at() uint32 {
	return c.addr[c.current]
}

func (c *cursors) align(n uint32) {
	c.addr[c.current] = (c.addr[c.current] + n - 1) &^ (n - 1)
}

func (c *cursors) advance(n uint32) {
	c.addr[c.current] += n
}

// placement is a statement's resolved address and content.
type placement struct {
	addr  uint32
	insts []tmpl
	data  []byte
}

type assembler struct {
	labels *LabelTable
	errs   []error
}

// Assemble assembles source into a memory image and label table. The
// returned error joins every *Error found.
func Assemble(source string) (*emu.Memory, *LabelTable, error) {
	stmts, errs := parseSource(source)
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	a := &assembler{labels: NewLabelTable()}

	placements, textEnd := a.layout(stmts)
	if len(a.errs) > 0 {
		return nil, nil, errors.Join(a.errs...)
	}

	mem := a.emit(stmts, placements, textEnd)
	if len(a.errs) > 0 {
		return nil, nil, errors.Join(a.errs...)
	}

	return mem, a.labels, nil
}

func (a *assembler) fail(st *statement, err error) {
	a.errs = append(a.errs, lineError(st, err))
}

// layout is the first pass. It assigns addresses and binds labels, and
// returns the end of the text segment.
func (a *assembler) layout(stmts []*statement) ([]placement, uint32) {
	cur := newCursors()
	placements := make([]placement, len(stmts))
	permissive := func(string) (uint32, bool) { return 0, true }

	var lastText *statement

	for i, st := range stmts {
		if a.switchSegment(st, cur) {
			a.bindLabels(st, cur.at())

			if cur.current == segText {
				lastText = st
			}

			continue
		}

		if cur.current == segText {
			lastText = st
		}

		n, err := st.alignment()
		if err != nil {
			a.fail(st, err)
			continue
		}

		cur.align(n)
		a.bindLabels(st, cur.at())

		p := placement{addr: cur.at()}

		switch {
		case st.mnemonic != "":
			if cur.current != segText {
				a.fail(st, fmt.Errorf("%w: %s outside .text", ErrWrongSegment, st.mnemonic))
				continue
			}

			p.insts, err = expand(st.mnemonic, st.args)
			cur.advance(uint32(4 * len(p.insts)))
		case st.directive != "":
			p.data, err = dataBytes(st, permissive)
			cur.advance(uint32(len(p.data)))
		}

		if err != nil {
			a.fail(st, err)
		}

		placements[i] = p
	}

	cur.current = segText
	cur.align(4)
	end := cur.at()

	if uint64(end)+8 > uint64(emu.KernelBase) && lastText != nil {
		a.fail(lastText, fmt.Errorf("%w: no room for the end-of-text guard at 0x%08x", ErrOverflow, end))
	}

	return placements, end
}

func (a *assembler) bindLabels(st *statement, addr uint32) {
	for _, name := range st.labels {
		if err := a.labels.Define(name, addr); err != nil {
			a.fail(st, err)
		}
	}
}

// switchSegment handles .text and .data, with an optional start address.
func (a *assembler) switchSegment(st *statement, cur *cursors) bool {
	var seg segment

	switch st.directive {
	case ".text":
		seg = segText
	case ".data":
		seg = segData
	default:
		return false
	}

	cur.current = seg

	if len(st.args) == 1 {
		v, ok := parseNumber(st.args[0])
		if !ok || v < 0 || uint32(v) >= emu.KernelBase {
			a.fail(st, fmt.Errorf("%w: bad segment address %q", ErrBadOperand, st.args[0]))
		} else {
			cur.addr[seg] = uint32(v)
		}
	} else if len(st.args) > 1 {
		a.fail(st, fmt.Errorf("%w: %s takes at most 1", ErrOperandCount, st.directive))
	}

	return true
}

// emit is the second pass. Data is re-evaluated now that every label is
// known.
func (a *assembler) emit(stmts []*statement, placements []placement, textEnd uint32) *emu.Memory {
	mem := emu.NewMemory()
	resolve := resolver(a.labels.Lookup)
	start := textEnd

	for i, st := range stmts {
		p := placements[i]

		switch {
		case st.mnemonic != "":
			if len(p.insts) > 0 && p.addr < start {
				start = p.addr
			}

			a.emitInstructions(st, p, mem, resolve)
		case st.directive != "" && len(p.data) > 0:
			data, err := dataBytes(st, resolve)
			if err == nil {
				err = mem.LoadBytes(p.addr, data)
			}

			if err != nil {
				a.fail(st, err)
			}
		}
	}

	for i, w := range []uint32{insts.GuardSentinelWord, insts.GuardSyscallWord} {
		if err := mem.Write32(textEnd+uint32(4*i), w); err != nil {
			a.errs = append(a.errs, fmt.Errorf("end-of-text guard: %w", err))
			return mem
		}
	}

	a.labels.SetTextRange(start, textEnd+8)

	return mem
}

func (a *assembler) emitInstructions(st *statement, p placement, mem *emu.Memory, resolve resolver) {
	for j, t := range p.insts {
		addr := p.addr + uint32(4*j)

		word, err := encode(t, addr, resolve)
		if err == nil {
			err = mem.Write32(addr, word)
		}

		if err != nil {
			a.fail(st, err)
			return
		}

		a.labels.MapLine(addr, st.line)
	}
}
