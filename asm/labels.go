package asm

import (
	"fmt"
	"sort"
)

// Symbol is a label bound to an address.
type Symbol struct {
	Name    string
	Address uint32
}

// LabelTable maps label names to addresses, and instruction addresses back
// to the source lines they were assembled from.
type LabelTable struct {
	addrs map[string]uint32
	lines map[uint32]int

	textStart, textEnd uint32
}

// NewLabelTable creates an empty label table.
func NewLabelTable() *LabelTable {
	return &LabelTable{
		addrs: make(map[string]uint32),
		lines: make(map[uint32]int),
	}
}

// Define binds name to addr. Redefinition is an error.
func (t *LabelTable) Define(name string, addr uint32) error {
	if _, ok := t.addrs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, name)
	}

	t.addrs[name] = addr

	return nil
}

// Lookup returns the address bound to name.
func (t *LabelTable) Lookup(name string) (uint32, bool) {
	addr, ok := t.addrs[name]
	return addr, ok
}

// MapLine records that the word at addr came from the given source line.
func (t *LabelTable) MapLine(addr uint32, line int) {
	t.lines[addr] = line
}

// Line returns the 1-based source line of the instruction at addr.
func (t *LabelTable) Line(addr uint32) (int, bool) {
	line, ok := t.lines[addr]
	return line, ok
}

// SetTextRange records the assembled text, from the first instruction up to
// and including the end-of-text guard words. end is exclusive.
func (t *LabelTable) SetTextRange(start, end uint32) {
	t.textStart, t.textEnd = start, end
}

// TextRange returns the range recorded by SetTextRange.
func (t *LabelTable) TextRange() (start, end uint32) {
	return t.textStart, t.textEnd
}

// Len returns the number of labels.
func (t *LabelTable) Len() int {
	return len(t.addrs)
}

// Symbols returns every label ordered by address, then name.
func (t *LabelTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t.addrs))
	for name, addr := range t.addrs {
		out = append(out, Symbol{Name: name, Address: addr})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}

		return out[i].Name < out[j].Name
	})

	return out
}
