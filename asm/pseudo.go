package asm

import (
	"fmt"
	"strconv"
	"strings"
)

type expander func(args []string) ([]tmpl, error)

var pseudos map[string]expander

func init() {
	pseudos = map[string]expander{
		"nop":  fixed(0, func([]string) []tmpl { return one("sll", "$zero", "$zero", "0") }),
		"move": fixed(2, func(a []string) []tmpl { return one("addu", a[0], a[1], "$zero") }),
		"neg":  fixed(2, func(a []string) []tmpl { return one("sub", a[0], "$zero", a[1]) }),
		"not":  fixed(2, func(a []string) []tmpl { return one("nor", a[0], a[1], "$zero") }),
		"b":    fixed(1, func(a []string) []tmpl { return one("beq", "$zero", "$zero", a[0]) }),
		"beqz": fixed(2, func(a []string) []tmpl { return one("beq", a[0], "$zero", a[1]) }),
		"bnez": fixed(2, func(a []string) []tmpl { return one("bne", a[0], "$zero", a[1]) }),
		"blt":  compareBranch("bne", false),
		"bge":  compareBranch("beq", false),
		"bgt":  compareBranch("bne", true),
		"ble":  compareBranch("beq", true),
		"la": fixed(2, func(a []string) []tmpl {
			return []tmpl{
				{"lui", []string{a[0], "%hi(" + a[1] + ")"}},
				{"addiu", []string{a[0], a[0], "%lo(" + a[1] + ")"}},
			}
		}),
		"li":   expandLI,
		"subi": expandSubi,
		"rem":  hiloResult("div", "mfhi"),
		"remu": hiloResult("divu", "mfhi"),
	}
}

func one(mnemonic string, args ...string) []tmpl {
	return []tmpl{{mnemonic: mnemonic, args: args}}
}

func fixed(n int, f func([]string) []tmpl) expander {
	return func(args []string) ([]tmpl, error) {
		if len(args) != n {
			return nil, fmt.Errorf("%w: takes %d, got %d", ErrOperandCount, n, len(args))
		}

		return f(args), nil
	}
}

// compareBranch lowers blt/bge/bgt/ble to slt into $at and a branch on it.
func compareBranch(branch string, swap bool) expander {
	return fixed(3, func(a []string) []tmpl {
		lhs, rhs := a[0], a[1]
		if swap {
			lhs, rhs = rhs, lhs
		}

		return []tmpl{
			{"slt", []string{"$at", lhs, rhs}},
			{branch, []string{"$at", "$zero", a[2]}},
		}
	})
}

// hiloResult lowers a three-operand divide to the divide plus a move from
// HI or LO.
func hiloResult(op, move string) expander {
	return fixed(3, func(a []string) []tmpl {
		return []tmpl{
			{op, []string{a[1], a[2]}},
			{move, []string{a[0]}},
		}
	})
}

func expandLI(args []string) ([]tmpl, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: takes 2, got %d", ErrOperandCount, len(args))
	}

	v, ok := parseNumber(args[1])
	if !ok {
		return nil, fmt.Errorf("%w: li needs a numeric literal, got %q", ErrBadOperand, args[1])
	}

	if v < -0x80000000 || v > 0xffffffff {
		return nil, fmt.Errorf("%w: %d is not a 32-bit value", ErrOverflow, v)
	}

	if checkSigned16(v) == nil {
		return one("addiu", args[0], "$zero", args[1]), nil
	}

	u := uint32(v)
	lit := strconv.FormatUint(uint64(u), 10)
	out := one("lui", args[0], "%hi("+lit+")")

	if lo16(u) != 0 {
		out = append(out, tmpl{"addiu", []string{args[0], args[0], "%lo(" + lit + ")"}})
	}

	return out, nil
}

func expandSubi(args []string) ([]tmpl, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: takes 3, got %d", ErrOperandCount, len(args))
	}

	v, ok := parseNumber(args[2])
	if !ok {
		return nil, fmt.Errorf("%w: subi needs a numeric literal, got %q", ErrBadOperand, args[2])
	}

	return one("addi", args[0], args[1], strconv.FormatInt(-v, 10)), nil
}

// expand lowers one source instruction to machine instructions.
func expand(mnemonic string, args []string) ([]tmpl, error) {
	if f, ok := pseudos[mnemonic]; ok {
		return f(args)
	}

	info, ok := opcodes[mnemonic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMnemonic, mnemonic)
	}

	switch {
	case (mnemonic == "div" || mnemonic == "divu") && len(args) == 3:
		return hiloResult(mnemonic, "mflo")(args)
	case (info.format == fmtMem || info.format == fmtFloatMem) &&
		len(args) == 2 && isLabelAddress(args[1]):
		// lw $t0, label
		return []tmpl{
			{"lui", []string{"$at", "%hi(" + args[1] + ")"}},
			{mnemonic, []string{args[0], "%lo(" + args[1] + ")($at)"}},
		}, nil
	}

	return []tmpl{{mnemonic: mnemonic, args: args}}, nil
}

func isLabelAddress(s string) bool {
	if strings.Contains(s, "(") {
		return false
	}

	_, numeric := parseNumber(s)

	return !numeric
}
