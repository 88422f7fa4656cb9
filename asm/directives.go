package asm

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// directives that carry no data.
var ignoredDirectives = map[string]bool{
	".globl":  true,
	".global": true,
	".ent":    true,
	".end":    true,
	".extern": true,
	".set":    true,
}

// alignment returns the byte alignment a statement requires before it is
// placed.
func (st *statement) alignment() (uint32, error) {
	switch {
	case st.mnemonic != "":
		return 4, nil
	case st.directive == ".word":
		return 4, nil
	case st.directive == ".half":
		return 2, nil
	case st.directive == ".align":
		if len(st.args) != 1 {
			return 0, fmt.Errorf("%w: .align takes 1, got %d", ErrOperandCount, len(st.args))
		}

		n, ok := parseNumber(st.args[0])
		if !ok || n < 0 || n > 16 {
			return 0, fmt.Errorf("%w: bad alignment %q", ErrBadOperand, st.args[0])
		}

		return 1 << n, nil
	}

	return 1, nil
}

// dataBytes returns the bytes a data directive emits.
func dataBytes(st *statement, resolve resolver) ([]byte, error) {
	switch st.directive {
	case ".word":
		return packValues(st.args, 4, resolve)
	case ".half":
		return packValues(st.args, 2, resolve)
	case ".byte":
		return packValues(st.args, 1, resolve)
	case ".space":
		if len(st.args) != 1 {
			return nil, fmt.Errorf("%w: .space takes 1, got %d", ErrOperandCount, len(st.args))
		}

		n, ok := parseNumber(st.args[0])
		if !ok || n < 0 || n > 1<<24 {
			return nil, fmt.Errorf("%w: bad size %q", ErrBadOperand, st.args[0])
		}

		return make([]byte, n), nil
	case ".ascii", ".asciiz":
		var out []byte

		for _, arg := range st.args {
			s, err := strconv.Unquote(arg)
			if err != nil || arg[0] != '"' {
				return nil, fmt.Errorf("%w: %s is not a string literal", ErrBadOperand, arg)
			}

			out = append(out, s...)
			if st.directive == ".asciiz" {
				out = append(out, 0)
			}
		}

		return out, nil
	case ".align":
		return nil, nil
	}

	if ignoredDirectives[st.directive] {
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownDirective, st.directive)
}

func packValues(args []string, size int, resolve resolver) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: expected at least one value", ErrOperandCount)
	}

	out := make([]byte, 0, len(args)*size)

	for _, arg := range args {
		v, err := evalExpr(arg, resolve)
		if err != nil {
			return nil, err
		}

		limit := int64(1) << (8 * size)
		if v < -limit/2 || v >= limit {
			return nil, fmt.Errorf("%w: %d does not fit in %d bytes", ErrOverflow, v, size)
		}

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		out = append(out, buf[:size]...)
	}

	return out, nil
}
