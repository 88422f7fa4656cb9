package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/mipsim/insts"
)

// resolver looks up a label address.
type resolver func(name string) (uint32, bool)

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	offsetPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*([+-])\s*(.+)$`)
	relocPattern  = regexp.MustCompile(`^%(hi|lo)\((.+)\)$`)
)

func parseIntReg(s string) (insts.Register, error) {
	r, ok := insts.ParseRegister(s)
	if !ok || !strings.HasPrefix(strings.TrimSpace(s), "$") || r >= 32 {
		return insts.Unknown, fmt.Errorf("%w: %q is not an integer register", ErrBadOperand, s)
	}

	return r, nil
}

func parseFloatReg(s string) (insts.Register, error) {
	r, ok := insts.ParseRegister(s)
	if !ok || !strings.HasPrefix(strings.TrimSpace(s), "$") || !r.IsFloat() {
		return insts.Unknown, fmt.Errorf("%w: %q is not a float register", ErrBadOperand, s)
	}

	return r, nil
}

// parseNumber parses an integer or character literal.
func parseNumber(s string) (int64, bool) {
	s = strings.TrimSpace(s)

	if len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'' {
		r, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
		if err != nil || tail != "" {
			return 0, false
		}

		return int64(r), true
	}

	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// evalExpr evaluates a numeric literal, a label, label+offset, or a
// %hi()/%lo() relocation of any of these.
func evalExpr(s string, resolve resolver) (int64, error) {
	s = strings.TrimSpace(s)

	if m := relocPattern.FindStringSubmatch(s); m != nil {
		v, err := evalExpr(m[2], resolve)
		if err != nil {
			return 0, err
		}

		if m[1] == "hi" {
			return int64(hi16(uint32(v))), nil
		}

		return lo16(uint32(v)), nil
	}

	if v, ok := parseNumber(s); ok {
		return v, nil
	}

	if m := offsetPattern.FindStringSubmatch(s); m != nil {
		base, err := evalExpr(m[1], resolve)
		if err != nil {
			return 0, err
		}

		off, ok := parseNumber(m[3])
		if !ok {
			return 0, fmt.Errorf("%w: bad offset in %q", ErrBadOperand, s)
		}

		if m[2] == "-" {
			off = -off
		}

		return int64(uint32(base + off)), nil
	}

	if !identPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrBadOperand, s)
	}

	addr, ok := resolve(s)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnresolvedLabel, s)
	}

	return int64(addr), nil
}

// hi16 is the upper half to pair with a sign-extended lo16.
func hi16(v uint32) uint32 {
	return ((v + 0x8000) >> 16) & 0xffff
}

func lo16(v uint32) int64 {
	return int64(int16(uint16(v)))
}

// splitMemOperand splits "offset(base)" into its parts. The offset may be
// empty and may itself contain parentheses, as in "%lo(x)($at)".
func splitMemOperand(s string) (offset, base string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ")") {
		return "", "", false
	}

	open := strings.LastIndex(s, "(")
	if open < 0 {
		return "", "", false
	}

	return strings.TrimSpace(s[:open]), s[open+1 : len(s)-1], true
}

func checkSigned16(v int64) error {
	if v < -0x8000 || v > 0x7fff {
		return fmt.Errorf("%w: %d is not a signed 16-bit value", ErrOverflow, v)
	}

	return nil
}

func checkAny16(v int64) error {
	if v < -0x8000 || v > 0xffff {
		return fmt.Errorf("%w: %d is not a 16-bit value", ErrOverflow, v)
	}

	return nil
}
