package asm

import (
	"errors"
	"fmt"
)

// Assembly errors. Every failure is reported as an *Error wrapping one of
// these.
var (
	ErrUnknownMnemonic  = errors.New("unknown mnemonic")
	ErrUnknownDirective = errors.New("unknown directive")
	ErrUnresolvedLabel  = errors.New("unresolved label")
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrBadOperand       = errors.New("bad operand")
	ErrOperandCount     = errors.New("wrong number of operands")
	ErrOverflow         = errors.New("value does not fit its field")
	ErrWrongSegment     = errors.New("statement not allowed in this segment")
	ErrSyntax           = errors.New("syntax error")
)

// Error is an assembly error tied to a source line.
type Error struct {
	Line   int
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lineError(st *statement, err error) *Error {
	return &Error{Line: st.line, Source: st.source, Err: err}
}
