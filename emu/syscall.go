package emu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sarchlab/mipsim/insts"
)

// Syscall service numbers, selected by $v0.
const (
	ServicePrintInt      uint32 = 1
	ServicePrintFloat    uint32 = 2
	ServicePrintString   uint32 = 4
	ServiceReadInt       uint32 = 5
	ServiceReadFloat     uint32 = 6
	ServiceReadString    uint32 = 8
	ServiceExit          uint32 = 10
	ServicePrintChar     uint32 = 11
	ServiceReadChar      uint32 = 12
	ServicePrintHex      uint32 = 34
	ServicePrintBinary   uint32 = 35
	ServicePrintUnsigned uint32 = 36
)

// KernelMessage is reported when execution runs into the guard words.
const KernelMessage = "program finished (ran into kernel)"

// Syscall errors.
var (
	ErrUnknownSyscall = errors.New("unrecognized syscall")
	ErrInvalidInput   = errors.New("invalid input")
)

// SyscallKind classifies a trapped syscall.
type SyscallKind uint8

// Syscall kinds. ReadInt, ReadFloat and ReadString share the ReadAny
// category.
const (
	KindPrint SyscallKind = iota
	KindError
	KindQuit
	KindReadAny
	KindReadInt
	KindReadFloat
	KindReadString
)

func (k SyscallKind) String() string {
	switch k {
	case KindPrint:
		return "Print"
	case KindError:
		return "Error"
	case KindQuit:
		return "Quit"
	case KindReadAny:
		return "ReadAny"
	case KindReadInt:
		return "ReadInt"
	case KindReadFloat:
		return "ReadFloat"
	case KindReadString:
		return "ReadString"
	default:
		return fmt.Sprintf("SyscallKind(%d)", uint8(k))
	}
}

// Syscall is the outcome of trapping a syscall instruction. Message is set
// for Print and Error.
type Syscall struct {
	Kind    SyscallKind
	Message string
}

// Category returns the callback category of the syscall.
func (s Syscall) Category() SyscallKind {
	if s.IsRead() {
		return KindReadAny
	}

	return s.Kind
}

// IsRead reports whether the syscall waits for input.
func (s Syscall) IsRead() bool {
	switch s.Kind {
	case KindReadAny, KindReadInt, KindReadFloat, KindReadString:
		return true
	}

	return false
}

func (s Syscall) String() string {
	if s.Message == "" {
		return s.Kind.String()
	}

	return fmt.Sprintf("%s(%q)", s.Kind, s.Message)
}

// SyscallHandler traps and resolves syscalls.
type SyscallHandler interface {
	// Handle inspects $v0 and its arguments and classifies the syscall.
	// Failures are reported as KindError syscalls.
	Handle() Syscall

	// Resolve completes a read syscall with the given input.
	Resolve(sc Syscall, input string) error
}

// DefaultSyscallHandler implements the MARS-style service set over a
// register file and memory.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{regFile: regFile, memory: memory}
}

// Handle traps the syscall selected by $v0.
func (h *DefaultSyscallHandler) Handle() Syscall {
	sc, err := h.Trap()
	if err != nil {
		return Syscall{Kind: KindError, Message: err.Error()}
	}

	return sc
}

// Trap classifies the syscall selected by $v0.
func (h *DefaultSyscallHandler) Trap() (Syscall, error) {
	v0 := h.regFile.Get(insts.V0)
	a0 := h.regFile.Get(insts.A0)

	switch v0 {
	case ServicePrintInt:
		return printed(strconv.FormatInt(int64(int32(a0)), 10)), nil
	case ServicePrintFloat:
		f := math.Float32frombits(h.regFile.Get(insts.F12))
		return printed(strconv.FormatFloat(float64(f), 'f', -1, 32)), nil
	case ServicePrintString:
		s, err := h.readString(a0)
		if err != nil {
			return Syscall{}, err
		}

		return printed(s), nil
	case ServiceReadInt:
		return Syscall{Kind: KindReadInt}, nil
	case ServiceReadFloat:
		return Syscall{Kind: KindReadFloat}, nil
	case ServiceReadString:
		return Syscall{Kind: KindReadString}, nil
	case ServiceExit:
		return Syscall{Kind: KindQuit}, nil
	case ServicePrintChar:
		r := rune(a0)
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}

		return printed(string(r)), nil
	case ServiceReadChar:
		return Syscall{}, fmt.Errorf("%w: read char not implemented", ErrUnknownSyscall)
	case ServicePrintHex:
		return printed(fmt.Sprintf("%x", a0)), nil
	case ServicePrintBinary:
		return printed(fmt.Sprintf("%b", a0)), nil
	case ServicePrintUnsigned:
		return printed(strconv.FormatUint(uint64(a0), 10)), nil
	case insts.KernelSentinel:
		return Syscall{Kind: KindError, Message: KernelMessage}, nil
	default:
		return Syscall{}, fmt.Errorf("%w: %d", ErrUnknownSyscall, v0)
	}
}

func printed(msg string) Syscall {
	return Syscall{Kind: KindPrint, Message: msg}
}

func (h *DefaultSyscallHandler) readString(addr uint32) (string, error) {
	var buf []byte

	for {
		b, err := h.memory.Read8(addr)
		if err != nil {
			return "", fmt.Errorf("print string: %w", err)
		}

		if b == 0 {
			break
		}

		buf = append(buf, b)
		addr++
	}

	if !utf8.Valid(buf) {
		return "", fmt.Errorf("print string: %w: not valid UTF-8", ErrInvalidInput)
	}

	return string(buf), nil
}

// Resolve writes the parsed input of a read syscall into the register file
// or memory. Non-read syscalls are a no-op.
func (h *DefaultSyscallHandler) Resolve(sc Syscall, input string) error {
	input = strings.TrimSpace(input)

	switch sc.Kind {
	case KindReadInt:
		v, err := strconv.ParseInt(input, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, input)
		}

		h.regFile.Set(insts.V0, uint32(int32(v)))
	case KindReadFloat:
		v, err := strconv.ParseFloat(input, 32)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float", ErrInvalidInput, input)
		}

		h.regFile.Set(insts.F0, math.Float32bits(float32(v)))
	case KindReadString:
		return h.writeString(input)
	}

	return nil
}

func (h *DefaultSyscallHandler) writeString(input string) error {
	addr := h.regFile.Get(insts.A0)
	limit := h.regFile.Get(insts.A1)

	for i := uint32(0); i < limit; i++ {
		var b byte
		if int(i) < len(input) {
			b = input[i]
		}

		if err := h.memory.Write8(addr+i, b); err != nil {
			return fmt.Errorf("read string: %w", err)
		}
	}

	return nil
}
