package syn

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrInvalidOperand    = errors.New("invalid operand")
	ErrDivideByZero      = errors.New("division by zero")
	ErrNoDevice          = errors.New("no device attached")
	ErrWatchdog          = errors.New("watchdog: cycle limit reached")
)

// Exec executes the instruction at m.PC. It returns a HaltError if that
// instruction is halt, or ret with an empty stack, or if execution cannot
// continue; in the latter case m.PC is left at the faulting instruction.
func (m *Machine) Exec() (err error) {
	var (
		opPC = m.PC
		op   Op
	)
	defer func() {
		if e := recover(); e != nil {
			f, ok := e.(fault)
			if !ok {
				panic(e)
			}
			m.PC = opPC
			err = HaltError{HaltCode: f.code, Op: op, Addr: opPC, Err: f.err}
		}
	}()

	m.Cycles++
	op = Op(m.arg(opPC, 0))
	if !op.Valid() {
		if m.Options.Resync {
			m.PC = m.resync(op, opPC)
			return nil
		}
		panic(fault{UnknownOpcode, fmt.Errorf("%w %d", ErrUnknownOpcode, uint16(op))})
	}
	m.Seen.Add(op)
	if m.Tracef != nil {
		m.trace(opPC)
	}

	next := opPC + uint16(op.Size())

	switch op {
	case HALT:
		return HaltError{HaltCode: Halt, Op: op, Addr: opPC}
	case SET:
		a, b := m.dst(opPC, 1), m.val(opPC, 2)
		m.set(a, int(b))
	case PUSH:
		m.Push(m.val(opPC, 1))
	case POP:
		a := m.dst(opPC, 1)
		v, err := m.Pop()
		if err != nil {
			panic(fault{Underflow, err})
		}
		m.set(a, int(v))
	case EQ, GT:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		var t bool
		if op == EQ {
			t = b == c
		} else {
			t = b > c
		}
		m.set(a, boolInt(t))
	case JMP:
		next = m.val(opPC, 1)
	case JT, JF:
		a, b := m.val(opPC, 1), m.val(opPC, 2)
		if (a != 0) == (op == JT) {
			next = b
		}
	case ADD:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		m.set(a, int(b)+int(c))
	case MULT:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		m.set(a, int(b)*int(c))
	case MOD:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		if c == 0 {
			panic(fault{DivideByZero, ErrDivideByZero})
		}
		m.set(a, int(b%c))
	case AND:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		m.set(a, int(b&c))
	case OR:
		a, b, c := m.dst(opPC, 1), m.val(opPC, 2), m.val(opPC, 3)
		m.set(a, int(b|c))
	case NOT:
		a, b := m.dst(opPC, 1), m.val(opPC, 2)
		m.set(a, int(^b&MaxLiteral))
	case RMEM:
		a, b := m.dst(opPC, 1), m.val(opPC, 2)
		m.set(a, int(m.Mem[b]))
	case WMEM:
		a, b := m.val(opPC, 1), m.val(opPC, 2)
		m.Mem[a] = b
	case CALL:
		a := m.val(opPC, 1)
		m.Push(next)
		next = a
	case RET:
		v, err := m.Pop()
		if err != nil {
			return HaltError{HaltCode: Return, Op: op, Addr: opPC}
		}
		next = v
	case OUT:
		a := m.val(opPC, 1)
		if err := m.device().Out(a); err != nil {
			panic(fault{IOError, err})
		}
	case IN:
		a := m.dst(opPC, 1)
		c, err := m.device().In()
		if err != nil {
			panic(fault{IOError, err})
		}
		m.set(a, int(c))
	case NOOP:
	default:
		panic(fmt.Errorf("internal error: %v not implemented", op))
	}

	m.PC = next
	return nil
}

// Run executes instructions until the program halts, returning nil if it
// stopped on halt or on ret with an empty stack. If limit is non-zero, Run
// stops with a *WatchdogError once m.Cycles reaches limit. Cancelling ctx
// stops the machine between instructions.
func (m *Machine) Run(ctx context.Context, limit uint64) error {
	for n := 0; ; n++ {
		if limit > 0 && m.Cycles >= limit {
			return &WatchdogError{Cycles: m.Cycles, PC: m.PC}
		}
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := m.Exec(); err != nil {
			var h HaltError
			if errors.As(err, &h) && !h.Fatal() {
				return nil
			}
			return err
		}
	}
}

const ctxCheckInterval = 1 << 12

// arg returns the i'th word of the instruction at pc.
func (m *Machine) arg(pc uint16, i int) uint16 {
	addr := int(pc) + i
	if addr >= MemSize {
		panic(fault{AddressOutOfRange, fmt.Errorf("%w: fetch %d", ErrAddressOutOfRange, addr)})
	}
	return m.Mem[addr]
}

func (m *Machine) val(pc uint16, i int) uint16 {
	v, err := m.Value(m.arg(pc, i))
	if err != nil {
		panic(fault{InvalidOperand, err})
	}
	return v
}

func (m *Machine) dst(pc uint16, i int) target {
	t, err := m.target(m.arg(pc, i))
	if err != nil {
		panic(fault{InvalidOperand, err})
	}
	return t
}

func (m *Machine) device() Device {
	if m.Dev == nil {
		panic(fault{IOError, ErrNoDevice})
	}
	return m.Dev
}

// resync returns the address of the next word after pc that encodes an
// instruction.
func (m *Machine) resync(op Op, pc uint16) uint16 {
	for addr := int(pc) + 1; addr < MemSize; addr++ {
		if Op(m.Mem[addr]).Valid() {
			if m.Tracef != nil {
				m.Tracef("%05d skipping unknown opcode %d, resuming at %05d", pc, uint16(op), addr)
			}
			return uint16(addr)
		}
	}
	panic(fault{UnknownOpcode, fmt.Errorf("%w %d: no instruction follows", ErrUnknownOpcode, uint16(op))})
}

func (m *Machine) trace(pc uint16) {
	in, _ := m.Instr(pc)
	// Tracef may format later, after the program has rewritten memory.
	in.Args = append([]uint16(nil), in.Args...)
	m.Tracef("%05d %-20v regs %v stack %d", pc, in, m.Reg, m.Stack.Len())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type fault struct {
	code HaltCode
	err  error
}

// HaltError is returned by Exec when execution stops, either because the
// program asked to or because of a fault.
type HaltError struct {
	HaltCode
	Op   Op
	Addr uint16
	Err  error // underlying cause, if any
}

func (e HaltError) Error() string {
	s := fmt.Sprintf("%s executing %s at %05d", e.HaltCode, e.Op, e.Addr)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e HaltError) Unwrap() error { return e.Err }

// HaltCode signifies the type of condition that halted execution.
type HaltCode byte

const (
	Halt   HaltCode = iota // halt instruction
	Return                 // ret with an empty stack
	Underflow
	AddressOutOfRange
	UnknownOpcode
	InvalidOperand
	DivideByZero
	IOError
)

// Fatal reports whether the code describes a fault rather than a normal
// end of the program.
func (c HaltCode) Fatal() bool { return c != Halt && c != Return }

func (c HaltCode) String() string {
	if s, ok := map[HaltCode]string{
		Halt:              "halt",
		Return:            "return",
		Underflow:         "stack underflow",
		AddressOutOfRange: "address out of range",
		UnknownOpcode:     "unknown opcode",
		InvalidOperand:    "invalid operand",
		DivideByZero:      "division by zero",
		IOError:           "I/O error",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}

// WatchdogError is returned by Run when the cycle limit is reached.
type WatchdogError struct {
	Cycles uint64
	PC     uint16
}

func (e *WatchdogError) Error() string {
	return fmt.Sprintf("%v after %d cycles at %05d", ErrWatchdog, e.Cycles, e.PC)
}

func (e *WatchdogError) Unwrap() error { return ErrWatchdog }
