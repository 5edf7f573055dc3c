package syn

import "fmt"

// Operand classifies an operand word.
type Operand byte

const (
	Invalid  Operand = iota
	Literal          // 0..32767
	Register         // 32768..32775
)

func (k Operand) String() string {
	switch k {
	case Literal:
		return "literal"
	case Register:
		return "register"
	}
	return "invalid"
}

// Classify reports whether w is a literal, a register reference or
// neither.
func Classify(w uint16) Operand {
	switch {
	case w <= MaxLiteral:
		return Literal
	case w < RegBase+NumRegs:
		return Register
	}
	return Invalid
}

// Value resolves an operand word: a literal is its own value and a
// register reference yields the register's contents.
func (m *Machine) Value(w uint16) (uint16, error) {
	switch Classify(w) {
	case Literal:
		return w, nil
	case Register:
		return m.Reg[w-RegBase], nil
	}
	return 0, fmt.Errorf("%w %d", ErrInvalidOperand, w)
}

// target is a settable location resolved from a destination operand.
type target struct {
	reg  bool
	addr uint16 // register number or memory address
}

// target resolves a destination operand. Destinations must be register
// references unless Options.LiteralTargets is set, in which case a literal
// names a memory address.
func (m *Machine) target(w uint16) (target, error) {
	switch Classify(w) {
	case Register:
		return target{reg: true, addr: w - RegBase}, nil
	case Literal:
		if m.Options.LiteralTargets {
			return target{addr: w}, nil
		}
		return target{}, fmt.Errorf("%w: literal destination %d", ErrInvalidOperand, w)
	}
	return target{}, fmt.Errorf("%w %d", ErrInvalidOperand, w)
}

func (m *Machine) set(t target, v int) {
	if t.reg {
		m.SetRegister(t.addr, v)
	} else {
		m.Mem[t.addr] = Normalize(v)
	}
}
