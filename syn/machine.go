// Package syn provides an implementation of the Synacor virtual machine,
// called Machine, that can be used to execute Synacor bytecode.
package syn

import "fmt"

const (
	MemSize    = 1 << 15 // words of memory
	NumRegs    = 8
	Modulus    = 1 << 15 // arithmetic is modulo 32768
	MaxLiteral = Modulus - 1
	RegBase    = Modulus // the word that refers to register 0
)

// Machine is an implementation of the Synacor CPU.
type Machine struct {
	Mem   [MemSize]uint16
	Reg   [NumRegs]uint16
	Stack Stack
	PC    uint16
	Dev   Device

	Options Options

	// Cycles counts the instructions executed so far.
	Cycles uint64
	// Seen records each opcode the machine has executed.
	Seen OpSet
	// Tracef, if set, receives a line for each instruction executed.
	Tracef func(format string, args ...any)
}

// Options selects between the documented policies for behaviour the ISA
// leaves open.
type Options struct {
	// Resync makes Exec skip an unknown opcode by scanning forward to the
	// next word that encodes an instruction, instead of halting.
	Resync bool

	// LiteralTargets allows a literal destination operand, which is then
	// treated as a memory address. Register references still take
	// precedence. By default a literal destination halts the machine.
	LiteralTargets bool
}

// Device provides the machine's character I/O.
type Device interface {
	// In blocks until an input character is available.
	In() (uint16, error)
	// Out emits one character.
	Out(c uint16) error
}

// NewMachine returns a Synacor CPU with its memory loaded from image,
// as decoded by DecodeImage.
func NewMachine(image []byte) (*Machine, error) {
	mem, err := DecodeImage(image)
	if err != nil {
		return nil, err
	}
	return &Machine{Mem: mem}, nil
}

// Normalize reduces v into the literal range [0, 32767], mapping negative
// values into the positive residue class.
func Normalize(v int) uint16 {
	return uint16((v%Modulus + Modulus) % Modulus)
}

// ReadMem returns the word at addr.
func (m *Machine) ReadMem(addr int) (uint16, error) {
	if addr < 0 || addr >= MemSize {
		return 0, fmt.Errorf("%w: read %d", ErrAddressOutOfRange, addr)
	}
	return m.Mem[addr], nil
}

// WriteMem stores the normalized value v at addr.
func (m *Machine) WriteMem(addr int, v uint16) error {
	if addr < 0 || addr >= MemSize {
		return fmt.Errorf("%w: write %d", ErrAddressOutOfRange, addr)
	}
	m.Mem[addr] = Normalize(int(v))
	return nil
}

// Register returns the contents of register idx. The index is taken modulo
// 8, so both register numbers and register-space words are accepted.
func (m *Machine) Register(idx uint16) uint16 {
	return m.Reg[idx%NumRegs]
}

// SetRegister stores the normalized value v in register idx.
// The index is interpreted as in Register.
func (m *Machine) SetRegister(idx uint16, v int) {
	m.Reg[idx%NumRegs] = Normalize(v)
}

func (m *Machine) Push(v uint16) { m.Stack.Push(v) }

func (m *Machine) Pop() (uint16, error) { return m.Stack.Pop() }
