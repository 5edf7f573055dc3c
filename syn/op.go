package syn

import (
	"fmt"
	"strings"
)

// Op represents a Synacor opcode.
type Op uint16

const (
	HALT Op = iota
	SET
	PUSH
	POP
	EQ
	GT
	JMP
	JT
	JF
	ADD
	MULT
	MOD
	AND
	OR
	NOT
	RMEM
	WMEM
	CALL
	RET
	OUT
	IN
	NOOP

	numOps = iota
)

// Valid reports whether the opcode is one of the 22 instructions.
func (o Op) Valid() bool { return o < numOps }

// Args reports the number of operand words that follow the opcode.
// It returns 0 for invalid opcodes.
func (o Op) Args() int {
	if !o.Valid() {
		return 0
	}
	return int(opArgs[o])
}

// Size reports the width of the instruction in words, opcode included.
func (o Op) Size() int { return 1 + o.Args() }

func (o Op) String() string {
	if !o.Valid() {
		return fmt.Sprintf("op(%d)", uint16(o))
	}
	return opStrings[o]
}

// Decode returns the Op for w, or an UnknownOpcode error if w does not
// encode an instruction.
func Decode(w uint16) (Op, error) {
	if o := Op(w); o.Valid() {
		return o, nil
	}
	return 0, fmt.Errorf("%w %d", ErrUnknownOpcode, w)
}

// Lookup returns the Op with the given mnemonic.
func Lookup(mnemonic string) (Op, bool) {
	for i, s := range opStrings {
		if s == mnemonic {
			return Op(i), true
		}
	}
	return 0, false
}

var opArgs = [numOps]byte{
	HALT: 0,
	SET:  2,
	PUSH: 1,
	POP:  1,
	EQ:   3,
	GT:   3,
	JMP:  1,
	JT:   2,
	JF:   2,
	ADD:  3,
	MULT: 3,
	MOD:  3,
	AND:  3,
	OR:   3,
	NOT:  2,
	RMEM: 2,
	WMEM: 2,
	CALL: 1,
	RET:  0,
	OUT:  1,
	IN:   1,
	NOOP: 0,
}

var opStrings = strings.Fields(`
	halt set push pop eq gt jmp jt jf add mult mod and or not
	rmem wmem call ret out in noop
`)

// OpSet is a set of opcodes, used to record which instructions a program
// has executed.
type OpSet uint32

func (s *OpSet) Add(o Op) {
	if o.Valid() {
		*s |= 1 << o
	}
}

func (s OpSet) Has(o Op) bool { return o.Valid() && s&(1<<o) != 0 }

// Ops returns the members of the set in opcode order.
func (s OpSet) Ops() []Op {
	var ops []Op
	for o := Op(0); o < numOps; o++ {
		if s.Has(o) {
			ops = append(ops, o)
		}
	}
	return ops
}

func (s OpSet) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, o := range s.Ops() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(o.String())
	}
	b.WriteByte(']')
	return b.String()
}
