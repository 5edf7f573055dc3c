package syn

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Instr is a decoded instruction.
type Instr struct {
	Addr uint16
	Op   Op
	Args []uint16 // raw operand words
}

// Instr decodes the instruction at addr. It reports false if the word at
// addr is not an opcode or the instruction runs past the end of memory.
func (m *Machine) Instr(addr uint16) (Instr, bool) {
	return DecodeInstr(m.Mem[:], int(addr))
}

// DecodeInstr decodes the instruction at mem[addr].
func DecodeInstr(mem []uint16, addr int) (Instr, bool) {
	if addr < 0 || addr >= len(mem) {
		return Instr{}, false
	}
	op := Op(mem[addr])
	if !op.Valid() || addr+op.Size() > len(mem) {
		return Instr{Addr: uint16(addr), Op: op}, false
	}
	return Instr{
		Addr: uint16(addr),
		Op:   op,
		Args: mem[addr+1 : addr+op.Size()],
	}, true
}

// Size reports the number of words the instruction occupies.
func (in Instr) Size() int { return 1 + len(in.Args) }

func (in Instr) String() string {
	if !in.Op.Valid() {
		return fmt.Sprintf("data %d", uint16(in.Op))
	}
	var b strings.Builder
	b.WriteString(in.Op.String())
	for _, w := range in.Args {
		b.WriteByte(' ')
		if in.Op == OUT && Classify(w) == Literal {
			fmt.Fprintf(&b, "%q", rune(w))
			continue
		}
		b.WriteString(OperandString(w))
	}
	return b.String()
}

// OperandString formats an operand word, marking register references
// as r0 to r7.
func OperandString(w uint16) string {
	switch Classify(w) {
	case Literal:
		return fmt.Sprint(w)
	case Register:
		return fmt.Sprintf("r%d", w-RegBase)
	}
	return fmt.Sprintf("?%d", w)
}

// Disassemble writes a listing of mem[from:to] to w, one instruction or
// data word per line.
func Disassemble(w io.Writer, mem []uint16, from, to int) error {
	if to > len(mem) {
		to = len(mem)
	}
	bw := bufio.NewWriter(w)
	for addr := from; addr < to; {
		in, ok := DecodeInstr(mem, addr)
		if !ok {
			fmt.Fprintf(bw, "%05d: data %d\n", addr, mem[addr])
			addr++
			continue
		}
		fmt.Fprintf(bw, "%05d: %v\n", addr, in)
		addr += in.Size()
	}
	return bw.Flush()
}
