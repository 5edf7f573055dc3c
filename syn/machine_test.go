package syn

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	for _, c := range []struct {
		in   int
		want uint16
	}{
		{0, 0},
		{1, 1},
		{32767, 32767},
		{32768, 0},
		{32769, 1},
		{65535, 32767},
		{-1, 32767},
		{-32768, 0},
		{-32769, 32767},
		{32767 * 32767, 1},
	} {
		if g := Normalize(c.in); g != c.want {
			t.Errorf("Normalize(%d) = %d, want %d", c.in, g, c.want)
		}
	}
}

func TestRegisters(t *testing.T) {
	m := newTestMachine(t)
	m.SetRegister(3, 40000)
	if g := m.Register(3); g != 7232 {
		t.Errorf("r3 = %d, want 7232", g)
	}
	// Register-space words address the same cells.
	if g := m.Register(RegBase + 3); g != 7232 {
		t.Errorf("Register(%d) = %d, want 7232", RegBase+3, g)
	}
	m.SetRegister(RegBase+7, -5)
	if g := m.Reg[7]; g != 32763 {
		t.Errorf("r7 = %d, want 32763", g)
	}
	m.SetRegister(9, 12)
	if g := m.Reg[1]; g != 12 {
		t.Errorf("r1 = %d, want 12 (index taken modulo 8)", g)
	}
}

func TestMemoryBounds(t *testing.T) {
	m := newTestMachine(t, 1, 2, 3)
	if v, err := m.ReadMem(2); err != nil || v != 3 {
		t.Errorf("ReadMem(2) = %d, %v", v, err)
	}
	if err := m.WriteMem(MemSize-1, 40000); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.ReadMem(MemSize - 1); v != 7232 {
		t.Errorf("memory[%d] = %d, want normalized 7232", MemSize-1, v)
	}
	for _, addr := range []int{-1, MemSize, MemSize + 8} {
		if _, err := m.ReadMem(addr); !errors.Is(err, ErrAddressOutOfRange) {
			t.Errorf("ReadMem(%d) returned %v", addr, err)
		}
		if err := m.WriteMem(addr, 0); !errors.Is(err, ErrAddressOutOfRange) {
			t.Errorf("WriteMem(%d) returned %v", addr, err)
		}
	}
}

func TestStack(t *testing.T) {
	m := newTestMachine(t)
	if _, err := m.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("Pop on empty stack returned %v", err)
	}
	for i := uint16(0); i < 1000; i++ {
		m.Push(i)
	}
	if v, ok := m.Stack.Peek(); !ok || v != 999 {
		t.Errorf("Peek = %d, %v", v, ok)
	}
	for i := 999; i >= 0; i-- {
		v, err := m.Pop()
		if err != nil || v != uint16(i) {
			t.Fatalf("Pop = %d, %v; want %d", v, err, i)
		}
	}
	if m.Stack.Len() != 0 {
		t.Errorf("stack not empty: %v", m.Stack)
	}
	m.Push(1)
	m.Push(2)
	if g, w := m.Stack.String(), "( 1 2 )"; g != w {
		t.Errorf("String() = %q, want %q", g, w)
	}
}

func TestClassify(t *testing.T) {
	for _, c := range []struct {
		w    uint16
		want Operand
	}{
		{0, Literal},
		{32767, Literal},
		{32768, Register},
		{32775, Register},
		{32776, Invalid},
		{65535, Invalid},
	} {
		if g := Classify(c.w); g != c.want {
			t.Errorf("Classify(%d) = %v, want %v", c.w, g, c.want)
		}
	}

	m := newTestMachine(t)
	m.Reg[5] = 99
	if v, err := m.Value(RegBase + 5); err != nil || v != 99 {
		t.Errorf("Value(r5) = %d, %v", v, err)
	}
	if v, err := m.Value(1234); err != nil || v != 1234 {
		t.Errorf("Value(1234) = %d, %v", v, err)
	}
	if _, err := m.Value(40000); !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("Value(40000) returned %v", err)
	}
	if _, err := m.target(10); !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("literal destination accepted: %v", err)
	}
	m.Options.LiteralTargets = true
	if tg, err := m.target(10); err != nil || tg.reg || tg.addr != 10 {
		t.Errorf("target(10) = %+v, %v", tg, err)
	}
	if tg, err := m.target(RegBase + 2); err != nil || !tg.reg || tg.addr != 2 {
		t.Errorf("target(r2) = %+v, %v", tg, err)
	}
}
