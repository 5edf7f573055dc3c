package syn

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestDecodeImage(t *testing.T) {
	for _, c := range []struct {
		words int
	}{
		{0},
		{1},
		{0x1000},
		{MemSize - 1},
		{MemSize},
	} {
		t.Run(fmt.Sprintf("%05d", c.words), func(t *testing.T) {
			b := bytes.Repeat([]byte{0x34, 0x12}, c.words)
			mem, err := DecodeImage(b)
			if err != nil {
				t.Fatal(err)
			}
			for i := range mem {
				w := uint16(NOOP)
				if i < c.words {
					w = 0x1234
				}
				if g := mem[i]; g != w {
					t.Fatalf("mem[%05d] == %#x, want %#x", i, g, w)
				}
			}
		})
	}
}

func TestDecodeImageLittleEndian(t *testing.T) {
	mem, err := DecodeImage([]byte{9, 0, 0x00, 0x80, 0x01, 0x80, 0xff, 0x7f})
	if err != nil {
		t.Fatal(err)
	}
	if g, w := mem[:4], []uint16{uint16(ADD), 32768, 32769, 32767}; fmt.Sprint(g) != fmt.Sprint(w) {
		t.Errorf("decoded %v, want %v", g, w)
	}
}

func TestDecodeImageErrors(t *testing.T) {
	for _, n := range []int{1, 3, 2*MemSize + 1, 2*MemSize + 2, 3 * MemSize} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			_, err := DecodeImage(make([]byte, n))
			var ie *ImageError
			if !errors.As(err, &ie) {
				t.Fatalf("got error %v, want *ImageError", err)
			}
			if ie.Bytes != n {
				t.Errorf("error reports %d bytes, want %d", ie.Bytes, n)
			}
		})
	}
}

func TestLoadImage(t *testing.T) {
	img := EncodeImage(uint16(OUT), 'h', uint16(HALT))
	m, err := LoadImage(bytes.NewReader(img))
	if err != nil {
		t.Fatal(err)
	}
	if m.Mem[0] != uint16(OUT) || m.Mem[1] != 'h' || m.Mem[2] != uint16(HALT) || m.Mem[3] != uint16(NOOP) {
		t.Errorf("unexpected memory prefix %v", m.Mem[:4])
	}
	if m.PC != 0 || m.Stack.Len() != 0 || m.Reg != [NumRegs]uint16{} {
		t.Errorf("machine not in its initial state: pc=%d stack=%v regs=%v", m.PC, m.Stack, m.Reg)
	}
}
