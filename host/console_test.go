package host

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestConsoleInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewConsole(pr, io.Discard)

	go io.WriteString(pw, "abc\n")
	for _, want := range "abc\n" {
		got, err := c.In()
		if err != nil {
			t.Fatal(err)
		}
		if got != uint16(want) {
			t.Fatalf("In() = %q, want %q", rune(got), want)
		}
	}

	// The queue is empty, so the next In blocks until another line arrives.
	next := make(chan uint16)
	go func() {
		v, err := c.In()
		if err != nil {
			t.Error(err)
		}
		next <- v
	}()
	select {
	case v := <-next:
		t.Fatalf("In returned %q without a new line", rune(v))
	case <-time.After(50 * time.Millisecond):
	}
	go io.WriteString(pw, "de\n")
	select {
	case v := <-next:
		if v != 'd' {
			t.Errorf("In() = %q, want 'd'", rune(v))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("In did not return after a line was written")
	}
}

func TestConsoleLines(t *testing.T) {
	for _, c := range []struct {
		in   string
		want string
	}{
		{"", ""},
		{"\n", "\n"},
		{"go north\n", "go north\n"},
		{"one\ntwo\n", "one\ntwo\n"},
		{"crlf\r\n", "crlf\n"},
		{"no newline", "no newline\n"},
		{"héllo\n", "héllo\n"},
	} {
		t.Run(c.want, func(t *testing.T) {
			con := NewConsole(strings.NewReader(c.in), io.Discard)
			var got []rune
			for {
				v, err := con.In()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, rune(v))
			}
			if string(got) != c.want {
				t.Errorf("read %q, want %q", string(got), c.want)
			}
		})
	}
}

func TestConsoleOutputFlushedBeforeRead(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("x\n"), &out)
	for _, r := range "ok?" {
		if err := c.Out(uint16(r)); err != nil {
			t.Fatal(err)
		}
	}
	if out.Len() != 0 {
		t.Errorf("output written before flush: %q", out.String())
	}
	if _, err := c.In(); err != nil {
		t.Fatal(err)
	}
	if g := out.String(); g != "ok?" {
		t.Errorf("output is %q before blocking read, want %q", g, "ok?")
	}
	c.Out('é')
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if g := out.String(); g != "ok?é" {
		t.Errorf("output is %q, want %q", g, "ok?é")
	}
}

func TestConsoleInterrupt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewConsole(pr, io.Discard)

	done := make(chan error)
	go func() {
		_, err := c.In()
		done <- err
	}()
	c.Interrupt()
	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Errorf("In returned %v, want %v", err, ErrInterrupted)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("In was not interrupted")
	}

	// Input arriving later is still delivered.
	go io.WriteString(pw, "z\n")
	if v, err := c.In(); err != nil || v != 'z' {
		t.Errorf("In() = %q, %v; want 'z'", rune(v), err)
	}
}
