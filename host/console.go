package host

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInterrupted is returned by Console.In when a pending read is
// abandoned by Interrupt.
var ErrInterrupted = errors.New("input interrupted")

// Console is the terminal device of a Synacor machine. Input is read a
// line at a time and handed out one character per In, followed by a
// newline. Output is buffered and flushed before each blocking read.
type Console struct {
	src   io.Reader
	out   *bufio.Writer
	queue []rune

	start sync.Once
	lines chan string
	err   error // read error, valid once lines is closed
	intr  chan bool
}

// NewConsole returns a Console reading lines from in and writing
// characters to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		src:  in,
		out:  bufio.NewWriter(out),
		intr: make(chan bool, 1),
	}
}

// In returns the next input character, blocking on a fresh line when the
// queue is empty.
func (c *Console) In() (uint16, error) {
	if len(c.queue) == 0 {
		if err := c.out.Flush(); err != nil {
			return 0, err
		}
		c.start.Do(func() {
			c.lines = make(chan string)
			go c.readLines()
		})
		select {
		case line, ok := <-c.lines:
			if !ok {
				return 0, c.err
			}
			c.queue = append([]rune(line), '\n')
		case <-c.intr:
			return 0, ErrInterrupted
		}
	}
	r := c.queue[0]
	c.queue = c.queue[1:]
	return uint16(r), nil
}

// Out writes the character c.
func (c *Console) Out(ch uint16) error {
	_, err := c.out.WriteRune(rune(ch))
	return err
}

// Flush writes any buffered output.
func (c *Console) Flush() error { return c.out.Flush() }

// Interrupt makes a pending or the next blocking In return ErrInterrupted.
// Characters already queued are not affected.
func (c *Console) Interrupt() {
	select {
	case c.intr <- true:
	default:
	}
}

// Reset discards the characters remaining from the current line.
func (c *Console) Reset() { c.queue = c.queue[:0] }

func (c *Console) readLines() {
	defer close(c.lines)
	r := bufio.NewReader(c.src)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if err != nil {
			if line != "" {
				c.lines <- line
			}
			c.err = err
			return
		}
		c.lines <- line
	}
}
