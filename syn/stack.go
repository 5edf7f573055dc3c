package syn

import (
	"fmt"
	"strings"
)

// Stack implements the unbounded Synacor stack.
type Stack struct {
	Words []uint16
}

func (s *Stack) Push(v uint16) { s.Words = append(s.Words, v) }

// Pop removes and returns the top of the stack.
// It returns ErrStackUnderflow if the stack is empty.
func (s *Stack) Pop() (uint16, error) {
	n := len(s.Words)
	if n == 0 {
		return 0, ErrStackUnderflow
	}
	v := s.Words[n-1]
	s.Words = s.Words[:n-1]
	return v, nil
}

// Peek returns the top of the stack without removing it.
func (s *Stack) Peek() (uint16, bool) {
	n := len(s.Words)
	if n == 0 {
		return 0, false
	}
	return s.Words[n-1], true
}

func (s *Stack) Len() int { return len(s.Words) }

func (s Stack) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, v := range s.Words {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteByte(' ')
	b.WriteByte(')')
	return b.String()
}
