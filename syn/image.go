package syn

import (
	"fmt"
	"io"
)

// ImageError is returned when a program image cannot be decoded into
// exactly MemSize words.
type ImageError struct {
	Bytes int // length of the raw image
	Words int // words decoded before padding
}

func (e *ImageError) Error() string {
	if e.Bytes%2 != 0 {
		return fmt.Sprintf("invalid image: odd length %d", e.Bytes)
	}
	return fmt.Sprintf("invalid image: %d words, want at most %d", e.Words, MemSize)
}

// DecodeImage converts a program image of little-endian 16-bit words into
// a full memory, padding with NOOP after the end of the image.
func DecodeImage(b []byte) (mem [MemSize]uint16, err error) {
	n := len(b) / 2
	if len(b)%2 != 0 || n > MemSize {
		return mem, &ImageError{Bytes: len(b), Words: n}
	}
	for i := 0; i < n; i++ {
		mem[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	for i := n; i < MemSize; i++ {
		mem[i] = uint16(NOOP)
	}
	return mem, nil
}

// LoadImage reads a program image from r and returns a machine loaded
// with it.
func LoadImage(r io.Reader) (*Machine, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return NewMachine(b)
}

// EncodeImage returns the image encoding of words. It is the inverse of
// DecodeImage for images without trailing padding.
func EncodeImage(words ...uint16) []byte {
	b := make([]byte, 0, len(words)*2)
	for _, w := range words {
		b = append(b, byte(w), byte(w>>8))
	}
	return b
}
