package frame

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// Delimiter terminates every frame on the wire.
const Delimiter byte = '\n'

var (
	// ErrEmpty indicates the frame content is empty after trimming.
	ErrEmpty = errors.New("empty frame")
	// ErrDelimiter indicates the content embeds the frame delimiter.
	ErrDelimiter = errors.New("frame contains delimiter")
)

// Frame is the logical content of a frame, without the delimiter.
type Frame string

// New builds a Frame from text to be sent.
func New(text string) (Frame, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	if strings.IndexByte(text, Delimiter) >= 0 {
		return "", ErrDelimiter
	}
	return Frame(text), nil
}

// MustNew is New which panics on error, for constant frames.
func MustNew(text string) Frame {
	f, err := New(text)
	if err != nil {
		panic(err)
	}
	return f
}

// Decode normalizes a raw frame candidate. ok is false when nothing
// remains after trimming.
func Decode(raw []byte) (f Frame, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	return Frame(raw), true
}

// Encode returns the wire bytes of f.
func Encode(f Frame) []byte {
	b := make([]byte, len(f)+1)
	copy(b, f)
	b[len(f)] = Delimiter
	return b
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return string(f)
}

// WriteTo writes the wire bytes.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(Encode(f))
	return int64(n), err
}
