// Package wire implements the little-endian primitives of the CRUSH map
// binary format: fixed-width integers and length-prefixed strings.
package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Reader decodes primitives from an in-memory buffer.
//
// A Reader never retains references into the buffer beyond its own lifetime:
// every string it returns is a copy.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Need fails with ErrTruncated unless count fields of width bytes each can
// still be read. It lets callers reject absurd counts before allocating.
func (r *Reader) Need(count uint64, width int) error {
	if width <= 0 {
		return nil
	}
	if count > uint64(r.Remaining())/uint64(width) {
		return fmt.Errorf("%w: %d x %d bytes at offset %d, have %d",
			ErrTruncated, count, width, r.off, r.Remaining())
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// TextLen reads a string length. A zero first word means the real length
// follows in a second word; maps written before the length field was widened
// use the single-word form.
func (r *Reader) TextLen() (uint32, error) {
	n, err := r.U32()
	if err != nil {
		return 0, err
	}
	if n != 0 {
		return n, nil
	}
	return r.U32()
}

// Text reads a length-prefixed UTF-8 string.
func (r *Reader) Text() (string, error) {
	start := r.off
	n, err := r.TextLen()
	if err != nil {
		return "", err
	}
	if err := r.Need(uint64(n), 1); err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: string at offset %d", ErrInvalidText, start)
	}
	return string(b), nil
}
