package wire

import (
	"encoding/binary"
	"io"
)

// Writer appends little-endian primitives to a growable buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	if capacity < 0 {
		capacity = 0
	}
	return &Writer{buf: make([]byte, 0, capacity)}
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// I32 appends a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// Text appends a string with a single-word length prefix. The extended
// zero-then-length form is accepted by Reader but never produced here.
func (w *Writer) Text(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded bytes. The slice is owned by the writer until
// the caller stops writing.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteTo writes the encoded bytes to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}
