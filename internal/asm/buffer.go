// Package asm holds the growable byte arena that generated code is written
// to. It is independent of the instruction set being emitted.
package asm

import (
	"encoding/binary"
	"fmt"
)

// Buffer is an append-only code buffer which also supports patching bytes
// that were already written, as needed to resolve forward references.
//
// The zero value is a valid, empty buffer.
type Buffer struct {
	code []byte
	size int
}

// NewBuffer constructs a Buffer with room for capacity bytes before growing.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{code: make([]byte, capacity)}
}

// Len returns the number of bytes written so far.
func (buf *Buffer) Len() int {
	return buf.size
}

// Bytes returns the written bytes.
//
// The returned slice remains valid until more bytes are written to the buffer.
func (buf *Buffer) Bytes() []byte {
	return buf.code[:buf.size:buf.size]
}

// Slice returns the n bytes written at offset off, or an error when the
// range was not written yet.
func (buf *Buffer) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > buf.size {
		return nil, fmt.Errorf("range [%d, %d) outside of buffer of length %d", off, off+n, buf.size)
	}
	return buf.code[off : off+n : off+n], nil
}

// Truncate discards all but the first n written bytes.
func (buf *Buffer) Truncate(n int) {
	if n < buf.size {
		buf.size = n
	}
}

// Append extends the buffer by n bytes and returns them for writing.
func (buf *Buffer) Append(n int) []byte {
	i := buf.size
	j := buf.size + n
	if j > len(buf.code) {
		buf.grow(n)
	}
	buf.size = j
	return buf.code[i:j:j]
}

// AppendBytes writes b.
func (buf *Buffer) AppendBytes(b []byte) {
	copy(buf.Append(len(b)), b)
}

// AppendUint32 writes u in little-endian order.
func (buf *Buffer) AppendUint32(u uint32) {
	binary.LittleEndian.PutUint32(buf.Append(4), u)
}

// Patch overwrites the bytes at offset off with b. The whole range must
// have been written already.
func (buf *Buffer) Patch(off int, b []byte) error {
	dst, err := buf.Slice(off, len(b))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (buf *Buffer) grow(n int) {
	size := len(buf.code)
	want := buf.size + n
	if size >= want {
		return
	}
	if size == 0 {
		size = 256
	}
	for size < want {
		size *= 2
	}
	code := make([]byte, size)
	copy(code, buf.code[:buf.size])
	buf.code = code
}
